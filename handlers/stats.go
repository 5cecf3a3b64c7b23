// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/onevote/middleware"
	"github.com/danielhkuo/onevote/models"
	"golang.org/x/sync/errgroup"
)

// summaryConcurrency bounds the counts one summary request runs at once
const summaryConcurrency = 4

// StatsStore is the read side of the vote store
type StatsStore interface {
	CountVotes(ctx context.Context, filter models.VoteFilter) (int, error)
	CountEvents(ctx context.Context, eventType string) (int, error)
	CountEventsBy(ctx context.Context, eventType, key string) (map[string]int, error)
	Ping(ctx context.Context) error
}

// genderUnknown collects abandonment events that carried no gender
const genderUnknown = "unknown"

// ageBuckets partition MinAge..MaxAge for the summary
var ageBuckets = []struct {
	label    string
	min, max int
}{
	{"16-30", 16, 30},
	{"31-50", 31, 50},
	{"51-70", 51, 70},
	{"71-90", 71, 90},
	{"91-120", 91, 120},
}

type StatsHandler struct {
	store StatsStore
}

func NewStatsHandler(store StatsStore) *StatsHandler {
	return &StatsHandler{store: store}
}

// GetPollStats handles GET /poll/stats
func (h *StatsHandler) GetPollStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var resp models.PollStatsResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := h.store.CountVotes(gctx, models.VoteFilter{Answer: models.AnswerYes})
		resp.YesVotes = n
		return err
	})
	g.Go(func() error {
		n, err := h.store.CountVotes(gctx, models.VoteFilter{Answer: models.AnswerNo})
		resp.NoVotes = n
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Error("failed to count votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load poll stats")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// GetSummary handles GET /analytics/summary
func (h *StatsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	resp, err := h.summary(r.Context())
	if err != nil {
		slog.Error("failed to build analytics summary", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load analytics summary")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

func (h *StatsHandler) summary(ctx context.Context) (models.SummaryResponse, error) {
	resp := models.SummaryResponse{
		VotesByAnswer:          map[string]int{models.AnswerYes: 0, models.AnswerNo: 0},
		VotesByGender:          map[string]int{models.GenderMale: 0, models.GenderFemale: 0},
		YesVotesByAgeAndGender: make([]models.AgeBucket, len(ageBuckets)),
		NoVotesByAgeAndGender:  make([]models.AgeBucket, len(ageBuckets)),
	}

	// Each goroutine writes only its own slot, so results need no lock.
	var (
		total, notSubmitted int
		notSubmittedBy      map[string]int
		byAnswer            [2]int
		byGender            [2]int
	)
	answers := [2]string{models.AnswerYes, models.AnswerNo}
	genders := [2]string{models.GenderMale, models.GenderFemale}
	cells := make([][2][2]int, len(ageBuckets)) // [bucket][answer][gender]

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summaryConcurrency)

	count := func(dst *int, f models.VoteFilter) {
		g.Go(func() error {
			n, err := h.store.CountVotes(gctx, f)
			*dst = n
			return err
		})
	}

	count(&total, models.VoteFilter{})
	g.Go(func() error {
		n, err := h.store.CountEvents(gctx, models.EventVoteNotSubmitted)
		notSubmitted = n
		return err
	})
	g.Go(func() error {
		m, err := h.store.CountEventsBy(gctx, models.EventVoteNotSubmitted, "gender")
		notSubmittedBy = m
		return err
	})
	for i, a := range answers {
		count(&byAnswer[i], models.VoteFilter{Answer: a})
	}
	for i, gen := range genders {
		count(&byGender[i], models.VoteFilter{Gender: gen})
	}
	for b, bucket := range ageBuckets {
		for a, answer := range answers {
			for gi, gender := range genders {
				count(&cells[b][a][gi], models.VoteFilter{
					Answer: answer,
					Gender: gender,
					MinAge: bucket.min,
					MaxAge: bucket.max,
				})
			}
		}
	}

	if err := g.Wait(); err != nil {
		return models.SummaryResponse{}, err
	}

	resp.TotalVotes = total
	resp.Funnel = models.Funnel{VoteSubmitted: total, VoteNotSubmitted: notSubmitted}
	resp.VoteNotSubmittedByGender = map[string]int{models.GenderMale: 0, models.GenderFemale: 0}
	for gender, n := range notSubmittedBy {
		if gender == "" {
			gender = genderUnknown
		}
		resp.VoteNotSubmittedByGender[gender] += n
	}
	for i, a := range answers {
		resp.VotesByAnswer[a] = byAnswer[i]
	}
	for i, gen := range genders {
		resp.VotesByGender[gen] = byGender[i]
	}
	for b, bucket := range ageBuckets {
		resp.YesVotesByAgeAndGender[b] = models.AgeBucket{Range: bucket.label, Male: cells[b][0][0], Female: cells[b][0][1]}
		resp.NoVotesByAgeAndGender[b] = models.AgeBucket{Range: bucket.label, Male: cells[b][1][0], Female: cells[b][1][1]}
	}

	return resp, nil
}

// Health handles GET /health
func (h *StatsHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		slog.Warn("health check failed", "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
