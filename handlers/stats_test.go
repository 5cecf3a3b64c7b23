// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/onevote/models"
	"github.com/danielhkuo/onevote/testutil"
)

func TestGetPollStats(t *testing.T) {
	store := testutil.SetupTestStore(t)
	handler := NewStatsHandler(store)

	t.Run("empty poll", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.GetPollStats(w, testutil.MakeRequest("GET", "/poll/stats", nil, nil))

		testutil.AssertStatus(t, w, http.StatusOK)
		var resp models.PollStatsResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.YesVotes != 0 || resp.NoVotes != 0 {
			t.Errorf("Expected no votes, got %+v", resp)
		}
	})

	testutil.InsertTestVote(t, store, "s1", "d1", "10.0.0.1", "male", 20, "yes")
	testutil.InsertTestVote(t, store, "s2", "", "10.0.0.1", "female", 35, "yes")
	testutil.InsertTestVote(t, store, "s3", "", "10.0.0.2", "female", 90, "no")

	t.Run("counts by answer", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.GetPollStats(w, testutil.MakeRequest("GET", "/poll/stats", nil, nil))

		testutil.AssertStatus(t, w, http.StatusOK)
		var resp models.PollStatsResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.YesVotes != 2 || resp.NoVotes != 1 {
			t.Errorf("Expected 2 yes / 1 no, got %+v", resp)
		}
	})
}

func TestGetSummary(t *testing.T) {
	store := testutil.SetupTestStore(t)
	handler := NewStatsHandler(store)

	votes := []struct {
		session, gender string
		age             int
		answer          string
	}{
		{"s1", "male", 16, "yes"},
		{"s2", "male", 30, "yes"},
		{"s3", "female", 31, "yes"},
		{"s4", "female", 50, "no"},
		{"s5", "male", 71, "no"},
		{"s6", "female", 120, "yes"},
	}
	for _, v := range votes {
		testutil.InsertTestVote(t, store, v.session, "", "10.0.0.1", v.gender, v.age, v.answer)
	}
	abandoned := []map[string]any{
		{"gender": "female"},
		{"gender": "female", "age": 40},
		nil,
	}
	for _, evCtx := range abandoned {
		ev := models.AnalyticsEvent{Type: models.EventVoteNotSubmitted, Context: evCtx}
		if err := store.InsertEvent(context.Background(), ev); err != nil {
			t.Fatalf("InsertEvent() error = %v", err)
		}
	}
	store.InsertEvent(context.Background(), models.AnalyticsEvent{Type: models.EventPollOpened})

	w := httptest.NewRecorder()
	handler.GetSummary(w, testutil.MakeRequest("GET", "/analytics/summary", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.SummaryResponse
	testutil.AssertJSON(t, w, &resp)

	if resp.TotalVotes != 6 {
		t.Errorf("Expected totalVotes 6, got %d", resp.TotalVotes)
	}
	if resp.Funnel.VoteSubmitted != 6 || resp.Funnel.VoteNotSubmitted != 3 {
		t.Errorf("Unexpected funnel: %+v", resp.Funnel)
	}
	wantAbandoned := map[string]int{"male": 0, "female": 2, "unknown": 1}
	if len(resp.VoteNotSubmittedByGender) != len(wantAbandoned) {
		t.Errorf("Unexpected voteNotSubmittedByGender: %v", resp.VoteNotSubmittedByGender)
	}
	for gender, n := range wantAbandoned {
		if resp.VoteNotSubmittedByGender[gender] != n {
			t.Errorf("voteNotSubmittedByGender[%s] = %d, want %d", gender, resp.VoteNotSubmittedByGender[gender], n)
		}
	}
	if resp.VotesByAnswer["yes"] != 4 || resp.VotesByAnswer["no"] != 2 {
		t.Errorf("Unexpected votesByAnswer: %v", resp.VotesByAnswer)
	}
	if resp.VotesByGender["male"] != 3 || resp.VotesByGender["female"] != 3 {
		t.Errorf("Unexpected votesByGender: %v", resp.VotesByGender)
	}

	wantYes := []models.AgeBucket{
		{Range: "16-30", Male: 2},
		{Range: "31-50", Female: 1},
		{Range: "51-70"},
		{Range: "71-90"},
		{Range: "91-120", Female: 1},
	}
	wantNo := []models.AgeBucket{
		{Range: "16-30"},
		{Range: "31-50", Female: 1},
		{Range: "51-70"},
		{Range: "71-90", Male: 1},
		{Range: "91-120"},
	}
	assertBuckets(t, "yes", resp.YesVotesByAgeAndGender, wantYes)
	assertBuckets(t, "no", resp.NoVotesByAgeAndGender, wantNo)
}

func assertBuckets(t *testing.T, name string, got, want []models.AgeBucket) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s buckets: got %d, want %d", name, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s bucket %d = %+v, want %+v", name, i, got[i], want[i])
		}
	}
}

func TestGetSummaryStoreError(t *testing.T) {
	store := testutil.SetupTestStore(t)
	handler := NewStatsHandler(store)
	store.Close()

	w := httptest.NewRecorder()
	handler.GetSummary(w, testutil.MakeRequest("GET", "/analytics/summary", nil, nil))

	testutil.AssertStatus(t, w, http.StatusInternalServerError)
}

func TestHealth(t *testing.T) {
	store := testutil.SetupTestStore(t)
	handler := NewStatsHandler(store)

	w := httptest.NewRecorder()
	handler.Health(w, testutil.MakeRequest("GET", "/health", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}

	store.Close()
	w = httptest.NewRecorder()
	handler.Health(w, testutil.MakeRequest("GET", "/health", nil, nil))
	testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
}
