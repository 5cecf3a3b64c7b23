// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package admission

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielhkuo/onevote/auth"
	"github.com/danielhkuo/onevote/models"
	"github.com/jonboulle/clockwork"
)

// DefaultMaxVotesPerIP caps accepted votes from one address
const DefaultMaxVotesPerIP = 20

const maxIdentifierLen = 128

// VoteStore is the subset of the vote store the enforcer needs.
// InsertUnique must be atomic with respect to session and device.
type VoteStore interface {
	CountByIP(ctx context.Context, ip string) (int, error)
	ExistsByDevice(ctx context.Context, deviceID string) (bool, error)
	ExistsBySession(ctx context.Context, sessionID string) (bool, error)
	InsertUnique(ctx context.Context, rec models.VoteRecord) error
}

// Enforcer validates a candidate vote, checks the per-IP, device and
// session limits, and commits it.
type Enforcer struct {
	store    VoteStore
	maxPerIP int
	clock    clockwork.Clock
}

func NewEnforcer(store VoteStore, maxVotesPerIP int, clock clockwork.Clock) *Enforcer {
	if maxVotesPerIP <= 0 {
		maxVotesPerIP = DefaultMaxVotesPerIP
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Enforcer{store: store, maxPerIP: maxVotesPerIP, clock: clock}
}

// Enforce runs the checks in order and stops at the first failure.
// On Accepted the returned record is the one stored. A StoreUnavailable
// result carries the underlying error; nothing was committed.
//
// The IP cap is a count followed by an insert with no lock between them,
// so concurrent requests from one address can each see room and push the
// stored total past the cap by up to the number in flight. Device and
// session uniqueness do not share this gap; the store enforces them.
func (e *Enforcer) Enforce(ctx context.Context, rec models.VoteRecord) (models.VoteRecord, Reason, error) {
	if err := ValidateVote(rec); err != nil {
		return models.VoteRecord{}, InvalidPayload, err
	}

	n, err := e.store.CountByIP(ctx, rec.IP)
	if err != nil {
		return models.VoteRecord{}, StoreUnavailable, err
	}
	if n >= e.maxPerIP {
		return models.VoteRecord{}, IPCapExceeded, nil
	}

	if rec.DeviceID != "" {
		found, err := e.store.ExistsByDevice(ctx, rec.DeviceID)
		if err != nil {
			return models.VoteRecord{}, StoreUnavailable, err
		}
		if found {
			return models.VoteRecord{}, AlreadyVoted, nil
		}
	}

	found, err := e.store.ExistsBySession(ctx, rec.SessionID)
	if err != nil {
		return models.VoteRecord{}, StoreUnavailable, err
	}
	if found {
		return models.VoteRecord{}, DuplicateSession, nil
	}

	rec.ID, err = auth.GenerateID(16)
	if err != nil {
		return models.VoteRecord{}, StoreUnavailable, err
	}
	rec.CreatedAt = e.clock.Now().UTC()

	// The reads above are only a fast path; a racing insert is caught here
	err = e.store.InsertUnique(ctx, rec)
	switch {
	case err == nil:
		return rec, Accepted, nil
	case errors.Is(err, models.ErrDuplicateDevice):
		return models.VoteRecord{}, AlreadyVoted, nil
	case errors.Is(err, models.ErrDuplicateSession):
		return models.VoteRecord{}, DuplicateSession, nil
	default:
		return models.VoteRecord{}, StoreUnavailable, err
	}
}

// ValidateVote checks the domain of every field of a candidate vote
func ValidateVote(rec models.VoteRecord) error {
	if rec.Gender != models.GenderMale && rec.Gender != models.GenderFemale {
		return fmt.Errorf("gender must be %q or %q", models.GenderMale, models.GenderFemale)
	}
	if rec.Age < models.MinAge || rec.Age > models.MaxAge {
		return fmt.Errorf("age must be between %d and %d", models.MinAge, models.MaxAge)
	}
	if rec.Answer != models.AnswerYes && rec.Answer != models.AnswerNo {
		return fmt.Errorf("answer must be %q or %q", models.AnswerYes, models.AnswerNo)
	}
	if !ValidIdentifier(rec.SessionID) {
		return errors.New("sessionId is not a valid identifier")
	}
	if rec.DeviceID != "" && !ValidIdentifier(rec.DeviceID) {
		return errors.New("deviceId is not a valid identifier")
	}
	return nil
}

// ValidIdentifier accepts opaque client ids: 1 to 128 characters drawn
// from letters, digits, '-' and '_'. UUIDs qualify.
func ValidIdentifier(id string) bool {
	if id == "" || len(id) > maxIdentifierLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
