package models

import (
	"errors"
	"time"
)

// Gender constants
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Answer constants
const (
	AnswerYes = "yes"
	AnswerNo  = "no"
)

// Age bounds (inclusive)
const (
	MinAge = 16
	MaxAge = 120
)

// Funnel event types logged by the client and by the vote handler
const (
	EventPollOpened               = "poll_opened"
	EventUserInfoModalOpened      = "user_info_modal_opened"
	EventUserInfoModalClosed      = "user_info_modal_closed"
	EventUserInfoModalTimeout     = "user_info_modal_timeout"
	EventPollQuestionModalOpened  = "poll_question_modal_opened"
	EventPollQuestionModalClosed  = "poll_question_modal_closed"
	EventPollQuestionModalTimeout = "poll_question_modal_timeout"
	EventVoteSubmitted            = "vote_submitted"
	EventVoteNotSubmitted         = "vote_not_submitted"
	EventVoteRejected             = "vote_rejected"
)

// clientEvents are the types POST /analytics/log accepts. vote_rejected is
// only ever emitted by the server.
var clientEvents = map[string]bool{
	EventPollOpened:               true,
	EventUserInfoModalOpened:      true,
	EventUserInfoModalClosed:      true,
	EventUserInfoModalTimeout:     true,
	EventPollQuestionModalOpened:  true,
	EventPollQuestionModalClosed:  true,
	EventPollQuestionModalTimeout: true,
	EventVoteSubmitted:            true,
	EventVoteNotSubmitted:         true,
}

// IsClientEvent reports whether clients may log events of this type
func IsClientEvent(eventType string) bool {
	return clientEvents[eventType]
}

// Store conflicts reported by InsertUnique. These are the authoritative
// duplicate signals; the read-side checks only short-circuit.
var (
	ErrDuplicateDevice  = errors.New("vote already exists for device")
	ErrDuplicateSession = errors.New("vote already exists for session")
)

// Request types

type TokenRequest struct {
	SessionID string `json:"sessionId"`
	Gender    string `json:"gender"`
	Age       string `json:"age"` // decimal string, compared as issued
}

type VoteRequest struct {
	SessionID string `json:"sessionId"`
	DeviceID  string `json:"deviceId,omitempty"`
	Gender    string `json:"gender"`
	Age       int    `json:"age"`
	Answer    string `json:"answer"`
	VoteToken string `json:"voteToken"`
}

type AnalyticsEventRequest struct {
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId,omitempty"`
	DeviceID  string         `json:"deviceId,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// Response types

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type PollStatsResponse struct {
	YesVotes int `json:"yesVotes"`
	NoVotes  int `json:"noVotes"`
}

type Funnel struct {
	VoteSubmitted    int `json:"voteSubmitted"`
	VoteNotSubmitted int `json:"voteNotSubmitted"`
}

type AgeBucket struct {
	Range  string `json:"range"`
	Male   int    `json:"male"`
	Female int    `json:"female"`
}

type SummaryResponse struct {
	Funnel                   Funnel         `json:"funnel"`
	VoteNotSubmittedByGender map[string]int `json:"voteNotSubmittedByGender"`
	TotalVotes               int            `json:"totalVotes"`
	VotesByAnswer            map[string]int `json:"votesByAnswer"`
	VotesByGender            map[string]int `json:"votesByGender"`
	YesVotesByAgeAndGender   []AgeBucket    `json:"yesVotesByAgeAndGender"`
	NoVotesByAgeAndGender    []AgeBucket    `json:"noVotesByAgeAndGender"`
}

// Domain types

// VoteRecord is immutable once inserted.
type VoteRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	DeviceID  string    `json:"-"` // empty means the client sent none
	IP        string    `json:"-"` // Never expose in JSON
	Gender    string    `json:"gender"`
	Age       int       `json:"age"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"createdAt"`
}

// VoteFilter narrows CountVotes. Zero values match everything.
type VoteFilter struct {
	Answer string
	Gender string
	MinAge int
	MaxAge int
}

type AnalyticsEvent struct {
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId,omitempty"`
	DeviceID  string         `json:"deviceId,omitempty"`
	IP        string         `json:"-"`
	Context   map[string]any `json:"context,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
