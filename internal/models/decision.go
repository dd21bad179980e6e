package models

import (
	"time"

	"github.com/google/uuid"
)

type DecisionOutcome string

const (
	DecisionApproved DecisionOutcome = "Approved"
	DecisionDenied   DecisionOutcome = "Denied"
	DecisionReview   DecisionOutcome = "Review"
)

// GrantBalance is the applicant's remaining capacity against a fund at
// evaluation time. The engine only reads it; the projected remainders are
// reported on the Decision.
type GrantBalance struct {
	SingleRequestMax     float64 `json:"single_request_max"`
	TwelveMonthRemaining float64 `json:"twelve_month_remaining"`
	LifetimeRemaining    float64 `json:"lifetime_remaining"`
}

// PolicyHit is one rule's audit entry: every rule is evaluated and recorded,
// pass or fail.
type PolicyHit struct {
	RuleID string `json:"rule_id"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// NormalizedEvent is the canonical form of the event facts the decision was
// made against.
type NormalizedEvent struct {
	Event         string `json:"event"`
	EventDate     string `json:"event_date"`
	Evacuated     bool   `json:"evacuated"`
	PowerLossDays int    `json:"power_loss_days"`
}

// Decision is the auditable outcome of one evaluation. It is immutable once
// produced; refinement yields a new Decision that carries PolicyHits and
// Normalized over unchanged.
type Decision struct {
	ID                uuid.UUID       `json:"id"`
	Outcome           DecisionOutcome `json:"decision"`
	Reasons           []string        `json:"reasons"`
	PolicyHits        []PolicyHit     `json:"policy_hits"`
	RecommendedAward  float64         `json:"recommended_award"`
	Remaining12Mo     float64         `json:"remaining_12mo"`
	RemainingLifetime float64         `json:"remaining_lifetime"`
	Normalized        NormalizedEvent `json:"normalized"`
	DecisionedDate    time.Time       `json:"decisioned_date"`
}
