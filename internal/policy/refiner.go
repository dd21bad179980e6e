package policy

import (
	"context"
	"time"

	"github.com/david/relief-fund/internal/models"
)

// AdjudicationContext is the full context handed to the secondary
// adjudicator alongside the preliminary decision.
type AdjudicationContext struct {
	Preliminary models.Decision `json:"preliminary"`
	Application models.Resolved `json:"-"`
	Balance     models.GrantBalance
	Policy      ProgramPolicy
}

// AdjudicationResult is the secondary adjudicator's verdict. Only Approved
// and Denied are valid final decisions.
type AdjudicationResult struct {
	FinalDecision models.DecisionOutcome `json:"final_decision"`
	FinalReason   string                 `json:"final_reason"`
	FinalAward    float64                `json:"final_award"`
}

// AdjudicatorClient is the external secondary decision-maker. It may fail;
// the refiner degrades gracefully when it does.
type AdjudicatorClient interface {
	Adjudicate(ctx context.Context, req AdjudicationContext) (*AdjudicationResult, error)
}

const defaultAdjudicationTimeout = 30 * time.Second

// Refiner runs the optional holistic adjudication pass over a preliminary
// decision. A deterministic denial is never overridden, and a Review
// outcome is routed to human handling rather than auto-refined.
type Refiner struct {
	Client  AdjudicatorClient
	Timeout time.Duration
}

func NewRefiner(client AdjudicatorClient) *Refiner {
	return &Refiner{Client: client, Timeout: defaultAdjudicationTimeout}
}

// Refine affirms or reduces a passing preliminary decision via the
// secondary adjudicator. One bounded call, no retries. Adjudicator failure
// never propagates: the deterministic decision stands with an audit reason
// appended. The preliminary decision is never mutated.
func (r *Refiner) Refine(ctx context.Context, preliminary models.Decision, in EvaluationInput) models.Decision {
	// Hard safety invariant: a deterministic denial is final.
	if preliminary.Outcome == models.DecisionDenied {
		return preliminary
	}
	// Review requires explicit human resolution; the adjudicator only ever
	// sees approved preliminaries.
	if preliminary.Outcome == models.DecisionReview {
		return preliminary
	}
	if r == nil || r.Client == nil {
		return fallbackDecision(preliminary)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultAdjudicationTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := r.Client.Adjudicate(ctx, AdjudicationContext{
		Preliminary: preliminary,
		Application: in.Application,
		Balance:     in.Balance,
		Policy:      in.Policy,
	})
	if err != nil || result == nil {
		return fallbackDecision(preliminary)
	}
	if result.FinalDecision != models.DecisionApproved && result.FinalDecision != models.DecisionDenied {
		// Malformed verdict counts as adjudicator failure.
		return fallbackDecision(preliminary)
	}

	refined := preliminary
	refined.Outcome = result.FinalDecision
	refined.Reasons = []string{result.FinalReason}
	refined.RecommendedAward = 0
	refined.Remaining12Mo = in.Balance.TwelveMonthRemaining
	refined.RemainingLifetime = in.Balance.LifetimeRemaining

	if result.FinalDecision == models.DecisionApproved {
		// The adjudicator may only affirm or reduce: its award is clamped to
		// the engine's, which already respects the request and both balances.
		ceiling := preliminary.RecommendedAward
		award := result.FinalAward
		if award < 0 {
			award = 0
		}
		if award > ceiling {
			award = ceiling
		}
		refined.RecommendedAward = award
		refined.Remaining12Mo = in.Balance.TwelveMonthRemaining - award
		refined.RemainingLifetime = in.Balance.LifetimeRemaining - award
	}

	return refined
}

// fallbackDecision returns the preliminary decision unmodified except for
// the appended audit note. A fresh reasons slice keeps the preliminary
// immutable.
func fallbackDecision(preliminary models.Decision) models.Decision {
	degraded := preliminary
	degraded.Reasons = append(append([]string{}, preliminary.Reasons...),
		"Secondary review could not be completed; the deterministic decision stands.")
	return degraded
}
