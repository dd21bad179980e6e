package intake

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/david/relief-fund/internal/models"
	"github.com/david/relief-fund/internal/policy"
)

// freeTextPolicy strips any markup from caller-supplied free text before it
// enters the draft.
var freeTextPolicy = bluemonday.StrictPolicy()

// CollectionSession sequences update operations against one applicant's
// draft and decides when it is ready for the decision engine. Writers follow
// a single-turn discipline: a second concurrent turn is rejected with
// ErrTurnInFlight rather than queued. Reads are safe at any time.
type CollectionSession struct {
	mu    sync.RWMutex
	base  models.Profile
	draft models.ApplicationDraft
}

func NewSession(base models.Profile) *CollectionSession {
	return &CollectionSession{base: base}
}

// Restore replaces the draft wholesale, for sessions rebuilt from storage.
func (s *CollectionSession) Restore(draft models.ApplicationDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = draft
}

// UpdateProfile shallow-merges a partial profile into the draft. Invalid
// numeric values reject the whole update and leave the draft unchanged.
func (s *CollectionSession) UpdateProfile(patch models.ProfilePatch) error {
	if err := validateProfilePatch(patch); err != nil {
		return err
	}
	if !s.mu.TryLock() {
		return ErrTurnInFlight
	}
	defer s.mu.Unlock()

	patch.Apply(&s.draft.Profile)
	return nil
}

// UpdateEventDraft shallow-merges a partial event record into the draft.
// Changing the category does not clear conditional answers already given;
// the resolver hides them when they stop applying.
func (s *CollectionSession) UpdateEventDraft(patch models.EventPatch) error {
	if err := validateEventPatch(patch); err != nil {
		return err
	}
	sanitizeEventPatch(&patch)
	if !s.mu.TryLock() {
		return ErrTurnInFlight
	}
	defer s.mu.Unlock()

	patch.Apply(&s.draft.Event)
	return nil
}

// SetExpenses replaces or appends expense entries keyed by type, keeping a
// single entry per type. Unknown types and non-positive amounts reject the
// whole batch.
func (s *CollectionSession) SetExpenses(items []models.Expense) error {
	for _, item := range items {
		if !item.Type.Known() {
			return &InvalidFieldValueError{Field: "expense." + string(item.Type), Value: item.Amount}
		}
		if item.Amount <= 0 || math.IsNaN(item.Amount) || math.IsInf(item.Amount, 0) {
			return &InvalidFieldValueError{Field: "expense." + string(item.Type), Value: item.Amount}
		}
	}
	if !s.mu.TryLock() {
		return ErrTurnInFlight
	}
	defer s.mu.Unlock()

	for _, item := range items {
		replaced := false
		for i := range s.draft.Event.Expenses {
			if s.draft.Event.Expenses[i].Type == item.Type {
				s.draft.Event.Expenses[i] = item
				replaced = true
				break
			}
		}
		if !replaced {
			s.draft.Event.Expenses = append(s.draft.Event.Expenses, item)
		}
	}
	return nil
}

func (s *CollectionSession) UpdateAgreements(patch models.AgreementPatch) error {
	if !s.mu.TryLock() {
		return ErrTurnInFlight
	}
	defer s.mu.Unlock()

	patch.Apply(&s.draft.Agreement)
	return nil
}

// ResetDraft discards the entire draft, returning the session to its initial
// empty state. The base profile is untouched.
func (s *CollectionSession) ResetDraft() error {
	if !s.mu.TryLock() {
		return ErrTurnInFlight
	}
	defer s.mu.Unlock()

	s.draft = models.ApplicationDraft{}
	return nil
}

// Snapshot returns a copy of the current draft for persistence.
func (s *CollectionSession) Snapshot() models.ApplicationDraft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	draft := s.draft
	draft.Event.Expenses = append([]models.Expense(nil), s.draft.Event.Expenses...)
	return draft
}

// MissingFields is the read-only checklist projection. Reads never count as
// a turn; they wait for an in-flight turn instead of being rejected.
func (s *CollectionSession) MissingFields() []SectionReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ResolveMissing(models.Resolve(s.base, s.draft))
}

// IsReadyForDecision reports whether the expenses section is complete, which
// transitively requires every earlier section to be complete.
func (s *CollectionSession) IsReadyForDecision() bool {
	return SectionComplete(s.MissingFields(), SectionExpenses)
}

// Evaluate runs the deterministic decision engine over the finished draft.
// It counts as a turn: no other turn may start while it runs.
func (s *CollectionSession) Evaluate(balance models.GrantBalance, program policy.ProgramPolicy, now time.Time) (models.Decision, error) {
	if !s.mu.TryLock() {
		return models.Decision{}, ErrTurnInFlight
	}
	defer s.mu.Unlock()

	return s.evaluateLocked(balance, program, now)
}

// Decide evaluates and, when a refiner is supplied, runs the secondary
// adjudication pass while still holding the turn. Cancellation of the
// refinement leaves the draft and the preliminary decision untouched.
func (s *CollectionSession) Decide(ctx context.Context, balance models.GrantBalance, program policy.ProgramPolicy, refiner *policy.Refiner, now time.Time) (models.Decision, error) {
	if !s.mu.TryLock() {
		return models.Decision{}, ErrTurnInFlight
	}
	defer s.mu.Unlock()

	preliminary, err := s.evaluateLocked(balance, program, now)
	if err != nil {
		return models.Decision{}, err
	}
	if refiner == nil {
		return preliminary, nil
	}

	resolved := models.Resolve(s.base, s.draft)
	return refiner.Refine(ctx, preliminary, policy.EvaluationInput{
		Application: resolved,
		Balance:     balance,
		Policy:      program,
	}), nil
}

func (s *CollectionSession) evaluateLocked(balance models.GrantBalance, program policy.ProgramPolicy, now time.Time) (models.Decision, error) {
	resolved := models.Resolve(s.base, s.draft)
	reports := ResolveMissing(resolved)
	if !SectionComplete(reports, SectionExpenses) {
		active := ActiveSection(reports)
		return models.Decision{}, &IncompleteDraftError{
			Active:  active,
			Missing: missingFor(reports, active),
		}
	}

	return policy.EvaluateApplication(policy.EvaluationInput{
		Application: resolved,
		Balance:     balance,
		Policy:      program,
	}, now), nil
}

func missingFor(reports []SectionReport, section Section) []string {
	for _, report := range reports {
		if report.Section == section {
			return report.Missing
		}
	}
	return nil
}

func validateProfilePatch(p models.ProfilePatch) error {
	if p.HouseholdIncome != nil && (*p.HouseholdIncome < 0 || math.IsNaN(*p.HouseholdIncome)) {
		return &InvalidFieldValueError{Field: "household_income", Value: *p.HouseholdIncome}
	}
	if p.HouseholdSize != nil && *p.HouseholdSize < 0 {
		return &InvalidFieldValueError{Field: "household_size", Value: float64(*p.HouseholdSize)}
	}
	return nil
}

func validateEventPatch(p models.EventPatch) error {
	if p.PowerLossDays != nil && *p.PowerLossDays < 0 {
		return &InvalidFieldValueError{Field: "power_loss_days", Value: float64(*p.PowerLossDays)}
	}
	if p.EvacuationNights != nil && *p.EvacuationNights < 0 {
		return &InvalidFieldValueError{Field: "evacuation_nights", Value: float64(*p.EvacuationNights)}
	}
	if p.RequestedAmount != nil && (*p.RequestedAmount < 0 || math.IsNaN(*p.RequestedAmount) || math.IsInf(*p.RequestedAmount, 0)) {
		return &InvalidFieldValueError{Field: "requested_amount", Value: *p.RequestedAmount}
	}
	return nil
}

func sanitizeEventPatch(p *models.EventPatch) {
	p.EventName = sanitizeText(p.EventName)
	p.OtherEventName = sanitizeText(p.OtherEventName)
	p.EvacuationReason = sanitizeText(p.EvacuationReason)
	p.AdditionalDetails = sanitizeText(p.AdditionalDetails)
}

func sanitizeText(s *string) *string {
	if s == nil {
		return nil
	}
	clean := strings.TrimSpace(freeTextPolicy.Sanitize(*s))
	return &clean
}
