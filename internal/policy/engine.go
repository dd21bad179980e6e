package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/david/relief-fund/internal/models"
)

// ProgramPolicy is the per-fund policy the engine evaluates against.
type ProgramPolicy struct {
	SingleRequestMax float64
	EventWindowDays  int
	EligibleEvents   []string
}

// EvaluationInput bundles everything one evaluation reads. The engine never
// mutates any of it.
type EvaluationInput struct {
	Application models.Resolved
	Balance     models.GrantBalance
	Policy      ProgramPolicy
}

const defaultEventWindowDays = 90

// EvaluateApplication runs every policy rule over a finished application and
// returns the auditable decision. Rules are not short-circuited: each one is
// evaluated and recorded as a policy hit, and the final outcome is the most
// severe failure encountered. Any failed hard rule denies; a failed soft
// rule alone forces review; otherwise the request is approved for
// min(requested, twelve-month remaining, lifetime remaining).
func EvaluateApplication(in EvaluationInput, now time.Time) models.Decision {
	// Captured before any date work so the decision is timestamped with the
	// evaluation itself.
	decisionedAt := now.UTC()

	app := in.Application
	event := app.Event
	hits := make([]models.PolicyHit, 0, 8)
	reasons := []string{}
	denied := false
	review := false

	// R1: the claimed event resolves to a non-empty name.
	eventName := resolveEventName(event)
	r1 := eventName != ""
	hits = append(hits, hit("R1", r1, detailIf(r1, "event resolved to "+quoted(eventName), "no qualifying event identified")))
	if !r1 {
		denied = true
		reasons = append(reasons, "No qualifying event was identified on the application.")
	}

	// R1A: the resolved event is on the program's eligible-events list.
	r1a := r1 && containsFold(in.Policy.EligibleEvents, eventName)
	hits = append(hits, hit("R1A", r1a, detailIf(r1a, quoted(eventName)+" is an eligible event", quoted(eventName)+" is not on the eligible-events list")))
	if !r1a {
		denied = true
		reasons = append(reasons, fmt.Sprintf("Event %s is not covered by this program.", quoted(eventName)))
	}

	// R2: the event date falls inside the inclusive lookback window.
	windowDays := in.Policy.EventWindowDays
	if windowDays <= 0 {
		windowDays = defaultEventWindowDays
	}
	today := dateOnly(decisionedAt)
	windowStart := today.AddDate(0, 0, -windowDays)
	eventDate, eventDateOK := parseDateCandidate(strVal(event.EventDate))
	r2 := eventDateOK && !dateOnly(eventDate).Before(windowStart) && !dateOnly(eventDate).After(today)
	hits = append(hits, hit("R2", r2, detailIf(r2,
		fmt.Sprintf("event date within the last %d days", windowDays),
		fmt.Sprintf("event date %s outside [today-%dd, today]", quoted(strVal(event.EventDate)), windowDays))))
	if !r2 {
		denied = true
		reasons = append(reasons, fmt.Sprintf("The event date must be within the last %d days.", windowDays))
	}

	// R3: employment started on or before the event date.
	empStart, empStartOK := parseDateCandidate(strVal(app.EmploymentStartDate))
	r3 := empStartOK && (!eventDateOK || !dateOnly(empStart).After(dateOnly(eventDate)))
	hits = append(hits, hit("R3", r3, detailIf(r3, "employment start date precedes the event", "employment start date missing or after the event date")))
	if !r3 {
		denied = true
		reasons = append(reasons, "Employment must have started on or before the event date.")
	}

	// R4: requested amount is positive and within the single-request cap.
	singleMax := in.Policy.SingleRequestMax
	if singleMax <= 0 {
		singleMax = in.Balance.SingleRequestMax
	}
	requested := floatVal(event.RequestedAmount)
	r4 := requested > 0 && requested <= singleMax
	hits = append(hits, hit("R4", r4, detailIf(r4,
		fmt.Sprintf("requested %.2f within single-request max %.2f", requested, singleMax),
		fmt.Sprintf("requested %.2f outside (0, %.2f]", requested, singleMax))))
	if !r4 {
		denied = true
		reasons = append(reasons, fmt.Sprintf("The requested amount must be between 0 and %.2f.", singleMax))
	}

	// R5: requested amount fits the remaining balances.
	r5 := requested > 0 && requested <= in.Balance.TwelveMonthRemaining && requested <= in.Balance.LifetimeRemaining
	hits = append(hits, hit("R5", r5, detailIf(r5,
		"requested amount fits remaining balances",
		fmt.Sprintf("requested %.2f exceeds remaining balances (12mo %.2f, lifetime %.2f)", requested, in.Balance.TwelveMonthRemaining, in.Balance.LifetimeRemaining))))
	if !r5 {
		denied = true
		reasons = append(reasons, "The requested amount exceeds the applicant's remaining grant balance.")
	}

	// R6 (soft): conditional sub-graphs are internally consistent. Only
	// forces review when no hard rule has already denied.
	r6, r6Detail := checkConditionalConsistency(event)
	hits = append(hits, hit("R6", r6, r6Detail))
	if !r6 && !denied {
		review = true
		reasons = append(reasons, "Manual review required: "+r6Detail+".")
	}

	// R7 (informational): power loss normalization always passes.
	normalizedPowerLossDays := intVal(event.PowerLossDays)
	if !boolVal(event.PowerLoss) {
		normalizedPowerLossDays = 0
	}
	hits = append(hits, hit("R7", true, fmt.Sprintf("power loss days normalized to %d", normalizedPowerLossDays)))

	outcome := models.DecisionApproved
	switch {
	case denied:
		outcome = models.DecisionDenied
	case review:
		outcome = models.DecisionReview
	}

	award := 0.0
	remaining12 := in.Balance.TwelveMonthRemaining
	remainingLife := in.Balance.LifetimeRemaining
	if outcome == models.DecisionApproved {
		award = minFloat(requested, remaining12, remainingLife)
		remaining12 -= award
		remainingLife -= award
		reasons = append(reasons, "All eligibility checks passed.")
	}

	normalizedDate := strVal(event.EventDate)
	if eventDateOK {
		normalizedDate = dateOnly(eventDate).Format("2006-01-02")
	}

	return models.Decision{
		ID:               uuid.New(),
		Outcome:          outcome,
		Reasons:          reasons,
		PolicyHits:       hits,
		RecommendedAward: award,
		Remaining12Mo:    remaining12,
		RemainingLifetime: remainingLife,
		Normalized: models.NormalizedEvent{
			Event:         eventName,
			EventDate:     normalizedDate,
			Evacuated:     boolVal(event.Evacuated),
			PowerLossDays: normalizedPowerLossDays,
		},
		DecisionedDate: decisionedAt,
	}
}

// resolveEventName maps a category to the name the policy list is checked
// against: the free-text value for "not listed", the storm name for named
// storms, and the category label otherwise.
func resolveEventName(event models.EventPatch) string {
	if event.Category == nil {
		return ""
	}
	category := *event.Category
	switch {
	case category.IsNotListed():
		return strings.TrimSpace(strVal(event.OtherEventName))
	case category.IsNamedStorm():
		return strings.TrimSpace(strVal(event.EventName))
	default:
		return category.Label()
	}
}

func checkConditionalConsistency(event models.EventPatch) (bool, string) {
	var problems []string

	if boolVal(event.Evacuated) {
		if event.EvacuatingFromPrimary == nil {
			problems = append(problems, "evacuating_from_primary unanswered")
		} else if !*event.EvacuatingFromPrimary && strings.TrimSpace(strVal(event.EvacuationReason)) == "" {
			problems = append(problems, "evacuation_reason missing")
		}
		if event.StayedWithFamilyOrFriend == nil {
			problems = append(problems, "stayed_with_family_or_friend unanswered")
		}
		if strings.TrimSpace(strVal(event.EvacuationStartDate)) == "" {
			problems = append(problems, "evacuation_start_date missing")
		}
		if intVal(event.EvacuationNights) <= 0 {
			problems = append(problems, "evacuation_nights missing or zero")
		}
	}
	if boolVal(event.PowerLoss) && intVal(event.PowerLossDays) <= 0 {
		problems = append(problems, "power_loss_days missing or zero")
	}

	if len(problems) > 0 {
		return false, "incomplete evacuation or power loss details (" + strings.Join(problems, ", ") + ")"
	}
	return true, "conditional details consistent"
}

func parseDateCandidate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"01/02/2006",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func containsFold(list []string, target string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), target) {
			return true
		}
	}
	return false
}

func hit(ruleID string, passed bool, detail string) models.PolicyHit {
	return models.PolicyHit{RuleID: ruleID, Passed: passed, Detail: detail}
}

func detailIf(passed bool, passDetail, failDetail string) string {
	if passed {
		return passDetail
	}
	return failDetail
}

func quoted(s string) string {
	return fmt.Sprintf("%q", s)
}

func minFloat(values ...float64) float64 {
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func boolVal(b *bool) bool {
	return b != nil && *b
}

func intVal(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

func floatVal(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
