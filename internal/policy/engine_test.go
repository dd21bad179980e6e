package policy

import (
	"strings"
	"testing"
	"time"

	"github.com/david/relief-fund/internal/models"
)

func strPtr(s string) *string       { return &s }
func intPtr(i int) *int             { return &i }
func boolPtr(b bool) *bool          { return &b }
func floatPtr(f float64) *float64   { return &f }
func catPtr(c models.EventCategory) *models.EventCategory { return &c }

func validInput() EvaluationInput {
	return EvaluationInput{
		Application: models.Resolved{
			EmploymentStartDate: strPtr("2015-03-01"),
			Event: models.EventPatch{
				Category:        catPtr(models.EventFlood),
				EventDate:       strPtr("2026-08-21"),
				PowerLoss:       boolPtr(false),
				Evacuated:       boolPtr(false),
				RequestedAmount: floatPtr(800),
			},
		},
		Balance: models.GrantBalance{
			TwelveMonthRemaining: 1000,
			LifetimeRemaining:    5000,
		},
		Policy: ProgramPolicy{
			SingleRequestMax: 3000,
			EventWindowDays:  90,
			EligibleEvents:   []string{"hurricane", "flood", "wildfire", "Hurricane Milton"},
		},
	}
}

func testNow() time.Time {
	return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
}

func findHit(t *testing.T, d models.Decision, ruleID string) models.PolicyHit {
	t.Helper()
	for _, h := range d.PolicyHits {
		if h.RuleID == ruleID {
			return h
		}
	}
	t.Fatalf("no policy hit recorded for %s", ruleID)
	return models.PolicyHit{}
}

func TestEvaluateApplication_ApprovesValidRequest(t *testing.T) {
	decision := EvaluateApplication(validInput(), testNow())

	if decision.Outcome != models.DecisionApproved {
		t.Fatalf("expected Approved, got %s (reasons: %v)", decision.Outcome, decision.Reasons)
	}
	if decision.RecommendedAward != 800 {
		t.Fatalf("expected award 800, got %.2f", decision.RecommendedAward)
	}
	if decision.Remaining12Mo != 200 {
		t.Fatalf("expected remaining 12mo 200, got %.2f", decision.Remaining12Mo)
	}
	if decision.RemainingLifetime != 4200 {
		t.Fatalf("expected remaining lifetime 4200, got %.2f", decision.RemainingLifetime)
	}
	for _, h := range decision.PolicyHits {
		if !h.Passed {
			t.Fatalf("expected all rules to pass, %s failed: %s", h.RuleID, h.Detail)
		}
	}
}

func TestEvaluateApplication_EventDateOutsideWindowDenied(t *testing.T) {
	in := validInput()
	in.Application.Event.EventDate = strPtr("2026-05-03") // 120 days before testNow

	decision := EvaluateApplication(in, testNow())
	if decision.Outcome != models.DecisionDenied {
		t.Fatalf("expected Denied, got %s", decision.Outcome)
	}
	if hit := findHit(t, decision, "R2"); hit.Passed {
		t.Fatal("expected R2 to be recorded as failed")
	}
}

func TestEvaluateApplication_EventDateBoundaryInclusive(t *testing.T) {
	in := validInput()
	in.Application.Event.EventDate = strPtr("2026-06-02") // exactly 90 days before testNow

	decision := EvaluateApplication(in, testNow())
	if hit := findHit(t, decision, "R2"); !hit.Passed {
		t.Fatalf("expected 90-day-old event date to pass R2: %s", hit.Detail)
	}
}

func TestEvaluateApplication_IneligibleEventDenied(t *testing.T) {
	in := validInput()
	in.Application.Event.Category = catPtr(models.EventEarthquake)

	decision := EvaluateApplication(in, testNow())
	if decision.Outcome != models.DecisionDenied {
		t.Fatalf("expected Denied, got %s", decision.Outcome)
	}
	if hit := findHit(t, decision, "R1A"); hit.Passed {
		t.Fatal("expected R1A to fail for earthquake")
	}
}

func TestEvaluateApplication_NamedStormResolvesStormName(t *testing.T) {
	in := validInput()
	in.Application.Event.Category = catPtr(models.EventHurricane)
	in.Application.Event.EventName = strPtr("Hurricane Milton")

	decision := EvaluateApplication(in, testNow())
	if decision.Normalized.Event != "Hurricane Milton" {
		t.Fatalf("expected normalized event name, got %q", decision.Normalized.Event)
	}
	if hit := findHit(t, decision, "R1A"); !hit.Passed {
		t.Fatalf("expected named storm on eligible list to pass: %s", hit.Detail)
	}
}

func TestEvaluateApplication_NotListedUsesFreeText(t *testing.T) {
	in := validInput()
	in.Application.Event.Category = catPtr(models.EventNotListed)
	in.Application.Event.OtherEventName = strPtr("")

	decision := EvaluateApplication(in, testNow())
	if decision.Outcome != models.DecisionDenied {
		t.Fatalf("expected Denied for empty free-text event, got %s", decision.Outcome)
	}
	if hit := findHit(t, decision, "R1"); hit.Passed {
		t.Fatal("expected R1 to fail for empty event name")
	}
}

func TestEvaluateApplication_EmploymentAfterEventDenied(t *testing.T) {
	in := validInput()
	in.Application.EmploymentStartDate = strPtr("2026-08-25")

	decision := EvaluateApplication(in, testNow())
	if decision.Outcome != models.DecisionDenied {
		t.Fatalf("expected Denied, got %s", decision.Outcome)
	}
	if hit := findHit(t, decision, "R3"); hit.Passed {
		t.Fatal("expected R3 to fail")
	}
}

func TestEvaluateApplication_RequestExceedsTwelveMonthDenied(t *testing.T) {
	in := validInput()
	in.Application.Event.RequestedAmount = floatPtr(1500)

	decision := EvaluateApplication(in, testNow())
	if decision.Outcome != models.DecisionDenied {
		t.Fatalf("expected Denied, got %s", decision.Outcome)
	}
	if hit := findHit(t, decision, "R5"); hit.Passed {
		t.Fatal("expected R5 to fail when request exceeds 12-month balance")
	}
	if decision.RecommendedAward != 0 {
		t.Fatalf("expected zero award on denial, got %.2f", decision.RecommendedAward)
	}
	if decision.Remaining12Mo != 1000 || decision.RemainingLifetime != 5000 {
		t.Fatal("expected balances unchanged on denial")
	}
}

func TestEvaluateApplication_MissingEvacuationDetailsForcesReview(t *testing.T) {
	in := validInput()
	in.Application.Event.Evacuated = boolPtr(true)
	in.Application.Event.EvacuatingFromPrimary = boolPtr(true)
	in.Application.Event.StayedWithFamilyOrFriend = boolPtr(false)
	in.Application.Event.EvacuationStartDate = strPtr("2026-08-21")
	// evacuation_nights deliberately unset

	decision := EvaluateApplication(in, testNow())
	if decision.Outcome != models.DecisionReview {
		t.Fatalf("expected Review, got %s", decision.Outcome)
	}
	if hit := findHit(t, decision, "R6"); hit.Passed {
		t.Fatal("expected R6 to fail")
	}
	found := false
	for _, reason := range decision.Reasons {
		if strings.Contains(reason, "evacuation") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a reason mentioning evacuation, got %v", decision.Reasons)
	}
	if decision.RecommendedAward != 0 {
		t.Fatal("expected zero award on review")
	}
}

func TestEvaluateApplication_DenialOutranksReview(t *testing.T) {
	in := validInput()
	in.Application.Event.RequestedAmount = floatPtr(9999)
	in.Application.Event.Evacuated = boolPtr(true) // would also trip R6

	decision := EvaluateApplication(in, testNow())
	if decision.Outcome != models.DecisionDenied {
		t.Fatalf("expected Denied to outrank Review, got %s", decision.Outcome)
	}
}

func TestEvaluateApplication_StalePowerLossDaysNormalized(t *testing.T) {
	in := validInput()
	in.Application.Event.PowerLoss = boolPtr(false)
	in.Application.Event.PowerLossDays = intPtr(5) // stale answer from an earlier turn

	decision := EvaluateApplication(in, testNow())
	if decision.Normalized.PowerLossDays != 0 {
		t.Fatalf("expected power loss days normalized to 0, got %d", decision.Normalized.PowerLossDays)
	}
	if hit := findHit(t, decision, "R7"); !hit.Passed {
		t.Fatal("expected R7 recorded as passed")
	}
}

func TestEvaluateApplication_AwardNeverExceedsAnyCeiling(t *testing.T) {
	cases := []struct {
		name      string
		requested float64
		twelveMo  float64
		lifetime  float64
	}{
		{"request lowest", 500, 1000, 5000},
		{"twelve month lowest", 900, 850, 5000},
		{"lifetime lowest", 900, 1000, 600},
	}

	for _, tc := range cases {
		in := validInput()
		in.Application.Event.RequestedAmount = floatPtr(tc.requested)
		in.Balance.TwelveMonthRemaining = tc.twelveMo
		in.Balance.LifetimeRemaining = tc.lifetime

		decision := EvaluateApplication(in, testNow())
		ceiling := minFloat(tc.requested, in.Policy.SingleRequestMax, tc.twelveMo, tc.lifetime)
		if decision.RecommendedAward > ceiling {
			t.Fatalf("%s: award %.2f exceeds ceiling %.2f", tc.name, decision.RecommendedAward, ceiling)
		}
		if decision.Outcome != models.DecisionApproved && decision.RecommendedAward != 0 {
			t.Fatalf("%s: non-approved decision must award 0", tc.name)
		}
	}
}

func TestEvaluateApplication_DecisionedDateIsEvaluationTime(t *testing.T) {
	now := testNow()
	decision := EvaluateApplication(validInput(), now)
	if !decision.DecisionedDate.Equal(now) {
		t.Fatalf("expected decisioned date %s, got %s", now, decision.DecisionedDate)
	}
}

