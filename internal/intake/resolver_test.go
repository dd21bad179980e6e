package intake

import (
	"reflect"
	"testing"

	"github.com/david/relief-fund/internal/models"
)

func strPtr(s string) *string     { return &s }
func intPtr(i int) *int           { return &i }
func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }
func catPtr(c models.EventCategory) *models.EventCategory { return &c }

// completeDetails fills the additional-details and acknowledgements
// sections so later sections are disclosed.
func completeDetails() models.ApplicationDraft {
	return models.ApplicationDraft{
		Profile: models.ProfilePatch{
			EligibilityType:      strPtr("full_time"),
			EmploymentStartDate:  strPtr("2015-03-01"),
			HouseholdIncome:      floatPtr(52000),
			HouseholdSize:        intPtr(3),
			Homeowner:            boolPtr(false),
			PreferredLanguage:    strPtr("en"),
			PolicyAcknowledged:   boolPtr(true),
			CommunicationConsent: boolPtr(true),
			AccuracyConfirmed:    boolPtr(true),
		},
	}
}

func allExpenses() []models.Expense {
	items := make([]models.Expense, 0, len(models.RequiredExpenseTypes))
	for _, t := range models.RequiredExpenseTypes {
		items = append(items, models.Expense{Type: t, Amount: 100})
	}
	return items
}

func completeDraft() models.ApplicationDraft {
	draft := completeDetails()
	draft.Event = models.EventPatch{
		Category:        catPtr(models.EventFlood),
		EventDate:       strPtr("2026-08-21"),
		PowerLoss:       boolPtr(false),
		Evacuated:       boolPtr(false),
		RequestedAmount: floatPtr(800),
		Expenses:        allExpenses(),
	}
	draft.Agreement = models.AgreementPatch{
		ShareStory:            boolPtr(false),
		ReceiveAdditionalInfo: boolPtr(true),
	}
	return draft
}

func reportFor(t *testing.T, reports []SectionReport, section Section) SectionReport {
	t.Helper()
	for _, report := range reports {
		if report.Section == section {
			return report
		}
	}
	t.Fatalf("no report for section %s", section)
	return SectionReport{}
}

func TestResolveMissing_EmptyStateOnlyShowsFirstSection(t *testing.T) {
	reports := ResolveMissing(models.Resolve(models.Profile{}, models.ApplicationDraft{}))

	if len(reports) != 5 {
		t.Fatalf("expected 5 section reports, got %d", len(reports))
	}
	first := reportFor(t, reports, SectionAdditionalDetails)
	if len(first.Missing) == 0 {
		t.Fatal("expected missing items in additional details")
	}
	for _, section := range []Section{SectionAcknowledgements, SectionEventDetails, SectionExpenses, SectionAgreements} {
		report := reportFor(t, reports, section)
		if len(report.Missing) != 0 {
			t.Fatalf("gated section %s must report no missing items, got %v", section, report.Missing)
		}
		if report.Complete {
			t.Fatalf("gated section %s must not report complete", section)
		}
	}
}

func TestResolveMissing_GatingIgnoresLaterAnswers(t *testing.T) {
	// Event data is fully entered, but additional details are not: event
	// details must still report nothing missing.
	draft := models.ApplicationDraft{
		Event: models.EventPatch{
			Category:  catPtr(models.EventFlood),
			EventDate: strPtr("2026-08-21"),
		},
	}
	reports := ResolveMissing(models.Resolve(models.Profile{}, draft))

	event := reportFor(t, reports, SectionEventDetails)
	if len(event.Missing) != 0 {
		t.Fatalf("expected event details gated while additional details incomplete, got %v", event.Missing)
	}
	if ActiveSection(reports) != SectionAdditionalDetails {
		t.Fatalf("expected additional details active, got %s", ActiveSection(reports))
	}
}

func TestResolveMissing_Idempotent(t *testing.T) {
	state := models.Resolve(models.Profile{}, completeDetails())

	first := ResolveMissing(state)
	second := ResolveMissing(state)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical state must yield identical reports")
	}
}

func TestResolveMissing_EventSectionIncompleteWithoutCategory(t *testing.T) {
	reports := ResolveMissing(models.Resolve(models.Profile{}, completeDetails()))

	event := reportFor(t, reports, SectionEventDetails)
	if event.Complete {
		t.Fatal("event details must be incomplete while no category is chosen")
	}
	found := false
	for _, key := range event.Missing {
		if key == "event" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected 'event' to be missing, got %v", event.Missing)
	}
}

func TestResolveMissing_ConditionalItemsFollowAnswers(t *testing.T) {
	draft := completeDetails()
	draft.Event = models.EventPatch{
		Category:  catPtr(models.EventFlood),
		EventDate: strPtr("2026-08-21"),
		PowerLoss: boolPtr(true),
		Evacuated: boolPtr(false),
	}
	reports := ResolveMissing(models.Resolve(models.Profile{}, draft))
	event := reportFor(t, reports, SectionEventDetails)

	wantMissing := map[string]bool{"power_loss_days": true, "requested_amount": true}
	for _, key := range event.Missing {
		if !wantMissing[key] {
			t.Fatalf("unexpected missing item %q (missing: %v)", key, event.Missing)
		}
		delete(wantMissing, key)
	}
	for key := range wantMissing {
		t.Fatalf("expected %q to be missing", key)
	}

	// Flipping power loss to no hides the day count again.
	draft.Event.PowerLoss = boolPtr(false)
	reports = ResolveMissing(models.Resolve(models.Profile{}, draft))
	event = reportFor(t, reports, SectionEventDetails)
	for _, key := range event.Missing {
		if key == "power_loss_days" {
			t.Fatal("power_loss_days must be hidden when power loss is no")
		}
	}
}

func TestResolveMissing_EvacuationSubGraph(t *testing.T) {
	draft := completeDetails()
	draft.Event = models.EventPatch{
		Category:              catPtr(models.EventFlood),
		EventDate:             strPtr("2026-08-21"),
		PowerLoss:             boolPtr(false),
		Evacuated:             boolPtr(true),
		EvacuatingFromPrimary: boolPtr(false),
		RequestedAmount:       floatPtr(500),
	}
	reports := ResolveMissing(models.Resolve(models.Profile{}, draft))
	event := reportFor(t, reports, SectionEventDetails)

	expect := []string{"evacuation_reason", "stayed_with_family_or_friend", "evacuation_start_date", "evacuation_nights"}
	for _, key := range expect {
		found := false
		for _, missing := range event.Missing {
			if missing == key {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected %q missing, got %v", key, event.Missing)
		}
	}
}

func TestResolveMissing_ZeroNightCountsIncomplete(t *testing.T) {
	draft := completeDetails()
	draft.Event = models.EventPatch{
		Category:                 catPtr(models.EventFlood),
		EventDate:                strPtr("2026-08-21"),
		PowerLoss:                boolPtr(false),
		Evacuated:                boolPtr(true),
		EvacuatingFromPrimary:    boolPtr(true),
		StayedWithFamilyOrFriend: boolPtr(true),
		EvacuationStartDate:      strPtr("2026-08-21"),
		EvacuationNights:         intPtr(0),
		RequestedAmount:          floatPtr(500),
	}
	reports := ResolveMissing(models.Resolve(models.Profile{}, draft))
	event := reportFor(t, reports, SectionEventDetails)

	if event.Complete {
		t.Fatal("zero evacuation nights must keep the section incomplete")
	}
}

func TestResolveMissing_ExpensesRequireEveryType(t *testing.T) {
	draft := completeDraft()
	draft.Event.Expenses = []models.Expense{{Type: models.ExpenseFood, Amount: 120}}

	reports := ResolveMissing(models.Resolve(models.Profile{}, draft))
	expenses := reportFor(t, reports, SectionExpenses)
	if expenses.Complete {
		t.Fatal("expenses must be incomplete with missing types")
	}
	if len(expenses.Missing) != len(models.RequiredExpenseTypes)-1 {
		t.Fatalf("expected %d missing expense items, got %v", len(models.RequiredExpenseTypes)-1, expenses.Missing)
	}
}

func TestResolveMissing_AgreementsAcceptExplicitNo(t *testing.T) {
	draft := completeDraft()
	draft.Agreement = models.AgreementPatch{
		ShareStory:            boolPtr(false),
		ReceiveAdditionalInfo: boolPtr(false),
	}

	reports := ResolveMissing(models.Resolve(models.Profile{}, draft))
	agreements := reportFor(t, reports, SectionAgreements)
	if !agreements.Complete {
		t.Fatalf("an explicit no is a full answer, missing: %v", agreements.Missing)
	}
}

func TestResolveMissing_AcknowledgementsRequireExplicitTrue(t *testing.T) {
	draft := completeDetails()
	draft.Profile.AccuracyConfirmed = boolPtr(false)

	reports := ResolveMissing(models.Resolve(models.Profile{}, draft))
	acks := reportFor(t, reports, SectionAcknowledgements)
	if acks.Complete {
		t.Fatal("an acknowledgement answered false must stay incomplete")
	}
}

func TestResolveMissing_BaseProfileFallback(t *testing.T) {
	homeowner := true
	income := 48000.0
	size := 2
	lang := "es"
	eligibility := "part_time"
	start := "2019-06-01"
	base := models.Profile{
		EligibilityType:      &eligibility,
		EmploymentStartDate:  &start,
		HouseholdIncome:      &income,
		HouseholdSize:        &size,
		Homeowner:            &homeowner,
		PreferredLanguage:    &lang,
		PolicyAcknowledged:   boolPtr(true),
		CommunicationConsent: boolPtr(true),
		AccuracyConfirmed:    boolPtr(true),
	}

	reports := ResolveMissing(models.Resolve(base, models.ApplicationDraft{}))
	details := reportFor(t, reports, SectionAdditionalDetails)
	if !details.Complete {
		t.Fatalf("base profile answers must satisfy additional details, missing: %v", details.Missing)
	}
	if ActiveSection(reports) != SectionEventDetails {
		t.Fatalf("expected event details active, got %s", ActiveSection(reports))
	}
}

func TestResolveMissing_AllComplete(t *testing.T) {
	reports := ResolveMissing(models.Resolve(models.Profile{}, completeDraft()))
	for _, report := range reports {
		if !report.Complete {
			t.Fatalf("expected every section complete, %s missing %v", report.Section, report.Missing)
		}
	}
	if ActiveSection(reports) != "" {
		t.Fatalf("expected no active section, got %s", ActiveSection(reports))
	}
}
