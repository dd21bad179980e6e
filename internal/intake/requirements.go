package intake

import (
	"github.com/david/relief-fund/internal/models"
)

// Section identifies one of the five ordered groups of required fields.
// Later sections are gated until every earlier one is complete.
type Section string

const (
	SectionAdditionalDetails Section = "additional_details"
	SectionAcknowledgements  Section = "acknowledgements"
	SectionEventDetails      Section = "event_details"
	SectionExpenses          Section = "expenses"
	SectionAgreements        Section = "agreements"
)

// sectionOrder is the disclosure order enforced by the resolver.
var sectionOrder = []Section{
	SectionAdditionalDetails,
	SectionAcknowledgements,
	SectionEventDetails,
	SectionExpenses,
	SectionAgreements,
}

// Requirement is one entry in the declarative dependency table. Condition
// decides whether the item is currently visible given the merged state;
// Complete decides whether its resolved value satisfies it. A nil Condition
// means always visible.
type Requirement struct {
	Key       string
	Section   Section
	Condition func(models.Resolved) bool
	Complete  func(models.Resolved) bool
}

// requirements is the full dependency table. Conditional sub-fields appear
// and disappear as their parent answers change, so completeness is always
// recomputed from this table against the current state.
var requirements = []Requirement{
	// Additional details: household attributes collected after the intro.
	{Key: "eligibility_type", Section: SectionAdditionalDetails, Complete: func(r models.Resolved) bool { return strSet(r.EligibilityType) }},
	{Key: "employment_start_date", Section: SectionAdditionalDetails, Complete: func(r models.Resolved) bool { return strSet(r.EmploymentStartDate) }},
	{Key: "household_income", Section: SectionAdditionalDetails, Complete: func(r models.Resolved) bool { return r.HouseholdIncome != nil }},
	{Key: "household_size", Section: SectionAdditionalDetails, Complete: func(r models.Resolved) bool { return r.HouseholdSize != nil && *r.HouseholdSize > 0 }},
	{Key: "homeowner", Section: SectionAdditionalDetails, Complete: func(r models.Resolved) bool { return r.Homeowner != nil }},
	{Key: "preferred_language", Section: SectionAdditionalDetails, Complete: func(r models.Resolved) bool { return strSet(r.PreferredLanguage) }},

	// Acknowledgements: consent checkboxes, only an explicit true satisfies.
	{Key: "policy_acknowledged", Section: SectionAcknowledgements, Complete: func(r models.Resolved) bool { return boolTrue(r.PolicyAcknowledged) }},
	{Key: "communication_consent", Section: SectionAcknowledgements, Complete: func(r models.Resolved) bool { return boolTrue(r.CommunicationConsent) }},
	{Key: "accuracy_confirmed", Section: SectionAcknowledgements, Complete: func(r models.Resolved) bool { return boolTrue(r.AccuracyConfirmed) }},

	// Event details. The category item keeps the section incomplete while no
	// event has been chosen at all, even though every conditional item below
	// would be hidden.
	{Key: "event", Section: SectionEventDetails, Complete: func(r models.Resolved) bool {
		return r.Event.Category != nil && r.Event.Category.Known()
	}},
	{Key: "event_name", Section: SectionEventDetails,
		Condition: func(r models.Resolved) bool { return categoryIs(r, models.EventCategory.IsNamedStorm) },
		Complete:  func(r models.Resolved) bool { return strSet(r.Event.EventName) }},
	{Key: "other_event_name", Section: SectionEventDetails,
		Condition: func(r models.Resolved) bool { return categoryIs(r, models.EventCategory.IsNotListed) },
		Complete:  func(r models.Resolved) bool { return strSet(r.Event.OtherEventName) }},
	{Key: "event_date", Section: SectionEventDetails, Complete: func(r models.Resolved) bool { return strSet(r.Event.EventDate) }},
	{Key: "power_loss", Section: SectionEventDetails, Complete: func(r models.Resolved) bool { return r.Event.PowerLoss != nil }},
	{Key: "power_loss_days", Section: SectionEventDetails,
		Condition: func(r models.Resolved) bool { return boolTrue(r.Event.PowerLoss) },
		Complete:  func(r models.Resolved) bool { return r.Event.PowerLossDays != nil && *r.Event.PowerLossDays > 0 }},
	{Key: "evacuated", Section: SectionEventDetails, Complete: func(r models.Resolved) bool { return r.Event.Evacuated != nil }},
	{Key: "evacuating_from_primary", Section: SectionEventDetails,
		Condition: func(r models.Resolved) bool { return boolTrue(r.Event.Evacuated) },
		Complete:  func(r models.Resolved) bool { return r.Event.EvacuatingFromPrimary != nil }},
	{Key: "evacuation_reason", Section: SectionEventDetails,
		Condition: func(r models.Resolved) bool {
			return boolTrue(r.Event.Evacuated) && boolFalse(r.Event.EvacuatingFromPrimary)
		},
		Complete: func(r models.Resolved) bool { return strSet(r.Event.EvacuationReason) }},
	{Key: "stayed_with_family_or_friend", Section: SectionEventDetails,
		Condition: func(r models.Resolved) bool { return boolTrue(r.Event.Evacuated) },
		Complete:  func(r models.Resolved) bool { return r.Event.StayedWithFamilyOrFriend != nil }},
	{Key: "evacuation_start_date", Section: SectionEventDetails,
		Condition: func(r models.Resolved) bool { return boolTrue(r.Event.Evacuated) },
		Complete:  func(r models.Resolved) bool { return strSet(r.Event.EvacuationStartDate) }},
	{Key: "evacuation_nights", Section: SectionEventDetails,
		Condition: func(r models.Resolved) bool { return boolTrue(r.Event.Evacuated) },
		Complete:  func(r models.Resolved) bool { return r.Event.EvacuationNights != nil && *r.Event.EvacuationNights > 0 }},
	{Key: "requested_amount", Section: SectionEventDetails, Complete: func(r models.Resolved) bool {
		return r.Event.RequestedAmount != nil && *r.Event.RequestedAmount > 0
	}},
}

func init() {
	// One expense item per required type; each must be present with a
	// positive amount.
	for _, expenseType := range models.RequiredExpenseTypes {
		expenseType := expenseType
		requirements = append(requirements, Requirement{
			Key:     "expense_" + string(expenseType),
			Section: SectionExpenses,
			Complete: func(r models.Resolved) bool {
				exp, ok := r.Event.ExpenseByType(expenseType)
				return ok && exp.Amount > 0
			},
		})
	}

	// Agreements are tri-state: an explicit "no" is a full answer, only
	// unanswered keeps the item open.
	requirements = append(requirements,
		Requirement{Key: "share_story", Section: SectionAgreements, Complete: func(r models.Resolved) bool { return r.Agreement.ShareStory != nil }},
		Requirement{Key: "receive_additional_info", Section: SectionAgreements, Complete: func(r models.Resolved) bool { return r.Agreement.ReceiveAdditionalInfo != nil }},
	)
}

func strSet(s *string) bool {
	return s != nil && *s != ""
}

func boolTrue(b *bool) bool {
	return b != nil && *b
}

func boolFalse(b *bool) bool {
	return b != nil && !*b
}

func categoryIs(r models.Resolved, pred func(models.EventCategory) bool) bool {
	return r.Event.Category != nil && pred(*r.Event.Category)
}
