package models

import (
	"time"

	"github.com/google/uuid"
)

// EventCategory is the fixed enumeration of hardship events an applicant
// can claim. "not_listed" requires the free-text OtherEventName.
type EventCategory string

const (
	EventHurricane     EventCategory = "hurricane"
	EventTropicalStorm EventCategory = "tropical_storm"
	EventTornado       EventCategory = "tornado"
	EventFlood         EventCategory = "flood"
	EventWildfire      EventCategory = "wildfire"
	EventEarthquake    EventCategory = "earthquake"
	EventWinterStorm   EventCategory = "winter_storm"
	EventHouseFire     EventCategory = "house_fire"
	EventNotListed     EventCategory = "not_listed"
)

// IsNamedStorm reports whether the category refers to a storm that carries
// an official name, which applicants must supply separately.
func (c EventCategory) IsNamedStorm() bool {
	return c == EventHurricane || c == EventTropicalStorm
}

func (c EventCategory) IsNotListed() bool {
	return c == EventNotListed
}

func (c EventCategory) Known() bool {
	switch c {
	case EventHurricane, EventTropicalStorm, EventTornado, EventFlood,
		EventWildfire, EventEarthquake, EventWinterStorm, EventHouseFire, EventNotListed:
		return true
	}
	return false
}

// Label returns the human-readable event name used when the category itself
// identifies the event (e.g. "flood").
func (c EventCategory) Label() string {
	switch c {
	case EventHurricane:
		return "hurricane"
	case EventTropicalStorm:
		return "tropical storm"
	case EventTornado:
		return "tornado"
	case EventFlood:
		return "flood"
	case EventWildfire:
		return "wildfire"
	case EventEarthquake:
		return "earthquake"
	case EventWinterStorm:
		return "winter storm"
	case EventHouseFire:
		return "house fire"
	}
	return ""
}

// ExpenseType enumerates the expense lines every application must itemize.
type ExpenseType string

const (
	ExpenseFood           ExpenseType = "food"
	ExpenseClothing       ExpenseType = "clothing"
	ExpenseLodging        ExpenseType = "lodging"
	ExpenseTransportation ExpenseType = "transportation"
)

// RequiredExpenseTypes is the full set of expense lines; all of them must be
// present with a positive amount before the expenses section is complete.
var RequiredExpenseTypes = []ExpenseType{
	ExpenseFood,
	ExpenseClothing,
	ExpenseLodging,
	ExpenseTransportation,
}

func (t ExpenseType) Known() bool {
	for _, known := range RequiredExpenseTypes {
		if t == known {
			return true
		}
	}
	return false
}

type Expense struct {
	Type   ExpenseType `json:"type"`
	Amount float64     `json:"amount"`
}

// Profile is the stored identity/household record for an applicant.
// Optional answers use pointers so "never asked" stays distinct from an
// explicit false or zero.
type Profile struct {
	ID                   uuid.UUID `json:"id"`
	FirstName            string    `json:"first_name"`
	LastName             string    `json:"last_name"`
	Email                string    `json:"email"`
	Phone                string    `json:"phone"`
	PrimaryAddress       string    `json:"primary_address"`
	MailingAddress       string    `json:"mailing_address"`
	EmploymentStartDate  *string   `json:"employment_start_date"`
	EligibilityType      *string   `json:"eligibility_type"`
	HouseholdIncome      *float64  `json:"household_income"`
	HouseholdSize        *int      `json:"household_size"`
	Homeowner            *bool     `json:"homeowner"`
	PreferredLanguage    *string   `json:"preferred_language"`
	PolicyAcknowledged   *bool     `json:"policy_acknowledged"`
	CommunicationConsent *bool     `json:"communication_consent"`
	AccuracyConfirmed    *bool     `json:"accuracy_confirmed"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ProfilePatch is a partial profile update. Absent fields (and explicit JSON
// nulls, which also decode to nil) leave the current value untouched.
type ProfilePatch struct {
	FirstName            *string  `json:"first_name,omitempty"`
	LastName             *string  `json:"last_name,omitempty"`
	Email                *string  `json:"email,omitempty"`
	Phone                *string  `json:"phone,omitempty"`
	PrimaryAddress       *string  `json:"primary_address,omitempty"`
	MailingAddress       *string  `json:"mailing_address,omitempty"`
	EmploymentStartDate  *string  `json:"employment_start_date,omitempty"`
	EligibilityType      *string  `json:"eligibility_type,omitempty"`
	HouseholdIncome      *float64 `json:"household_income,omitempty"`
	HouseholdSize        *int     `json:"household_size,omitempty"`
	Homeowner            *bool    `json:"homeowner,omitempty"`
	PreferredLanguage    *string  `json:"preferred_language,omitempty"`
	PolicyAcknowledged   *bool    `json:"policy_acknowledged,omitempty"`
	CommunicationConsent *bool    `json:"communication_consent,omitempty"`
	AccuracyConfirmed    *bool    `json:"accuracy_confirmed,omitempty"`
}

// EventPatch is the progressively-filled hardship event record. It only ever
// lives inside a draft; there is no stored base event.
type EventPatch struct {
	Category                 *EventCategory `json:"event,omitempty"`
	EventName                *string        `json:"event_name,omitempty"`
	OtherEventName           *string        `json:"other_event_name,omitempty"`
	EventDate                *string        `json:"event_date,omitempty"`
	PowerLoss                *bool          `json:"power_loss,omitempty"`
	PowerLossDays            *int           `json:"power_loss_days,omitempty"`
	Evacuated                *bool          `json:"evacuated,omitempty"`
	EvacuatingFromPrimary    *bool          `json:"evacuating_from_primary,omitempty"`
	EvacuationReason         *string        `json:"evacuation_reason,omitempty"`
	StayedWithFamilyOrFriend *bool          `json:"stayed_with_family_or_friend,omitempty"`
	EvacuationStartDate      *string        `json:"evacuation_start_date,omitempty"`
	EvacuationNights         *int           `json:"evacuation_nights,omitempty"`
	AdditionalDetails        *string        `json:"additional_details,omitempty"`
	RequestedAmount          *float64       `json:"requested_amount,omitempty"`
	Expenses                 []Expense      `json:"expenses,omitempty"`
}

// AgreementPatch holds the two closing agreements. Both are tri-state:
// nil means unanswered, which is distinct from an explicit false.
type AgreementPatch struct {
	ShareStory            *bool `json:"share_story,omitempty"`
	ReceiveAdditionalInfo *bool `json:"receive_additional_info,omitempty"`
}

// ApplicationDraft aggregates the partial records accumulated over a
// collection conversation. It starts empty and only grows until an explicit
// reset.
type ApplicationDraft struct {
	Profile   ProfilePatch   `json:"profile_data"`
	Event     EventPatch     `json:"event_data"`
	Agreement AgreementPatch `json:"agreement_data"`
}

// Apply shallow-merges the patch into dst, field by field. nil fields are
// skipped, so a caller-supplied null can never clear an earlier answer.
func (p ProfilePatch) Apply(dst *ProfilePatch) {
	if p.FirstName != nil {
		dst.FirstName = p.FirstName
	}
	if p.LastName != nil {
		dst.LastName = p.LastName
	}
	if p.Email != nil {
		dst.Email = p.Email
	}
	if p.Phone != nil {
		dst.Phone = p.Phone
	}
	if p.PrimaryAddress != nil {
		dst.PrimaryAddress = p.PrimaryAddress
	}
	if p.MailingAddress != nil {
		dst.MailingAddress = p.MailingAddress
	}
	if p.EmploymentStartDate != nil {
		dst.EmploymentStartDate = p.EmploymentStartDate
	}
	if p.EligibilityType != nil {
		dst.EligibilityType = p.EligibilityType
	}
	if p.HouseholdIncome != nil {
		dst.HouseholdIncome = p.HouseholdIncome
	}
	if p.HouseholdSize != nil {
		dst.HouseholdSize = p.HouseholdSize
	}
	if p.Homeowner != nil {
		dst.Homeowner = p.Homeowner
	}
	if p.PreferredLanguage != nil {
		dst.PreferredLanguage = p.PreferredLanguage
	}
	if p.PolicyAcknowledged != nil {
		dst.PolicyAcknowledged = p.PolicyAcknowledged
	}
	if p.CommunicationConsent != nil {
		dst.CommunicationConsent = p.CommunicationConsent
	}
	if p.AccuracyConfirmed != nil {
		dst.AccuracyConfirmed = p.AccuracyConfirmed
	}
}

// Apply shallow-merges the patch into dst. Updating the category alone does
// not clear previously-set conditional fields; the resolver simply stops
// surfacing them when they no longer apply. Expenses are managed separately
// and are not touched here.
func (p EventPatch) Apply(dst *EventPatch) {
	if p.Category != nil {
		dst.Category = p.Category
	}
	if p.EventName != nil {
		dst.EventName = p.EventName
	}
	if p.OtherEventName != nil {
		dst.OtherEventName = p.OtherEventName
	}
	if p.EventDate != nil {
		dst.EventDate = p.EventDate
	}
	if p.PowerLoss != nil {
		dst.PowerLoss = p.PowerLoss
	}
	if p.PowerLossDays != nil {
		dst.PowerLossDays = p.PowerLossDays
	}
	if p.Evacuated != nil {
		dst.Evacuated = p.Evacuated
	}
	if p.EvacuatingFromPrimary != nil {
		dst.EvacuatingFromPrimary = p.EvacuatingFromPrimary
	}
	if p.EvacuationReason != nil {
		dst.EvacuationReason = p.EvacuationReason
	}
	if p.StayedWithFamilyOrFriend != nil {
		dst.StayedWithFamilyOrFriend = p.StayedWithFamilyOrFriend
	}
	if p.EvacuationStartDate != nil {
		dst.EvacuationStartDate = p.EvacuationStartDate
	}
	if p.EvacuationNights != nil {
		dst.EvacuationNights = p.EvacuationNights
	}
	if p.AdditionalDetails != nil {
		dst.AdditionalDetails = p.AdditionalDetails
	}
	if p.RequestedAmount != nil {
		dst.RequestedAmount = p.RequestedAmount
	}
}

func (p AgreementPatch) Apply(dst *AgreementPatch) {
	if p.ShareStory != nil {
		dst.ShareStory = p.ShareStory
	}
	if p.ReceiveAdditionalInfo != nil {
		dst.ReceiveAdditionalInfo = p.ReceiveAdditionalInfo
	}
}

// Resolved is the merged read-only view the resolver and the decision engine
// work from: draft answers (including explicit false/0) take precedence, and
// absent draft fields fall back to the base profile.
type Resolved struct {
	FirstName            *string
	LastName             *string
	Email                *string
	Phone                *string
	PrimaryAddress       *string
	MailingAddress       *string
	EmploymentStartDate  *string
	EligibilityType      *string
	HouseholdIncome      *float64
	HouseholdSize        *int
	Homeowner            *bool
	PreferredLanguage    *string
	PolicyAcknowledged   *bool
	CommunicationConsent *bool
	AccuracyConfirmed    *bool

	Event     EventPatch
	Agreement AgreementPatch
}

// Resolve builds the merged view of a base profile and a draft. It never
// mutates either input.
func Resolve(base Profile, draft ApplicationDraft) Resolved {
	r := Resolved{
		FirstName:            strOrNil(base.FirstName),
		LastName:             strOrNil(base.LastName),
		Email:                strOrNil(base.Email),
		Phone:                strOrNil(base.Phone),
		PrimaryAddress:       strOrNil(base.PrimaryAddress),
		MailingAddress:       strOrNil(base.MailingAddress),
		EmploymentStartDate:  base.EmploymentStartDate,
		EligibilityType:      base.EligibilityType,
		HouseholdIncome:      base.HouseholdIncome,
		HouseholdSize:        base.HouseholdSize,
		Homeowner:            base.Homeowner,
		PreferredLanguage:    base.PreferredLanguage,
		PolicyAcknowledged:   base.PolicyAcknowledged,
		CommunicationConsent: base.CommunicationConsent,
		AccuracyConfirmed:    base.AccuracyConfirmed,
		Event:                draft.Event,
		Agreement:            draft.Agreement,
	}

	p := draft.Profile
	if p.FirstName != nil {
		r.FirstName = p.FirstName
	}
	if p.LastName != nil {
		r.LastName = p.LastName
	}
	if p.Email != nil {
		r.Email = p.Email
	}
	if p.Phone != nil {
		r.Phone = p.Phone
	}
	if p.PrimaryAddress != nil {
		r.PrimaryAddress = p.PrimaryAddress
	}
	if p.MailingAddress != nil {
		r.MailingAddress = p.MailingAddress
	}
	if p.EmploymentStartDate != nil {
		r.EmploymentStartDate = p.EmploymentStartDate
	}
	if p.EligibilityType != nil {
		r.EligibilityType = p.EligibilityType
	}
	if p.HouseholdIncome != nil {
		r.HouseholdIncome = p.HouseholdIncome
	}
	if p.HouseholdSize != nil {
		r.HouseholdSize = p.HouseholdSize
	}
	if p.Homeowner != nil {
		r.Homeowner = p.Homeowner
	}
	if p.PreferredLanguage != nil {
		r.PreferredLanguage = p.PreferredLanguage
	}
	if p.PolicyAcknowledged != nil {
		r.PolicyAcknowledged = p.PolicyAcknowledged
	}
	if p.CommunicationConsent != nil {
		r.CommunicationConsent = p.CommunicationConsent
	}
	if p.AccuracyConfirmed != nil {
		r.AccuracyConfirmed = p.AccuracyConfirmed
	}

	return r
}

// ExpenseByType returns the expense entry for the given type, if present.
func (e EventPatch) ExpenseByType(t ExpenseType) (Expense, bool) {
	for _, exp := range e.Expenses {
		if exp.Type == t {
			return exp, true
		}
	}
	return Expense{}, false
}

func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
