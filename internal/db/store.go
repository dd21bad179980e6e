package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/david/relief-fund/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetProfile loads the applicant's base profile. A missing row yields an
// empty profile keyed to the applicant, so collection can start from
// nothing.
func (s *Store) GetProfile(ctx context.Context, applicantID uuid.UUID) (models.Profile, error) {
	var p models.Profile
	err := s.pool.QueryRow(ctx, `
		SELECT applicant_id, first_name, last_name, email, phone, primary_address, mailing_address,
		       employment_start_date, eligibility_type, household_income, household_size, homeowner,
		       preferred_language, policy_acknowledged, communication_consent, accuracy_confirmed,
		       created_at, updated_at
		FROM profiles WHERE applicant_id = $1
	`, applicantID).Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.PrimaryAddress, &p.MailingAddress,
		&p.EmploymentStartDate, &p.EligibilityType, &p.HouseholdIncome, &p.HouseholdSize, &p.Homeowner,
		&p.PreferredLanguage, &p.PolicyAcknowledged, &p.CommunicationConsent, &p.AccuracyConfirmed,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return models.Profile{ID: applicantID}, nil
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// UpsertProfile persists the base profile record. Profiles are never
// deleted, only superseded.
func (s *Store) UpsertProfile(ctx context.Context, p models.Profile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (applicant_id, first_name, last_name, email, phone, primary_address, mailing_address,
			employment_start_date, eligibility_type, household_income, household_size, homeowner,
			preferred_language, policy_acknowledged, communication_consent, accuracy_confirmed, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,NOW())
		ON CONFLICT (applicant_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			primary_address = EXCLUDED.primary_address,
			mailing_address = EXCLUDED.mailing_address,
			employment_start_date = EXCLUDED.employment_start_date,
			eligibility_type = EXCLUDED.eligibility_type,
			household_income = EXCLUDED.household_income,
			household_size = EXCLUDED.household_size,
			homeowner = EXCLUDED.homeowner,
			preferred_language = EXCLUDED.preferred_language,
			policy_acknowledged = EXCLUDED.policy_acknowledged,
			communication_consent = EXCLUDED.communication_consent,
			accuracy_confirmed = EXCLUDED.accuracy_confirmed,
			updated_at = NOW()
	`, p.ID, p.FirstName, p.LastName, p.Email, p.Phone, p.PrimaryAddress, p.MailingAddress,
		p.EmploymentStartDate, p.EligibilityType, p.HouseholdIncome, p.HouseholdSize, p.Homeowner,
		p.PreferredLanguage, p.PolicyAcknowledged, p.CommunicationConsent, p.AccuracyConfirmed)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// SaveDraft snapshots the in-progress draft for one applicant/fund pair.
func (s *Store) SaveDraft(ctx context.Context, applicantID uuid.UUID, fundID string, draft models.ApplicationDraft) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO application_drafts (applicant_id, fund_id, draft, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (applicant_id, fund_id) DO UPDATE SET draft = EXCLUDED.draft, updated_at = NOW()
	`, applicantID, fundID, payload)
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// LoadDraft restores the stored draft, if any.
func (s *Store) LoadDraft(ctx context.Context, applicantID uuid.UUID, fundID string) (models.ApplicationDraft, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT draft FROM application_drafts WHERE applicant_id = $1 AND fund_id = $2
	`, applicantID, fundID).Scan(&payload)
	if err == pgx.ErrNoRows {
		return models.ApplicationDraft{}, ErrNotFound
	}
	if err != nil {
		return models.ApplicationDraft{}, fmt.Errorf("load draft: %w", err)
	}

	var draft models.ApplicationDraft
	if err := json.Unmarshal(payload, &draft); err != nil {
		return models.ApplicationDraft{}, fmt.Errorf("unmarshal draft: %w", err)
	}
	return draft, nil
}

func (s *Store) DeleteDraft(ctx context.Context, applicantID uuid.UUID, fundID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM application_drafts WHERE applicant_id = $1 AND fund_id = $2
	`, applicantID, fundID)
	return err
}

// GetBalance returns the applicant's remaining capacity against a fund,
// seeding a fresh row from the program caps on first sight.
func (s *Store) GetBalance(ctx context.Context, applicantID uuid.UUID, fundID string, twelveMonthCap, lifetimeCap, singleRequestMax float64) (models.GrantBalance, error) {
	balance := models.GrantBalance{SingleRequestMax: singleRequestMax}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO grant_balances (applicant_id, fund_id, twelve_month_remaining, lifetime_remaining)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (applicant_id, fund_id) DO UPDATE SET updated_at = grant_balances.updated_at
		RETURNING twelve_month_remaining, lifetime_remaining
	`, applicantID, fundID, twelveMonthCap, lifetimeCap).Scan(&balance.TwelveMonthRemaining, &balance.LifetimeRemaining)
	if err != nil {
		return models.GrantBalance{}, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// ApplyAward reduces both remaining balances after an approved decision.
func (s *Store) ApplyAward(ctx context.Context, applicantID uuid.UUID, fundID string, award float64) error {
	if award <= 0 {
		return nil
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE grant_balances
		SET twelve_month_remaining = twelve_month_remaining - $3,
		    lifetime_remaining = lifetime_remaining - $3,
		    updated_at = NOW()
		WHERE applicant_id = $1 AND fund_id = $2
		  AND twelve_month_remaining >= $3 AND lifetime_remaining >= $3
	`, applicantID, fundID, award)
	if err != nil {
		return fmt.Errorf("apply award: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("apply award: balance row missing or insufficient for %.2f", award)
	}
	return nil
}

// InsertDecision appends the immutable decision row to the audit log.
func (s *Store) InsertDecision(ctx context.Context, applicantID uuid.UUID, fundID string, d models.Decision) error {
	reasons, err := json.Marshal(d.Reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}
	hits, err := json.Marshal(d.PolicyHits)
	if err != nil {
		return fmt.Errorf("marshal policy hits: %w", err)
	}
	normalized, err := json.Marshal(d.Normalized)
	if err != nil {
		return fmt.Errorf("marshal normalized: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO decisions (id, applicant_id, fund_id, outcome, reasons, policy_hits,
			recommended_award, remaining_12mo, remaining_lifetime, normalized, decisioned_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, d.ID, applicantID, fundID, string(d.Outcome), reasons, hits,
		d.RecommendedAward, d.Remaining12Mo, d.RemainingLifetime, normalized, d.DecisionedDate)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// DecisionRow is one audit log entry as listed by the tooling.
type DecisionRow struct {
	ID               uuid.UUID
	ApplicantID      uuid.UUID
	FundID           string
	Outcome          string
	RecommendedAward float64
	DecisionedAt     time.Time
}

// ListRecentDecisions returns the newest decisions, optionally filtered by
// outcome.
func (s *Store) ListRecentDecisions(ctx context.Context, outcome string, limit int) ([]DecisionRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, applicant_id, fund_id, outcome, recommended_award, decisioned_at
		FROM decisions
	` + buildOutcomeFilter(outcome) + `
		ORDER BY decisioned_at DESC
		LIMIT $1
	`

	args := []any{limit}
	if clause := buildOutcomeFilter(outcome); clause != "" {
		args = append(args, outcome)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []DecisionRow
	for rows.Next() {
		var row DecisionRow
		if err := rows.Scan(&row.ID, &row.ApplicantID, &row.FundID, &row.Outcome, &row.RecommendedAward, &row.DecisionedAt); err != nil {
			return nil, err
		}
		decisions = append(decisions, row)
	}
	return decisions, rows.Err()
}

// buildOutcomeFilter returns the WHERE clause for an outcome filter, or ""
// for the unfiltered listing. Only the known outcomes are accepted so the
// clause can never carry arbitrary input.
func buildOutcomeFilter(outcome string) string {
	switch strings.TrimSpace(outcome) {
	case string(models.DecisionApproved), string(models.DecisionDenied), string(models.DecisionReview):
		return " WHERE outcome = $2"
	}
	return ""
}
