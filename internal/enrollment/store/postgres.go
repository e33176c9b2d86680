// internal/enrollment/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"enrollment-core/internal/common/logger"
	"enrollment-core/internal/models"

	"github.com/google/uuid"
)

var (
	ErrDatabaseInsertFailed = errors.New("DATABASE_INSERT_FAILED")
)

// ChildApplication is one carrier application record linked to an optional
// parent enrollment record.
type ChildApplication struct {
	ID          string
	ParentID    string
	CarrierSlug string
	Status      string
	SubmittedAt string
}

// Store persists parent/child application records, applicants, coverages,
// beneficiaries, and payment records. Only the parent insert is a hard
// dependency for the orchestrator; detail inserts are best-effort from its
// retry perspective.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{db: db, logger: log}
}

// CreateParent inserts the parent enrollment record that links the child
// applications of a multi-carrier submission. Returns the generated id.
func (s *Store) CreateParent(ctx context.Context, email string) (string, error) {
	parentID := uuid.New().String()
	createdAt := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (id, email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)`,
		parentID,
		email,
		models.StatusLinking,
		createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("%w: parent insert failed: %v", ErrDatabaseInsertFailed, err)
	}

	s.logger.Info("parent enrollment record created", map[string]interface{}{
		"parentId": parentID,
	})
	return parentID, nil
}

// CreateChild inserts one carrier application record. The id is the
// carrier-issued application id.
func (s *Store) CreateChild(ctx context.Context, app ChildApplication) error {
	var parentID sql.NullString
	if app.ParentID != "" {
		parentID = sql.NullString{String: app.ParentID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (id, parent_id, carrier, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		app.ID,
		parentID,
		app.CarrierSlug,
		app.Status,
		app.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: child insert failed: %v", ErrDatabaseInsertFailed, err)
	}
	return nil
}

// InsertApplicants stores the applicants attached to one application.
func (s *Store) InsertApplicants(ctx context.Context, applicationID string, applicants []models.Applicant) error {
	for _, a := range applicants {
		responsesJSON, err := json.Marshal(a.Responses)
		if err != nil {
			responsesJSON = []byte("[]")
		}

		_, err = s.db.ExecContext(ctx, `
			INSERT INTO applicants (application_id, applicant_key, first_name, last_name, date_of_birth, gender, relationship, is_smoker, responses)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			applicationID,
			a.ID,
			a.FirstName,
			a.LastName,
			a.DateOfBirth,
			a.Gender,
			models.NormalizeRelationship(a.Relationship),
			a.IsSmoker,
			responsesJSON,
		)
		if err != nil {
			return fmt.Errorf("%w: applicant insert failed: %v", ErrDatabaseInsertFailed, err)
		}
	}
	return nil
}

// InsertCoverages stores the coverage rows for one application.
func (s *Store) InsertCoverages(ctx context.Context, applicationID string, items []models.CoverageItem) error {
	for _, item := range items {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO coverages (application_id, plan_key, premium, effective_date, payment_frequency)
			VALUES ($1, $2, $3, $4, $5)`,
			applicationID,
			item.PlanKey,
			item.FinalPremium(),
			item.EffectiveDate,
			item.PaymentFrequency,
		)
		if err != nil {
			return fmt.Errorf("%w: coverage insert failed: %v", ErrDatabaseInsertFailed, err)
		}
	}
	return nil
}

// InsertBeneficiaries stores the beneficiary rows for one application.
func (s *Store) InsertBeneficiaries(ctx context.Context, applicationID string, beneficiaries []models.Beneficiary) error {
	for _, b := range beneficiaries {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO beneficiaries (application_id, first_name, last_name, relationship, percentage)
			VALUES ($1, $2, $3, $4, $5)`,
			applicationID,
			b.FirstName,
			b.LastName,
			models.NormalizeRelationship(b.Relationship),
			b.Percentage,
		)
		if err != nil {
			return fmt.Errorf("%w: beneficiary insert failed: %v", ErrDatabaseInsertFailed, err)
		}
	}
	return nil
}

// InsertPayment stores the payment record for one application. Field-level
// encryption happens upstream of this store; only the method and reference
// fields land here.
func (s *Store) InsertPayment(ctx context.Context, applicationID string, p models.PaymentInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_records (application_id, method, account_name, draft_day)
		VALUES ($1, $2, $3, $4)`,
		applicationID,
		p.Method,
		p.AccountName,
		p.DraftDay,
	)
	if err != nil {
		return fmt.Errorf("%w: payment insert failed: %v", ErrDatabaseInsertFailed, err)
	}
	return nil
}

// UpdateParentStatus moves the parent record out of linking once all child
// submissions have been attempted.
func (s *Store) UpdateParentStatus(ctx context.Context, parentID, status string) error {
	updatedAt := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx, `
		UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3`,
		status,
		updatedAt,
		parentID,
	)
	if err != nil {
		return fmt.Errorf("%w: parent status update failed: %v", ErrDatabaseInsertFailed, err)
	}
	return nil
}
