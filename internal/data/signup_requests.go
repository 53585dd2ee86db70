package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/internal/apperror"
	"github.com/tenantcrm/crm-platform-backend/internal/utils"
)

type SignupRequestStatus string

const (
	PendingSignupRequestStatus    SignupRequestStatus = "pending"
	ProcessingSignupRequestStatus SignupRequestStatus = "processing"
	ApprovedSignupRequestStatus   SignupRequestStatus = "approved"
	ConvertedSignupRequestStatus  SignupRequestStatus = "converted"
	FailedSignupRequestStatus     SignupRequestStatus = "failed"
	RejectedSignupRequestStatus   SignupRequestStatus = "rejected"
)

var (
	// ErrSignupRequestStatusConflict is returned when a conditional status update finds the request in a status other
	// than the expected one, usually because another caller got to it first.
	ErrSignupRequestStatusConflict    = apperror.State("signup request is not in the expected status")
	ErrInvalidSignupRequestTransition = apperror.State("invalid signup request status transition")
)

func SignupRequestStatuses() []SignupRequestStatus {
	return []SignupRequestStatus{
		PendingSignupRequestStatus,
		ProcessingSignupRequestStatus,
		ApprovedSignupRequestStatus,
		ConvertedSignupRequestStatus,
		FailedSignupRequestStatus,
		RejectedSignupRequestStatus,
	}
}

func (status SignupRequestStatus) Validate() error {
	for _, s := range SignupRequestStatuses() {
		if s == status {
			return nil
		}
	}
	return fmt.Errorf("invalid signup request status: %s", status)
}

// ToSignupRequestStatus parses a status received from an outer surface, ignoring case.
func ToSignupRequestStatus(s string) (SignupRequestStatus, error) {
	status := SignupRequestStatus(strings.ToLower(strings.TrimSpace(s)))
	if err := status.Validate(); err != nil {
		return "", err
	}
	return status, nil
}

// signupRequestLifecycle lists every status change a signup request may go through.
var signupRequestLifecycle = NewLifecycle(
	Edge[SignupRequestStatus]{From: PendingSignupRequestStatus, To: ProcessingSignupRequestStatus},  // workflow picked it up
	Edge[SignupRequestStatus]{From: PendingSignupRequestStatus, To: RejectedSignupRequestStatus},    // administrator declined it
	Edge[SignupRequestStatus]{From: ProcessingSignupRequestStatus, To: ApprovedSignupRequestStatus}, // tenant and admin user created
	Edge[SignupRequestStatus]{From: ProcessingSignupRequestStatus, To: FailedSignupRequestStatus},   // a fatal step failed
	Edge[SignupRequestStatus]{From: FailedSignupRequestStatus, To: ProcessingSignupRequestStatus},   // provisioning resumed
	Edge[SignupRequestStatus]{From: ApprovedSignupRequestStatus, To: ConvertedSignupRequestStatus},  // trial became a paying tenant
)

func (status SignupRequestStatus) TransitionTo(targetStatus SignupRequestStatus) error {
	return signupRequestLifecycle.Check(status, targetStatus)
}

// IsFinal reports whether no further transition is possible from status.
func (status SignupRequestStatus) IsFinal() bool {
	return len(signupRequestLifecycle.Next(status)) == 0
}

type SignupRequest struct {
	ID               int64               `json:"id" db:"id"`
	CompanyName      string              `json:"company_name" db:"company_name"`
	ContactFirstName string              `json:"contact_first_name" db:"contact_first_name"`
	ContactLastName  string              `json:"contact_last_name" db:"contact_last_name"`
	ContactEmail     string              `json:"contact_email" db:"contact_email"`
	ContactPhone     *string             `json:"contact_phone,omitempty" db:"contact_phone"`
	Message          *string             `json:"message,omitempty" db:"message"`
	Status           SignupRequestStatus `json:"status" db:"status"`
	TenantID         *int64              `json:"tenant_id,omitempty" db:"tenant_id"`
	Notes            string              `json:"notes" db:"notes"`
	CreatedAt        time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at" db:"updated_at"`
}

// ContactName returns the contact's full name.
func (sr *SignupRequest) ContactName() string {
	return strings.TrimSpace(sr.ContactFirstName + " " + sr.ContactLastName)
}

type SignupRequestInsert struct {
	CompanyName      string `json:"company_name" csv:"company_name"`
	ContactFirstName string `json:"contact_first_name" csv:"contact_first_name"`
	ContactLastName  string `json:"contact_last_name" csv:"contact_last_name"`
	ContactEmail     string `json:"contact_email" csv:"contact_email"`
	ContactPhone     string `json:"contact_phone" csv:"contact_phone"`
	Message          string `json:"message" csv:"message"`
}

// Validate trims every field and checks the ones the intake form requires.
func (i *SignupRequestInsert) Validate() error {
	i.CompanyName = strings.TrimSpace(i.CompanyName)
	i.ContactFirstName = strings.TrimSpace(i.ContactFirstName)
	i.ContactLastName = strings.TrimSpace(i.ContactLastName)
	i.ContactEmail = strings.TrimSpace(i.ContactEmail)
	i.ContactPhone = strings.TrimSpace(i.ContactPhone)
	i.Message = strings.TrimSpace(i.Message)

	if i.CompanyName == "" {
		return apperror.Validation("company name is required")
	}
	if i.ContactFirstName == "" || i.ContactLastName == "" {
		return apperror.Validation("contact first and last name are required")
	}
	if err := utils.ValidateEmail(i.ContactEmail); err != nil {
		return apperror.Validationf("invalid contact email: %v", err)
	}
	if i.ContactPhone != "" {
		if err := utils.ValidatePhoneNumber(i.ContactPhone); err != nil {
			return apperror.Validationf("invalid contact phone: %v", err)
		}
	}
	return nil
}

// SignupRequestStore is what the workflow needs from the signup request storage.
type SignupRequestStore interface {
	Insert(ctx context.Context, insert SignupRequestInsert) (*SignupRequest, error)
	Get(ctx context.Context, id int64) (*SignupRequest, error)
	GetAllByStatus(ctx context.Context, status SignupRequestStatus) ([]SignupRequest, error)
	CompareAndSwapStatus(ctx context.Context, id int64, from, to SignupRequestStatus, note string) (*SignupRequest, error)
	Finalize(ctx context.Context, id int64, status SignupRequestStatus, tenantID *int64, note string) (*SignupRequest, error)
	Reject(ctx context.Context, id int64, reason string) (*SignupRequest, error)
}

type SignupRequestModel struct {
	dbConnectionPool db.DBConnectionPool
}

var _ SignupRequestStore = (*SignupRequestModel)(nil)

const signupRequestColumns = `
	id, company_name, contact_first_name, contact_last_name, contact_email, contact_phone, message,
	status, tenant_id, notes, created_at, updated_at
`

func (m *SignupRequestModel) Insert(ctx context.Context, insert SignupRequestInsert) (*SignupRequest, error) {
	if err := insert.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO signup_requests
			(company_name, contact_first_name, contact_last_name, contact_email, contact_phone, message)
		VALUES
			($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		RETURNING ` + signupRequestColumns

	var sr SignupRequest
	err := m.dbConnectionPool.GetContext(ctx, &sr, query,
		insert.CompanyName, insert.ContactFirstName, insert.ContactLastName,
		strings.ToLower(insert.ContactEmail), insert.ContactPhone, insert.Message)
	if err != nil {
		return nil, fmt.Errorf("inserting signup request: %w", err)
	}

	return &sr, nil
}

func (m *SignupRequestModel) Get(ctx context.Context, id int64) (*SignupRequest, error) {
	return m.get(ctx, m.dbConnectionPool, id)
}

func (m *SignupRequestModel) get(ctx context.Context, sqlExec db.SQLExecuter, id int64) (*SignupRequest, error) {
	query := "SELECT " + signupRequestColumns + " FROM signup_requests WHERE id = $1"

	var sr SignupRequest
	err := sqlExec.GetContext(ctx, &sr, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("signup request %d: %w", id, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("getting signup request %d: %w", id, err)
	}

	return &sr, nil
}

// GetAllByStatus returns the requests in the given status, newest first.
func (m *SignupRequestModel) GetAllByStatus(ctx context.Context, status SignupRequestStatus) ([]SignupRequest, error) {
	if err := status.Validate(); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	query := "SELECT " + signupRequestColumns + " FROM signup_requests WHERE status = $1 ORDER BY created_at DESC, id DESC"

	requests := []SignupRequest{}
	if err := m.dbConnectionPool.SelectContext(ctx, &requests, query, status); err != nil {
		return nil, fmt.Errorf("listing %s signup requests: %w", status, err)
	}

	return requests, nil
}

// CompareAndSwapStatus moves the request from `from` to `to` only if it is still in `from`, appending note to its
// notes. A request found in any other status yields ErrSignupRequestStatusConflict and is left untouched.
func (m *SignupRequestModel) CompareAndSwapStatus(ctx context.Context, id int64, from, to SignupRequestStatus, note string) (*SignupRequest, error) {
	return m.updateStatus(ctx, id, from, to, nil, note)
}

// Finalize closes a request that is being processed as approved or failed. A non-nil tenantID links the request to
// the tenant that was provisioned for it.
func (m *SignupRequestModel) Finalize(ctx context.Context, id int64, status SignupRequestStatus, tenantID *int64, note string) (*SignupRequest, error) {
	if status != ApprovedSignupRequestStatus && status != FailedSignupRequestStatus {
		return nil, fmt.Errorf("%w: cannot finalize a signup request as %s", ErrInvalidSignupRequestTransition, status)
	}
	return m.updateStatus(ctx, id, ProcessingSignupRequestStatus, status, tenantID, note)
}

func (m *SignupRequestModel) Reject(ctx context.Context, id int64, reason string) (*SignupRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("rejection reason: %w", ErrMissingInput)
	}
	return m.updateStatus(ctx, id, PendingSignupRequestStatus, RejectedSignupRequestStatus, nil, "Rejected: "+reason)
}

func (m *SignupRequestModel) updateStatus(ctx context.Context, id int64, from, to SignupRequestStatus, tenantID *int64, note string) (*SignupRequest, error) {
	if err := from.TransitionTo(to); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignupRequestTransition, err)
	}

	query := `
		UPDATE signup_requests
		SET
			status = $3,
			tenant_id = COALESCE($4, tenant_id),
			notes = CASE
				WHEN $5::text = '' THEN notes
				WHEN notes = '' THEN $5::text
				ELSE notes || E'\n' || $5::text
			END
		WHERE id = $1 AND status = $2
		RETURNING ` + signupRequestColumns

	var sr SignupRequest
	err := m.dbConnectionPool.GetContext(ctx, &sr, query, id, from, to, tenantID, strings.TrimSpace(note))
	if err == nil {
		return &sr, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("updating signup request %d from %s to %s: %w", id, from, to, err)
	}

	current, getErr := m.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("%w: signup request %d is %s, expected %s", ErrSignupRequestStatusConflict, id, current.Status, from)
}
