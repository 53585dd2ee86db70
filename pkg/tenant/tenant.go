package tenant

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tenantcrm/crm-platform-backend/db/schemactx"
	"github.com/tenantcrm/crm-platform-backend/internal/apperror"
	"github.com/tenantcrm/crm-platform-backend/internal/utils"
)

type Tenant struct {
	ID                 int64              `json:"id" db:"id"`
	Name               string             `json:"name" db:"name"`
	SchemaName         string             `json:"schema_name" db:"schema_name"`
	ContactEmail       string             `json:"contact_email" db:"contact_email"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status" db:"subscription_status"`
	IsActive           bool               `json:"is_active" db:"is_active"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

type SubscriptionStatus string

const (
	TrialSubscriptionStatus     SubscriptionStatus = "trial"
	ActiveSubscriptionStatus    SubscriptionStatus = "active"
	SuspendedSubscriptionStatus SubscriptionStatus = "suspended"
	CancelledSubscriptionStatus SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) IsValid() bool {
	validStatuses := []SubscriptionStatus{TrialSubscriptionStatus, ActiveSubscriptionStatus, SuspendedSubscriptionStatus, CancelledSubscriptionStatus}
	return slices.Contains(validStatuses, s)
}

type Domain struct {
	ID        int64     `json:"id" db:"id"`
	Domain    string    `json:"domain" db:"domain"`
	TenantID  int64     `json:"tenant_id" db:"tenant_id"`
	IsPrimary bool      `json:"is_primary" db:"is_primary"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TenantInsert holds the values needed to register a tenant in the directory. The schema name is allocated by the
// caller, see NameAllocator.
type TenantInsert struct {
	Name               string             `db:"name"`
	SchemaName         string             `db:"schema_name"`
	ContactEmail       string             `db:"contact_email"`
	SubscriptionStatus SubscriptionStatus `db:"subscription_status"`
}

// Validate trims the insert values, defaults the subscription status to trial and checks the rest.
func (ti *TenantInsert) Validate() error {
	ti.Name = strings.TrimSpace(ti.Name)
	ti.ContactEmail = strings.TrimSpace(ti.ContactEmail)

	if ti.Name == "" {
		return ErrEmptyTenantName
	}
	if err := utils.ValidateEmail(ti.ContactEmail); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidContactEmail, err)
	}
	if err := schemactx.ValidateSchemaName(ti.SchemaName); err != nil {
		return apperror.Validationf("invalid schema name %q", ti.SchemaName)
	}
	if IsReservedSchemaName(ti.SchemaName) {
		return apperror.Validationf("schema name %q is reserved", ti.SchemaName)
	}
	if ti.SubscriptionStatus == "" {
		ti.SubscriptionStatus = TrialSubscriptionStatus
	}
	if !ti.SubscriptionStatus.IsValid() {
		return apperror.Validationf("invalid subscription status: %q", ti.SubscriptionStatus)
	}
	return nil
}
