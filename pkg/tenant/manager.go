package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/internal/apperror"
	"github.com/tenantcrm/crm-platform-backend/internal/utils"
)

var (
	ErrEmptyTenantName      = apperror.Validation("tenant name cannot be empty")
	ErrInvalidContactEmail  = apperror.Validation("invalid contact email")
	ErrInvalidDomain        = apperror.Validation("invalid domain")
	ErrDuplicatedSchemaName = apperror.Conflict("schema name already in use", nil)
	ErrDuplicatedDomain     = apperror.Conflict("domain already in use", nil)
	ErrTenantDoesNotExist   = apperror.NotFound("tenant does not exist")
	ErrDomainDoesNotExist   = apperror.NotFound("domain does not exist")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

const selectTenantQuery = `
	SELECT
		t.id, t.name, t.schema_name, t.contact_email, t.subscription_status, t.is_active, t.created_at, t.updated_at
	FROM
		tenants t
`

const selectDomainQuery = `
	SELECT
		d.id, d.domain, d.tenant_id, d.is_primary, d.created_at
	FROM
		domains d
`

// ManagerInterface is the tenant directory: tenants and their domains, stored in the shared schema.
type ManagerInterface interface {
	CreateTenant(ctx context.Context, sqlExec db.SQLExecuter, insert *TenantInsert) (*Tenant, error)
	GetTenantByID(ctx context.Context, id int64) (*Tenant, error)
	GetTenantBySchemaName(ctx context.Context, schemaName string) (*Tenant, error)
	GetAllTenants(ctx context.Context) ([]Tenant, error)
	SchemaNameExists(ctx context.Context, schemaName string) (bool, error)
	DomainExists(ctx context.Context, domain string) (bool, error)
	CreateTenantSchema(ctx context.Context, sqlExec db.SQLExecuter, schemaName string) error
	DropTenantSchema(ctx context.Context, sqlExec db.SQLExecuter, schemaName string) error
	CreateDomain(ctx context.Context, tenantID int64, domain string, isPrimary bool) (*Domain, error)
	CreateDomainTx(ctx context.Context, sqlExec db.SQLExecuter, tenantID int64, domain string, isPrimary bool) (*Domain, error)
	GetPrimaryDomain(ctx context.Context, tenantID int64) (*Domain, error)
	GetDomainsForTenant(ctx context.Context, tenantID int64) ([]Domain, error)
	ResolveTenantByDomain(ctx context.Context, domain string) (*Tenant, error)
	DeleteTenant(ctx context.Context, id int64) error
}

type Manager struct {
	db db.DBConnectionPool
}

var _ ManagerInterface = (*Manager)(nil)

type Option func(m *Manager)

func NewManager(opts ...Option) *Manager {
	m := Manager{}
	for _, opt := range opts {
		opt(&m)
	}
	return &m
}

func WithDatabase(dbConnectionPool db.DBConnectionPool) Option {
	return func(m *Manager) {
		m.db = dbConnectionPool
	}
}

// CreateTenant inserts the tenant row. It does not create the schema; callers provisioning a tenant run this,
// CreateTenantSchema and CreateDomainTx on the same transaction.
func (m *Manager) CreateTenant(ctx context.Context, sqlExec db.SQLExecuter, insert *TenantInsert) (*Tenant, error) {
	if insert == nil {
		return nil, ErrEmptyTenantName
	}
	if err := insert.Validate(); err != nil {
		return nil, err
	}

	const q = `
		INSERT INTO tenants
			(name, schema_name, contact_email, subscription_status)
		VALUES
			($1, $2, $3, $4)
		RETURNING
			id, name, schema_name, contact_email, subscription_status, is_active, created_at, updated_at
	`

	var t Tenant
	err := sqlExec.GetContext(ctx, &t, q, insert.Name, insert.SchemaName, insert.ContactEmail, insert.SubscriptionStatus)
	if err != nil {
		if isPQError(err, pqUniqueViolation, "tenants_schema_name_key") {
			return nil, fmt.Errorf("inserting tenant %q: %w", insert.Name, ErrDuplicatedSchemaName)
		}
		return nil, fmt.Errorf("inserting tenant %q: %w", insert.Name, err)
	}

	return &t, nil
}

func (m *Manager) GetTenantByID(ctx context.Context, id int64) (*Tenant, error) {
	q := selectTenantQuery + " WHERE t.id = $1"
	var t Tenant
	if err := m.db.GetContext(ctx, &t, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantDoesNotExist
		}
		return nil, fmt.Errorf("getting tenant %d: %w", id, err)
	}
	return &t, nil
}

func (m *Manager) GetTenantBySchemaName(ctx context.Context, schemaName string) (*Tenant, error) {
	q := selectTenantQuery + " WHERE t.schema_name = $1"
	var t Tenant
	if err := m.db.GetContext(ctx, &t, q, schemaName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantDoesNotExist
		}
		return nil, fmt.Errorf("getting tenant by schema name %s: %w", schemaName, err)
	}
	return &t, nil
}

func (m *Manager) GetAllTenants(ctx context.Context) ([]Tenant, error) {
	q := selectTenantQuery + " ORDER BY t.name ASC, t.id ASC"
	tenants := []Tenant{}
	if err := m.db.SelectContext(ctx, &tenants, q); err != nil {
		return nil, fmt.Errorf("getting all tenants: %w", err)
	}
	return tenants, nil
}

// SchemaNameExists reports whether the name is taken by a tenant, by any schema in the database, registered or not, or
// by a database role. A schema named after a role is picked up by the "$user" entry of Postgres' default search_path
// for every session of that role.
func (m *Manager) SchemaNameExists(ctx context.Context, schemaName string) (bool, error) {
	const q = `
		SELECT
			EXISTS(SELECT 1 FROM tenants WHERE schema_name = $1)
			OR EXISTS(SELECT 1 FROM pg_catalog.pg_namespace WHERE nspname = $1)
			OR EXISTS(SELECT 1 FROM pg_catalog.pg_roles WHERE rolname = $1)
	`
	var exists bool
	if err := m.db.GetContext(ctx, &exists, q, schemaName); err != nil {
		return false, fmt.Errorf("checking if schema name %s exists: %w", schemaName, err)
	}
	return exists, nil
}

func (m *Manager) DomainExists(ctx context.Context, domain string) (bool, error) {
	const q = "SELECT EXISTS(SELECT 1 FROM domains WHERE domain = $1)"
	var exists bool
	if err := m.db.GetContext(ctx, &exists, q, strings.ToLower(domain)); err != nil {
		return false, fmt.Errorf("checking if domain %s exists: %w", domain, err)
	}
	return exists, nil
}

func (m *Manager) CreateTenantSchema(ctx context.Context, sqlExec db.SQLExecuter, schemaName string) error {
	q := fmt.Sprintf("CREATE SCHEMA %s", pq.QuoteIdentifier(schemaName))
	if _, err := sqlExec.ExecContext(ctx, q); err != nil {
		if isPQError(err, "42P06", "") {
			return fmt.Errorf("creating schema %s: %w", schemaName, ErrDuplicatedSchemaName)
		}
		return fmt.Errorf("creating schema %s: %w", schemaName, err)
	}
	return nil
}

func (m *Manager) DropTenantSchema(ctx context.Context, sqlExec db.SQLExecuter, schemaName string) error {
	q := fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pq.QuoteIdentifier(schemaName))
	if _, err := sqlExec.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("dropping schema %s: %w", schemaName, err)
	}
	return nil
}

// CreateDomain maps a domain to the tenant in its own transaction. See CreateDomainTx.
func (m *Manager) CreateDomain(ctx context.Context, tenantID int64, domain string, isPrimary bool) (*Domain, error) {
	return db.RunInTransactionWithResult(ctx, m.db, nil, func(dbTx db.DBTransaction) (*Domain, error) {
		return m.CreateDomainTx(ctx, dbTx, tenantID, domain, isPrimary)
	})
}

// CreateDomainTx maps a domain to the tenant. When isPrimary is set, the tenant's current primary domain, if any, is
// demoted before the new one is inserted. sqlExec must be a transaction for the transfer to be atomic; the partial
// unique index on domains(tenant_id) WHERE is_primary rejects a second primary otherwise.
func (m *Manager) CreateDomainTx(ctx context.Context, sqlExec db.SQLExecuter, tenantID int64, domain string, isPrimary bool) (*Domain, error) {
	domain = utils.NormalizeHost(domain)
	if err := utils.ValidateDNS(domain); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDomain, err)
	}

	if isPrimary {
		const demoteQuery = "UPDATE domains SET is_primary = false WHERE tenant_id = $1 AND is_primary"
		res, err := sqlExec.ExecContext(ctx, demoteQuery, tenantID)
		if err != nil {
			return nil, fmt.Errorf("demoting primary domain of tenant %d: %w", tenantID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			log.Ctx(ctx).Infof("transferring primary domain of tenant %d to %s", tenantID, domain)
		}
	}

	const insertQuery = `
		INSERT INTO domains
			(domain, tenant_id, is_primary)
		VALUES
			($1, $2, $3)
		RETURNING
			id, domain, tenant_id, is_primary, created_at
	`
	var d Domain
	if err := sqlExec.GetContext(ctx, &d, insertQuery, domain, tenantID, isPrimary); err != nil {
		switch {
		case isPQError(err, pqUniqueViolation, "domains_domain_key"):
			return nil, fmt.Errorf("inserting domain %s: %w", domain, ErrDuplicatedDomain)
		case isPQError(err, pqForeignKeyViolation, ""):
			return nil, fmt.Errorf("inserting domain %s: %w", domain, ErrTenantDoesNotExist)
		default:
			return nil, fmt.Errorf("inserting domain %s: %w", domain, err)
		}
	}

	return &d, nil
}

func (m *Manager) GetPrimaryDomain(ctx context.Context, tenantID int64) (*Domain, error) {
	q := selectDomainQuery + " WHERE d.tenant_id = $1 AND d.is_primary"
	var d Domain
	if err := m.db.GetContext(ctx, &d, q, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDomainDoesNotExist
		}
		return nil, fmt.Errorf("getting primary domain of tenant %d: %w", tenantID, err)
	}
	return &d, nil
}

func (m *Manager) GetDomainsForTenant(ctx context.Context, tenantID int64) ([]Domain, error) {
	q := selectDomainQuery + " WHERE d.tenant_id = $1 ORDER BY d.is_primary DESC, d.domain ASC"
	domains := []Domain{}
	if err := m.db.SelectContext(ctx, &domains, q, tenantID); err != nil {
		return nil, fmt.Errorf("getting domains of tenant %d: %w", tenantID, err)
	}
	return domains, nil
}

// ResolveTenantByDomain returns the tenant that owns the given host.
func (m *Manager) ResolveTenantByDomain(ctx context.Context, domain string) (*Tenant, error) {
	domain = utils.NormalizeHost(domain)
	if domain == "" {
		return nil, ErrTenantDoesNotExist
	}

	q := selectTenantQuery + " JOIN domains d ON d.tenant_id = t.id WHERE d.domain = $1"
	var t Tenant
	if err := m.db.GetContext(ctx, &t, q, domain); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("resolving domain %s: %w", domain, ErrTenantDoesNotExist)
		}
		return nil, fmt.Errorf("resolving domain %s: %w", domain, err)
	}
	return &t, nil
}

// DeleteTenant removes the tenant row, its domains and its schema in one transaction. It is an explicit administrative
// action, never part of an automatic rollback.
func (m *Manager) DeleteTenant(ctx context.Context, id int64) error {
	return db.RunInTransaction(ctx, m.db, nil, func(dbTx db.DBTransaction) error {
		var schemaName string
		err := dbTx.GetContext(ctx, &schemaName, "SELECT schema_name FROM tenants WHERE id = $1 FOR UPDATE", id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrTenantDoesNotExist
			}
			return fmt.Errorf("locking tenant %d: %w", id, err)
		}

		if _, err = dbTx.ExecContext(ctx, "DELETE FROM domains WHERE tenant_id = $1", id); err != nil {
			return fmt.Errorf("deleting domains of tenant %d: %w", id, err)
		}
		if _, err = dbTx.ExecContext(ctx, "DELETE FROM tenants WHERE id = $1", id); err != nil {
			return fmt.Errorf("deleting tenant %d: %w", id, err)
		}
		if err = m.DropTenantSchema(ctx, dbTx, schemaName); err != nil {
			return err
		}

		log.Ctx(ctx).Warnf("deleted tenant %d and dropped schema %s", id, schemaName)
		return nil
	})
}

// isPQError reports whether err is a Postgres error with the given code. An empty constraint matches any constraint.
func isPQError(err error, code pq.ErrorCode, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == code && (constraint == "" || pqErr.Constraint == constraint)
}
