// Package auth manages the user accounts stored inside a tenant schema.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/db/schemactx"
	"github.com/tenantcrm/crm-platform-backend/internal/apperror"
	"github.com/tenantcrm/crm-platform-backend/internal/utils"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

const AdminRole = "admin"

var (
	ErrUserEmailAlreadyExists = apperror.Conflict("a user with this email already exists", nil)
	ErrUserNotFound           = apperror.NotFound("user not found")
	// ErrNotInTenantScope is returned when tenant users are written outside of the tenant's schema scope.
	ErrNotInTenantScope = errors.New("not running in the tenant schema scope")
)

type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Roles     []string  `json:"roles" db:"-"`
	IsOwner   bool      `json:"is_owner" db:"is_owner"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AdminUserData describes the first administrator of a tenant.
type AdminUserData struct {
	Email     string
	FirstName string
	LastName  string
}

func (d *AdminUserData) Validate() error {
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)

	if err := utils.ValidateEmail(d.Email); err != nil {
		return apperror.Validationf("invalid admin email: %v", err)
	}
	if d.FirstName == "" {
		return apperror.Validation("admin first name is required")
	}
	return nil
}

// UserManager creates and reads tenant users. Every method takes the executer of a schema scope, so the statements
// resolve against the tenant's auth_users table.
type UserManager interface {
	CreateTenantAdminUser(ctx context.Context, sqlExec db.SQLExecuter, t *tenant.Tenant, data AdminUserData) (*User, string, error)
	GetUserByEmail(ctx context.Context, sqlExec db.SQLExecuter, email string) (*User, error)
}

type Manager struct {
	passwordEncrypter PasswordEncrypter
	generatePassword  func() (string, error)
}

var _ UserManager = (*Manager)(nil)

type Option func(m *Manager)

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		passwordEncrypter: NewBcryptPasswordEncrypter(0),
		generatePassword:  GeneratePassword,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func WithPasswordEncrypter(passwordEncrypter PasswordEncrypter) Option {
	return func(m *Manager) {
		m.passwordEncrypter = passwordEncrypter
	}
}

func WithPasswordGenerator(generatePassword func() (string, error)) Option {
	return func(m *Manager) {
		m.generatePassword = generatePassword
	}
}

// CreateTenantAdminUser creates the owner account of t with a freshly generated password, which is returned in plain
// text so it can be delivered to the user. It must run inside t's schema scope.
func (m *Manager) CreateTenantAdminUser(ctx context.Context, sqlExec db.SQLExecuter, t *tenant.Tenant, data AdminUserData) (*User, string, error) {
	if t == nil {
		return nil, "", errors.New("tenant cannot be nil")
	}
	if activeSchema := schemactx.SchemaNameFromContext(ctx); activeSchema != t.SchemaName {
		return nil, "", fmt.Errorf("%w: active schema is %s, tenant schema is %s", ErrNotInTenantScope, activeSchema, t.SchemaName)
	}
	if err := data.Validate(); err != nil {
		return nil, "", err
	}

	password, err := m.generatePassword()
	if err != nil {
		return nil, "", fmt.Errorf("generating admin password: %w", err)
	}
	encryptedPassword, err := m.passwordEncrypter.Encrypt(ctx, password)
	if err != nil {
		return nil, "", fmt.Errorf("encrypting admin password: %w", err)
	}

	user := &User{
		ID:        uuid.NewString(),
		Email:     data.Email,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Roles:     []string{AdminRole},
		IsOwner:   true,
		IsActive:  true,
	}

	const query = `
		INSERT INTO auth_users
			(id, email, encrypted_password, first_name, last_name, roles, is_owner)
		VALUES
			($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err = sqlExec.GetContext(ctx, &user.CreatedAt, query,
		user.ID, user.Email, encryptedPassword, user.FirstName, user.LastName, pq.Array(user.Roles), user.IsOwner)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "auth_users_email_key" {
			return nil, "", ErrUserEmailAlreadyExists
		}
		return nil, "", fmt.Errorf("inserting admin user: %w", err)
	}

	log.Ctx(ctx).Infof("created admin user %s for tenant %s", user.ID, t.SchemaName)
	return user, password, nil
}

func (m *Manager) GetUserByEmail(ctx context.Context, sqlExec db.SQLExecuter, email string) (*User, error) {
	const query = `
		SELECT id, email, first_name, last_name, roles, is_owner, is_active, created_at
		FROM auth_users
		WHERE email = $1
	`

	row := sqlExec.QueryRowxContext(ctx, query, strings.ToLower(strings.TrimSpace(email)))
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, pq.Array(&user.Roles), &user.IsOwner, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user by email: %w", err)
	}

	return &user, nil
}
