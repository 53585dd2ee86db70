package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenantcrm/crm-platform-backend/db"
)

// CreateSignupRequestFixture inserts a pending signup request. Empty fields of insert are filled with defaults derived
// from the company name.
func CreateSignupRequestFixture(t *testing.T, ctx context.Context, dbConnectionPool db.DBConnectionPool, insert SignupRequestInsert) *SignupRequest {
	t.Helper()

	if insert.CompanyName == "" {
		insert.CompanyName = "Acme & Co"
	}
	if insert.ContactFirstName == "" {
		insert.ContactFirstName = "Ada"
	}
	if insert.ContactLastName == "" {
		insert.ContactLastName = "Lovelace"
	}
	if insert.ContactEmail == "" {
		insert.ContactEmail = "ada@example.com"
	}

	m := SignupRequestModel{dbConnectionPool: dbConnectionPool}
	sr, err := m.Insert(ctx, insert)
	require.NoError(t, err)

	return sr
}

// UpdateSignupRequestStatusFixture forces a request into status, bypassing the lifecycle checks.
func UpdateSignupRequestStatusFixture(t *testing.T, ctx context.Context, dbConnectionPool db.DBConnectionPool, id int64, status SignupRequestStatus) {
	t.Helper()

	_, err := dbConnectionPool.ExecContext(ctx, "UPDATE signup_requests SET status = $1 WHERE id = $2", status, id)
	require.NoError(t, err)
}

func DeleteAllSignupRequestsFixture(t *testing.T, ctx context.Context, dbConnectionPool db.DBConnectionPool) {
	t.Helper()

	_, err := dbConnectionPool.ExecContext(ctx, "DELETE FROM signup_requests")
	require.NoError(t, err)
}
