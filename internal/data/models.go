package data

import (
	"errors"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/internal/apperror"
)

var (
	ErrRecordNotFound          = apperror.NotFound("record not found")
	ErrMismatchNumRowsAffected = errors.New("mismatch number of rows affected")
	ErrMissingInput            = apperror.Validation("missing input")
)

// Models groups the data models that live in the shared schema.
type Models struct {
	SignupRequests   *SignupRequestModel
	DBConnectionPool db.DBConnectionPool
}

func NewModels(dbConnectionPool db.DBConnectionPool) (*Models, error) {
	if dbConnectionPool == nil {
		return nil, errors.New("dbConnectionPool is required for NewModels")
	}
	return &Models{
		SignupRequests:   &SignupRequestModel{dbConnectionPool: dbConnectionPool},
		DBConnectionPool: dbConnectionPool,
	}, nil
}
