package httphandler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/tenantcrm/crm-platform-backend/db"
)

type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// HealthResponse follows the draft IETF "Health Check Response Format for HTTP APIs".
//
// https://datatracker.ietf.org/doc/html/draft-inadarei-api-health-check-06#name-api-health-response
type HealthResponse struct {
	Status    Status            `json:"status"`
	Version   string            `json:"version,omitempty"`
	ServiceID string            `json:"service_id,omitempty"`
	ReleaseID string            `json:"release_id,omitempty"`
	Services  map[string]Status `json:"services,omitempty"`
}

// HealthHandler reports whether the database is reachable and whether the shared namespace holds the tenant
// directory, i.e. the admin migrations were applied.
type HealthHandler struct {
	Version          string
	ServiceID        string
	ReleaseID        string
	DBConnectionPool db.DBConnectionPool
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]func(context.Context) error{
		"database":         h.DBConnectionPool.Ping,
		"tenant_directory": h.checkTenantDirectory,
	}

	response := HealthResponse{
		Status:    StatusPass,
		Version:   h.Version,
		ServiceID: h.ServiceID,
		ReleaseID: h.ReleaseID,
		Services:  make(map[string]Status, len(checks)),
	}
	for name, check := range checks {
		if err := check(ctx); err != nil {
			log.Ctx(ctx).Errorf("health check %s: %v", name, err)
			response.Services[name] = StatusFail
			response.Status = StatusFail
			continue
		}
		response.Services[name] = StatusPass
	}

	status := http.StatusOK
	if response.Status == StatusFail {
		status = http.StatusServiceUnavailable
	}
	httpjson.RenderStatus(w, status, response, httpjson.JSON)
}

func (h HealthHandler) checkTenantDirectory(ctx context.Context) error {
	var exists bool
	query := "SELECT to_regclass($1) IS NOT NULL"
	if err := h.DBConnectionPool.GetContext(ctx, &exists, query, db.DefaultSchema+".tenants"); err != nil {
		return fmt.Errorf("looking up the tenants table: %w", err)
	}
	if !exists {
		return fmt.Errorf("the tenants table does not exist in schema %s", db.DefaultSchema)
	}
	return nil
}
