package httphandler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/tenantcrm/crm-platform-backend/internal/serve/httperror"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

type TenantsHandler struct {
	Manager tenant.ManagerInterface
}

// TenantResponse is a tenant along with the domains it answers on.
type TenantResponse struct {
	*tenant.Tenant
	Domains []tenant.Domain `json:"domains"`
}

func (h TenantsHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenants, err := h.Manager.GetAllTenants(ctx)
	if err != nil {
		httperror.InternalError(ctx, "Cannot list tenants", err, nil).Render(w)
		return
	}

	httpjson.Render(w, tenants, httpjson.JSON)
}

func (h TenantsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rawID := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		httperror.BadRequest(fmt.Sprintf("Invalid tenant id %q.", rawID), err, nil).WithErrorCode(httperror.Code400_0).Render(w)
		return
	}

	t, err := h.Manager.GetTenantByID(ctx, id)
	if err != nil {
		httperror.FromError(ctx, err).Render(w)
		return
	}

	domains, err := h.Manager.GetDomainsForTenant(ctx, t.ID)
	if err != nil {
		httperror.InternalError(ctx, "Cannot get tenant domains", err, nil).Render(w)
		return
	}

	httpjson.Render(w, TenantResponse{Tenant: t, Domains: domains}, httpjson.JSON)
}

// CurrentTenantHandler echoes the tenant the request host resolved to.
type CurrentTenantHandler struct{}

func (CurrentTenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := tenant.GetTenantFromContext(r.Context())
	if err != nil {
		httperror.InternalError(r.Context(), "Cannot retrieve the tenant from the context", err, nil).WithErrorCode(httperror.Code500_1).Render(w)
		return
	}

	httpjson.Render(w, t, httpjson.JSON)
}
