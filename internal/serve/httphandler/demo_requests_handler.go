package httphandler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/stellar/go-stellar-sdk/support/http/httpdecode"
	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/tenantcrm/crm-platform-backend/internal/data"
	"github.com/tenantcrm/crm-platform-backend/internal/serve/httperror"
	"github.com/tenantcrm/crm-platform-backend/internal/serve/validators"
	"github.com/tenantcrm/crm-platform-backend/internal/utils"
	"github.com/tenantcrm/crm-platform-backend/internal/workflow"
)

// DemoRequestsHandler exposes the demo request workflow. Post is the public intake form, everything else is for
// administrators.
type DemoRequestsHandler struct {
	Processor      workflow.DemoRequestProcessor
	SignupRequests data.SignupRequestStore
}

type DemoRequestIntakeResponse struct {
	ID     int64                    `json:"id"`
	Status data.SignupRequestStatus `json:"status"`
}

// Post records a new demo request as pending.
func (h DemoRequestsHandler) Post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqBody data.SignupRequestInsert
	if err := httpdecode.DecodeJSON(r, &reqBody); err != nil {
		httperror.BadRequest("Invalid request body.", err, nil).WithErrorCode(httperror.Code400_0).Render(w)
		return
	}

	sr, err := h.SignupRequests.Insert(ctx, reqBody)
	if err != nil {
		httperror.FromError(ctx, err).Render(w)
		return
	}

	log.Ctx(ctx).Infof("demo request %d received from %s", sr.ID, utils.TruncateString(sr.ContactEmail, 3))
	httpjson.RenderStatus(w, http.StatusCreated, DemoRequestIntakeResponse{ID: sr.ID, Status: sr.Status}, httpjson.JSON)
}

// GetAll lists demo requests by status, pending when no status is given.
func (h DemoRequestsHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	qv := validators.NewDemoRequestQueryValidator()
	status := qv.ValidateStatus(r.URL.Query().Get("status"))
	if qv.HasErrors() {
		httperror.BadRequest("Request invalid", nil, qv.Errors).WithErrorCode(httperror.Code400_0).Render(w)
		return
	}

	var (
		requests []data.SignupRequest
		err      error
	)
	if status == data.PendingSignupRequestStatus {
		requests, err = h.Processor.ListPendingDemoRequests(ctx)
	} else {
		requests, err = h.SignupRequests.GetAllByStatus(ctx, status)
	}
	if err != nil {
		httperror.FromError(ctx, err).Render(w)
		return
	}

	httpjson.Render(w, requests, httpjson.JSON)
}

func (h DemoRequestsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, httpErr := demoRequestIDFromURL(r)
	if httpErr != nil {
		httpErr.Render(w)
		return
	}

	sr, err := h.SignupRequests.Get(ctx, id)
	if err != nil {
		httperror.FromError(ctx, err).Render(w)
		return
	}

	httpjson.Render(w, sr, httpjson.JSON)
}

func (h DemoRequestsHandler) Process(w http.ResponseWriter, r *http.Request) {
	h.runWorkflow(w, r, h.Processor.ProcessDemoRequest)
}

func (h DemoRequestsHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.runWorkflow(w, r, h.Processor.ResumeProvisioning)
}

// runWorkflow renders the workflow result. When the request was refused before any step ran, the error is rendered
// instead, so callers can tell "not pending" from "failed while provisioning".
func (h DemoRequestsHandler) runWorkflow(w http.ResponseWriter, r *http.Request, run func(context.Context, int64) (*workflow.WorkflowResult, error)) {
	ctx := r.Context()

	id, httpErr := demoRequestIDFromURL(r)
	if httpErr != nil {
		httpErr.Render(w)
		return
	}

	result, err := run(ctx, id)
	if err != nil {
		if result == nil || len(result.Steps) == 0 {
			httperror.FromError(ctx, err).Render(w)
			return
		}
		httpjson.RenderStatus(w, httperror.StatusFromError(err), result, httpjson.JSON)
		return
	}

	httpjson.Render(w, result, httpjson.JSON)
}

func (h DemoRequestsHandler) BulkProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqBody validators.BulkProcessRequest
	if err := httpdecode.DecodeJSON(r, &reqBody); err != nil {
		httperror.BadRequest("Invalid request body.", err, nil).WithErrorCode(httperror.Code400_0).Render(w)
		return
	}

	bv := validators.NewBulkProcessValidator()
	ids := bv.ValidateAndGetIDs(&reqBody)
	if bv.HasErrors() {
		httperror.BadRequest("Request invalid", nil, bv.Errors).WithErrorCode(httperror.Code400_0).Render(w)
		return
	}

	httpjson.Render(w, h.Processor.BulkProcessDemoRequests(ctx, ids), httpjson.JSON)
}

func (h DemoRequestsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, httpErr := demoRequestIDFromURL(r)
	if httpErr != nil {
		httpErr.Render(w)
		return
	}

	var reqBody validators.RejectRequest
	if err := httpdecode.DecodeJSON(r, &reqBody); err != nil {
		httperror.BadRequest("Invalid request body.", err, nil).WithErrorCode(httperror.Code400_0).Render(w)
		return
	}

	rv := validators.NewRejectValidator()
	reason := rv.ValidateReason(&reqBody)
	if rv.HasErrors() {
		httperror.BadRequest("Request invalid", nil, rv.Errors).WithErrorCode(httperror.Code400_0).Render(w)
		return
	}

	sr, err := h.Processor.RejectDemoRequest(ctx, id, reason)
	if err != nil {
		httperror.FromError(ctx, err).Render(w)
		return
	}

	httpjson.Render(w, sr, httpjson.JSON)
}

func demoRequestIDFromURL(r *http.Request) (int64, *httperror.HTTPError) {
	rawID := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return 0, httperror.BadRequest(fmt.Sprintf("Invalid demo request id %q.", rawID), err, nil).WithErrorCode(httperror.Code400_0)
	}
	return id, nil
}
