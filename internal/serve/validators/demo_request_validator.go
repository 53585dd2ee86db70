package validators

import (
	"fmt"
	"strings"

	"github.com/tenantcrm/crm-platform-backend/internal/data"
)

const MaxBulkProcessIDs = 100

type DemoRequestQueryValidator struct {
	*Validator
}

func NewDemoRequestQueryValidator() *DemoRequestQueryValidator {
	return &DemoRequestQueryValidator{Validator: NewValidator()}
}

// ValidateStatus parses the status filter. An empty filter means pending.
func (qv *DemoRequestQueryValidator) ValidateStatus(rawStatus string) data.SignupRequestStatus {
	if strings.TrimSpace(rawStatus) == "" {
		return data.PendingSignupRequestStatus
	}

	status, err := data.ToSignupRequestStatus(rawStatus)
	qv.CheckError(err, "status", fmt.Sprintf("invalid status %q", rawStatus))
	return status
}

type BulkProcessRequest struct {
	IDs []int64 `json:"ids"`
}

type BulkProcessValidator struct {
	*Validator
}

func NewBulkProcessValidator() *BulkProcessValidator {
	return &BulkProcessValidator{Validator: NewValidator()}
}

// ValidateAndGetIDs checks the ids and returns them without duplicates, keeping their order.
func (bv *BulkProcessValidator) ValidateAndGetIDs(reqBody *BulkProcessRequest) []int64 {
	bv.Check(reqBody != nil, "body", "request body is empty")
	if bv.HasErrors() {
		return nil
	}

	bv.Check(len(reqBody.IDs) > 0, "ids", "at least one id is required")
	bv.Check(len(reqBody.IDs) <= MaxBulkProcessIDs, "ids", fmt.Sprintf("at most %d ids can be processed at once", MaxBulkProcessIDs))
	if bv.HasErrors() {
		return nil
	}

	seen := make(map[int64]struct{}, len(reqBody.IDs))
	ids := make([]int64, 0, len(reqBody.IDs))
	for _, id := range reqBody.IDs {
		if id <= 0 {
			bv.AddError("ids", fmt.Sprintf("invalid id %d", id))
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type RejectValidator struct {
	*Validator
}

func NewRejectValidator() *RejectValidator {
	return &RejectValidator{Validator: NewValidator()}
}

func (rv *RejectValidator) ValidateReason(reqBody *RejectRequest) string {
	if reqBody == nil {
		rv.AddError("body", "request body is empty")
		return ""
	}
	reason := strings.TrimSpace(reqBody.Reason)
	rv.Check(reason != "", "reason", "reason is required")
	return reason
}
