package httperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/tenantcrm/crm-platform-backend/internal/apperror"
)

type HTTPError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	// Extras carries per-field details, e.g. validation errors.
	Extras map[string]any `json:"extras,omitempty"`
	// Err wraps the original error so it can be inspected after rendering.
	Err error `json:"-"`
	// ErrorCode lets clients translate the message.
	ErrorCode string `json:"error_code,omitempty"`
}

// ReportErrorFunc reports unexpected errors.
type ReportErrorFunc func(ctx context.Context, err error, msg string)

var reportErrorFunc ReportErrorFunc = func(ctx context.Context, err error, msg string) {
	if err == nil {
		log.Ctx(ctx).Error(msg)
		return
	}
	if msg != "" {
		err = fmt.Errorf("%s: %w", msg, err)
	}
	log.Ctx(ctx).WithStack(err).Errorf("%+v", err)
}

// SetDefaultReportErrorFunc replaces the function used to report internal errors, usually with the crash tracker's.
func SetDefaultReportErrorFunc(fn ReportErrorFunc) {
	reportErrorFunc = fn
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func (e *HTTPError) WithErrorCode(code string) *HTTPError {
	e.ErrorCode = code
	return e
}

func (e *HTTPError) Render(w http.ResponseWriter) {
	httpjson.RenderStatus(w, e.StatusCode, e, httpjson.JSON)
}

func NewHTTPError(statusCode int, msg string, originalErr error, extras map[string]any) *HTTPError {
	if msg == "" && originalErr != nil && len(extras) == 0 {
		var hErr *HTTPError
		if errors.As(originalErr, &hErr) && hErr.StatusCode == statusCode {
			return hErr
		}
	}

	return &HTTPError{
		StatusCode: statusCode,
		Message:    msg,
		Extras:     extras,
		Err:        originalErr,
	}
}

func NotFound(msg string, originalErr error, extras map[string]any) *HTTPError {
	if msg == "" {
		msg = "Resource not found."
	}
	return NewHTTPError(http.StatusNotFound, msg, originalErr, extras).WithErrorCode(Code404_0)
}

func Conflict(msg string, originalErr error, extras map[string]any) *HTTPError {
	if msg == "" {
		msg = "The resource is not in a state that allows this operation."
	}
	return NewHTTPError(http.StatusConflict, msg, originalErr, extras)
}

func BadRequest(msg string, originalErr error, extras map[string]any) *HTTPError {
	if msg == "" {
		msg = "The request was invalid in some way."
	}
	return NewHTTPError(http.StatusBadRequest, msg, originalErr, extras)
}

func Unauthorized(msg string, originalErr error, extras map[string]any) *HTTPError {
	if msg == "" {
		msg = "Not authorized."
	}
	return NewHTTPError(http.StatusUnauthorized, msg, originalErr, extras).WithErrorCode(Code401_0)
}

func TooManyRequests(msg string) *HTTPError {
	if msg == "" {
		msg = "Too many requests, please try again later."
	}
	return NewHTTPError(http.StatusTooManyRequests, msg, nil, nil).WithErrorCode(Code429_0)
}

func BadGateway(ctx context.Context, msg string, originalErr error) *HTTPError {
	if msg == "" {
		msg = "A downstream dependency failed."
	}
	reportErrorFunc(ctx, originalErr, msg)
	return NewHTTPError(http.StatusBadGateway, msg, originalErr, nil).WithErrorCode(Code502_0)
}

func InternalError(ctx context.Context, msg string, originalErr error, extras map[string]any) *HTTPError {
	if msg == "" {
		msg = "An internal error occurred while processing this request."
	}
	reportErrorFunc(ctx, originalErr, msg)
	return NewHTTPError(http.StatusInternalServerError, msg, originalErr, extras).WithErrorCode(Code500_0)
}

// StatusFromError returns the status code FromError would use for err, without reporting anything.
func StatusFromError(err error) int {
	var hErr *HTTPError
	if errors.As(err, &hErr) {
		return hErr.StatusCode
	}

	switch apperror.KindOf(err) {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict, apperror.KindState:
		return http.StatusConflict
	case apperror.KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FromError maps an error to the response matching its apperror kind. Validation problems are 400s, missing records
// 404s, conflicts and status mismatches 409s. Everything else is reported as an internal error.
func FromError(ctx context.Context, err error) *HTTPError {
	var hErr *HTTPError
	if errors.As(err, &hErr) {
		return hErr
	}

	switch apperror.KindOf(err) {
	case apperror.KindValidation:
		return BadRequest(err.Error(), err, nil).WithErrorCode(Code400_0)
	case apperror.KindNotFound:
		return NotFound(err.Error(), err, nil)
	case apperror.KindConflict:
		return Conflict(err.Error(), err, nil).WithErrorCode(Code409_1)
	case apperror.KindState:
		return Conflict(err.Error(), err, nil).WithErrorCode(Code409_0)
	case apperror.KindDependency:
		return BadGateway(ctx, "", err)
	default:
		return InternalError(ctx, "", err, nil)
	}
}
