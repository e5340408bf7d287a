package types

import (
	"errors"
	"net/http"

	appErr "github.com/clanhub/api/pkg/errors"
)

// FromAppError converts err into the wire error. Errors that are not
// AppErrors keep their text out of the response.
func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	code := appErr.CodeOf(err)
	if code == appErr.CodeUnknown || code == appErr.CodeInternal {
		return &APIError{Code: string(appErr.CodeInternal), Message: "internal error"}
	}
	out := &APIError{Code: string(code), Message: appErr.MessageOf(err)}
	var ae *appErr.AppError
	if errors.As(err, &ae) && len(ae.Meta) > 0 {
		out.Details = ae.Meta
	}
	return out
}

// HTTPStatus maps an error code onto the response status.
func HTTPStatus(err error) int {
	switch appErr.CodeOf(err) {
	case appErr.CodeInvalid:
		return http.StatusBadRequest
	case appErr.CodeUnauthorized:
		return http.StatusUnauthorized
	case appErr.CodeForbidden:
		return http.StatusForbidden
	case appErr.CodeNotFound:
		return http.StatusNotFound
	case appErr.CodeConflict:
		return http.StatusConflict
	case appErr.CodeUnavailable:
		return http.StatusServiceUnavailable
	case appErr.CodeDeadline:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
