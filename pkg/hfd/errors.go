package hfd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
)

// attemptError describes a single failed HTTP round trip. It never leaves
// the package; callers receive a typed CodeCarrier error.
type attemptError struct {
	status    int
	code      string
	message   string
	retryable bool
	cause     error
}

func (e *attemptError) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return e.message
}

func (e *attemptError) Unwrap() error { return e.cause }

func isRetryable(err error) bool {
	var ae *attemptError
	if errors.As(err, &ae) {
		return ae.retryable
	}
	return false
}

// transportFailure wraps a network fault or per-attempt timeout. Both are
// retried unless the caller's own context is finished.
func transportFailure(parent context.Context, err error) *attemptError {
	msg := "carrier unreachable"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "carrier request timed out"
	}
	return &attemptError{message: msg, retryable: parent.Err() == nil, cause: err}
}

func statusFailure(status int, raw map[string]any) *attemptError {
	detail := scalar(raw["message"])
	if detail == "" {
		detail = fErrorMessage.str(raw)
	}
	return &attemptError{
		status:    status,
		code:      fErrorCode.str(raw),
		message:   describeStatus(status, detail),
		retryable: status >= http.StatusInternalServerError,
	}
}

func describeStatus(status int, detail string) string {
	var msg string
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		msg = "carrier rejected the shipment data"
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		msg = "carrier rejected the credentials; check client number and token"
	case status == http.StatusNotFound:
		msg = "carrier endpoint not found"
	case status == http.StatusTooManyRequests:
		msg = "carrier rate limit reached"
	case status >= http.StatusInternalServerError:
		msg = fmt.Sprintf("carrier unavailable (status %d)", status)
	default:
		msg = fmt.Sprintf("carrier returned status %d", status)
	}
	if detail != "" {
		msg = msg + ": " + detail
	}
	return msg
}

func describeFault(code, message string) string {
	switch {
	case message != "" && code != "":
		return fmt.Sprintf("%s (carrier error code %s)", message, code)
	case message != "":
		return message
	default:
		return "carrier error code " + code
	}
}

// toCarrierError converts the last attempt failure into the public error.
func toCarrierError(endpoint string, attempts int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return pkgerrors.Wrap(pkgerrors.CodeCarrier, err, "carrier request canceled")
	}
	details := map[string]any{"endpoint": endpoint, "attempts": attempts}
	var ae *attemptError
	if errors.As(err, &ae) {
		if ae.status != 0 {
			details["http_status"] = ae.status
		}
		if ae.code != "" {
			details["carrier_code"] = ae.code
		}
		return pkgerrors.Wrap(pkgerrors.CodeCarrier, err, ae.message).WithDetails(details)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeCarrier, err, "carrier request timed out").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeCarrier, err, "carrier request failed").WithDetails(details)
}
