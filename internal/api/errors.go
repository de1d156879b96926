package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/yourusername/lrs-backtest/internal/models"
)

const internalErrorMessage = "internal server error"

// statusClientClosedRequest marks requests the client abandoned before a response
const statusClientClosedRequest = 499

// errorResponse is the body of every failed API call
type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps the backtest error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, models.ErrInvalidParameter), errors.Is(err, models.ErrEmptyRange):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrDataIntegrity):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage hides unexpected failures from clients
func errorMessage(status int, err error) string {
	if status == http.StatusInternalServerError {
		return internalErrorMessage
	}
	return err.Error()
}
