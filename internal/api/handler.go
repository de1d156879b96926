// Package api serves the backtest over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/lrs-backtest/internal/backtest"
)

// Runner executes one backtest
type Runner interface {
	Run(ctx context.Context, params backtest.Params) (*backtest.RunResult, error)
}

// BacktestHandler serves GET /api/backtest
type BacktestHandler struct {
	runner   Runner
	cfg      backtest.BacktestConfig
	timeout  time.Duration
	validate *validator.Validate
	logger   *logrus.Entry
	now      func() time.Time
}

// NewBacktestHandler creates the backtest endpoint. A zero timeout leaves the
// request context untouched.
func NewBacktestHandler(runner Runner, cfg backtest.BacktestConfig, timeout time.Duration, log *logrus.Logger) *BacktestHandler {
	if log == nil {
		log = logrus.New()
	}
	return &BacktestHandler{
		runner:   runner,
		cfg:      cfg,
		timeout:  timeout,
		validate: newQueryValidator(),
		logger:   log.WithField("component", "api"),
		now:      time.Now,
	}
}

// ServeHTTP implements http.Handler
func (h *BacktestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
			Error:     "method not allowed",
			RequestID: RequestIDFromContext(r.Context()),
		})
		return
	}

	params, err := parseBacktestParams(r, h.cfg.DefaultParams(h.now()), h.validate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.runner.Run(ctx, params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, backtest.Assemble(result, backtest.AssembleOptions{
		DownsampleThreshold: h.cfg.DownsampleThreshold,
	}))
}

func (h *BacktestHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	requestID := RequestIDFromContext(r.Context())
	entry := h.logger.WithError(err).WithFields(logrus.Fields{
		"request_id": requestID,
		"status":     status,
	})
	switch {
	case status == statusClientClosedRequest:
		entry.Info("Backtest request abandoned by client")
	case status >= http.StatusInternalServerError:
		entry.Error("Backtest request failed")
	default:
		entry.Debug("Backtest request rejected")
	}

	writeJSON(w, status, errorResponse{
		Success:   false,
		Error:     errorMessage(status, err),
		RequestID: requestID,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
