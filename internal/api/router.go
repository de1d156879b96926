package api

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/lrs-backtest/internal/health"
	"github.com/yourusername/lrs-backtest/internal/logger"
	"github.com/yourusername/lrs-backtest/internal/metrics"
)

const backtestPath = "/api/backtest"

// RouterConfig lists the handlers mounted on the API mux
type RouterConfig struct {
	Backtest    http.Handler
	Health      *health.Checker
	MetricsPath string // empty disables /metrics
	Logger      *logrus.Logger
}

// NewRouter builds the API handler tree
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logrus.New()
	}
	rl := logger.NewRequestLogger(log)

	mux := http.NewServeMux()
	mux.Handle(backtestPath, instrument(backtestPath, cfg.Backtest, rl))
	if cfg.Health != nil {
		cfg.Health.Register(mux)
	}
	if cfg.MetricsPath != "" {
		mux.Handle(cfg.MetricsPath, metrics.Handler())
	}
	mux.Handle("/", instrument("unmatched", http.HandlerFunc(notFound), rl))

	return withCORS(withRequestID(mux))
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{
		Error:     "not found",
		RequestID: RequestIDFromContext(r.Context()),
	})
}
