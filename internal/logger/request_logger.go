package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// RequestLogger logs HTTP API traffic.
type RequestLogger struct {
	*logrus.Entry
}

// NewRequestLogger creates a new request logger.
func NewRequestLogger(baseLogger *logrus.Logger) *RequestLogger {
	return &RequestLogger{
		Entry: baseLogger.WithField("component", "http"),
	}
}

// LogRequest logs one served request.
func (rl *RequestLogger) LogRequest(requestID, method, path string, status int, duration time.Duration) {
	entry := rl.WithFields(logrus.Fields{
		"request_id":  requestID,
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	})
	if status >= 500 {
		entry.Error("Request failed")
		return
	}
	entry.Info("Request served")
}
