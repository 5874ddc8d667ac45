package logger

import "time"

// LogRequest logs a completed API request
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}
	if statusCode >= 400 {
		l.WarnWithFields("API request failed", fields)
		return
	}
	l.DebugWithFields("API request completed", fields)
}

// LogStageProgress logs progress of a crawl stage
func LogStageProgress(l Logger, stage string, done, total int) {
	fields := map[string]interface{}{
		"stage": stage,
		"done":  done,
	}
	if total > 0 {
		fields["total"] = total
		fields["percentage"] = float64(done) / float64(total) * 100
	}
	l.InfoWithFields("Stage progress", fields)
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	l.WithField("component", component).InfoWithFields("Component starting", settings)
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithField("component", component).InfoWithFields("Component stopped", map[string]interface{}{
		"reason": reason,
	})
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string) {}
func (nopLogger) Info(string) {}
func (nopLogger) Warn(string) {}
func (nopLogger) Error(string) {}
func (n nopLogger) WithField(string, interface{}) Logger { return n }
func (n nopLogger) WithFields(map[string]interface{}) Logger { return n }
func (n nopLogger) WithError(error) Logger { return n }
func (nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (nopLogger) InfoWithFields(string, map[string]interface{}) {}
func (nopLogger) WarnWithFields(string, map[string]interface{}) {}
func (nopLogger) ErrorWithFields(string, map[string]interface{}) {}
