// Package logger provides structured logging for the crawler.
//
// It wraps zerolog behind a small Logger interface so components can be
// handed a TestLogger in tests and a NopLogger when output is unwanted.
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "crawler")
//	log.InfoWithFields("Page fetched", map[string]interface{}{"page": 3, "items": 100})
package logger
