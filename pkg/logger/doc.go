// Package logger provides the structured logging interface used across the
// Butterfliy client.
//
// It wraps zerolog behind a small Logger interface so packages can accept a
// logger without depending on zerolog directly, and so tests can swap in
// NewNopLogger or the capturing NewTestLogger.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "api")
//	log.WarnWithFields("retrying request", map[string]interface{}{
//	    "attempt":  1,
//	    "delay_ms": 1000,
//	})
//
// Console output is used unless Format is "json" or File is set.
package logger
