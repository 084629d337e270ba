// Package logger builds the zap logger shared by the server, the CLI and the
// sync engine.
//
// Level "debug" starts from zap's development config, anything else from the
// production config. Format "console" switches to colored, stacktrace-free
// output for terminals; the default is JSON with level, time and message keys.
//
// Request handlers wrap the base logger with WithRayID so every line of one
// request carries the same ray_id, set by the rayid middleware.
//
//	log, err := logger.New(&cfg.Log)
//	if err != nil {
//	    return err
//	}
//	log.Info("Sync completed", zap.String("run_id", summary.RunID))
//
//	l := logger.WithRayID(log, c)
//	l.Warn("Feed not found", zap.String("feed_id", id))
package logger
