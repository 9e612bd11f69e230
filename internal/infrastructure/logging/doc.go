// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components accept a plain *zap.Logger and name themselves with
// Logger.Named, so the tab registry logs as "tabs" and the file backend as
// "filestore".
//
// The level is atomic: SetLevel on the root Logger changes it for every
// derived logger, which tabkeeperd exposes at /api/log-level.
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//	logger.Info("Restored tabs", zap.Int("tabs", 4))
package logging
