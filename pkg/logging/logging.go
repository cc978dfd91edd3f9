// Package logging builds the shared zap logger for the ctxforge CLI.
package logging

import (
	"go.uber.org/zap"
)

// New builds a zap logger configured for the application. When debug is true
// a development config (console encoder, Debug level) is used; otherwise the
// production config (JSON, Info level). The application name and version are
// attached as initial fields so every entry identifies the emitting build.
func New(debug bool, appName, appVersion string) (*zap.Logger, error) {
	var cfg zap.Config

	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	cfg.InitialFields = map[string]interface{}{
		"appName":    appName,
		"appVersion": appVersion,
	}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop(), err
	}

	zap.ReplaceGlobals(logger)
	return logger, nil
}
