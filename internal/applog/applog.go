// Package applog provides the structured logger used by the qcgen binary.
//
// The record engine itself never logs (see SPEC_FULL.md §9 "Global state");
// logging is strictly a collaborator concern confined to cmd/qcgen
// (cmd/qcbench and cmd/qcinspect print directly and do not log).
package applog

import "go.uber.org/zap"

// New builds a sugared logger. Verbose selects a development config with
// human-friendly console output and debug level; otherwise a quiet
// production config at info level is used.
func New(verbose bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config

	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.Sugar(), nil
}
