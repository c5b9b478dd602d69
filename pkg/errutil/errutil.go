// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

// Package errutil provides helpers for logging structured errors.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error with structured context if it's an oops error.
// For oops errors, it extracts and logs the message, code, and context.
// For standard errors, it logs the error string.
func LogError(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, attrs(err)...)
}

// LogWarn is LogError at warning level, for failures the caller absorbed
// (best-effort audit writes, ignored cleanup errors).
func LogWarn(logger *slog.Logger, msg string, err error) {
	logger.Warn(msg, attrs(err)...)
}

func attrs(err error) []any {
	if oopsErr, ok := oops.AsOops(err); ok {
		out := []any{
			"error", oopsErr.Error(),
		}
		if code := oopsErr.Code(); code != nil {
			out = append(out, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			out = append(out, "context", ctx)
		}
		return out
	}
	return []any{"error", err}
}
