package logger

import (
	"context"

	"go.uber.org/zap"
)

type runInfoKey struct{}

// RunInfo identifies a claims run for log correlation
type RunInfo struct {
	RunID    string
	Contract string
}

// WithRunInfo returns a context carrying run information.
// Loggers obtained through FromContext attach it as fields.
func WithRunInfo(ctx context.Context, info RunInfo) context.Context {
	return context.WithValue(ctx, runInfoKey{}, info)
}

// GetRunInfo extracts run information from the context
// Returns nil if no run information is attached
func GetRunInfo(ctx context.Context) *RunInfo {
	if ctx == nil {
		return nil
	}
	info, ok := ctx.Value(runInfoKey{}).(RunInfo)
	if !ok {
		return nil
	}
	return &info
}

// runFields converts run information into zap fields
func runFields(info *RunInfo) []zap.Field {
	if info == nil {
		return nil
	}

	fields := make([]zap.Field, 0, 2)
	if info.RunID != "" {
		fields = append(fields, zap.String("run_id", info.RunID))
	}
	if info.Contract != "" {
		fields = append(fields, zap.String("contract", info.Contract))
	}
	return fields
}
