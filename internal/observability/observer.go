// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"context"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Observable components report operations under a fixed name.
type Observable interface {
	GetComponentName() string
}

// Level selects how much the observer records.
type Level int

const (
	LevelOff     Level = iota
	LevelMetrics       // one entry per completed operation
	LevelDebug         // also drives the DebugObserver step trace
)

// LevelFor maps the --debug and --verbose switches to a Level.
func LevelFor(debug, verbose bool) Level {
	if debug {
		return LevelDebug
	}
	if verbose {
		return LevelMetrics
	}
	return LevelOff
}

// Operation is one timed unit of work.
type Operation struct {
	Component string
	Name      string
	RequestID string
	Target    string // document path; only the base name is logged
	Duration  time.Duration
	Success   bool
	Error     string
	Attrs     map[string]interface{}
}

// StandardObserver writes completed operations to a zap logger. A nil
// *StandardObserver is valid and records nothing.
type StandardObserver struct {
	level  Level
	logger *zap.Logger

	// DebugObserver is set when the observer was created by NewDebugObserver.
	DebugObserver *DebugObserver
}

func NewStandardObserver(level Level, logger *zap.Logger) *StandardObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StandardObserver{level: level, logger: logger}
}

func (o *StandardObserver) Logger() *zap.Logger {
	if o == nil {
		return zap.NewNop()
	}
	return o.logger
}

// StartTiming begins an operation and returns the function that records it.
// The request ID is taken from ctx when the web router set one; otherwise a
// fresh UUID ties the entry to nothing but itself.
func (o *StandardObserver) StartTiming(ctx context.Context, component, name, target string) func(success bool, attrs map[string]interface{}) {
	start := time.Now()
	requestID := middleware.GetReqID(ctx)
	return func(success bool, attrs map[string]interface{}) {
		o.LogOperation(Operation{
			Component: component,
			Name:      name,
			RequestID: requestID,
			Target:    target,
			Duration:  time.Since(start),
			Success:   success,
			Attrs:     attrs,
		})
	}
}

// LogOperation records op at info level, or warn when it failed.
func (o *StandardObserver) LogOperation(op Operation) {
	if o == nil || o.level == LevelOff {
		return
	}
	if op.RequestID == "" {
		op.RequestID = uuid.NewString()
	}

	fields := make([]zap.Field, 0, 8)
	fields = append(fields,
		zap.String("component", op.Component),
		zap.String("operation", op.Name),
		zap.String("request_id", op.RequestID),
		zap.Int64("duration_ms", op.Duration.Milliseconds()),
		zap.Bool("success", op.Success),
	)
	if op.Target != "" {
		fields = append(fields, zap.String("file", filepath.Base(op.Target)))
	}
	if op.Error != "" {
		fields = append(fields, zap.String("error", op.Error))
	}
	if len(op.Attrs) > 0 {
		fields = append(fields, zap.Any("attrs", op.Attrs))
	}

	if !op.Success {
		o.logger.Warn("operation failed", fields...)
		return
	}
	o.logger.Info("operation completed", fields...)
}
