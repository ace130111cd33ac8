// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStartTimingLogsOperation(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	o := NewStandardObserver(LevelMetrics, zap.New(core))

	done := o.StartTiming(context.Background(), "crosscheck", "run", "/scans/in/passport.jpg")
	done(true, map[string]interface{}{"status": "success"})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "operation completed", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "crosscheck", fields["component"])
	assert.Equal(t, "run", fields["operation"])
	assert.Equal(t, "passport.jpg", fields["file"], "directories are not logged")
	assert.Equal(t, true, fields["success"])

	_, err := uuid.Parse(fields["request_id"].(string))
	assert.NoError(t, err)
}

func TestStartTimingUsesRequestIDFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	o := NewStandardObserver(LevelMetrics, zap.New(core))

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	o.StartTiming(ctx, "crosscheck", "run", "")(false, nil)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "req-42", entry.ContextMap()["request_id"])
}

func TestFailedOperationCarriesError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	o := NewStandardObserver(LevelMetrics, zap.New(core))

	o.LogOperation(Operation{Component: "vlm", Name: "extract", Error: "timeout"})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "operation failed", entries[0].Message)
	assert.Equal(t, "timeout", entries[0].ContextMap()["error"])
}

func TestObserverOffIsSilent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	o := NewStandardObserver(LevelOff, zap.New(core))

	o.StartTiming(context.Background(), "crosscheck", "run", "")(true, nil)
	assert.Zero(t, logs.Len())

	var nilObserver *StandardObserver
	assert.NotPanics(t, func() {
		nilObserver.StartTiming(context.Background(), "crosscheck", "run", "")(true, nil)
	})
	assert.NotNil(t, nilObserver.Logger())
}

func TestDebugObserverSteps(t *testing.T) {
	var buf bytes.Buffer
	d := NewDebugObserver(&buf, zap.NewNop())

	finish := d.StartStep("crosscheck", "mrz", "/tmp/passport.jpg")
	d.LogDetail("crosscheck", "ocr pass 1")
	d.LogMetric("crosscheck", "fields", 7)
	finish(true, "7 fields")
	finish(false, "ignored")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "🔄 crosscheck: mrz (passport.jpg)", lines[0])
	assert.Equal(t, "    → crosscheck: ocr pass 1", lines[1])
	assert.Equal(t, "    📊 crosscheck: fields = 7", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "✅ crosscheck: mrz completed ("))
	assert.Same(t, d, d.StandardObserver.DebugObserver)
}

func TestDebugObserverConcurrentSteps(t *testing.T) {
	var buf bytes.Buffer
	d := NewDebugObserver(&buf, zap.NewNop())

	var wg sync.WaitGroup
	for _, step := range []string{"mrz", "vlm"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.StartStep("crosscheck", step, "")(false, "boom")
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, strings.Count(buf.String(), "❌"))
	assert.Zero(t, d.depth)
}

func TestNilDebugObserver(t *testing.T) {
	var d *DebugObserver
	assert.NotPanics(t, func() {
		d.StartStep("main", "cross-check", "x")(true, "")
		d.LogDetail("main", "x")
		d.LogMetric("main", "x", 1)
	})
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, LevelDebug, LevelFor(true, true))
	assert.Equal(t, LevelMetrics, LevelFor(false, true))
	assert.Equal(t, LevelOff, LevelFor(false, false))
}
