// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DebugObserver prints a nested, human-readable trace of processing steps
// for --debug runs. Methods are safe on a nil receiver and from several
// goroutines.
type DebugObserver struct {
	*StandardObserver

	mu    sync.Mutex
	out   io.Writer
	depth int
}

func NewDebugObserver(out io.Writer, logger *zap.Logger) *DebugObserver {
	d := &DebugObserver{StandardObserver: NewStandardObserver(LevelDebug, logger), out: out}
	d.DebugObserver = d
	return d
}

func (d *DebugObserver) printf(marker, format string, args ...interface{}) {
	fmt.Fprintf(d.out, "%s%s %s\n", strings.Repeat("  ", d.depth), marker, fmt.Sprintf(format, args...))
}

// StartStep opens a step; call the returned function once to close it.
func (d *DebugObserver) StartStep(component, step, target string) func(success bool, details string) {
	if d == nil {
		return func(bool, string) {}
	}
	start := time.Now()

	d.mu.Lock()
	if target != "" {
		d.printf("🔄", "%s: %s (%s)", component, step, filepath.Base(target))
	} else {
		d.printf("🔄", "%s: %s", component, step)
	}
	d.depth++
	d.mu.Unlock()

	var once sync.Once
	return func(success bool, details string) {
		once.Do(func() {
			ms := time.Since(start).Milliseconds()
			d.mu.Lock()
			defer d.mu.Unlock()
			d.depth = max(d.depth-1, 0)
			if success {
				d.printf("✅", "%s: %s completed (%dms) %s", component, step, ms, details)
			} else {
				d.printf("❌", "%s: %s failed (%dms) %s", component, step, ms, details)
			}
		})
	}
}

// LogDetail writes a line inside the current step.
func (d *DebugObserver) LogDetail(component, detail string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printf("  →", "%s: %s", component, detail)
}

// LogMetric writes a named value inside the current step.
func (d *DebugObserver) LogMetric(component, metric string, value interface{}) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printf("  📊", "%s: %s = %v", component, metric, value)
}
