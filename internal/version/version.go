// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package version reports build metadata for --version and /health.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Set at link time:
//
//	-ldflags "-X passport-crosscheck/internal/version.Version=1.4.0 -X ...GitCommit=abc123"
//
// When left unset, GitCommit and BuildDate fall back to the VCS stamp that
// go build embeds.
var (
	Version   = "0.0.0-development"
	GitCommit = ""
	BuildDate = ""
)

var vcsOnce = sync.OnceValues(func() (revision, modified string) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			modified = s.Value
		}
	}
	return revision, modified
})

func commit() string {
	if GitCommit != "" {
		return GitCommit
	}
	if rev, _ := vcsOnce(); rev != "" {
		if len(rev) > 12 {
			rev = rev[:12]
		}
		return rev
	}
	return "unknown"
}

func buildDate() string {
	if BuildDate != "" {
		return BuildDate
	}
	if _, at := vcsOnce(); at != "" {
		return at
	}
	return "unknown"
}

func platform() string { return runtime.GOOS + "/" + runtime.GOARCH }

// Info is the --version line.
func Info() string {
	return fmt.Sprintf("crosscheck %s (commit: %s, built: %s, go: %s, platform: %s)",
		Version, commit(), buildDate(), runtime.Version(), platform())
}

func Short() string { return Version }

// Full is the build_info object of the health endpoint.
func Full() map[string]string {
	return map[string]string{
		"version":    Version,
		"commit":     commit(),
		"build_date": buildDate(),
		"go_version": runtime.Version(),
		"platform":   platform(),
	}
}
