// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under config and temp roots.
const AppName = "passport-crosscheck"

// GetConfigDir returns the passport-crosscheck configuration directory.
// PASSPORT_CROSSCHECK_CONFIG_DIR wins, then $XDG_CONFIG_HOME, then a dot
// directory in the user's home.
func GetConfigDir() string {
	if dir := os.Getenv("PASSPORT_CROSSCHECK_CONFIG_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+AppName)
	}
	return filepath.Join(home, "."+AppName)
}

// GetConfigFile returns the path to the main config file
func GetConfigFile() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// GetTempDir returns the directory used for uploaded documents
func GetTempDir() string {
	return filepath.Join(os.TempDir(), AppName)
}

// EnsureDir creates dir and its parents with owner-only permissions.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o700)
}
