// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package security

import (
	"errors"
	"fmt"
	"os"
)

const wipeChunk = 32 * 1024

// RemoveFile overwrites a regular file with zeros, syncs it, then removes
// it. The file is removed even when the overwrite fails.
func RemoveFile(path string) error {
	wipeErr := overwrite(path)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Join(wipeErr, fmt.Errorf("remove %s: %w", path, err))
	}
	return wipeErr
}

func overwrite(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s for wipe: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	zeros := make([]byte, wipeChunk)
	remaining := info.Size()
	for remaining > 0 {
		n := int64(len(zeros))
		if remaining < n {
			n = remaining
		}
		if _, err := f.Write(zeros[:n]); err != nil {
			return fmt.Errorf("wipe %s: %w", path, err)
		}
		remaining -= n
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	return nil
}
