// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package security

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretReveal(t *testing.T) {
	s := NewSecret("hf_abc123")
	assert.Equal(t, "hf_abc123", s.Reveal())
	assert.False(t, s.Empty())
}

func TestSecretFormattingIsRedacted(t *testing.T) {
	s := NewSecret("hf_abc123")
	for _, verb := range []string{"%v", "%s", "%+v", "%#v"} {
		out := fmt.Sprintf(verb, s)
		assert.NotContains(t, out, "hf_abc123", verb)
	}
	assert.Equal(t, "[REDACTED]", s.String())
}

func TestSecretClear(t *testing.T) {
	s := NewSecret("sensitive")
	buf := s.data
	s.Clear()
	assert.Equal(t, "", s.Reveal())
	assert.True(t, s.Empty())
	assert.Equal(t, make([]byte, len("sensitive")), buf)

	s.Clear()
}

func TestNilSecret(t *testing.T) {
	var s *Secret
	assert.Equal(t, "", s.Reveal())
	assert.True(t, s.Empty())
	s.Clear()
}

func TestWipe(t *testing.T) {
	b := []byte("P<UTOERIKSSON<<ANNA<MARIA")
	Wipe(b)
	assert.Equal(t, make([]byte, len(b)), b)
}

func TestRemoveFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("removes file", func(t *testing.T) {
		path := filepath.Join(dir, "scan.png")
		data := make([]byte, wipeChunk+17)
		for i := range data {
			data[i] = 0xAB
		}
		require.NoError(t, os.WriteFile(path, data, 0o600))

		require.NoError(t, RemoveFile(path))
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		assert.NoError(t, RemoveFile(filepath.Join(dir, "gone.png")))
	})

	t.Run("overwrite zeroes content", func(t *testing.T) {
		path := filepath.Join(dir, "keep.jpg")
		require.NoError(t, os.WriteFile(path, []byte("passport bytes"), 0o600))

		require.NoError(t, overwrite(path))
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, make([]byte, len("passport bytes")), got)
	})
}
