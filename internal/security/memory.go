// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package security

// Secret holds a credential such as the Hugging Face token. Formatting it
// with %v or %s prints a placeholder; only Reveal returns the value.
//
// Clear zeroes the internal buffer. Copies made by Reveal, or moved by the
// garbage collector, are not reachable and stay in the heap until reused.
type Secret struct {
	data []byte
}

const redacted = "[REDACTED]"

// NewSecret copies s into a buffer owned by the Secret.
func NewSecret(s string) *Secret {
	data := make([]byte, len(s))
	copy(data, s)
	return &Secret{data: data}
}

// Reveal returns the value. A nil or cleared Secret reveals "".
func (s *Secret) Reveal() string {
	if s == nil {
		return ""
	}
	return string(s.data)
}

// Empty reports whether there is no value to reveal.
func (s *Secret) Empty() bool {
	return s == nil || len(s.data) == 0
}

func (s *Secret) String() string {
	return redacted
}

func (s *Secret) GoString() string {
	return redacted
}

// Clear overwrites the buffer with zeros and drops it.
func (s *Secret) Clear() {
	if s == nil || s.data == nil {
		return
	}
	Wipe(s.data)
	s.data = nil
}

// Wipe zeroes b in place.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
