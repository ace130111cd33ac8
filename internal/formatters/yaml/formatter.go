// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package yaml

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"passport-crosscheck/internal/crosscheck"
	"passport-crosscheck/internal/formatters"
)

func init() {
	formatters.Register(NewFormatter())
}

// Formatter writes the same document as the json formatter in YAML.
type Formatter struct{}

func NewFormatter() *Formatter { return &Formatter{} }

func (f *Formatter) Name() string { return "yaml" }

func (f *Formatter) Description() string {
	return "Result document as YAML, same keys as json"
}

func (f *Formatter) FileExtension() string { return ".yaml" }

func (f *Formatter) MediaType() string { return "application/x-yaml" }

func (f *Formatter) Format(result *crosscheck.CrossCheckResult, options formatters.FormatterOptions) (string, error) {
	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(result.ToDocument(options.IncludeMetadata)); err != nil {
		return "", fmt.Errorf("encode result document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode result document: %w", err)
	}
	return buf.String(), nil
}
