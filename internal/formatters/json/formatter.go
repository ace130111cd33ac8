// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package json renders a cross-check result as the JSON document returned by
// the web API.
package json

import (
	"encoding/json"
	"fmt"

	"passport-crosscheck/internal/crosscheck"
	"passport-crosscheck/internal/formatters"
)

func init() {
	formatters.Register(NewFormatter())
}

type Formatter struct{}

func NewFormatter() *Formatter { return &Formatter{} }

func (f *Formatter) Name() string { return "json" }

func (f *Formatter) Description() string {
	return "Result document as indented JSON"
}

func (f *Formatter) FileExtension() string { return ".json" }

func (f *Formatter) MediaType() string { return "application/json" }

// Format emits the document with two-space indentation. Absent fields are
// null so every key is always present.
func (f *Formatter) Format(result *crosscheck.CrossCheckResult, options formatters.FormatterOptions) (string, error) {
	doc := result.ToDocument(options.IncludeMetadata)
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result document: %w", err)
	}
	return string(out), nil
}
