// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"passport-crosscheck/internal/crosscheck"
)

// FormatterOptions controls how much of a result a formatter renders.
type FormatterOptions struct {
	Verbose         bool // text: include the metadata block
	NoColor         bool // text: plain output
	IncludeMetadata bool // json, yaml, csv: include processing_metadata
}

// Formatter renders a cross-check result. Implementations register
// themselves from init so importing the package is enough to enable them.
type Formatter interface {
	Format(result *crosscheck.CrossCheckResult, options FormatterOptions) (string, error)

	// Name is the value accepted by --format and the web "format" field.
	Name() string
	Description() string
	FileExtension() string
	MediaType() string
}

// Registry maps format names to formatters. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Formatter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Formatter)}
}

// Register adds f, replacing any formatter with the same name.
func (r *Registry) Register(f Formatter) {
	r.mu.Lock()
	r.byName[f.Name()] = f
	r.mu.Unlock()
}

// Get looks a formatter up by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.byName[name]
	return f, ok
}

// List returns the registered names in lexical order.
func (r *Registry) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// FormatInfo describes a formatter in the web API and help output.
type FormatInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Extension   string `json:"extension"`
	MimeType    string `json:"mime_type"`
}

var defaultRegistry = NewRegistry()

func Register(f Formatter) { defaultRegistry.Register(f) }

func Get(name string) (Formatter, bool) { return defaultRegistry.Get(name) }

func List() []string { return defaultRegistry.List() }

var errNoResult = errors.New("no result to format")

// Export renders result with the named formatter.
func Export(format string, result *crosscheck.CrossCheckResult, options FormatterOptions) (string, error) {
	f, ok := Get(format)
	if !ok {
		return "", fmt.Errorf("unsupported format '%s'. Available formats: %s", format, strings.Join(List(), ", "))
	}
	if result == nil {
		return "", errNoResult
	}
	return f.Format(result, options)
}

// ExportForWeb renders result and also returns the Content-Type and a
// download filename for the response.
func ExportForWeb(format string, result *crosscheck.CrossCheckResult, options FormatterOptions) (content, mimeType, filename string, err error) {
	if content, err = Export(format, result, options); err != nil {
		return "", "", "", err
	}
	info := GetFormatInfo(format)
	return content, info.MimeType, "crosscheck-result" + info.Extension, nil
}

// GetFormatInfo returns the zero FormatInfo for unknown names.
func GetFormatInfo(name string) FormatInfo {
	f, ok := Get(name)
	if !ok {
		return FormatInfo{}
	}
	return FormatInfo{
		Name:        f.Name(),
		Description: f.Description(),
		Extension:   f.FileExtension(),
		MimeType:    f.MediaType(),
	}
}

// GetSupportedFormats lists every registered formatter in name order.
func GetSupportedFormats() []FormatInfo {
	names := List()
	infos := make([]FormatInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, GetFormatInfo(name))
	}
	return infos
}
