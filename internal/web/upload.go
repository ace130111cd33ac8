// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"passport-crosscheck/internal/crosscheck"
	"passport-crosscheck/internal/formatters"
	"passport-crosscheck/internal/security"
)

const defaultFormat = "json"

// Error codes returned in errorResponse.ErrorCode.
const (
	codeNoFile            = "NO_FILE"
	codeEmptyFile         = "EMPTY_FILE"
	codeFileTooLarge      = "FILE_TOO_LARGE"
	codeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	codeValidation        = "VALIDATION_ERROR"
	codeInvalidParameter  = "INVALID_PARAMETER"
	codeBadRequest        = "BAD_REQUEST"
	codeInternal          = "INTERNAL_ERROR"
)

// signatures maps each accepted extension to the leading bytes its content
// must carry. WebP is matched separately because its tag is at offset 8.
var signatures = map[string][]string{
	".jpg":  {"\xff\xd8\xff"},
	".jpeg": {"\xff\xd8\xff"},
	".png":  {"\x89PNG\r\n\x1a\n"},
	".gif":  {"GIF87a", "GIF89a"},
	".tif":  {"II*\x00", "MM\x00*"},
	".tiff": {"II*\x00", "MM\x00*"},
	".pdf":  {"%PDF-"},
	".webp": nil,
}

const unsupportedFormatMessage = "Unsupported file format. Supported: GIF, JPEG, PDF, PNG, TIFF, WEBP"

// uploadForm holds the optional form fields of a cross-check upload.
type uploadForm struct {
	Format          string `validate:"omitempty,formatter"`
	IncludeMetadata string `validate:"omitempty,boolean"`
}

func newFormValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("formatter", func(fl validator.FieldLevel) bool {
		_, ok := formatters.Get(fl.Field().String())
		return ok
	})
	return v
}

// formError turns a validation failure into a client message.
func formError(form uploadForm, err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	switch verrs[0].Field() {
	case "Format":
		return fmt.Sprintf("Unsupported output format '%s'. Available formats: %s",
			sanitizeUserInput(form.Format, 20), strings.Join(formatters.List(), ", "))
	case "IncludeMetadata":
		return "include_metadata must be true or false"
	default:
		return verrs[0].Error()
	}
}

// uploadError is a rejected upload with the status to report.
type uploadError struct {
	status  int
	code    string
	message string
}

func (e *uploadError) Error() string { return e.message }

// handleCrossCheck handles POST /api/v1/crosscheck.
func (s *Server) handleCrossCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			s.sendError(w, r, http.StatusRequestEntityTooLarge, codeFileTooLarge,
				fmt.Sprintf("File size exceeds maximum allowed (%dMB)", s.maxUploadBytes>>20))
			return
		}
		s.sendError(w, r, http.StatusBadRequest, codeBadRequest,
			"Failed to parse form data. Upload the document as multipart/form-data in the 'file' field.")
		return
	}
	defer r.MultipartForm.RemoveAll()

	form := uploadForm{
		Format:          strings.TrimSpace(r.FormValue("format")),
		IncludeMetadata: strings.TrimSpace(r.FormValue("include_metadata")),
	}
	if err := s.validate.Struct(form); err != nil {
		s.sendError(w, r, http.StatusBadRequest, codeInvalidParameter, formError(form, err))
		return
	}
	format := form.Format
	if format == "" {
		format = defaultFormat
	}
	includeMetadata, _ := strconv.ParseBool(form.IncludeMetadata)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.sendError(w, r, http.StatusBadRequest, codeNoFile, "No file provided. Please select a file to upload.")
		return
	}
	defer file.Close()

	tempPath, err := s.saveUpload(file, header)
	if err != nil {
		var uerr *uploadError
		if errors.As(err, &uerr) {
			s.sendError(w, r, uerr.status, uerr.code, uerr.message)
			return
		}
		s.logger.Error("failed to stage upload", zap.Error(err))
		s.sendError(w, r, http.StatusInternalServerError, codeInternal, "An unexpected error occurred. Please try again.")
		return
	}
	defer func() {
		if err := security.RemoveFile(tempPath); err != nil {
			s.logger.Warn("failed to wipe upload", zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
		}
	}()

	result := s.checker.Run(ctx, tempPath)
	if result.PassportData != nil {
		result.PassportData.SourceFile = sanitizeFilenameForDisplay(header.Filename)
	}

	content, mimeType, filename, err := formatters.ExportForWeb(format, result, formatters.FormatterOptions{
		NoColor:         true,
		Verbose:         includeMetadata,
		IncludeMetadata: includeMetadata,
	})
	if err != nil {
		s.logger.Error("failed to format result", zap.String("format", format), zap.Error(err))
		s.sendError(w, r, http.StatusInternalServerError, codeInternal, fmt.Sprintf("Failed to format results: %v", err))
		return
	}

	status := http.StatusOK
	if result.Status == crosscheck.StatusError {
		status = http.StatusUnprocessableEntity
	}

	s.logger.Info("cross-check completed",
		zap.String("request_id", middleware.GetReqID(ctx)),
		zap.String("status", string(result.Status)),
		zap.Int("discrepancies", len(result.Discrepancies)),
		zap.String("format", format),
	)

	w.Header().Set("Content-Type", mimeType)
	if format != defaultFormat {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, content)
}

// saveUpload validates the uploaded document and copies it into a temp
// file that keeps the original extension, since extraction dispatches on it.
func (s *Server) saveUpload(file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Filename == "" {
		return "", &uploadError{http.StatusBadRequest, codeNoFile, "No file selected. Please choose a file to upload."}
	}
	ext := getFileExtension(header.Filename)
	if _, ok := signatures[ext]; !ok {
		return "", &uploadError{http.StatusUnsupportedMediaType, codeUnsupportedFormat, unsupportedFormatMessage}
	}

	head := make([]byte, 16)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", &uploadError{http.StatusBadRequest, codeEmptyFile, "File is empty. Please select a valid file."}
	}
	if !matchesSignature(ext, head) {
		return "", &uploadError{http.StatusBadRequest, codeValidation,
			"File content does not match its extension. Please ensure the file type is correct."}
	}

	tempFile, err := os.CreateTemp(s.tempDir, "crosscheck_upload_*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file in %s: %w", s.tempDir, err)
	}
	defer tempFile.Close()

	if _, err := io.Copy(tempFile, io.MultiReader(bytes.NewReader(head), file)); err != nil {
		tempFile.Close()
		_ = security.RemoveFile(tempFile.Name())
		return "", fmt.Errorf("failed to copy file content: %w", err)
	}
	return tempFile.Name(), nil
}

func matchesSignature(ext string, head []byte) bool {
	if ext == ".webp" {
		return len(head) >= 12 && string(head[:4]) == "RIFF" && string(head[8:12]) == "WEBP"
	}
	for _, sig := range signatures[ext] {
		if bytes.HasPrefix(head, []byte(sig)) {
			return true
		}
	}
	return false
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

// getFileExtension returns the lowercase extension with its dot, or "" when
// it is missing or not alphanumeric.
func getFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		return ""
	}
	safeExt := strings.ToLower(strings.TrimPrefix(ext, "."))
	if safeExt == "" || len(safeExt) > 10 || !isAlphanumeric(safeExt) {
		return ""
	}
	return "." + safeExt
}

// isAlphanumeric checks if string contains only alphanumeric characters
func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

// sanitizeUserInput removes dangerous characters from user input for safe output
func sanitizeUserInput(input string, maxLength int) string {
	sanitized := strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		switch r {
		case '<', '>', '"', '\'', '&':
			return -1
		}
		return r
	}, input)

	if len(sanitized) > maxLength {
		cut := maxLength
		for cut > 0 && !utf8.RuneStart(sanitized[cut]) {
			cut--
		}
		sanitized = sanitized[:cut] + "..."
	}
	return sanitized
}

// sanitizeFilenameForDisplay keeps only the base name of an uploaded file.
// Browsers on Windows may send full paths.
func sanitizeFilenameForDisplay(filename string) string {
	name := strings.ReplaceAll(filename, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return sanitizeUserInput(name, 255)
}
