// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package crosscheck

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"passport-crosscheck/internal/crosscheck/metrics"
	"passport-crosscheck/internal/observability"
	"passport-crosscheck/internal/passport"
)

// MRZExtractor reads the machine readable zone of a passport image.
type MRZExtractor interface {
	Extract(ctx context.Context, imagePath string) (*passport.RawMRZData, error)
}

// MRZValidator checks the ICAO check digits of raw MRZ text.
type MRZValidator interface {
	Validate(raw string, mrzType passport.MRZType) passport.ValidationResult
}

// VLMProvider reads the printed visual zone with a vision-language model.
type VLMProvider interface {
	ExtractPassportFields(ctx context.Context, imagePath string) (*VisualZoneData, error)
	Model() string
}

// Service orchestrates both extractions, cross-validates them and scores the
// result. It is safe for concurrent use.
type Service struct {
	cfg Config

	mrz          MRZExtractor
	mrzValidator MRZValidator
	vlm          VLMProvider

	validator *CrossValidator
	reporter  *DiscrepancyReporter
	scorer    *ConfidenceScorer

	// ocrSlots caps MRZ extractions still running, including ones whose
	// request already timed out. Nil means no cap.
	ocrSlots *semaphore.Weighted

	logger   *zap.Logger
	observer *observability.StandardObserver
	metrics  *metrics.Metrics
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver records each request and source call as a timed operation.
func WithObserver(observer *observability.StandardObserver) ServiceOption {
	return func(s *Service) { s.observer = observer }
}

// WithMetrics enables Prometheus collectors.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithMRZValidator replaces the ICAO check digit validator.
func WithMRZValidator(v MRZValidator) ServiceOption {
	return func(s *Service) {
		if v != nil {
			s.mrzValidator = v
		}
	}
}

// WithMaxConcurrentOCR limits how many MRZ extractions may run at once. OCR
// does not stop when its deadline passes, so an abandoned extraction keeps
// its slot until it returns. A request that cannot get a slot before its MRZ
// deadline reports an MRZ timeout. n <= 0 removes the limit.
func WithMaxConcurrentOCR(n int64) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.ocrSlots = semaphore.NewWeighted(n)
		} else {
			s.ocrSlots = nil
		}
	}
}

// WithClock overrides the source of metadata timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService validates cfg and wires the collaborators. The configuration is
// copied; later changes to cfg have no effect.
func NewService(cfg *Config, mrz MRZExtractor, vlm VLMProvider, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		return nil, NewConfigurationError("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if mrz == nil {
		return nil, NewConfigurationError("MRZ extractor is required")
	}
	if vlm == nil {
		return nil, NewConfigurationError("VLM provider is required")
	}

	reporter := NewDiscrepancyReporter()
	s := &Service{
		cfg:          *cfg,
		mrz:          mrz,
		mrzValidator: passport.NewValidator(),
		vlm:          vlm,
		validator:    NewCrossValidator(reporter),
		reporter:     reporter,
		scorer:       NewConfidenceScorer(cfg.Confidence),
		logger:       zap.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetComponentName implements observability.Observable.
func (s *Service) GetComponentName() string { return "crosscheck" }

// Config returns a copy of the service configuration.
func (s *Service) Config() Config { return s.cfg }

// sourceOutcome is what one extraction call produced.
type sourceOutcome[T any] struct {
	value    T
	err      error
	timedOut bool
	duration time.Duration
}

// callStats is the type-independent part of a sourceOutcome.
type callStats struct {
	err      error
	timedOut bool
	empty    bool
	duration time.Duration
}

func (o sourceOutcome[T]) stats(empty bool) callStats {
	return callStats{err: o.err, timedOut: o.timedOut, empty: empty, duration: o.duration}
}

func (c callStats) outcome() string {
	switch {
	case c.timedOut:
		return string(KindTimeout)
	case c.err != nil, c.empty:
		return string(KindFailed)
	default:
		return "success"
	}
}

// callWithTimeout runs fn under its own deadline. The call is abandoned, not
// awaited, when the deadline passes; fn must honour its context to release
// resources. A panic in fn is reported as an error.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) sourceOutcome[T] {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(callCtx)
		ch <- result{value: v, err: err}
	}()

	var out sourceOutcome[T]
	select {
	case r := <-ch:
		out.value, out.err = r.value, r.err
	case <-callCtx.Done():
		out.err = callCtx.Err()
	}
	out.duration = time.Since(start)

	// Only our own deadline counts as a timeout; caller cancellation is a failure.
	if out.err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		out.timedOut = true
	}
	return out
}

// Run extracts from both sources concurrently, each under its own timeout,
// and returns the cross-checked result. It never returns nil and never
// panics; failures are reported through the result's status and error fields.
func (s *Service) Run(ctx context.Context, imagePath string) *CrossCheckResult {
	start := time.Now()
	finish := s.observer.StartTiming(ctx, s.GetComponentName(), "run", imagePath)

	var (
		mrzOut sourceOutcome[*passport.RawMRZData]
		vlmOut sourceOutcome[*VisualZoneData]
		g      errgroup.Group
	)
	// Neither source cancels the other, so errgroup.WithContext is not used.
	g.Go(func() error {
		mrzOut = callWithTimeout(ctx, s.cfg.MRZTimeout, func(ctx context.Context) (*passport.RawMRZData, error) {
			if s.ocrSlots != nil {
				if err := s.ocrSlots.Acquire(ctx, 1); err != nil {
					return nil, err
				}
				defer s.ocrSlots.Release(1)
			}
			return s.mrz.Extract(ctx, imagePath)
		})
		return nil
	})
	g.Go(func() error {
		vlmOut = callWithTimeout(ctx, s.cfg.VLMTimeout, func(ctx context.Context) (*VisualZoneData, error) {
			return s.vlm.ExtractPassportFields(ctx, imagePath)
		})
		return nil
	})
	_ = g.Wait()

	mrzErr := s.settle(SourceMRZ, s.cfg.MRZTimeout, imagePath, mrzOut.stats(mrzOut.value == nil))
	if mrzErr != nil {
		mrzOut.value = nil
	}
	vlmErr := s.settle(SourceVLM, s.cfg.VLMTimeout, imagePath, vlmOut.stats(vlmOut.value == nil))
	if vlmErr != nil {
		vlmOut.value = nil
	}

	result := s.assemble(imagePath, mrzOut.value, vlmOut.value, mrzErr, vlmErr)
	result.Metadata = &ProcessingMetadata{
		ExtractionDurationMs: time.Since(start).Milliseconds(),
		MRZDurationMs:        durationMs(mrzOut.duration),
		VLMDurationMs:        durationMs(vlmOut.duration),
		VLMModel:             s.vlm.Model(),
		Timestamp:            s.now().UTC(),
	}

	s.record(result, time.Since(start))
	finish(result.Status != StatusError, map[string]interface{}{
		"status":        string(result.Status),
		"sources_used":  len(result.SourcesUsed),
		"discrepancies": len(result.Discrepancies),
	})
	return result
}

// settle turns a call outcome into the message stored on the result, logging
// and measuring it on the way. It returns nil when the source succeeded.
func (s *Service) settle(source Source, timeout time.Duration, imagePath string, st callStats) *string {
	label := "MRZ"
	if source == SourceVLM {
		label = "VLM"
	}

	var msg *string
	switch {
	case st.timedOut:
		msg = strPtr(fmt.Sprintf("%s extraction timed out after %s", label, timeout))
	case st.err != nil:
		msg = strPtr(fmt.Sprintf("%s extraction failed: %v", label, st.err))
	case st.empty:
		msg = strPtr(fmt.Sprintf("%s extraction failed: no data returned", label))
	}

	s.metrics.ObserveSource(string(source), st.outcome(), st.duration)
	fields := []zap.Field{
		zap.String("source", string(source)),
		zap.String("file", filepath.Base(imagePath)),
		zap.Duration("duration", st.duration),
		zap.String("outcome", st.outcome()),
	}
	if msg != nil {
		s.logger.Warn("extraction source failed", append(fields, zap.String("error", *msg))...)
		return msg
	}
	s.logger.Debug("extraction source succeeded", fields...)
	return nil
}

// assemble applies the status rules and, unless both sources failed, the
// cross-validation pipeline.
func (s *Service) assemble(imagePath string, mrz *passport.RawMRZData, visual *VisualZoneData, mrzErr, vlmErr *string) *CrossCheckResult {
	mrzOK, vlmOK := mrz != nil, visual != nil

	result := &CrossCheckResult{
		MRZExtractionSuccess: mrzOK,
		VLMExtractionSuccess: vlmOK,
		MRZError:             mrzErr,
		VLMError:             vlmErr,
		SourcesUsed:          []Source{},
		Discrepancies:        []FieldDiscrepancy{},
		FieldConfidences:     map[Field]float64{},
	}
	if mrzOK {
		result.SourcesUsed = append(result.SourcesUsed, SourceMRZ)
	}
	if vlmOK {
		result.SourcesUsed = append(result.SourcesUsed, SourceVLM)
	}

	switch {
	case mrzOK && vlmOK:
		result.Status = StatusSuccess
	case mrzOK || vlmOK:
		result.Status = StatusPartial
	default:
		result.Status = StatusError
		result.Error = strPtr("Both extraction sources failed")
		return result
	}

	results := s.validator.CrossValidate(mrz, visual)
	result.FieldConfidences = s.scorer.FieldConfidences(results)
	result.DocumentConfidence = s.scorer.DocumentConfidence(result.FieldConfidences)
	result.Discrepancies = s.reporter.GenerateReport(results)
	result.PassportData = s.buildPassportData(imagePath, mrz, results, result.DocumentConfidence)
	return result
}

// buildPassportData merges the final field values into one record.
func (s *Service) buildPassportData(imagePath string, mrz *passport.RawMRZData, results []FieldValidationResult, confidence *float64) *passport.PassportData {
	final := make(map[Field]*string, len(results))
	for _, r := range results {
		final[r.FieldName] = r.FinalValue
	}

	data := &passport.PassportData{
		SourceFile:     imagePath,
		Surname:        final[FieldSurname],
		GivenNames:     final[FieldGivenNames],
		Nationality:    final[FieldNationality],
		PassportNumber: final[FieldPassportNumber],
		Sex:            final[FieldSex],
		PlaceOfBirth:   final[FieldPlaceOfBirth],
		Confidence:     confidence,
	}
	if t, ok := ParseDate(final[FieldDateOfBirth]); ok {
		data.DateOfBirth = &t
	}
	if t, ok := ParseDate(final[FieldExpiryDate]); ok {
		data.ExpiryDate = &t
	}

	if mrz != nil {
		if mrz.MRZType != "" {
			mrzType := mrz.MRZType
			data.MRZType = &mrzType
		}
		if mrz.RawText != "" {
			raw := mrz.RawText
			data.RawMRZ = &raw
			validation := s.mrzValidator.Validate(raw, mrz.MRZType)
			data.MRZValid = validation.IsValid
			data.CheckDigitErrors = validation.FailedCheckDigits()
		}
	}
	return data
}

func (s *Service) record(result *CrossCheckResult, d time.Duration) {
	s.metrics.IncrementRequest(string(result.Status))
	s.metrics.ObserveRequestLatency(d)
	for _, disc := range result.Discrepancies {
		s.metrics.IncrementDiscrepancy(disc.FieldName.String(), string(disc.Severity))
	}

	fields := []zap.Field{
		zap.String("status", string(result.Status)),
		zap.Int("discrepancies", len(result.Discrepancies)),
		zap.Duration("duration", d),
	}
	if result.DocumentConfidence != nil {
		fields = append(fields, zap.Float64("document_confidence", *result.DocumentConfidence))
	}
	s.logger.Info("cross-check completed", fields...)
}

func durationMs(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}
