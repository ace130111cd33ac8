// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package crosscheck

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"passport-crosscheck/internal/crosscheck/metrics"
	"passport-crosscheck/internal/observability"
	"passport-crosscheck/internal/passport"
)

type fakeMRZ struct {
	data  *passport.RawMRZData
	err   error
	block bool
	panic bool
	hold  chan struct{} // ignores ctx until closed, like a running OCR engine
	calls atomic.Int32
}

func (f *fakeMRZ) Extract(ctx context.Context, _ string) (*passport.RawMRZData, error) {
	f.calls.Add(1)
	if f.panic {
		panic("ocr crashed")
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.hold != nil {
		<-f.hold
	}
	return f.data, f.err
}

type fakeVLM struct {
	data  *VisualZoneData
	err   error
	block bool
	calls atomic.Int32
}

func (f *fakeVLM) ExtractPassportFields(ctx context.Context, _ string) (*VisualZoneData, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, NewVLMTimeoutError("Qwen2-VL extraction timed out after 0.05s", ctx.Err())
	}
	return f.data, f.err
}

func (f *fakeVLM) Model() string { return "test/model" }

type fixedValidator struct{ result passport.ValidationResult }

func (v fixedValidator) Validate(string, passport.MRZType) passport.ValidationResult { return v.result }

const (
	td3Line1 = "P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<"
	td3Line2 = "L898902C36UTO7408122F1204159ZE184226B<<<<<10"
)

func sampleMRZ() *passport.RawMRZData {
	return &passport.RawMRZData{
		MRZType:        passport.MRZTypeTD3,
		RawText:        td3Line1 + "\n" + td3Line2,
		Surname:        strPtr("ERIKSSON"),
		GivenNames:     strPtr("ANNA MARIA"),
		Country:        strPtr("UTO"),
		Nationality:    strPtr("UTO"),
		BirthDate:      strPtr("740812"),
		Sex:            strPtr("F"),
		ExpiryDate:     strPtr("120415"),
		DocumentNumber: strPtr("L898902C3"),
	}
}

func sampleVisual() *VisualZoneData {
	return &VisualZoneData{
		Surname:        strPtr("Eriksson"),
		GivenNames:     strPtr("Anna María"),
		DateOfBirth:    strPtr("1974-08-12"),
		Nationality:    strPtr("UTO"),
		PassportNumber: strPtr("L898902C3"),
		ExpiryDate:     strPtr("2012-04-15"),
		Sex:            strPtr("F"),
		PlaceOfBirth:   strPtr("Zenith"),
	}
}

type ServiceSuite struct {
	suite.Suite
	mrz     *fakeMRZ
	vlm     *fakeVLM
	logs    *observer.ObservedLogs
	metrics *metrics.Metrics
	now     time.Time
	cfg     *Config
}

func (s *ServiceSuite) SetupTest() {
	s.mrz = &fakeMRZ{data: sampleMRZ()}
	s.vlm = &fakeVLM{data: sampleVisual()}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cfg, err := NewConfig("hf_test", WithTimeouts(time.Second, 50*time.Millisecond))
	s.Require().NoError(err)
	s.cfg = cfg
}

func (s *ServiceSuite) newService(opts ...ServiceOption) *Service {
	core, logs := observer.New(zapcore.DebugLevel)
	s.logs = logs
	base := []ServiceOption{
		WithLogger(zap.New(core)),
		WithMetrics(s.metrics),
		WithClock(func() time.Time { return s.now }),
	}
	svc, err := NewService(s.cfg, s.mrz, s.vlm, append(base, opts...)...)
	s.Require().NoError(err)
	return svc
}

func (s *ServiceSuite) TestObserverRecordsRun() {
	core, logs := observer.New(zapcore.DebugLevel)
	obs := observability.NewStandardObserver(observability.LevelMetrics, zap.New(core))
	s.vlm.err = NewVLMExtractionError("Qwen2-VL extraction failed: bad json", nil)

	result := s.newService(WithObserver(obs)).Run(context.Background(), "/uploads/passport.jpg")
	s.Require().Equal(StatusPartial, result.Status)

	entries := logs.FilterMessage("operation completed").All()
	s.Require().Len(entries, 1)
	fields := entries[0].ContextMap()
	s.Equal("crosscheck", fields["component"])
	s.Equal("run", fields["operation"])
	s.Equal("passport.jpg", fields["file"])
	attrs, ok := fields["attrs"].(map[string]interface{})
	s.Require().True(ok)
	s.Equal("partial", attrs["status"])
	s.Equal(1, attrs["sources_used"])
}

func (s *ServiceSuite) TestBothSourcesAgree() {
	result := s.newService().Run(context.Background(), "passport.jpg")

	s.Equal(StatusSuccess, result.Status)
	s.Equal([]Source{SourceMRZ, SourceVLM}, result.SourcesUsed)
	s.True(result.MRZExtractionSuccess)
	s.True(result.VLMExtractionSuccess)
	s.Empty(result.Discrepancies)
	s.Nil(result.Error)
	s.Nil(result.MRZError)
	s.Nil(result.VLMError)

	// Place of birth is only printed in the visual zone.
	s.Equal(0.6, result.FieldConfidences[FieldPlaceOfBirth])
	s.Equal(1.0, result.FieldConfidences[FieldPassportNumber])
	s.Require().NotNil(result.DocumentConfidence)
	s.InDelta(11.6/12, *result.DocumentConfidence, 1e-9)
	s.Len(result.FieldConfidences, 8)

	pd := result.PassportData
	s.Require().NotNil(pd)
	s.Equal("passport.jpg", pd.SourceFile)
	s.Equal("Eriksson", deref(pd.Surname))
	s.Equal("L898902C3", deref(pd.PassportNumber))
	s.Equal("Zenith", deref(pd.PlaceOfBirth))
	s.Require().NotNil(pd.DateOfBirth)
	s.Equal(time.Date(1974, 8, 12, 0, 0, 0, 0, time.UTC), *pd.DateOfBirth)
	s.Require().NotNil(pd.ExpiryDate)
	s.Equal(2012, pd.ExpiryDate.Year())
	s.Require().NotNil(pd.MRZType)
	s.Equal(passport.MRZTypeTD3, *pd.MRZType)
	s.True(pd.MRZValid)
	s.Empty(pd.CheckDigitErrors)
	s.Equal(result.DocumentConfidence, pd.Confidence)

	md := result.Metadata
	s.Require().NotNil(md)
	s.Equal("test/model", md.VLMModel)
	s.Equal(s.now, md.Timestamp)
	s.NotNil(md.MRZDurationMs)
	s.NotNil(md.VLMDurationMs)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.Requests.WithLabelValues("success")))
	s.Equal(1, s.logs.FilterMessage("cross-check completed").Len())
}

func (s *ServiceSuite) TestDiscrepanciesAreReported() {
	s.vlm.data.Surname = strPtr("ERIKSON")
	s.vlm.data.PassportNumber = strPtr("L898902C8")

	result := s.newService().Run(context.Background(), "passport.jpg")

	s.Equal(StatusSuccess, result.Status)
	s.Require().Len(result.Discrepancies, 2)
	s.Equal(FieldSurname, result.Discrepancies[0].FieldName)
	s.Equal(FieldPassportNumber, result.Discrepancies[1].FieldName)
	s.Len(result.CriticalDiscrepancies(), 1)

	s.Equal("ERIKSON", deref(result.PassportData.Surname), "surname prefers VLM")
	s.Equal("L898902C3", deref(result.PassportData.PassportNumber), "passport number prefers MRZ")
	s.Equal(0.4, result.FieldConfidences[FieldSurname])
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Discrepancies.WithLabelValues("passport_number", "critical")))
}

func (s *ServiceSuite) TestVLMTimeoutIsPartial() {
	s.vlm.block = true

	result := s.newService().Run(context.Background(), "passport.jpg")

	s.Equal(StatusPartial, result.Status)
	s.Equal([]Source{SourceMRZ}, result.SourcesUsed)
	s.False(result.VLMExtractionSuccess)
	s.Require().NotNil(result.VLMError)
	s.Equal("VLM extraction timed out after 50ms", *result.VLMError)
	s.Nil(result.Error)

	for f, c := range result.FieldConfidences {
		s.Equal(0.7, c, f.String())
	}
	s.Nil(result.PassportData.PlaceOfBirth)
	s.Require().NotNil(result.Metadata.VLMDurationMs)
	s.GreaterOrEqual(*result.Metadata.VLMDurationMs, int64(50))
	s.Equal(1, s.logs.FilterMessage("extraction source failed").Len())
}

func (s *ServiceSuite) TestMRZFailureIsPartial() {
	s.mrz.data = nil
	s.mrz.err = passport.ErrMRZNotFound

	result := s.newService().Run(context.Background(), "passport.jpg")

	s.Equal(StatusPartial, result.Status)
	s.Equal([]Source{SourceVLM}, result.SourcesUsed)
	s.Require().NotNil(result.MRZError)
	s.Equal("MRZ extraction failed: no Machine Readable Zone (MRZ) detected", *result.MRZError)
	s.Nil(result.PassportData.MRZType)
	s.False(result.PassportData.MRZValid)
	s.Equal(0.6, result.FieldConfidences[FieldSurname])
}

func (s *ServiceSuite) TestBothSourcesFail() {
	s.mrz.data, s.mrz.err = nil, errors.New("unreadable")
	s.vlm.data, s.vlm.err = nil, NewVLMExtractionError("Qwen2-VL extraction failed: 401 Unauthorized", nil)

	result := s.newService().Run(context.Background(), "passport.jpg")

	s.Equal(StatusError, result.Status)
	s.Nil(result.PassportData)
	s.Nil(result.DocumentConfidence)
	s.Empty(result.SourcesUsed)
	s.Empty(result.Discrepancies)
	s.Empty(result.FieldConfidences)
	s.Equal("Both extraction sources failed", deref(result.Error))
	s.Equal("MRZ extraction failed: unreadable", deref(result.MRZError))
	s.Equal("VLM extraction failed: Qwen2-VL extraction failed: 401 Unauthorized", deref(result.VLMError))
	s.Require().NotNil(result.Metadata, "error results keep their metadata")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Requests.WithLabelValues("error")))
}

func (s *ServiceSuite) TestPanicIsContained() {
	s.mrz.panic = true

	result := s.newService().Run(context.Background(), "passport.jpg")

	s.Equal(StatusPartial, result.Status)
	s.Contains(deref(result.MRZError), "panic: ocr crashed")
}

func (s *ServiceSuite) TestEmptyResultIsFailure() {
	s.mrz.data = nil

	result := s.newService().Run(context.Background(), "passport.jpg")

	s.Equal(StatusPartial, result.Status)
	s.Equal("MRZ extraction failed: no data returned", deref(result.MRZError))
}

func (s *ServiceSuite) TestCallerCancellation() {
	s.mrz.block = true
	s.vlm.block = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := s.newService().Run(ctx, "passport.jpg")

	s.Equal(StatusError, result.Status)
	s.Contains(deref(result.MRZError), "context canceled")
	s.NotContains(deref(result.VLMError), "VLM extraction timed out")
}

func (s *ServiceSuite) TestCheckDigitErrorsComeFromValidator() {
	bad := passport.ValidationResult{
		IsValid:     false,
		MRZType:     passport.MRZTypeTD3,
		CheckDigits: []passport.CheckDigitResult{{FieldName: "composite_check_digit", IsValid: false, Expected: "0", Actual: "1"}},
	}

	result := s.newService(WithMRZValidator(fixedValidator{result: bad})).Run(context.Background(), "passport.jpg")

	s.False(result.PassportData.MRZValid)
	s.Equal([]string{"composite_check_digit"}, result.PassportData.CheckDigitErrors)
}

func (s *ServiceSuite) TestConcurrentRuns() {
	svc := s.newService()
	done := make(chan *CrossCheckResult, 8)
	for range 8 {
		go func() { done <- svc.Run(context.Background(), "passport.jpg") }()
	}
	for range 8 {
		s.Equal(StatusSuccess, (<-done).Status)
	}
	s.Equal(int32(8), s.mrz.calls.Load())
}

func (s *ServiceSuite) TestAbandonedOCRKeepsItsSlot() {
	cfg, err := NewConfig("hf_test", WithTimeouts(30*time.Millisecond, time.Second))
	s.Require().NoError(err)
	s.cfg = cfg
	s.mrz.hold = make(chan struct{})
	svc := s.newService(WithMaxConcurrentOCR(1))

	first := svc.Run(context.Background(), "passport.jpg")
	s.Equal(StatusPartial, first.Status)
	s.Equal("MRZ extraction timed out after 30ms", deref(first.MRZError))

	second := svc.Run(context.Background(), "passport.jpg")
	s.Equal(StatusPartial, second.Status)
	s.Equal("MRZ extraction timed out after 30ms", deref(second.MRZError))
	s.Equal(int32(1), s.mrz.calls.Load(), "second run waited for the slot instead of starting OCR")

	close(s.mrz.hold)
	s.Eventually(func() bool {
		if !svc.ocrSlots.TryAcquire(1) {
			return false
		}
		svc.ocrSlots.Release(1)
		return true
	}, time.Second, 5*time.Millisecond)

	third := svc.Run(context.Background(), "passport.jpg")
	s.Equal(StatusSuccess, third.Status)
	s.Equal(int32(2), s.mrz.calls.Load())
}

func TestWithMaxConcurrentOCRZeroIsUnlimited(t *testing.T) {
	cfg, err := NewConfig("hf_test")
	require.NoError(t, err)
	svc, err := NewService(cfg, &fakeMRZ{data: sampleMRZ()}, &fakeVLM{data: sampleVisual()},
		WithMaxConcurrentOCR(2), WithMaxConcurrentOCR(0))
	require.NoError(t, err)
	assert.Nil(t, svc.ocrSlots)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func TestNewServiceValidation(t *testing.T) {
	cfg, err := NewConfig("tok")
	require.NoError(t, err)

	_, err = NewService(nil, &fakeMRZ{}, &fakeVLM{})
	assert.True(t, IsConfigurationError(err))

	_, err = NewService(&Config{VLMModel: DefaultVLMModel, MRZTimeout: time.Second, VLMTimeout: time.Second}, &fakeMRZ{}, &fakeVLM{})
	assert.True(t, IsConfigurationError(err), "missing token is rejected at construction")

	_, err = NewService(cfg, nil, &fakeVLM{})
	assert.True(t, IsConfigurationError(err))

	_, err = NewService(cfg, &fakeMRZ{}, nil)
	assert.True(t, IsConfigurationError(err))

	svc, err := NewService(cfg, &fakeMRZ{}, &fakeVLM{})
	require.NoError(t, err)
	cfg.VLMModel = "changed"
	assert.Equal(t, DefaultVLMModel, svc.Config().VLMModel, "configuration is copied")
	assert.Equal(t, "crosscheck", svc.GetComponentName())
}
