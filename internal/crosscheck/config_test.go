// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package crosscheck

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig(" hf_secret ")
	require.NoError(t, err)

	assert.Equal(t, "hf_secret", cfg.HFToken)
	assert.Equal(t, DefaultVLMModel, cfg.VLMModel)
	assert.Equal(t, 30*time.Second, cfg.MRZTimeout)
	assert.Equal(t, 60*time.Second, cfg.VLMTimeout)
	assert.Equal(t, DefaultConfidenceConfig(), cfg.Confidence)
	assert.NotContains(t, cfg.String(), "hf_secret")
}

func TestNewConfigOptions(t *testing.T) {
	conf := DefaultConfidenceConfig()
	conf.AgreementConfidence = 0.95

	cfg, err := NewConfig("tok",
		WithVLMModel("Qwen/Qwen2.5-VL-7B-Instruct"),
		WithTimeouts(5*time.Second, 10*time.Second),
		WithConfidence(conf),
	)
	require.NoError(t, err)
	assert.Equal(t, "Qwen/Qwen2.5-VL-7B-Instruct", cfg.VLMModel)
	assert.Equal(t, 5*time.Second, cfg.MRZTimeout)
	assert.Equal(t, 10*time.Second, cfg.VLMTimeout)
	assert.Equal(t, 0.95, cfg.Confidence.AgreementConfidence)

	cfg, err = NewConfig("tok", WithVLMModel(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultVLMModel, cfg.VLMModel)
}

func TestNewConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		opts    []Option
		message string
	}{
		{"missing token", "", nil, "HF_TOKEN required. Set the HF_TOKEN environment variable or pass a token explicitly"},
		{"blank token", "   ", nil, "HF_TOKEN required. Set the HF_TOKEN environment variable or pass a token explicitly"},
		{"zero mrz timeout", "tok", []Option{WithTimeouts(0, time.Second)}, "mrz_timeout_seconds must be positive"},
		{"negative vlm timeout", "tok", []Option{WithTimeouts(time.Second, -time.Second)}, "vlm_timeout_seconds must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewConfig(tt.token, tt.opts...)
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestExtractionErrorKinds(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	timeout := NewVLMTimeoutError("Qwen2-VL extraction timed out after 60s", cause)
	failed := NewVLMExtractionError("Qwen2-VL extraction failed: bad json", nil)

	assert.True(t, errors.Is(timeout, ErrVLMTimeout))
	assert.False(t, errors.Is(timeout, ErrVLMExtraction))
	assert.True(t, errors.Is(timeout, cause))
	assert.True(t, IsTimeout(timeout))

	assert.True(t, errors.Is(failed, ErrVLMExtraction))
	assert.False(t, IsTimeout(failed))
	assert.Equal(t, "Qwen2-VL extraction failed: bad json", failed.Error())

	mrzErr := &ExtractionError{Source: SourceMRZ, Kind: KindFailed}
	assert.False(t, errors.Is(mrzErr, ErrVLMExtraction))
	assert.Equal(t, "mrz extraction failed", mrzErr.Error())
}
