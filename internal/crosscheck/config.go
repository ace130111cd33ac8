// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package crosscheck

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultVLMModel is the model identifier used when none is configured.
	DefaultVLMModel = "Qwen/Qwen2-VL-7B-Instruct"

	DefaultMRZTimeout = 30 * time.Second
	DefaultVLMTimeout = 60 * time.Second
)

// ConfidenceConfig holds the per-field confidence values and the weights used
// for the document-level average.
type ConfidenceConfig struct {
	AgreementConfidence        float64 `yaml:"agreement_confidence"`
	DisagreementBaseConfidence float64 `yaml:"disagreement_base_confidence"`
	SingleSourceMRZConfidence  float64 `yaml:"single_source_mrz_confidence"`
	SingleSourceVLMConfidence  float64 `yaml:"single_source_vlm_confidence"`
	CriticalFieldWeight        float64 `yaml:"critical_field_weight"`
	StandardFieldWeight        float64 `yaml:"standard_field_weight"`
}

// DefaultConfidenceConfig returns the stock scoring values.
func DefaultConfidenceConfig() ConfidenceConfig {
	return ConfidenceConfig{
		AgreementConfidence:        1.0,
		DisagreementBaseConfidence: 0.4,
		SingleSourceMRZConfidence:  0.7,
		SingleSourceVLMConfidence:  0.6,
		CriticalFieldWeight:        2.0,
		StandardFieldWeight:        1.0,
	}
}

// Config is the immutable service configuration. Build it with NewConfig so
// it is validated once; the service keeps its own copy.
type Config struct {
	HFToken    string        `validate:"required" name:"hf_token"`
	VLMModel   string        `validate:"required" name:"vlm_model"`
	MRZTimeout time.Duration `validate:"gt=0" name:"mrz_timeout_seconds"`
	VLMTimeout time.Duration `validate:"gt=0" name:"vlm_timeout_seconds"`
	Confidence ConfidenceConfig
}

// Option adjusts a Config before validation.
type Option func(*Config)

// WithVLMModel overrides the model identifier. Empty keeps the default.
func WithVLMModel(model string) Option {
	return func(c *Config) {
		if model != "" {
			c.VLMModel = model
		}
	}
}

// WithTimeouts sets the per-source timeouts.
func WithTimeouts(mrz, vlm time.Duration) Option {
	return func(c *Config) {
		c.MRZTimeout = mrz
		c.VLMTimeout = vlm
	}
}

// WithConfidence replaces the scoring values.
func WithConfidence(conf ConfidenceConfig) Option {
	return func(c *Config) {
		c.Confidence = conf
	}
}

// NewConfig builds a validated Config. A missing token or a non-positive
// timeout yields a *ConfigurationError.
func NewConfig(hfToken string, opts ...Option) (*Config, error) {
	cfg := &Config{
		HFToken:    strings.TrimSpace(hfToken),
		VLMModel:   DefaultVLMModel,
		MRZTimeout: DefaultMRZTimeout,
		VLMTimeout: DefaultVLMTimeout,
		Confidence: DefaultConfidenceConfig(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("name"); name != "" {
			return name
		}
		return fld.Name
	})
	return v
}

// Validate checks the configuration and reports the first problem as a
// *ConfigurationError.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ConfigurationError{Message: err.Error()}
	}
	fe := verrs[0]
	switch {
	case fe.Field() == "hf_token":
		return NewConfigurationError("HF_TOKEN required. Set the HF_TOKEN environment variable or pass a token explicitly")
	case fe.Tag() == "gt":
		return NewConfigurationError("%s must be positive", fe.Field())
	case fe.Tag() == "required":
		return NewConfigurationError("%s is required", fe.Field())
	default:
		return NewConfigurationError("%s failed %q validation (got %v)", fe.Field(), fe.Tag(), fe.Value())
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{VLMModel: %s, MRZTimeout: %s, VLMTimeout: %s}", c.VLMModel, c.MRZTimeout, c.VLMTimeout)
}
