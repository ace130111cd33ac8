// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package vlm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"passport-crosscheck/internal/crosscheck"
	"passport-crosscheck/internal/preprocessors"
	"passport-crosscheck/internal/resilience"
	"passport-crosscheck/internal/security"
)

const (
	// ProviderName identifies the provider in logs and results.
	ProviderName = "qwen2-vl"
	// DefaultModel is used when no model is configured.
	DefaultModel = "Qwen/Qwen2.5-VL-7B-Instruct"
	// DefaultBaseURL is the Hugging Face OpenAI-compatible router.
	DefaultBaseURL = "https://router.huggingface.co/v1"

	maxTokens      = 500
	maxErrorBody   = 4 << 10
	endpointSuffix = "/chat/completions"
)

// ExtractionPrompt asks the model for the printed fields as a JSON object.
const ExtractionPrompt = `Extract the following fields from this passport image.
Return ONLY a JSON object with these exact keys (use null for missing fields):
{
  "surname": "family name in uppercase",
  "given_names": "first and middle names",
  "date_of_birth": "YYYY-MM-DD format",
  "nationality": "3-letter country code",
  "passport_number": "alphanumeric passport number",
  "expiry_date": "YYYY-MM-DD format",
  "sex": "M or F",
  "place_of_birth": "city or country name"
}
Extract from the VISUAL ZONE (printed text), not the MRZ.`

// mimeTypes lists the formats sent to the model as they are. Other images
// and PDFs are rendered to PNG first.
var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// IsSupportedFormat reports whether the file can be sent without conversion.
func IsSupportedFormat(path string) bool {
	_, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Provider reads the visual zone of a passport through a hosted Qwen2-VL
// model. It is safe for concurrent use.
type Provider struct {
	model   string
	url     string
	token   *security.Secret
	timeout time.Duration

	hc      *http.Client
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	logger  *zap.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithModel overrides DefaultModel. Empty keeps the default.
func WithModel(model string) Option {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL points the provider at another OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		if baseURL != "" {
			p.url = strings.TrimRight(baseURL, "/") + endpointSuffix
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) {
		if hc != nil {
			p.hc = hc
		}
	}
}

// WithTimeout bounds each extraction in addition to the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// WithRetry sets the retry policy. MaxRetries 0 disables retries.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(p *Provider) { p.retry = cfg }
}

// WithCircuitBreaker shares a breaker across providers. Nil disables it.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(p *Provider) { p.breaker = cb }
}

// WithLogger sets the provider logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a provider. A blank token is a configuration error.
func New(token string, opts ...Option) (*Provider, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, crosscheck.NewConfigurationError("HF_TOKEN required. Set HF_TOKEN environment variable or pass hf_token parameter.")
	}

	p := &Provider{
		model:  DefaultModel,
		url:    DefaultBaseURL + endpointSuffix,
		token:  security.NewSecret(token),
		hc:     &http.Client{},
		retry:  resilience.DefaultRetryConfig(),
		logger: zap.NewNop(),
	}
	p.breaker = resilience.NewCircuitBreaker(resilience.DefaultBreakerConfig(ProviderName))
	for _, opt := range opts {
		opt(p)
	}

	onRetry := p.retry.OnRetry
	p.retry.OnRetry = func(attempt int, err error) {
		p.logger.Warn("retrying VLM request",
			zap.String("provider", ProviderName),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if onRetry != nil {
			onRetry(attempt, err)
		}
	}
	return p, nil
}

// Name returns ProviderName.
func (p *Provider) Name() string { return ProviderName }

// Model returns the model identifier sent with every request.
func (p *Provider) Model() string { return p.model }

// ExtractPassportFields sends the image with the extraction prompt and parses
// the model's answer. Errors are *crosscheck.ExtractionError; the timeout kind
// is returned when the deadline passes before the model answers.
func (p *Provider) ExtractPassportFields(ctx context.Context, imagePath string) (*crosscheck.VisualZoneData, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	budget := p.timeout
	if deadline, ok := ctx.Deadline(); ok && (budget == 0 || time.Until(deadline) < budget) {
		budget = time.Until(deadline)
	}

	dataURL, err := encodeImage(imagePath)
	if err != nil {
		return nil, crosscheck.NewVLMExtractionError(fmt.Sprintf("Qwen2-VL extraction failed: %v", err), err)
	}

	body, err := json.Marshal(p.buildRequest(dataURL))
	if err != nil {
		return nil, crosscheck.NewVLMExtractionError(fmt.Sprintf("Qwen2-VL extraction failed: %v", err), err)
	}

	start := time.Now()
	content, err := resilience.Do(ctx, p.retry, p.breaker, func(ctx context.Context) (string, error) {
		return p.complete(ctx, body)
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, crosscheck.NewVLMTimeoutError(
				fmt.Sprintf("Qwen2-VL extraction timed out after %s", formatSeconds(budget)), err)
		}
		return nil, crosscheck.NewVLMExtractionError(fmt.Sprintf("Qwen2-VL extraction failed: %v", err), err)
	}

	p.logger.Debug("VLM response received",
		zap.String("provider", ProviderName),
		zap.String("model", p.model),
		zap.String("file", filepath.Base(imagePath)),
		zap.Duration("duration", time.Since(start)),
		zap.Int("response_bytes", len(content)))

	return ParseResponse(content)
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *Provider) buildRequest(dataURL string) chatRequest {
	return chatRequest{
		Model: p.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: ExtractionPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			},
		}},
		MaxTokens: maxTokens,
	}
}

// complete performs one chat-completions call and returns the first choice.
func (p *Provider) complete(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", resilience.Permanent(fmt.Sprintf("new request: %v", err), err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token.Reveal())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", resilience.NewStatusError(resp, string(slurp))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", errors.New("response contained no choices")
	}
	return cr.Choices[0].Message.Content, nil
}

// encodeImage returns the file as a base64 data URL. Formats the model does
// not accept directly are decoded and re-encoded as PNG.
func encodeImage(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := mimeTypes[ext]; ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return dataURL(mime, data), nil
	}

	var (
		img image.Image
		err error
	)
	switch {
	case preprocessors.IsPDF(path):
		img, err = preprocessors.LoadPDFImage(path)
	case preprocessors.IsImageExtension(path):
		img, _, err = preprocessors.LoadImage(path)
	default:
		return "", fmt.Errorf("%w: %s", preprocessors.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", err
	}
	data, err := preprocessors.EncodePNG(img)
	if err != nil {
		return "", err
	}
	return dataURL("image/png", data), nil
}

func dataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// formatSeconds renders a duration as fractional seconds, e.g. "60s" or "0.05s".
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Round(time.Millisecond).Seconds(), 'f', -1, 64) + "s"
}
