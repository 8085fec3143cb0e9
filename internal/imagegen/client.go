// Package imagegen calls the text-to-image provider and post-processes its output.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"net/http"
	"time"

	"github.com/rai-team-aiframe/dreamly/internal/observability"

	_ "golang.org/x/image/webp" // Register WebP decoder
	"go.opentelemetry.io/otel/attribute"
)

// ErrGeneration is returned for any failed generation attempt.
var ErrGeneration = errors.New("image generation failed")

// Generator produces a base64 encoded image for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Request parameters sent with every generation call.
const (
	ImageWidth  = 1024
	ImageHeight = 1024
	Steps       = 4
)

// ClientConfig configures Client.
type ClientConfig struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client calls an OpenAI-style images endpoint that returns b64_json payloads.
type Client struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	Steps          int    `json:"steps"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format"`
}

type generateResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// Generate asks the provider for a single image. It never retries.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := observability.StartClientSpan(ctx, "imagegen.generate",
		attribute.String("imagegen.model", c.model),
		attribute.Int("imagegen.prompt_length", len(prompt)),
	)
	start := time.Now()

	data, err := c.generate(ctx, prompt)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	observability.ImageGenerationDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	observability.EndSpan(span, err)
	return data, err
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:          c.model,
		Prompt:         prompt,
		Width:          ImageWidth,
		Height:         ImageHeight,
		Steps:          Steps,
		N:              1,
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	if err := checkResp(resp); err != nil {
		return "", err
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrGeneration, err)
	}
	if len(result.Data) == 0 || result.Data[0].B64JSON == "" {
		return "", fmt.Errorf("%w: provider returned no image data", ErrGeneration)
	}

	payload := result.Data[0].B64JSON
	if _, err := DecodeConfig(payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return payload, nil
}

// checkResp returns an error carrying the upstream body when the status is not 2xx.
func checkResp(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("%w: provider returned %d: %s", ErrGeneration, resp.StatusCode, bytes.TrimSpace(body))
}

// DecodeConfig decodes the header of a base64 image and reports its format and size.
func DecodeConfig(b64 string) (image.Config, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return image.Config{}, fmt.Errorf("decode base64: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return image.Config{}, fmt.Errorf("decode image: %w", err)
	}
	return cfg, nil
}
