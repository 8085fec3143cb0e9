// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"sync"
)

// GeneratorStub is an in-memory imagegen.Generator. It returns Image, or Err when set.
type GeneratorStub struct {
	Image string
	Err   error

	mu      sync.Mutex
	prompts []string
}

// NewGeneratorStub returns a stub that answers every prompt with a 4x4 PNG.
func NewGeneratorStub() *GeneratorStub {
	return &GeneratorStub{Image: TinyPNGBase64(4, 4)}
}

// Generate records the prompt and returns the configured result.
func (s *GeneratorStub) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	return s.Image, nil
}

// Prompts returns the prompts seen so far.
func (s *GeneratorStub) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// TinyPNG returns an encoded PNG with the requested dimensions.
func TinyPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: 128, A: 255})
		}
	}
	buf := bytes.NewBuffer(nil)
	// Encoding an in-memory RGBA cannot fail.
	_ = png.Encode(buf, img)
	return buf.Bytes()
}

// TinyPNGBase64 is TinyPNG in the provider's b64_json encoding.
func TinyPNGBase64(w, h int) string {
	return base64.StdEncoding.EncodeToString(TinyPNG(w, h))
}
