// Package ocr wraps the remote text-recognition services used to read a
// transaction id off a payment screenshot when it carries no QR code.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Recognizer returns the full text found in an image, or "" when the image
// holds no text.
type Recognizer interface {
	RecognizeText(ctx context.Context, image []byte) (string, error)
}

// Provider names a text-recognition backend.
type Provider string

const (
	ProviderVision Provider = "vision"
	ProviderGemini Provider = "gemini"
)

var ErrUnknownProvider = errors.New("unknown OCR provider")

// Options tune the recognizer built by New.
type Options struct {
	// GeminiModel is the model name used by the Gemini provider.
	GeminiModel string
}

// New builds a Recognizer for the given provider. An empty provider selects
// Google Cloud Vision.
func New(ctx context.Context, provider Provider, apiKey string, opts Options) (Recognizer, error) {
	if apiKey == "" {
		return nil, errors.New("OCR API key is required")
	}

	switch Provider(strings.ToLower(string(provider))) {
	case "", ProviderVision:
		return NewVision(ctx, apiKey)
	case ProviderGemini:
		return NewGemini(ctx, apiKey, opts.GeminiModel)
	default:
		return nil, fmt.Errorf("%w: %q (supported: vision, gemini)", ErrUnknownProvider, provider)
	}
}
