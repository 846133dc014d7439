// Package detector recovers a bank transaction id from a payment-confirmation
// image. Strategies are tried in a fixed order and the first hit wins: QR code
// decoding first, since it is local and free, then OCR when an API key is set.
package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/txn-verifier/internal/models"
	"github.com/insightdelivered/txn-verifier/internal/ocr"
)

// Config is the per-call detection configuration. The text recognition
// strategy is skipped entirely when OCRAPIKey is empty.
type Config struct {
	OCRAPIKey   string
	OCRProvider ocr.Provider
	GeminiModel string
}

// strategy returns "" when it found nothing.
type strategy struct {
	source models.DetectionSource
	run    func(ctx context.Context, r *Raster) (string, error)
}

type Detector struct {
	log           *logrus.Logger
	newRecognizer RecognizerFactory
}

type Option func(*Detector)

// WithRecognizerFactory replaces the OCR client constructor.
func WithRecognizerFactory(f RecognizerFactory) Option {
	return func(d *Detector) {
		d.newRecognizer = f
	}
}

func New(log *logrus.Logger, opts ...Option) *Detector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	d := &Detector{
		log:           log,
		newRecognizer: defaultRecognizerFactory,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Detector) strategies(cfg Config) []strategy {
	list := []strategy{
		{source: models.SourceQRCode, run: d.fromQRCode},
	}
	if cfg.OCRAPIKey != "" {
		list = append(list, strategy{
			source: models.SourceTextRecognition,
			run: func(ctx context.Context, r *Raster) (string, error) {
				return d.fromText(ctx, r, cfg)
			},
		})
	}
	return list
}

// Detect returns the transaction id found in image, or nil when no strategy
// finds one. A nil result with a nil error is a normal outcome.
func (d *Detector) Detect(ctx context.Context, image []byte, cfg Config) (*models.DetectionResult, error) {
	start := time.Now()

	raster, err := Normalize(image)
	if err != nil {
		return nil, err
	}

	for _, s := range d.strategies(cfg) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		value, err := s.run(ctx, raster)
		if err != nil {
			return nil, fmt.Errorf("%s detection failed: %w", s.source, err)
		}
		if value == "" {
			continue
		}

		result := &models.DetectionResult{
			Value:        value,
			DetectedFrom: s.source,
			TimeTaken:    time.Since(start),
		}
		d.log.WithFields(logrus.Fields{
			"transaction_id": result.Value,
			"detected_from":  result.DetectedFrom,
			"elapsed_ms":     result.TimeTaken.Milliseconds(),
		}).Info("transaction id detected")
		return result, nil
	}

	d.log.WithFields(logrus.Fields{
		"width":      raster.Width,
		"height":     raster.Height,
		"ocr":        cfg.OCRAPIKey != "",
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("no transaction id found in image")
	return nil, nil
}

// DetectTransactionID runs Detect with the default OCR clients.
func DetectTransactionID(ctx context.Context, image []byte, cfg Config) (*models.DetectionResult, error) {
	return New(nil).Detect(ctx, image, cfg)
}
