package detector

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/txn-verifier/internal/ocr"
	"github.com/insightdelivered/txn-verifier/internal/parser"
)

// RecognizerFactory builds the OCR collaborator for one detection call.
type RecognizerFactory func(ctx context.Context, cfg Config) (ocr.Recognizer, error)

func defaultRecognizerFactory(ctx context.Context, cfg Config) (ocr.Recognizer, error) {
	return ocr.New(ctx, cfg.OCRProvider, cfg.OCRAPIKey, ocr.Options{GeminiModel: cfg.GeminiModel})
}

// fromText sends the original image to the OCR service and looks for the
// first transaction id in the returned text.
func (d *Detector) fromText(ctx context.Context, r *Raster, cfg Config) (string, error) {
	rec, err := d.newRecognizer(ctx, cfg)
	if err != nil {
		return "", err
	}
	if c, ok := rec.(io.Closer); ok {
		defer c.Close()
	}

	text, err := rec.RecognizeText(ctx, r.Raw)
	if err != nil {
		return "", err
	}

	id, ok := parser.FindTransactionID(text)
	if !ok {
		d.log.WithFields(logrus.Fields{
			"text_length": len(text),
		}).Debug("recognized text carries no transaction id")
		return "", nil
	}
	return id, nil
}
