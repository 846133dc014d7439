package detector

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/txn-verifier/internal/models"
	"github.com/insightdelivered/txn-verifier/internal/ocr"
)

type fakeRecognizer struct {
	text  string
	err   error
	calls int
}

func (f *fakeRecognizer) RecognizeText(_ context.Context, _ []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestDetector(rec *fakeRecognizer, factoryCalls *int) *Detector {
	return New(quietLogger(), WithRecognizerFactory(func(_ context.Context, cfg Config) (ocr.Recognizer, error) {
		*factoryCalls++
		if cfg.OCRAPIKey == "" {
			return nil, errors.New("recognizer built without a key")
		}
		return rec, nil
	}))
}

func qrPNG(t *testing.T, payload string) []byte {
	t.Helper()
	matrix, err := qrcode.NewQRCodeWriter().Encode(payload, gozxing.BarcodeFormat_QR_CODE, 300, 300, nil)
	if err != nil {
		t.Fatalf("encode QR: %v", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, matrix); err != nil {
		t.Fatalf("encode PNG: %v", err)
	}
	return buf.Bytes()
}

func blankImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func blankPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, blankImage(120, 80)); err != nil {
		t.Fatalf("encode PNG: %v", err)
	}
	return buf.Bytes()
}

func TestDetect_QRCodeWins(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"without OCR key", Config{}},
		{"with OCR key", Config{OCRAPIKey: "key"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecognizer{text: "FT99999ZZZZZ"}
			factoryCalls := 0
			d := newTestDetector(rec, &factoryCalls)

			res, err := d.Detect(context.Background(), qrPNG(t, "FT24016ABCDE"), tt.cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res == nil {
				t.Fatal("expected a detection result, got nil")
			}
			if res.Value != "FT24016ABCDE" {
				t.Errorf("value: got %q, want %q", res.Value, "FT24016ABCDE")
			}
			if res.DetectedFrom != models.SourceQRCode {
				t.Errorf("source: got %q, want %q", res.DetectedFrom, models.SourceQRCode)
			}
			if res.TimeTaken < 0 {
				t.Errorf("negative time taken: %v", res.TimeTaken)
			}
			if factoryCalls != 0 || rec.calls != 0 {
				t.Errorf("OCR should not run after a QR hit (factory=%d, calls=%d)", factoryCalls, rec.calls)
			}
		})
	}
}

func TestDetect_NoQRNoKeyIsAbsent(t *testing.T) {
	factoryCalls := 0
	d := newTestDetector(&fakeRecognizer{}, &factoryCalls)

	res, err := d.Detect(context.Background(), blankPNG(t), Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Errorf("expected absence, got %+v", res)
	}
	if factoryCalls != 0 {
		t.Errorf("OCR must be skipped without a key, factory called %d times", factoryCalls)
	}
}

func TestDetect_FallsBackToText(t *testing.T) {
	rec := &fakeRecognizer{text: "Transaction completed\nRef: FT24016ABCDE\nThank you"}
	factoryCalls := 0
	d := newTestDetector(rec, &factoryCalls)

	res, err := d.Detect(context.Background(), blankPNG(t), Config{OCRAPIKey: "key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil {
		t.Fatal("expected a detection result, got nil")
	}
	if res.Value != "FT24016ABCDE" {
		t.Errorf("value: got %q", res.Value)
	}
	if res.DetectedFrom != models.SourceTextRecognition {
		t.Errorf("source: got %q", res.DetectedFrom)
	}
	if rec.calls != 1 {
		t.Errorf("expected exactly one OCR call, got %d", rec.calls)
	}
}

func TestDetect_TextWithoutID(t *testing.T) {
	rec := &fakeRecognizer{text: "Happy birthday"}
	factoryCalls := 0
	d := newTestDetector(rec, &factoryCalls)

	res, err := d.Detect(context.Background(), blankPNG(t), Config{OCRAPIKey: "key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Errorf("expected absence, got %+v", res)
	}
}

func TestDetect_OCRError(t *testing.T) {
	rec := &fakeRecognizer{err: errors.New("quota exceeded")}
	factoryCalls := 0
	d := newTestDetector(rec, &factoryCalls)

	_, err := d.Detect(context.Background(), blankPNG(t), Config{OCRAPIKey: "key"})
	if err == nil {
		t.Fatal("expected the OCR error to surface")
	}
}

func TestDetect_QRWithoutIDFallsThrough(t *testing.T) {
	rec := &fakeRecognizer{text: "FT24016ABCDE"}
	factoryCalls := 0
	d := newTestDetector(rec, &factoryCalls)

	res, err := d.Detect(context.Background(), qrPNG(t, "https://example.com/promo"), Config{OCRAPIKey: "key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil || res.DetectedFrom != models.SourceTextRecognition {
		t.Errorf("expected a text recognition result, got %+v", res)
	}
}

func TestDetect_UnsupportedImage(t *testing.T) {
	factoryCalls := 0
	d := newTestDetector(&fakeRecognizer{}, &factoryCalls)

	_, err := d.Detect(context.Background(), []byte("definitely not an image"), Config{})
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("got %v, want ErrUnsupportedImage", err)
	}
}

func TestDetect_CancelledContext(t *testing.T) {
	factoryCalls := 0
	d := newTestDetector(&fakeRecognizer{}, &factoryCalls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Detect(ctx, blankPNG(t), Config{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestNormalize(t *testing.T) {
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, blankImage(64, 32), nil); err != nil {
		t.Fatalf("encode JPEG: %v", err)
	}

	r, err := Normalize(jpg.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Width != 64 || r.Height != 32 {
		t.Errorf("size: got %dx%d, want 64x32", r.Width, r.Height)
	}
	if r.Format != "jpeg" {
		t.Errorf("format: got %q", r.Format)
	}
	if len(r.Pixels.Pix) != 64*32*4 {
		t.Errorf("pixel buffer: got %d bytes", len(r.Pixels.Pix))
	}
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		w, h, limit  int
		wantW, wantH int
	}{
		{100, 50, 2048, 100, 50},
		{4096, 2048, 2048, 2048, 1024},
		{1000, 4000, 2048, 512, 2048},
		{5000, 1, 2048, 2048, 1},
	}

	for _, tt := range tests {
		gotW, gotH := scaledSize(tt.w, tt.h, tt.limit)
		if gotW != tt.wantW || gotH != tt.wantH {
			t.Errorf("scaledSize(%d, %d, %d): got %dx%d, want %dx%d",
				tt.w, tt.h, tt.limit, gotW, gotH, tt.wantW, tt.wantH)
		}
	}
}
