package ocr

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// textDetection requests a full-text annotation of the whole image.
const textDetection = "TEXT_DETECTION"

// VisionRecognizer calls the Google Cloud Vision images:annotate endpoint.
type VisionRecognizer struct {
	svc *vision.Service
}

// NewVision creates a Vision client authenticated with an API key. Extra
// client options are appended, which lets tests point it at a local server.
func NewVision(ctx context.Context, apiKey string, opts ...option.ClientOption) (*VisionRecognizer, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &VisionRecognizer{svc: svc}, nil
}

func (v *VisionRecognizer) RecognizeText(ctx context.Context, image []byte) (string, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*vision.Feature{{Type: textDetection}},
		}},
	}

	resp, err := v.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("vision annotate failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}

	res := resp.Responses[0]
	if res.Error != nil && res.Error.Code != 0 {
		return "", fmt.Errorf("vision annotate failed: %s (code %d)", res.Error.Message, res.Error.Code)
	}
	if res.FullTextAnnotation == nil {
		return "", nil
	}
	return res.FullTextAnnotation.Text, nil
}
