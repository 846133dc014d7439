package ocr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

const transcribePrompt = `Transcribe every piece of text visible in this image exactly as written,
one line per visual line. Respond with the transcription only. If there is no text, respond with an empty message.`

// GeminiRecognizer transcribes image text with a Gemini multimodal model.
type GeminiRecognizer struct {
	client    *genai.Client
	modelName string
}

func NewGemini(ctx context.Context, apiKey, modelName string) (*GeminiRecognizer, error) {
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiRecognizer{client: client, modelName: modelName}, nil
}

func (g *GeminiRecognizer) RecognizeText(ctx context.Context, image []byte) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(0)

	res, err := model.GenerateContent(ctx, genai.Text(transcribePrompt), genai.ImageData(imageFormat(image), image))
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}

	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return "", errors.New("no response from Gemini API")
	}

	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func (g *GeminiRecognizer) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// imageFormat returns the subtype genai.ImageData expects, e.g. "png".
func imageFormat(image []byte) string {
	ct := http.DetectContentType(image)
	if format, ok := strings.CutPrefix(ct, "image/"); ok {
		return format
	}
	return "jpeg"
}
