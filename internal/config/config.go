package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/insightdelivered/txn-verifier/internal/ocr"
)

const defaultVerifyBaseURL = "https://apps.cbe.com.et:100"

type Config struct {
	Port string

	VerifyBaseURL     string
	VerifyHTTPTimeout time.Duration

	OCRAPIKey   string
	OCRProvider ocr.Provider
	GeminiModel string

	RateLimitRPS   float64
	RateLimitBurst int
	MaxUploadBytes int

	LogLevel string
	LogFile  string
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	timeout, err := durationEnv("VERIFY_HTTP_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	rps, err := floatEnv("RATE_LIMIT_RPS", 5)
	if err != nil {
		return nil, err
	}
	burst, err := intEnv("RATE_LIMIT_BURST", 10)
	if err != nil {
		return nil, err
	}
	maxUploadMB, err := intEnv("MAX_UPLOAD_MB", 10)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:              stringEnv("APP_PORT", "3000"),
		VerifyBaseURL:     stringEnv("VERIFY_BASE_URL", defaultVerifyBaseURL),
		VerifyHTTPTimeout: timeout,
		OCRAPIKey:         os.Getenv("OCR_API_KEY"),
		OCRProvider:       ocr.Provider(stringEnv("OCR_PROVIDER", string(ocr.ProviderVision))),
		GeminiModel:       os.Getenv("GEMINI_MODEL_NAME"),
		RateLimitRPS:      rps,
		RateLimitBurst:    burst,
		MaxUploadBytes:    maxUploadMB << 20,
		LogLevel:          stringEnv("LOG_LEVEL", "info"),
		LogFile:           os.Getenv("LOG_FILE"),
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}
