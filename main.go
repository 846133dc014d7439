package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/txn-verifier/internal/api"
	"github.com/insightdelivered/txn-verifier/internal/config"
	"github.com/insightdelivered/txn-verifier/internal/detector"
	"github.com/insightdelivered/txn-verifier/internal/log"
	"github.com/insightdelivered/txn-verifier/internal/models"
	"github.com/insightdelivered/txn-verifier/internal/ocr"
	"github.com/insightdelivered/txn-verifier/internal/verifier"
	"github.com/insightdelivered/txn-verifier/internal/writer"
)

const version = api.Version

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func usage() {
	fmt.Fprintf(os.Stderr, `CBE Transaction Verifier
by Insight Delivered

Finds the transaction id on a payment screenshot and verifies it against
the bank's published confirmation document.

Usage:
  txn-verifier <command> [flags]

Commands:
  serve     Run the HTTP API
  detect    Detect a transaction id in an image file
  verify    Verify a transaction id against an account number
  version   Print version and exit

Examples:
  txn-verifier detect receipt.png
  txn-verifier detect --ocr-key=$OCR_API_KEY screenshot.jpg
  txn-verifier verify --txn=FT24016ABCDE --account=1000123456789
  txn-verifier verify --txn=FT24016ABCDE --account=1000123456789 --format=csv --output=txn.csv
  txn-verifier serve

Configuration is read from the environment and an optional .env file.
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("Configuration error: %v\n", err)
	}
	logger := log.NewLogger(log.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	args := os.Args[2:]
	switch os.Args[1] {
	case "serve":
		err = runServe(cfg, logger, args)
	case "detect":
		err = runDetect(cfg, logger, args)
	case "verify":
		err = runVerify(cfg, logger, args)
	case "version", "-version", "--version":
		fmt.Printf("txn-verifier v%s\n", version)
	case "help", "-h", "-help", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fatalf("Error: %v\n", err)
	}
}

func newVerifier(cfg *config.Config, logger *logrus.Logger) *verifier.Verifier {
	return verifier.New(logger,
		verifier.WithBaseURL(cfg.VerifyBaseURL),
		verifier.WithHTTPClient(&http.Client{Timeout: cfg.VerifyHTTPTimeout}),
	)
}

func detectConfig(cfg *config.Config, apiKey string) detector.Config {
	return detector.Config{
		OCRAPIKey:   apiKey,
		OCRProvider: cfg.OCRProvider,
		GeminiModel: cfg.GeminiModel,
	}
}

func runServe(cfg *config.Config, logger *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.String("port", cfg.Port, "Port to listen on")
	fs.Parse(args)

	app := config.NewFiber(cfg.MaxUploadBytes)
	api.New(logger, detector.New(logger), newVerifier(cfg, logger), api.Options{
		Detect:         detectConfig(cfg, cfg.OCRAPIKey),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}).RegisterRoutes(app)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{
			"port":       *port,
			"ocr":        cfg.OCRAPIKey != "",
			"provider":   cfg.OCRProvider,
			"verify_url": cfg.VerifyBaseURL,
		}).Info("starting server")
		errCh <- app.Listen(":" + *port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

func runDetect(cfg *config.Config, logger *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	ocrKey := fs.String("ocr-key", cfg.OCRAPIKey, "OCR API key (text recognition is skipped when empty)")
	provider := fs.String("ocr-provider", string(cfg.OCRProvider), "OCR provider: vision or gemini")
	fs.Parse(args)

	if fs.NArg() == 0 {
		return fmt.Errorf("detect needs an image path")
	}

	dc := detectConfig(cfg, *ocrKey)
	dc.OCRProvider = ocr.Provider(*provider)

	det := detector.New(logger)
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		result, err := det.Detect(context.Background(), data, dc)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		if result == nil {
			fmt.Printf("%s: no transaction id found\n", path)
			continue
		}
		fmt.Printf("%s: %s (from %s, %dms)\n", path, result.Value, result.DetectedFrom, result.TimeTaken.Milliseconds())
	}
	return nil
}

func runVerify(cfg *config.Config, logger *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	txn := fs.String("txn", "", "Transaction id (FT followed by 10 characters)")
	account := fs.String("account", "", "Account number (1000 followed by 9 digits)")
	baseURL := fs.String("base-url", "", "Override the confirmation document endpoint")
	format := fs.String("format", "json", "Output format: json or csv")
	output := fs.String("output", "", "Write output to this file instead of stdout (csv only)")
	fullText := fs.Bool("full-text", false, "Include the document text in CSV output")
	fs.Parse(args)

	if *format != "json" && *format != "csv" {
		return fmt.Errorf("unknown format %q, use json or csv", *format)
	}

	result := newVerifier(cfg, logger).Verify(context.Background(), verifier.Request{
		TransactionID: *txn,
		AccountNumber: *account,
		BaseURL:       *baseURL,
	})
	if !result.OK() {
		return result.Failure
	}

	switch *format {
	case "csv":
		w := &writer.CSVWriter{IncludeHeader: true, IncludeFullText: *fullText}
		records := []models.TransactionRecord{*result.Record}
		if *output != "" {
			if err := w.WriteToFile(*output, records); err != nil {
				return fmt.Errorf("CSV write failed: %w", err)
			}
			fmt.Printf("Output: %s\n", *output)
			return nil
		}
		return w.Write(os.Stdout, records)
	default:
		out, err := json.MarshalIndent(result.Record, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}
	return nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
