package api

import (
	"errors"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/txn-verifier/internal/detector"
	"github.com/insightdelivered/txn-verifier/internal/log"
	"github.com/insightdelivered/txn-verifier/internal/models"
	"github.com/insightdelivered/txn-verifier/internal/verifier"
)

const Version = "2.0.0"

// VerifyRequest is the JSON body of /api/verify.
type VerifyRequest struct {
	TransactionID string `json:"transactionId" validate:"required,max=64"`
	AccountNumber string `json:"accountNumber" validate:"required,max=32"`
}

// Options configure the handler's collaborators.
type Options struct {
	Detect         detector.Config
	RateLimitRPS   float64
	RateLimitBurst int
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	log       *logrus.Logger
	validator *validator.Validate
	detector  *detector.Detector
	verifier  *verifier.Verifier
	detectCfg detector.Config
	limiter   *rateLimiter
}

func New(logger *logrus.Logger, det *detector.Detector, ver *verifier.Verifier, opts Options) *Handler {
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 5
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 10
	}
	return &Handler{
		log:       logger,
		validator: validator.New(),
		detector:  det,
		verifier:  ver,
		detectCfg: opts.Detect,
		limiter:   newRateLimiter(logger, opts.RateLimitRPS, opts.RateLimitBurst),
	}
}

// RegisterRoutes sets up middleware and the /api routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Use(recoverer(h.log), requestID(), requestLogger(h.log))

	api := app.Group("/api")
	api.Get("/health", h.HandleHealth)
	api.Post("/detect", h.limiter.handle, h.HandleDetect)
	api.Post("/verify", h.limiter.handle, h.HandleVerify)
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Engine:  "fiber",
		Version: Version,
	})
}

// HandleDetect reads the multipart field "image" and looks for a transaction id in it.
func (h *Handler) HandleDetect(c *fiber.Ctx) error {
	reqID := getRequestID(c)

	header, err := c.FormFile("image")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, ErrorBody{
			Type:    "VALIDATION_ERROR",
			Message: "no image uploaded, use form field 'image'",
		})
	}

	file, err := header.Open()
	if err != nil {
		return h.internalError(c, reqID, err, "open_upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return h.internalError(c, reqID, err, "read_upload")
	}

	h.log.WithFields(log.Fields{
		"request_id": reqID,
		"filename":   header.Filename,
		"size":       len(data),
	}).Debug("processing detect request")

	result, err := h.detector.Detect(c.UserContext(), data, h.detectCfg)
	if err != nil {
		if errors.Is(err, detector.ErrUnsupportedImage) {
			h.log.WithFields(log.Fields{
				"request_id": reqID,
				"error":      err.Error(),
			}).Warn("unsupported image upload")
			return writeError(c, fiber.StatusBadRequest, ErrorBody{
				Type:    "UNSUPPORTED_IMAGE",
				Message: err.Error(),
			})
		}
		traceID := log.ErrorWithTraceID(h.log, log.Fields{
			"request_id": reqID,
			"error":      err.Error(),
			"operation":  "detect",
		}, "detection failed")
		return writeError(c, fiber.StatusBadGateway, ErrorBody{
			Type:    "DETECTION_FAILED",
			Message: err.Error(),
			TraceID: traceID,
		})
	}

	return c.JSON(DetectResponse{
		Success:   true,
		Found:     result != nil,
		Detection: result,
	})
}

func (h *Handler) HandleVerify(c *fiber.Ctx) error {
	reqID := getRequestID(c)

	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		h.log.WithFields(log.Fields{
			"request_id": reqID,
			"error":      err.Error(),
		}).Warn("invalid request body")
		return writeError(c, fiber.StatusBadRequest, ErrorBody{
			Type:    "VALIDATION_ERROR",
			Message: "invalid request body",
		})
	}

	if err := h.validator.Struct(req); err != nil {
		h.log.WithFields(log.Fields{
			"request_id": reqID,
			"error":      err.Error(),
		}).Warn("validation failed")
		return writeError(c, fiber.StatusBadRequest, ErrorBody{
			Type:    "VALIDATION_ERROR",
			Message: "Validation failed: " + err.Error(),
		})
	}

	result := h.verifier.Verify(c.UserContext(), verifier.Request{
		TransactionID: req.TransactionID,
		AccountNumber: req.AccountNumber,
	})
	if !result.OK() {
		return h.verifyFailure(c, reqID, result.Failure)
	}

	return c.JSON(VerifyResponse{Success: true, Record: result.Record})
}

func (h *Handler) verifyFailure(c *fiber.Ctx, reqID string, f *models.VerifyFailure) error {
	status := failureStatus(f.Type)
	body := ErrorBody{Type: string(f.Type), Message: f.Message}

	fields := log.Fields{
		"request_id": reqID,
		"failure":    f.Type,
	}
	if status >= fiber.StatusInternalServerError {
		fields["error"] = f.Message
		body.TraceID = log.ErrorWithTraceID(h.log, fields, "verification request failed")
	} else {
		h.log.WithFields(fields).Info("verification rejected")
	}

	return writeError(c, status, body)
}

func (h *Handler) internalError(c *fiber.Ctx, reqID string, err error, operation string) error {
	traceID := log.ErrorWithTraceID(h.log, log.Fields{
		"request_id": reqID,
		"error":      err.Error(),
		"path":       c.Path(),
		"operation":  operation,
	}, "request failed")
	return writeError(c, fiber.StatusInternalServerError, ErrorBody{
		Type:    "INTERNAL_ERROR",
		Message: "internal server error",
		TraceID: traceID,
	})
}
