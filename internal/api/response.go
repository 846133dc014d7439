package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/insightdelivered/txn-verifier/internal/models"
)

type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	TraceID string `json:"traceId,omitempty"`
}

type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// DetectResponse is returned by /api/detect. Detection is nil when the image
// holds no transaction id.
type DetectResponse struct {
	Success   bool                    `json:"success"`
	Found     bool                    `json:"found"`
	Detection *models.DetectionResult `json:"detection,omitempty"`
}

type VerifyResponse struct {
	Success bool                      `json:"success"`
	Record  *models.TransactionRecord `json:"record"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Engine  string `json:"engine"`
	Version string `json:"version"`
}

func writeError(c *fiber.Ctx, status int, body ErrorBody) error {
	return c.Status(status).JSON(ErrorResponse{Success: false, Error: body})
}

// failureStatus maps a verification failure onto an HTTP status.
func failureStatus(t models.FailureType) int {
	switch t {
	case models.FailureInvalidTransactionID, models.FailureInvalidAccountNo:
		return fiber.StatusBadRequest
	case models.FailureTransactionNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusBadGateway
	}
}
