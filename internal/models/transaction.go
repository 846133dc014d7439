package models

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DetectionSource records which strategy recovered a transaction id from an image.
type DetectionSource string

const (
	SourceQRCode          DetectionSource = "QR_CODE"
	SourceTextRecognition DetectionSource = "TEXT_RECOGNITION"
)

// DetectionResult is a transaction id found in a payment-confirmation image.
type DetectionResult struct {
	Value        string          `json:"value"`
	DetectedFrom DetectionSource `json:"detectedFrom"`
	TimeTaken    time.Duration   `json:"-"`
}

type detectionJSON struct {
	Value        string          `json:"value"`
	DetectedFrom DetectionSource `json:"detectedFrom"`
	TimeTakenMs  int64           `json:"timeTakenMs"`
}

// MarshalJSON renders TimeTaken as whole milliseconds under "timeTakenMs".
func (r DetectionResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(detectionJSON{
		Value:        r.Value,
		DetectedFrom: r.DetectedFrom,
		TimeTakenMs:  r.TimeTaken.Milliseconds(),
	})
}

func (r *DetectionResult) UnmarshalJSON(data []byte) error {
	var v detectionJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	r.Value = v.Value
	r.DetectedFrom = v.DetectedFrom
	r.TimeTaken = time.Duration(v.TimeTakenMs) * time.Millisecond
	return nil
}

// TransactionRecord holds the fields parsed from a confirmation document.
// A nil field means its pattern did not match.
type TransactionRecord struct {
	FullText        string   `json:"fullText"`
	Amount          *float64 `json:"amount,omitempty"`
	Payer           *string  `json:"payer,omitempty"`
	Receiver        *string  `json:"receiver,omitempty"`
	Reference       *string  `json:"reference,omitempty"`
	PayerAccount    *string  `json:"payerAccount,omitempty"`
	ReceiverAccount *string  `json:"receiverAccount,omitempty"`
	Reason          *string  `json:"reason,omitempty"`
	Date            *string  `json:"date,omitempty"`
}

// FailureType enumerates the ways a verification can fail.
type FailureType string

const (
	FailureInvalidTransactionID FailureType = "INVALID_TRANSACTION_ID"
	FailureInvalidAccountNo     FailureType = "INVALID_ACCOUNT_NO"
	FailureTransactionNotFound  FailureType = "TRANSACTION_NOT_FOUND"
	FailureAPIRequestFailed     FailureType = "API_REQUEST_FAILED"
)

// VerifyFailure is the single reason a verification did not produce a record.
// Message is only set for FailureAPIRequestFailed.
type VerifyFailure struct {
	Type    FailureType `json:"type"`
	Message string      `json:"message,omitempty"`
}

func (f *VerifyFailure) Error() string {
	if f.Message != "" {
		return fmt.Sprintf("%s: %s", f.Type, f.Message)
	}
	return string(f.Type)
}

func InvalidTransactionID() *VerifyFailure {
	return &VerifyFailure{Type: FailureInvalidTransactionID}
}

func InvalidAccountNo() *VerifyFailure {
	return &VerifyFailure{Type: FailureInvalidAccountNo}
}

func TransactionNotFound() *VerifyFailure {
	return &VerifyFailure{Type: FailureTransactionNotFound}
}

func APIRequestFailed(message string) *VerifyFailure {
	return &VerifyFailure{Type: FailureAPIRequestFailed, Message: message}
}
