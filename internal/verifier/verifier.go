// Package verifier checks a transaction id against the bank's published
// confirmation document and extracts its fields.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/txn-verifier/internal/extractor"
	"github.com/insightdelivered/txn-verifier/internal/models"
	"github.com/insightdelivered/txn-verifier/internal/parser"
)

var (
	transactionIDPattern = regexp.MustCompile(`^FT\w{10}$`)
	accountNoPattern     = regexp.MustCompile(`^1000\d{9}$`)
)

// accountSuffixStart is where the account digits used in the lookup key begin.
const accountSuffixStart = 5

// Request identifies the transaction to verify. BaseURL overrides the
// verifier's default confirmation endpoint when set.
type Request struct {
	TransactionID string
	AccountNumber string
	BaseURL       string
}

// Result holds exactly one of Record or Failure.
type Result struct {
	Record  *models.TransactionRecord
	Failure *models.VerifyFailure
}

func (r Result) OK() bool {
	return r.Failure == nil
}

func success(rec models.TransactionRecord) Result {
	return Result{Record: &rec}
}

func failure(f *models.VerifyFailure) Result {
	return Result{Failure: f}
}

type Verifier struct {
	log     *logrus.Logger
	client  *http.Client
	reader  extractor.DocumentReader
	baseURL string
}

type Option func(*Verifier)

// WithHTTPClient sets the client used to fetch documents. Its Timeout is the
// only deadline the pipeline applies.
func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) {
		v.client = c
	}
}

func WithDocumentReader(r extractor.DocumentReader) Option {
	return func(v *Verifier) {
		v.reader = r
	}
}

func WithBaseURL(baseURL string) Option {
	return func(v *Verifier) {
		v.baseURL = baseURL
	}
}

func New(log *logrus.Logger, opts ...Option) *Verifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	v := &Verifier{
		log:    log,
		client: &http.Client{Timeout: 15 * time.Second},
		reader: extractor.PDFReader{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateTransactionID checks the FT + 10 word-character shape.
func ValidateTransactionID(id string) (string, *models.VerifyFailure) {
	if !transactionIDPattern.MatchString(id) {
		return "", models.InvalidTransactionID()
	}
	return id, nil
}

// ValidateAccountNumber checks the 1000 + 9 digit shape.
func ValidateAccountNumber(accountNo string) (string, *models.VerifyFailure) {
	if !accountNoPattern.MatchString(accountNo) {
		return "", models.InvalidAccountNo()
	}
	return accountNo, nil
}

// LookupKey joins a validated transaction id with the account number digits
// from position 5 onward.
func LookupKey(transactionID, accountNo string) string {
	return transactionID + accountNo[accountSuffixStart:]
}

// Verify runs the pipeline, stopping at the first failure. Input validation
// happens before any network call. There are no retries.
func (v *Verifier) Verify(ctx context.Context, req Request) Result {
	txnID, f := ValidateTransactionID(req.TransactionID)
	if f != nil {
		return failure(f)
	}
	accountNo, f := ValidateAccountNumber(req.AccountNumber)
	if f != nil {
		return failure(f)
	}

	baseURL := req.BaseURL
	if baseURL == "" {
		baseURL = v.baseURL
	}
	if baseURL == "" {
		return failure(models.APIRequestFailed("verification base URL is not configured"))
	}

	key := LookupKey(txnID, accountNo)
	docURL := strings.TrimRight(baseURL, "/") + "/" + key

	fields := logrus.Fields{
		"transaction_id": txnID,
		"lookup_key":     key,
	}
	start := time.Now()

	data, err := v.fetchDocument(ctx, docURL)
	if err != nil {
		f := classifyFetchError(err)
		fields["error"] = err.Error()
		fields["failure"] = f.Type
		v.log.WithFields(fields).Warn("confirmation document fetch failed")
		return failure(f)
	}

	text, err := v.reader.ReadText(data)
	if err != nil {
		fields["error"] = err.Error()
		fields["document_size"] = len(data)
		v.log.WithFields(fields).Warn("confirmation document could not be read")
		return failure(models.APIRequestFailed(fmt.Sprintf("failed to read confirmation document: %v", err)))
	}

	rec := parser.Extract(text)

	fields["elapsed_ms"] = time.Since(start).Milliseconds()
	fields["has_amount"] = rec.Amount != nil
	fields["has_reference"] = rec.Reference != nil
	v.log.WithFields(fields).Info("transaction verified")

	return success(rec)
}

// classifyFetchError separates "the bank answered with an error status" from
// "no answer at all".
func classifyFetchError(err error) *models.VerifyFailure {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return models.TransactionNotFound()
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return models.APIRequestFailed(urlErr.Error())
	}

	return models.APIRequestFailed(fmt.Sprintf("Unknown error: %v", err))
}
