package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/insightdelivered/txn-verifier/internal/models"
)

// CSVWriter writes verified transaction records to CSV format.
type CSVWriter struct {
	IncludeHeader bool
	// IncludeFullText appends the raw document text as a last column.
	IncludeFullText bool
}

// WriteToFile writes records to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, records []models.TransactionRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, records)
}

// Write writes records in CSV format to the given writer. Absent fields are
// written as empty cells.
func (w *CSVWriter) Write(out io.Writer, records []models.TransactionRecord) error {
	writer := csv.NewWriter(out)

	if w.IncludeHeader {
		header := []string{"Reference", "Date", "Payer", "Payer Account", "Receiver", "Receiver Account", "Amount", "Reason"}
		if w.IncludeFullText {
			header = append(header, "Full Text")
		}
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}

	for _, rec := range records {
		row := []string{
			str(rec.Reference),
			str(rec.Date),
			str(rec.Payer),
			str(rec.PayerAccount),
			str(rec.Receiver),
			str(rec.ReceiverAccount),
			formatAmount(rec.Amount),
			str(rec.Reason),
		}
		if w.IncludeFullText {
			row = append(row, rec.FullText)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatAmount(amount *float64) string {
	if amount == nil {
		return ""
	}
	return strconv.FormatFloat(*amount, 'f', 2, 64)
}
