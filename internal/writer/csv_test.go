package writer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/insightdelivered/txn-verifier/internal/models"
)

func ptr[T any](v T) *T {
	return &v
}

func TestCSVWriter_Write(t *testing.T) {
	records := []models.TransactionRecord{
		{
			FullText:        "Payer ABEBE KEBEDE ALEMU ...",
			Amount:          ptr(3500.0),
			Payer:           ptr("ABEBE KEBEDE ALEMU"),
			PayerAccount:    ptr("1****234"),
			Receiver:        ptr("TSEGAYE HAILE MARIAM"),
			ReceiverAccount: ptr("1****678"),
			Reference:       ptr("FT24016ABCDE"),
			Reason:          ptr("Rent"),
			Date:            ptr("January 16 2024"),
		},
		{FullText: "unreadable"},
	}

	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: true}
	if err := w.Write(&buf, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "Reference,Date,Payer,Payer Account,Receiver,Receiver Account,Amount,Reason") {
		t.Error("expected column headers")
	}
	if !strings.Contains(output, "FT24016ABCDE,January 16 2024,ABEBE KEBEDE ALEMU,1****234,TSEGAYE HAILE MARIAM,1****678,3500.00,Rent") {
		t.Errorf("unexpected first row in:\n%s", output)
	}
	if strings.Contains(output, "unreadable") {
		t.Error("full text should be omitted by default")
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	// 1 header + 2 records
	if len(lines) != 3 {
		t.Errorf("expected 3 lines, got %d", len(lines))
	}
	if lines[2] != ",,,,,,," {
		t.Errorf("absent fields should be empty cells, got %q", lines[2])
	}
}

func TestCSVWriter_WriteNoHeaderWithFullText(t *testing.T) {
	records := []models.TransactionRecord{
		{FullText: "line one\nline two", Reference: ptr("FT24016ABCDE")},
	}

	var buf bytes.Buffer
	w := &CSVWriter{IncludeFullText: true}
	if err := w.Write(&buf, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "Reference,") {
		t.Error("should not have a header row when IncludeHeader=false")
	}
	if !strings.Contains(output, "\"line one\nline two\"") {
		t.Errorf("multi-line full text should be quoted, got %q", output)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		input    *float64
		expected string
	}{
		{ptr(25.99), "25.99"},
		{ptr(1234.5), "1234.50"},
		{ptr(0.0), "0.00"},
		{nil, ""},
	}

	for _, tt := range tests {
		got := formatAmount(tt.input)
		if got != tt.expected {
			t.Errorf("formatAmount(%v): got %q, want %q", tt.input, got, tt.expected)
		}
	}
}
