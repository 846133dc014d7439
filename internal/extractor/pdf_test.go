package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/insightdelivered/txn-verifier/internal/parser"
)

func TestPDFReader_RejectsNonPDF(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("<html>not found</html>"),
		[]byte("PK\x03\x04 zip archive"),
	}

	for _, in := range inputs {
		_, err := PDFReader{DisablePdftotext: true}.ReadText(in)
		if !errors.Is(err, ErrNotPDF) {
			t.Errorf("ReadText(%q): got %v, want ErrNotPDF", in, err)
		}
	}
}

func TestPDFReader_MalformedPDF(t *testing.T) {
	_, err := PDFReader{DisablePdftotext: true}.ReadText([]byte("%PDF-1.4\nthis is not a real document"))
	if err == nil {
		t.Fatal("expected an error for a truncated PDF")
	}
}

func TestIsReadableText(t *testing.T) {
	tests := []struct {
		name     string
		pages    []string
		expected bool
	}{
		{"receipt text", []string{"Payer ABEBE KEBEDE ALEMU Account 1****234 Reference No. FT24016ABCDE"}, true},
		{"too short", []string{"Payer"}, false},
		{"no receipt words", []string{"lorem ipsum dolor sit amet consectetur adipiscing"}, false},
		{"binary garbage", []string{strings.Repeat("éüÿ", 30) + " account"}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isReadableText(tt.pages); got != tt.expected {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTextQuality(t *testing.T) {
	if q := textQuality([]string{"plain ascii"}); q != 1 {
		t.Errorf("got %f, want 1", q)
	}
	if q := textQuality(nil); q != 0 {
		t.Errorf("got %f, want 0", q)
	}
}

// buildPDF writes a single-page Helvetica document with one text line per entry.
func buildPDF(t *testing.T, lines []string) []byte {
	t.Helper()

	var content strings.Builder
	content.WriteString("BT\n/F1 12 Tf\n")
	y := 760
	for _, line := range lines {
		fmt.Fprintf(&content, "1 0 0 1 72 %d Tm\n(%s) Tj\n", y, line)
		y -= 20
	}
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func TestPDFReader_ReadsReceipt(t *testing.T) {
	doc := buildPDF(t, []string{
		"Payer ABEBE KEBEDE ALEMU",
		"Account 1****234",
		"Reference No. FT24016ABCDE",
		"Transferred Amount 3,500.00 ETB",
	})

	text, err := PDFReader{DisablePdftotext: true}.ReadText(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"Payer ABEBE KEBEDE ALEMU", "Reference No. FT24016ABCDE", "3,500.00 ETB"} {
		if !strings.Contains(text, want) {
			t.Errorf("extracted text missing %q:\n%s", want, text)
		}
	}

	rec := parser.Extract(text)
	if rec.Payer == nil || *rec.Payer != "ABEBE KEBEDE ALEMU" {
		t.Errorf("payer: got %v", rec.Payer)
	}
	if rec.PayerAccount == nil || *rec.PayerAccount != "1****234" {
		t.Errorf("payer account: got %v", rec.PayerAccount)
	}
	if rec.Reference == nil || *rec.Reference != "FT24016ABCDE" {
		t.Errorf("reference: got %v", rec.Reference)
	}
	if rec.Amount == nil || *rec.Amount != 3500 {
		t.Errorf("amount: got %v", rec.Amount)
	}
}

func TestPDFReader_RowsKeepPageOrder(t *testing.T) {
	doc := buildPDF(t, []string{"Payer ABEBE KEBEDE ALEMU", "Reason rent"})

	text, err := PDFReader{DisablePdftotext: true}.ReadText(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Index(text, "Payer") > strings.Index(text, "Reason") {
		t.Errorf("rows out of order:\n%s", text)
	}
}
