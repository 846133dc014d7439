package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// ErrNotPDF is returned when the document does not start with a PDF header.
var ErrNotPDF = errors.New("document is not a PDF")

// DocumentReader converts a fetched confirmation document to plain text.
type DocumentReader interface {
	ReadText(data []byte) (string, error)
}

// PDFReader reads confirmation documents rendered as PDF.
type PDFReader struct {
	// DisablePdftotext skips the poppler-utils fallback.
	DisablePdftotext bool
}

// ReadText returns the text of every page joined by newlines.
func (r PDFReader) ReadText(data []byte) (string, error) {
	pages, err := r.extract(data)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n"), nil
}

// extract tries the structured library first and falls back to the external
// pdftotext command when the library fails or returns unreadable text.
func (r PDFReader) extract(data []byte) ([]string, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\r\n\t "), []byte("%PDF-")) {
		return nil, ErrNotPDF
	}

	pages, libErr := extractWithLibrary(data)
	if libErr == nil && isReadableText(pages) {
		return pages, nil
	}

	if !r.DisablePdftotext {
		popplerPages, popplerErr := extractWithPdftotext(data)
		if popplerErr == nil && isReadableText(popplerPages) {
			return popplerPages, nil
		}
	}

	if libErr != nil {
		return nil, fmt.Errorf("PDF text extraction failed: %w", libErr)
	}
	// The library produced something; hand it back rather than nothing so the
	// field extractor can still try its patterns.
	if totalTextLen(pages) > 0 {
		return pages, nil
	}
	return nil, fmt.Errorf("no readable text could be extracted from PDF")
}

// textQuality returns the ratio of plain ASCII characters to total characters.
func textQuality(pages []string) float64 {
	total := 0
	readable := 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if r < unicode.MaxASCII && (unicode.IsPrint(r) || unicode.IsSpace(r)) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// receiptWords appear on every bank confirmation document.
var receiptWords = []string{
	"payer", "receiver", "amount", "reference", "payment",
	"transaction", "account", "etb", "bank", "date", "reason",
}

func containsReceiptWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range receiptWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// isReadableText requires more than 20 characters, mostly ASCII, and at least
// one word expected on a confirmation document.
func isReadableText(pages []string) bool {
	if totalTextLen(pages) <= 20 {
		return false
	}
	if textQuality(pages) <= 0.6 {
		return false
	}
	return containsReceiptWords(pages)
}

// extractWithPdftotext shells out to poppler-utils. The document is written to
// a temp file because pdftotext does not read from stdin on every platform.
func extractWithPdftotext(data []byte) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	tmp, err := os.CreateTemp("", "confirmation-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.Command("pdftotext", "-layout", tmp.Name(), "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	var pages []string
	// pdftotext separates pages with form feeds
	for _, page := range strings.Split(string(out), "\f") {
		page = strings.TrimSpace(page)
		if page != "" {
			pages = append(pages, page)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("pdftotext produced no output")
	}
	return pages, nil
}

// extractWithLibrary uses the ledongthuc/pdf library with several methods,
// returning the first readable result.
func extractWithLibrary(data []byte) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("PDF library crashed: %v", rec)
		}
	}()

	r, openErr := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if openErr != nil {
		return nil, openErr
	}

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	pages = extractByRow(r, numPages)
	if isReadableText(pages) {
		return pages, nil
	}

	pages = extractByContent(r, numPages)
	if isReadableText(pages) {
		return pages, nil
	}

	plainText := extractByReaderPlainText(r)
	if isReadableText([]string{plainText}) {
		return []string{plainText}, nil
	}

	return pages, nil
}

// extractByRow joins the words of each text row with single spaces, which is
// the "Label value" layout the field patterns expect.
func extractByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				if s := strings.TrimSpace(word.S); s != "" {
					parts = append(parts, s)
				}
			}
			if line := strings.Join(parts, " "); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// extractByContent groups text pieces by Y coordinate to rebuild rows, then
// orders each row by X.
func extractByContent(r *pdf.Reader, numPages int) []string {
	type textItem struct {
		x float64
		s string
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		if len(content.Text) == 0 {
			continue
		}

		rowMap := make(map[int][]textItem)
		for _, t := range content.Text {
			yKey := int(math.Round(t.Y))
			rowMap[yKey] = append(rowMap[yKey], textItem{x: t.X, s: t.S})
		}

		// PDF Y grows upwards
		yKeys := make([]int, 0, len(rowMap))
		for y := range rowMap {
			yKeys = append(yKeys, y)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(yKeys)))

		var lines []string
		for _, y := range yKeys {
			items := rowMap[y]
			sort.Slice(items, func(a, b int) bool {
				return items[a].x < items[b].x
			})

			var sb strings.Builder
			for _, item := range items {
				sb.WriteString(item.s)
			}
			line := strings.Join(strings.Fields(sb.String()), " ")
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func extractByReaderPlainText(r *pdf.Reader) string {
	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}
