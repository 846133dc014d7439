package verifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// StatusError reports a response that arrived with a non-2xx status.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// maxDocumentSize caps the confirmation document read into memory.
const maxDocumentSize = 10 << 20

// fetchDocument downloads the confirmation document at url. Transport
// failures come back as *url.Error from the client, error statuses as
// *StatusError.
func (v *Verifier) fetchDocument(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/pdf, */*")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("confirmation document exceeds %d bytes", maxDocumentSize)
	}
	return data, nil
}
