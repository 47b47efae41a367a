package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPError is a non-2xx relay response.
type HTTPError struct {
	Relay      string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("%s http %d", e.Relay, e.StatusCode)
	}
	return fmt.Sprintf("%s http %d: %s", e.Relay, e.StatusCode, b)
}

func postJSON(ctx context.Context, client *http.Client, relay, url string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return permanent(relay, "", fmt.Errorf("failed to encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return permanent(relay, "", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("accept", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return transient(relay, "", err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		herr := &HTTPError{Relay: relay, StatusCode: res.StatusCode, Body: body}
		if res.StatusCode == http.StatusBadRequest {
			return permanent(relay, "", herr)
		}
		return transient(relay, "", herr)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return transient(relay, "", fmt.Errorf("failed to decode %s response: %w", relay, err))
	}
	return nil
}
