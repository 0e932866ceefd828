package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const maxJSONResponse = 1 << 20

var defaultClient = &http.Client{Timeout: 30 * time.Second}

// DownloadFile fetches fileURL and returns the body and its sniffed MIME type.
func DownloadFile(ctx context.Context, fileURL string, maxSize int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := defaultClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file data: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty file data")
	}
	if int64(len(data)) > maxSize {
		return nil, "", fmt.Errorf("file exceeds %d bytes", maxSize)
	}

	return data, mimetype.Detect(data).String(), nil
}

// PostJSON sends payload as JSON and decodes a JSON response into out when
// out is non-nil. The status code is returned even when decoding fails.
func PostJSON(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, payload, out interface{}) (int, error) {
	if client == nil {
		client = defaultClient
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONResponse))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// FunctionHeaders are the headers expected by a hosted edge function.
// token falls back to apiKey when empty.
func FunctionHeaders(apiKey, token string) map[string]string {
	if strings.TrimSpace(token) == "" {
		token = apiKey
	}
	return map[string]string{
		"apikey":        apiKey,
		"Authorization": "Bearer " + token,
	}
}
