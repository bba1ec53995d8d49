// krishidev/utils/http/httputils.go
package httputils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// PostJSON posts body as JSON and decodes the response into resp (may be nil).
func PostJSON(ctx context.Context, url string, body interface{}, resp interface{}) error {
	return PostJSONWithKey(ctx, url, "", body, resp)
}

// PostJSONWithKey is PostJSON with a Gemini-style x-goog-api-key header.
func PostJSONWithKey(ctx context.Context, url, apiKey string, body interface{}, resp interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("x-goog-api-key", apiKey)
	}
	r, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(r.Body, 512))
		return fmt.Errorf("bad status: %d: %s", r.StatusCode, snippet)
	}
	if resp != nil {
		return json.NewDecoder(r.Body).Decode(resp)
	}
	return nil
}

// PostStreamWithKey posts body as JSON and hands back the raw response body
// for the caller to consume incrementally. Caller must Close it.
func PostStreamWithKey(ctx context.Context, url, apiKey string, body interface{}) (io.ReadCloser, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("x-goog-api-key", apiKey)
	}
	r, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if r.StatusCode != http.StatusOK {
		defer r.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(r.Body, 512))
		return nil, fmt.Errorf("bad status: %d: %s", r.StatusCode, snippet)
	}
	return r.Body, nil
}
