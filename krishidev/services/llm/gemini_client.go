// krishidev/services/llm/gemini_client.go
package llm

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"krishidev/krishidev/chat"
	httputils "krishidev/krishidev/utils/http"
	"krishidev/krishidev/utils/logging"

	"go.uber.org/zap"
)

// RemoteError wraps any failure of the generative endpoint: network errors,
// non-200 statuses, timeouts, empty candidate lists.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("gemini %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// GeminiClient talks to the Generative Language REST API. It implements
// chat.Generator.
type GeminiClient struct {
	baseURL string
	apiKey  string
	model   string
}

func NewGeminiClient(baseURL, apiKey, model string) *GeminiClient {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClient{baseURL: baseURL, apiKey: apiKey, model: model}
}

// Wire types for generateContent.

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func toContents(history []chat.Turn) []content {
	out := make([]content, 0, len(history)+1)
	for _, t := range history {
		out = append(out, content{Role: t.Role, Parts: []part{{Text: t.Text}}})
	}
	return out
}

func candidateText(resp generateResponse) (string, bool) {
	if len(resp.Candidates) == 0 {
		return "", false
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), true
}

// Generate answers a text turn with the full transcript inlined.
func (c *GeminiClient) Generate(ctx context.Context, history []chat.Turn, question string) (string, error) {
	defer logging.LogDuration(ctx, "gemini_generate")()

	req := generateRequest{Contents: toContents(history)}
	req.Contents = append(req.Contents, content{
		Role:  chat.RoleUser,
		Parts: []part{{Text: question}},
	})

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	var resp generateResponse
	if err := httputils.PostJSONWithKey(ctx, url, c.apiKey, req, &resp); err != nil {
		return "", &RemoteError{Op: "generate", Err: err}
	}
	text, ok := candidateText(resp)
	if !ok {
		return "", &RemoteError{Op: "generate", Err: fmt.Errorf("no candidates returned")}
	}
	return text, nil
}

// GenerateImage sends one inline image plus the analysis prompt.
func (c *GeminiClient) GenerateImage(ctx context.Context, history []chat.Turn, prompt string, img chat.ImagePayload) (string, error) {
	defer logging.LogDuration(ctx, "gemini_generate_image")()

	req := generateRequest{Contents: toContents(history)}
	req.Contents = append(req.Contents, content{
		Role: chat.RoleUser,
		Parts: []part{
			{Text: prompt},
			{InlineData: &inlineData{
				MIMEType: img.MIME,
				Data:     base64.StdEncoding.EncodeToString(img.Data),
			}},
		},
	})

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	var resp generateResponse
	if err := httputils.PostJSONWithKey(ctx, url, c.apiKey, req, &resp); err != nil {
		return "", &RemoteError{Op: "generate_image", Err: err}
	}
	text, ok := candidateText(resp)
	if !ok {
		return "", &RemoteError{Op: "generate_image", Err: fmt.Errorf("no candidates returned")}
	}
	return text, nil
}

// GenerateStream uses the SSE variant of the endpoint and forwards text
// deltas as they arrive.
func (c *GeminiClient) GenerateStream(ctx context.Context, history []chat.Turn, question string) (<-chan string, <-chan error, error) {
	defer logging.LogDuration(ctx, "gemini_generate_stream")()

	req := generateRequest{Contents: toContents(history)}
	req.Contents = append(req.Contents, content{
		Role:  chat.RoleUser,
		Parts: []part{{Text: question}},
	})

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", c.baseURL, c.model)
	body, err := httputils.PostStreamWithKey(ctx, url, c.apiKey, req)
	if err != nil {
		return nil, nil, &RemoteError{Op: "stream", Err: err}
	}

	ch := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		defer close(ch)
		defer close(errCh)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" {
				continue
			}
			var chunk generateResponse
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				logging.ErrorLogger.Error("gemini stream decode error", zap.Error(err))
				errCh <- &RemoteError{Op: "stream", Err: err}
				return
			}
			text, ok := candidateText(chunk)
			if !ok || text == "" {
				continue
			}
			select {
			case ch <- text:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && err != io.EOF {
			errCh <- &RemoteError{Op: "stream", Err: err}
		}
	}()

	return ch, errCh, nil
}
