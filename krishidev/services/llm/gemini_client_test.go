package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"krishidev/krishidev/chat"
	"krishidev/krishidev/utils/logging"
)

func geminiTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	logging.InitLogger() // ensures TimerLogger isn't nil
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func candidateBody(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
}

func TestGenerateSendsHistoryAndKey(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateRequest
	srv := geminiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(candidateBody("Use drip irrigation.")))
	})

	c := NewGeminiClient(srv.URL, "test-key", "gemini-2.0-flash")
	history := []chat.Turn{
		{Role: chat.RoleUser, Text: "system prompt"},
		{Role: chat.RoleModel, Text: "ack"},
	}
	text, err := c.Generate(context.Background(), history, "how to water sugarcane?")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "Use drip irrigation." {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/models/gemini-2.0-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if len(gotReq.Contents) != 3 {
		t.Fatalf("request carried %d contents, want 3", len(gotReq.Contents))
	}
	last := gotReq.Contents[2]
	if last.Role != chat.RoleUser || last.Parts[0].Text != "how to water sugarcane?" {
		t.Errorf("new question not last content: %+v", last)
	}
}

func TestGenerateRemoteErrors(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http 500", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"no candidates", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candidates":[]}`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := geminiTestServer(t, tc.handler)
			c := NewGeminiClient(srv.URL, "k", "m")
			_, err := c.Generate(context.Background(), nil, "q")
			var remote *RemoteError
			if !errors.As(err, &remote) {
				t.Fatalf("err = %v, want RemoteError", err)
			}
		})
	}
}

func TestGenerateImageInlinesPayload(t *testing.T) {
	var gotReq generateRequest
	srv := geminiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(candidateBody("Tomato leaf curl virus.")))
	})

	c := NewGeminiClient(srv.URL, "k", "m")
	img := chat.ImagePayload{MIME: "image/jpeg", Data: []byte{1, 2, 3}}
	text, err := c.GenerateImage(context.Background(),
		[]chat.Turn{{Role: chat.RoleUser, Text: "system"}}, "analyze this", img)
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if text != "Tomato leaf curl virus." {
		t.Errorf("text = %q", text)
	}

	last := gotReq.Contents[len(gotReq.Contents)-1]
	if len(last.Parts) != 2 {
		t.Fatalf("image content had %d parts, want prompt + inline data", len(last.Parts))
	}
	if last.Parts[0].Text != "analyze this" {
		t.Errorf("prompt part = %q", last.Parts[0].Text)
	}
	inline := last.Parts[1].InlineData
	if inline == nil || inline.MIMEType != "image/jpeg" || inline.Data != "AQID" {
		t.Errorf("inline data wrong: %+v", inline)
	}
}

func TestGenerateStreamParsesSSE(t *testing.T) {
	srv := geminiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":streamGenerateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\n", candidateBody("Rotate "))
		fmt.Fprintf(w, "data: %s\n\n", candidateBody("your crops."))
	})

	c := NewGeminiClient(srv.URL, "k", "m")
	deltas, errCh, err := c.GenerateStream(context.Background(), nil, "q")
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	var got string
	for d := range deltas {
		got += d
	}
	if streamErr := <-errCh; streamErr != nil {
		t.Fatalf("stream error: %v", streamErr)
	}
	if got != "Rotate your crops." {
		t.Errorf("streamed = %q", got)
	}
}
