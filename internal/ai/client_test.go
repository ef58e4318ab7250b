package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mural/internal/config"
)

func TestBuildChatURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://localhost:11434", "http://localhost:11434/v1/chat/completions"},
		{"http://localhost:11434/", "http://localhost:11434/v1/chat/completions"},
		{"https://api.example.com/v1", "https://api.example.com/v1/chat/completions"},
		{"https://api.example.com/v1/", "https://api.example.com/v1/chat/completions"},
		{"https://api.example.com/v1beta", "https://api.example.com/v1beta/chat/completions"},
		{"https://api.example.com/v2", "https://api.example.com/v2/chat/completions"},
		{"https://host/openai", "https://host/openai/v1/chat/completions"},
		{"https://host/v1/chat/completions", "https://host/v1/chat/completions"},
		{"  https://host/v1  ", "https://host/v1/chat/completions"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BuildChatURL(tc.base), "base %q", tc.base)
	}
}

func TestBuildModelsURL(t *testing.T) {
	assert.Equal(t, "http://host/v1/models", BuildModelsURL("http://host"))
	assert.Equal(t, "http://host/v1/models", BuildModelsURL("http://host/v1/chat/completions"))
}

func newTestClient(baseURL string) *Client {
	return New(config.AI{BaseURL: baseURL, Model: "test-model"}, zerolog.Nop())
}

func sseChunk(content string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`+"\n\n", content)
}

func TestStreamDeliversDeltasInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("Hel"))
		fmt.Fprint(w, sseChunk("lo"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	var got []string
	err := newTestClient(srv.URL).Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, func(d string) error {
		got = append(got, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, got)
}

func TestStreamSkipsMalformedChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "data: {not json}\n\n")
		fmt.Fprint(w, ": comment line\n\n")
		fmt.Fprint(w, sseChunk("ok"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	var got strings.Builder
	err := newTestClient(srv.URL).Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, func(d string) error {
		got.WriteString(d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got.String())
}

func TestStreamStopsAtFinishReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, sseChunk("partial"))
		fmt.Fprint(w, `data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`+"\n\n")
		fmt.Fprint(w, sseChunk("never seen"))
	}))
	defer srv.Close()

	var got []string
	err := newTestClient(srv.URL).Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, func(d string) error {
		got = append(got, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"partial"}, got)
}

func TestStreamSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"model overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, func(string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestStreamCancellationKeepsDeliveredDeltas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("partial"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var got []string
	err := newTestClient(srv.URL).Stream(ctx, []Message{{Role: "user", Content: "hi"}}, func(d string) error {
		got = append(got, d)
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"partial"}, got, "partial content survives cancellation")
}

func TestCompleteReturnsMessageContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"answer"}}]}`)
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).Complete(context.Background(), []Message{{Role: "user", Content: "q"}})
	require.NoError(t, err)
	assert.Equal(t, "answer", text)
}

func TestModelsAndVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		fmt.Fprint(w, `{"data":[{"id":"test-model"},{"id":"other"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	ids, err := c.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"test-model", "other"}, ids)

	assert.NoError(t, c.Verify(context.Background()))

	missing := New(config.AI{BaseURL: srv.URL, Model: "absent"}, zerolog.Nop())
	assert.Error(t, missing.Verify(context.Background()))
}

func TestStreamSendsAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := New(config.AI{BaseURL: srv.URL, APIKey: "sekrit"}, zerolog.Nop())
	require.NoError(t, c.Stream(context.Background(), []Message{{Role: "user", Content: "q"}}, func(string) error { return nil }))
}
