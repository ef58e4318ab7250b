package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mural/internal/ai"
	"mural/internal/config"
	"mural/internal/doc"
)

// newTestServer wires a relay server against a fake upstream model
// endpoint and returns both.
func newTestServer(t *testing.T, upstream http.HandlerFunc) (*Server, *httptest.Server) {
	t.Helper()
	up := httptest.NewServer(upstream)
	t.Cleanup(up.Close)
	client := ai.New(config.AI{BaseURL: up.URL, Model: "m"}, zerolog.Nop())
	srv := New(client, zerolog.Nop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestChatRelaysStreamAsSSE(t *testing.T) {
	_, ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Stream bool `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hi \"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"there\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	body := `{"messages":[{"role":"user","content":"hello"}]}`
	resp, err := http.Post(ts.URL+"/api/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `data: {"delta":"hi "}`)
	assert.Contains(t, out, `data: {"delta":"there"}`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "data: [DONE]"))
}

func TestChatRejectsEmptyMessages(t *testing.T) {
	_, ts := newTestServer(t, func(http.ResponseWriter, *http.Request) {})
	resp, err := http.Post(ts.URL+"/api/chat", "application/json", strings.NewReader(`{"messages":[]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCompleteReturnsJSON(t *testing.T) {
	_, ts := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"full answer"}}]}`)
	})
	body := `{"messages":[{"role":"user","content":"q"}]}`
	resp, err := http.Post(ts.URL+"/api/complete", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "full answer", out["content"])
}

func TestCompleteSurfacesUpstreamFailure(t *testing.T) {
	_, ts := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	body := `{"messages":[{"role":"user","content":"q"}]}`
	resp, err := http.Post(ts.URL+"/api/complete", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestModelsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		fmt.Fprint(w, `{"data":[{"id":"m"}]}`)
	})
	resp, err := http.Get(ts.URL + "/api/models")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, []string{"m"}, out["models"])
}

func TestDocumentRoundTripAndBroadcast(t *testing.T) {
	_, ts := newTestServer(t, func(http.ResponseWriter, *http.Request) {})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	d, _ := doc.AddCard(doc.New(), doc.Card{
		Type: doc.TypeText, Width: 100, Height: 80,
		Text: &doc.TextPayload{Content: "shared"},
	})
	payload, err := json.Marshal(d)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/document", bytes.NewReader(payload))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// the update reaches websocket subscribers
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventDocumentUpdated, ev.Type)
	assert.Equal(t, d.Version, ev.Version)

	// and a plain GET returns the stored document
	getResp, err := http.Get(ts.URL + "/api/document")
	require.NoError(t, err)
	defer getResp.Body.Close()
	var got doc.Document
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&got))
	require.Len(t, got.Cards, 1)
	assert.Equal(t, "shared", got.Cards[0].Text.Content)
}

func TestResearchValidatesInput(t *testing.T) {
	_, ts := newTestServer(t, func(http.ResponseWriter, *http.Request) {})
	resp, err := http.Post(ts.URL+"/api/research", "application/json", strings.NewReader(`{"cardId":""}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResearchCancelWithoutFlow(t *testing.T) {
	_, ts := newTestServer(t, func(http.ResponseWriter, *http.Request) {})
	resp, err := http.Post(ts.URL+"/api/research/cancel", "application/json", strings.NewReader(`{"cardId":"x"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out["cancelled"])
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, func(http.ResponseWriter, *http.Request) {})
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}
