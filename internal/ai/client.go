// Package ai talks to OpenAI-compatible model servers: streamed chat
// completions, one-shot completions, model listing. It never touches
// the document; callers marshal results back through the store's
// mutation API on the event loop.
package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mural/internal/config"
)

// DoneSentinel terminates an event stream.
const DoneSentinel = "[DONE]"

var versionPathRe = regexp.MustCompile(`/v\d+(beta)?$`)

// BuildChatURL normalizes a user-supplied base URL into a chat
// completions endpoint. Bases already pointing at the endpoint pass
// through; versioned bases (/v1, /v1beta) get the short suffix;
// Azure-style /openai bases and bare hosts get the full /v1 path.
func BuildChatURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	switch {
	case strings.HasSuffix(base, "/chat/completions"):
		return base
	case versionPathRe.MatchString(base):
		return base + "/chat/completions"
	case strings.HasSuffix(base, "/openai"):
		return base + "/v1/chat/completions"
	default:
		return base + "/v1/chat/completions"
	}
}

// BuildModelsURL derives the model-listing endpoint from the same
// base URL rules as BuildChatURL.
func BuildModelsURL(base string) string {
	return strings.TrimSuffix(BuildChatURL(base), "/chat/completions") + "/models"
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is a thin HTTP client for one configured model endpoint.
type Client struct {
	httpClient *http.Client
	cfg        config.AI
	log        zerolog.Logger
}

// New builds a client from AI settings. Streaming responses can run
// for minutes, so the transport carries no overall timeout; callers
// bound requests with contexts.
func New(cfg config.AI, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		cfg:        cfg,
		log:        log,
	}
}

type chatRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *Client) post(ctx context.Context, url string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("model server returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	return resp, nil
}

// Stream runs a streaming chat completion and invokes onDelta for
// every text delta in arrival order. It returns nil when the stream
// ends with the done sentinel or a finish reason. A cancelled context
// surfaces as the context's error; deltas already delivered stay
// delivered.
func (c *Client) Stream(ctx context.Context, messages []Message, onDelta func(delta string) error) error {
	url := BuildChatURL(c.cfg.BaseURL)
	resp, err := c.post(ctx, url, chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Stream:      true,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	start := time.Now()
	deltas := 0
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == DoneSentinel {
			break
		}
		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.log.Warn().Err(err).Msg("skipping malformed stream chunk")
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			deltas++
			if err := onDelta(delta); err != nil {
				return err
			}
		}
		if chunk.Choices[0].FinishReason != nil && *chunk.Choices[0].FinishReason != "" {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("read stream: %w", err)
	}
	c.log.Debug().Int("deltas", deltas).Dur("elapsed", time.Since(start)).Msg("stream finished")
	return nil
}

// Complete runs a non-streaming chat completion and returns the full
// text.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	url := BuildChatURL(c.cfg.BaseURL)
	resp, err := c.post(ctx, url, chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out chatChunk
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion had no choices")
	}
	return out.Choices[0].Message.Content, nil
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Models lists the model ids the endpoint serves.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, BuildModelsURL(c.cfg.BaseURL), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("model server returned %s", resp.Status)
	}
	var out modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	ids := make([]string, 0, len(out.Data))
	for _, m := range out.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Verify checks that the endpoint is reachable and lists at least the
// configured model (when one is configured).
func (c *Client) Verify(ctx context.Context) error {
	ids, err := c.Models(ctx)
	if err != nil {
		return fmt.Errorf("verify endpoint: %w", err)
	}
	if c.cfg.Model == "" {
		return nil
	}
	for _, id := range ids {
		if id == c.cfg.Model {
			return nil
		}
	}
	return fmt.Errorf("model %q not served by endpoint", c.cfg.Model)
}
