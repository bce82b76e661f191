// Package llmstub is the out-of-scope boundary named in spec §1: "the
// large-language-model call that turns retrieved context into prose
// (interface only — prompt in, text out)". This package defines that
// interface and an HTTP-backed implementation shaped like the teacher's
// chat-completion client (llmclient/client.go), adapted down to the single
// call this service actually needs: no streaming, no tool-calling, no
// conversation history.
package llmstub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Generator turns a prompt (retrieved context + the user's question) into
// prose. The retrieval service only ever calls this at the edge, after C7
// has produced results — it never participates in ranking or RBAC.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HTTPGenerator calls an OpenAI-chat-completions-compatible endpoint,
// mirroring the request/response shape of the teacher's llmclient.Client
// but collapsed to a single non-streaming call.
type HTTPGenerator struct {
	endpoint string
	client   *http.Client
}

// NewHTTPGenerator builds a Generator against endpoint (a host serving a
// `/v1/chat/completions`-compatible API).
func NewHTTPGenerator(endpoint string, timeout time.Duration) *HTTPGenerator {
	return &HTTPGenerator{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

// Generate sends prompt as a single user message and returns the first
// choice's content.
func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("llmstub: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llmstub: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llmstub: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("llmstub: unexpected status %d: %s", resp.StatusCode, string(data))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("llmstub: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llmstub: empty response")
	}
	return parsed.Choices[0].Message.Content, nil
}

// NoopGenerator is a Generator that returns the prompt verbatim without
// calling out anywhere, useful for tests and for deployments that
// haven't wired a downstream model yet.
type NoopGenerator struct{}

func (NoopGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return prompt, nil
}
