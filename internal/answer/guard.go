package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultGuardModel is the local Llama Guard variant used for the safety
// pre-check. The 1B model is light enough to run alongside the generation
// model.
const DefaultGuardModel = "llama-guard3:1b"

// RefusalMessage is returned verbatim when the guard flags a query.
const RefusalMessage = "I am unable to help with this request as it has been deemed unsafe"

// Guard screens a raw user query before any retrieval or generation happens.
type Guard interface {
	// Check returns true when the query is safe to process.
	Check(ctx context.Context, query string) (bool, error)

	// ModelName identifies the guard model for result reporting.
	ModelName() string
}

// OllamaGuard calls a Llama Guard model through the Ollama chat API. The
// model classifies the query and answers "safe" or "unsafe" (with category
// codes); any verdict containing "unsafe" blocks the query.
type OllamaGuard struct {
	host   string
	model  string
	client *http.Client
}

// NewOllamaGuard constructs a guard against the given Ollama host. An empty
// model selects DefaultGuardModel.
func NewOllamaGuard(host, model string) *OllamaGuard {
	if model == "" {
		model = DefaultGuardModel
	}
	return &OllamaGuard{
		host:   strings.TrimSuffix(host, "/"),
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// ModelName returns the configured guard model.
func (g *OllamaGuard) ModelName() string { return g.model }

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	// KeepAlive 0 releases the guard model's VRAM right after the call.
	KeepAlive int `json:"keep_alive"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Error   string            `json:"error"`
}

// Check sends the query to the guard model and inspects the verdict.
func (g *OllamaGuard) Check(ctx context.Context, query string) (bool, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    g.model,
		Messages: []ollamaChatMessage{{Role: "user", Content: query}},
	})
	if err != nil {
		return false, fmt.Errorf("answer: failed to marshal guard request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("answer: failed to create guard request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("answer: guard request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, fmt.Errorf("answer: failed to decode guard response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != "" {
			return false, fmt.Errorf("answer: guard returned status %d: %s", resp.StatusCode, parsed.Error)
		}
		return false, fmt.Errorf("answer: guard returned status %d", resp.StatusCode)
	}

	verdict := strings.ToLower(strings.TrimSpace(parsed.Message.Content))
	return !strings.Contains(verdict, "unsafe"), nil
}
