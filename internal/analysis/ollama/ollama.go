// Package ollama implements analysis.Requester against a local Ollama
// server using its structured output support.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vbonduro/eatlytic/internal/analysis"
	"github.com/vbonduro/eatlytic/internal/domain"
)

type Requester struct {
	host   string
	model  string
	client *http.Client
}

func New(host, model string) *Requester {
	return &Requester{
		host:   strings.TrimRight(host, "/"),
		model:  model,
		client: &http.Client{},
	}
}

func (r *Requester) Name() string { return "ollama" }

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images"`
	Format  map[string]any `json:"format,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

func (r *Requester) Request(ctx context.Context, req analysis.Request) (string, error) {
	body := generateRequest{
		Model:  r.model,
		Prompt: req.Instructions,
		// Ollama takes raw base64 without a data-URI prefix, which is what
		// the encoder produces.
		Images:  []string{req.ImagePayload},
		Format:  req.Schema.JSONSchema(),
		Stream:  false,
		Options: map[string]any{"temperature": 0},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", domain.NewError(domain.KindUnknown, "ollama", fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", domain.NewError(domain.KindUnknown, "ollama", fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call ollama: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, bytes.TrimSpace(errBody))
	}

	var respBody struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", domain.NewError(domain.KindResponseParse, "ollama", fmt.Errorf("failed to decode response: %w", err))
	}
	return respBody.Response, nil
}
