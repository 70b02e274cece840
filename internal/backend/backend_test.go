package backend

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/eatlytic/internal/analysis/claude"
	"github.com/vbonduro/eatlytic/internal/analysis/gemini"
	"github.com/vbonduro/eatlytic/internal/analysis/ollama"
	"github.com/vbonduro/eatlytic/internal/analysis/vertex"
	"github.com/vbonduro/eatlytic/internal/config"
)

func TestNew(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		backend string
		check   func(t *testing.T, v any)
	}{
		{config.BackendGemini, func(t *testing.T, v any) { assert.IsType(t, &gemini.Requester{}, v) }},
		{config.BackendVertex, func(t *testing.T, v any) { assert.IsType(t, &vertex.Requester{}, v) }},
		{config.BackendClaude, func(t *testing.T, v any) { assert.IsType(t, &claude.Requester{}, v) }},
		{config.BackendOllama, func(t *testing.T, v any) { assert.IsType(t, &ollama.Requester{}, v) }},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := &config.Config{
				AnalysisBackend: tt.backend,
				GeminiAPIKey:    "key",
				VertexProjectID: "proj",
				ClaudeAPIKey:    "key",
				OllamaHost:      "http://localhost:11434",
			}
			r, err := New(context.Background(), cfg, logger)
			require.NoError(t, err)
			tt.check(t, r)
			assert.NoError(t, Close(r))
		})
	}
}

func TestNewGeminiWithoutKey(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := New(context.Background(), &config.Config{AnalysisBackend: config.BackendGemini}, logger)
	assert.Error(t, err)
}

func TestNewUnknownBackend(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := New(context.Background(), &config.Config{AnalysisBackend: "openai"}, logger)
	assert.ErrorContains(t, err, "openai")
}
