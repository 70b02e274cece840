// Package backend selects the analysis requester named by the configuration.
package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"google.golang.org/api/option"

	"github.com/vbonduro/eatlytic/internal/analysis"
	"github.com/vbonduro/eatlytic/internal/analysis/claude"
	"github.com/vbonduro/eatlytic/internal/analysis/gemini"
	"github.com/vbonduro/eatlytic/internal/analysis/ollama"
	"github.com/vbonduro/eatlytic/internal/analysis/vertex"
	"github.com/vbonduro/eatlytic/internal/config"
)

// New returns the requester for cfg.AnalysisBackend. Requesters that hold an
// SDK client also implement io.Closer; see Close.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (analysis.Requester, error) {
	switch cfg.AnalysisBackend {
	case config.BackendGemini:
		logger.Info("using Gemini analysis backend", "model", cfg.GeminiModel)
		return gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, option.WithUserAgent("eatlytic"))
	case config.BackendVertex:
		logger.Info("using Vertex AI analysis backend", "project", cfg.VertexProjectID, "location", cfg.VertexLocation, "model", cfg.VertexModel)
		return vertex.New(vertex.Config{
			ProjectID:       cfg.VertexProjectID,
			Location:        cfg.VertexLocation,
			CredentialsFile: cfg.VertexCredentialsFile,
			Model:           cfg.VertexModel,
		}), nil
	case config.BackendClaude:
		logger.Info("using Claude analysis backend", "model", cfg.ClaudeModel)
		return claude.New(cfg.ClaudeAPIKey, cfg.ClaudeModel), nil
	case config.BackendOllama:
		logger.Info("using Ollama analysis backend", "host", cfg.OllamaHost, "model", cfg.OllamaModel)
		return ollama.New(cfg.OllamaHost, cfg.OllamaModel), nil
	default:
		return nil, fmt.Errorf("unsupported analysis backend %q", cfg.AnalysisBackend)
	}
}

// Close releases r if it holds resources.
func Close(r analysis.Requester) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
