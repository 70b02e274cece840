// Package claude implements analysis.Requester on the Anthropic Messages API.
// Structured output is enforced by forcing a single tool call whose input
// schema is the analysis schema.
package claude

import (
	"context"
	"fmt"
	"net/http"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/eatlytic/internal/analysis"
	"github.com/vbonduro/eatlytic/internal/domain"
)

const (
	DefaultModel = "claude-opus-4-6"
	toolName     = "record_food_analysis"
	// A full report with a dozen nutrients and impacts stays well under this.
	maxTokens = 2048
)

type Requester struct {
	apiKey string
	model  string
	client *anthropic.Client
}

// Option customises the underlying SDK client.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
}

func WithBaseURL(u string) Option { return func(o *options) { o.baseURL = u } }

func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

func New(apiKey, model string, opts ...Option) *Requester {
	if model == "" {
		model = DefaultModel
	}
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	var clientOpts []anthropic.ClientOption
	if o.baseURL != "" {
		clientOpts = append(clientOpts, anthropic.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, anthropic.WithHTTPClient(o.httpClient))
	}
	return &Requester{
		apiKey: apiKey,
		model:  model,
		client: anthropic.NewClient(apiKey, clientOpts...),
	}
}

func (r *Requester) Name() string { return "claude" }

// buildRequest constructs the Messages API payload: the image block, the
// instruction text and the forced analysis tool.
func (r *Requester) buildRequest(req analysis.Request) anthropic.MessagesRequest {
	return anthropic.MessagesRequest{
		Model:     anthropic.Model(r.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					req.MediaType,
					req.ImagePayload,
				)),
				anthropic.NewTextMessageContent(req.Instructions),
			},
		}},
		Tools: []anthropic.ToolDefinition{{
			Name:        toolName,
			Description: "Record the structured nutritional and body-impact analysis of the pictured food.",
			InputSchema: req.Schema.JSONSchema(),
		}},
		ToolChoice: &anthropic.ToolChoice{Type: "tool", Name: toolName},
	}
}

func (r *Requester) Request(ctx context.Context, req analysis.Request) (string, error) {
	if r.apiKey == "" {
		return "", domain.Errorf(domain.KindUnknown, "claude", "CLAUDE_API_KEY is empty")
	}

	if !acceptedMediaTypes[req.MediaType] {
		return "", domain.Errorf(domain.KindEncoding, "claude", "media type %q is not accepted by the Messages API", req.MediaType)
	}

	resp, err := r.client.CreateMessages(ctx, r.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("failed to call claude: %w", err)
	}

	for _, c := range resp.Content {
		if c.Type != anthropic.MessagesContentTypeToolUse || c.MessageContentToolUse == nil {
			continue
		}
		if tu := c.MessageContentToolUse; tu.Name == toolName {
			return string(tu.Input), nil
		}
	}
	return "", domain.Errorf(domain.KindResponseParse, "claude", "response has no %s tool call", toolName)
}

// acceptedMediaTypes are the image types the Messages API takes. HEIC and
// HEIF must be converted by the caller before they can use this backend.
var acceptedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}
