// Package gemini implements analysis.Requester on the Gemini API with
// schema-constrained JSON output.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/vbonduro/eatlytic/internal/analysis"
	"github.com/vbonduro/eatlytic/internal/domain"
	"github.com/vbonduro/eatlytic/internal/imageenc"
)

const DefaultModel = "gemini-2.5-flash"

type Requester struct {
	client *genai.Client
	model  string
}

// New builds the SDK client once; call Close when the requester is no longer
// needed. opts are appended after the API key, so tests can redirect the
// endpoint.
func New(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Requester, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, domain.Errorf(domain.KindUnknown, "gemini", "GEMINI_API_KEY is empty")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}

	cl, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Requester{client: cl, model: model}, nil
}

func (r *Requester) Name() string { return "gemini" }

func (r *Requester) Close() error { return r.client.Close() }

func (r *Requester) Request(ctx context.Context, req analysis.Request) (string, error) {
	image, err := imageenc.Payload{Data: req.ImagePayload, MediaType: req.MediaType}.Decode()
	if err != nil {
		return "", domain.NewError(domain.KindEncoding, "gemini", err)
	}

	m := r.client.GenerativeModel(r.model)
	m.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toGenaiSchema(req.Schema),
	}

	resp, err := m.GenerateContent(ctx,
		genai.Blob{MIMEType: req.MediaType, Data: image},
		genai.Text(req.Instructions),
	)
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", domain.NewError(domain.KindResponseParse, "gemini", err)
		}
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	txt := firstText(resp)
	if txt == "" {
		return "", domain.Errorf(domain.KindResponseParse, "gemini", "empty response")
	}
	return txt, nil
}

// firstText concatenates the text parts of the first candidate.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range c.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

func toGenaiSchema(s *analysis.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        toGenaiType(s.Type),
		Description: s.Description,
		Required:    append([]string(nil), s.Required...),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toGenaiSchema(p)
		}
	}
	if s.Items != nil {
		out.Items = toGenaiSchema(s.Items)
	}
	return out
}

func toGenaiType(t analysis.SchemaType) genai.Type {
	switch t {
	case analysis.TypeObject:
		return genai.TypeObject
	case analysis.TypeArray:
		return genai.TypeArray
	case analysis.TypeNumber:
		return genai.TypeNumber
	case analysis.TypeString:
		return genai.TypeString
	default:
		return genai.TypeUnspecified
	}
}
