// Package vertex implements analysis.Requester on Vertex AI.
package vertex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"github.com/vbonduro/eatlytic/internal/analysis"
	"github.com/vbonduro/eatlytic/internal/domain"
	"github.com/vbonduro/eatlytic/internal/imageenc"
)

const DefaultModel = "gemini-2.5-flash"

// Config holds the Vertex AI project settings.
type Config struct {
	ProjectID       string
	Location        string
	CredentialsFile string
	Model           string
}

// Requester creates its Vertex AI client on first use and reuses it for
// every later call. Creating the client resolves credentials, so it is
// deferred until an analysis actually needs it.
type Requester struct {
	cfg  Config
	opts []option.ClientOption

	mu     sync.Mutex
	client *genai.Client
}

func New(cfg Config, opts ...option.ClientOption) *Requester {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if strings.TrimSpace(cfg.Location) == "" {
		cfg.Location = "us-central1"
	}
	return &Requester{cfg: cfg, opts: opts}
}

func (r *Requester) Name() string { return "vertex" }

// Close releases the client if one was created.
func (r *Requester) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}

func (r *Requester) getClient(ctx context.Context) (*genai.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return r.client, nil
	}

	opts := append([]option.ClientOption(nil), r.opts...)
	if r.cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(r.cfg.CredentialsFile))
	}
	cl, err := genai.NewClient(ctx, r.cfg.ProjectID, r.cfg.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("vertex: create client: %w", err)
	}
	r.client = cl
	return cl, nil
}

func (r *Requester) Request(ctx context.Context, req analysis.Request) (string, error) {
	if r.cfg.ProjectID == "" {
		return "", domain.Errorf(domain.KindUnknown, "vertex", "VERTEX_PROJECT_ID is empty")
	}

	image, err := imageenc.Payload{Data: req.ImagePayload, MediaType: req.MediaType}.Decode()
	if err != nil {
		return "", domain.NewError(domain.KindEncoding, "vertex", err)
	}

	client, err := r.getClient(ctx)
	if err != nil {
		return "", err
	}

	model := client.GenerativeModel(r.cfg.Model)
	configure(model, req.Schema)

	resp, err := model.GenerateContent(ctx, parts(req, image)...)
	if err != nil {
		return "", classify(err)
	}

	txt := firstText(resp)
	if txt == "" {
		return "", domain.Errorf(domain.KindResponseParse, "vertex", "no content in response")
	}
	return txt, nil
}

// configure demands JSON output matching schema.
func configure(m *genai.GenerativeModel, schema *analysis.Schema) {
	m.GenerationConfig.ResponseMIMEType = "application/json"
	m.GenerationConfig.ResponseSchema = toVertexSchema(schema)
}

// parts orders the image before the instructions.
func parts(req analysis.Request, image []byte) []genai.Part {
	return []genai.Part{
		genai.Blob{MIMEType: req.MediaType, Data: image},
		genai.Text(req.Instructions),
	}
}

// classify maps a safety block to a response parse failure; anything else
// is left for the analysis client to treat as transport.
func classify(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return domain.NewError(domain.KindResponseParse, "vertex", err)
	}
	return fmt.Errorf("vertex: generate content: %w", err)
}

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

func toVertexSchema(s *analysis.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Required:    append([]string(nil), s.Required...),
	}
	switch s.Type {
	case analysis.TypeObject:
		out.Type = genai.TypeObject
	case analysis.TypeArray:
		out.Type = genai.TypeArray
	case analysis.TypeNumber:
		out.Type = genai.TypeNumber
	case analysis.TypeString:
		out.Type = genai.TypeString
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toVertexSchema(p)
		}
	}
	out.Items = toVertexSchema(s.Items)
	return out
}
