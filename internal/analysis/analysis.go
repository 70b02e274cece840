// Package analysis owns the contract with the external food analysis model:
// the request it sends, the output schema it demands and the decoding of the
// reply into a domain.FoodAnalysis.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vbonduro/eatlytic/internal/domain"
)

// Request is everything a backend needs to run one analysis.
type Request struct {
	ImagePayload string // base64, no data-URI prefix
	MediaType    string
	Instructions string
	Schema       *Schema
}

// Requester sends a Request to a model service and returns its raw text
// output. Returning an *domain.AnalysisError keeps its kind; any other error
// is treated as a transport failure.
type Requester interface {
	Request(ctx context.Context, req Request) (string, error)
}

// RequesterFunc adapts a function to Requester.
type RequesterFunc func(ctx context.Context, req Request) (string, error)

func (f RequesterFunc) Request(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Client analyzes encoded food images through a Requester. It holds no
// per-call state, so one Client may serve any number of sequential or
// concurrent calls.
type Client struct {
	requester Requester
	logger    *slog.Logger
}

func NewClient(requester Requester, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{requester: requester, logger: logger}
}

// Analyze sends one image and returns the decoded analysis.
func (c *Client) Analyze(ctx context.Context, encodedImage, mediaType string) (domain.FoodAnalysis, error) {
	return c.AnalyzeObserved(ctx, encodedImage, mediaType, nil)
}

// AnalyzeObserved is Analyze with a callback that receives each state
// transition: StateRequesting, then exactly one of StateSucceeded or
// StateFailed. observe may be nil.
func (c *Client) AnalyzeObserved(ctx context.Context, encodedImage, mediaType string, observe func(State)) (domain.FoodAnalysis, error) {
	if observe == nil {
		observe = func(State) {}
	}

	if strings.TrimSpace(encodedImage) == "" {
		observe(StateFailed)
		return domain.FoodAnalysis{}, domain.Errorf(domain.KindEncoding, "analyze", "image payload is empty")
	}
	if strings.TrimSpace(mediaType) == "" {
		observe(StateFailed)
		return domain.FoodAnalysis{}, domain.Errorf(domain.KindEncoding, "analyze", "media type is empty")
	}

	observe(StateRequesting)
	req := Request{
		ImagePayload: encodedImage,
		MediaType:    mediaType,
		Instructions: Instructions,
		Schema:       FoodAnalysisSchema(),
	}

	raw, err := c.request(ctx, req)
	if err != nil {
		observe(StateFailed)
		c.logger.Error("food analysis request failed", "kind", domain.KindOf(err).String(), "error", err)
		return domain.FoodAnalysis{}, err
	}

	result, err := Decode(raw)
	if err != nil {
		observe(StateFailed)
		c.logger.Error("food analysis response rejected", "kind", domain.KindOf(err).String(), "error", err, "response_bytes", len(raw))
		c.logger.Debug("rejected food analysis response", "raw", raw)
		return domain.FoodAnalysis{}, err
	}

	observe(StateSucceeded)
	c.logger.Info("food analysis complete",
		"food", result.RecognizedFood,
		"macros", len(result.Macros),
		"micros", len(result.Micros),
		"body_impacts", len(result.BodyImpacts),
	)
	return result, nil
}

// request calls the requester and classifies whatever comes back.
func (c *Client) request(ctx context.Context, req Request) (raw string, err error) {
	if c.requester == nil {
		return "", domain.Errorf(domain.KindUnknown, "analyze", "no analysis backend configured")
	}

	defer func() {
		if p := recover(); p != nil {
			raw = ""
			err = domain.NewError(domain.KindUnknown, "analyze", fmt.Errorf("backend panic: %v", p))
		}
	}()

	raw, err = c.requester.Request(ctx, req)
	if err == nil {
		return raw, nil
	}

	var ae *domain.AnalysisError
	if errors.As(err, &ae) {
		return "", err
	}
	return "", domain.NewError(domain.KindTransport, "request analysis", err)
}
