package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/vbonduro/eatlytic/internal/analysis"
	"github.com/vbonduro/eatlytic/internal/domain"
	"github.com/vbonduro/eatlytic/internal/imageenc"
)

// foodAnalyzer is the subset of analysis.Client that AnalysisService requires.
type foodAnalyzer interface {
	AnalyzeObserved(ctx context.Context, encodedImage, mediaType string, observe func(analysis.State)) (domain.FoodAnalysis, error)
}

// attemptRepository is the subset of store.AttemptStore that AnalysisService requires.
type attemptRepository interface {
	Record(ctx context.Context, a domain.Attempt) (*domain.Attempt, error)
	Recent(ctx context.Context, limit int) ([]*domain.Attempt, error)
}

type AnalysisService struct {
	analyzer foodAnalyzer
	attempts attemptRepository
	backend  string
	logger   *slog.Logger
	now      func() time.Time
}

// NewAnalysisService wires the pipeline. attempts may be nil, in which case
// nothing is recorded.
func NewAnalysisService(analyzer foodAnalyzer, attempts attemptRepository, backend string, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		analyzer: analyzer,
		attempts: attempts,
		backend:  backend,
		logger:   logger,
		now:      time.Now,
	}
}

// Analyze encodes the image read from r and analyzes it. observe receives the
// state transitions of the call and may be nil.
//
// The analyze call is detached from ctx cancellation: once a request is in
// flight it runs to completion or failure.
func (s *AnalysisService) Analyze(ctx context.Context, r io.Reader, declaredMediaType string, observe func(analysis.State)) (domain.FoodAnalysis, error) {
	if observe == nil {
		observe = func(analysis.State) {}
	}
	start := s.now()

	cr := &countingReader{r: r}
	payload, err := imageenc.Encode(cr, declaredMediaType)
	if err != nil {
		observe(analysis.StateFailed)
		s.logger.Warn("image encoding failed", "bytes", cr.n, "error", err)
		s.record(ctx, declaredMediaType, cr.n, start, err)
		return domain.FoodAnalysis{}, err
	}

	s.logger.Info("food analysis started", "backend", s.backend, "media_type", payload.MediaType, "bytes", cr.n)
	result, err := s.analyzer.AnalyzeObserved(context.WithoutCancel(ctx), payload.Data, payload.MediaType, observe)
	s.record(ctx, payload.MediaType, cr.n, start, err)
	if err != nil {
		return domain.FoodAnalysis{}, err
	}
	return result, nil
}

// RecentAttempts lists the diagnostic log, newest first.
func (s *AnalysisService) RecentAttempts(ctx context.Context, limit int) ([]*domain.Attempt, error) {
	if s.attempts == nil {
		return []*domain.Attempt{}, nil
	}
	return s.attempts.Recent(ctx, limit)
}

// record writes the attempt log entry. A storage failure is logged and never
// replaces the analysis outcome.
func (s *AnalysisService) record(ctx context.Context, mediaType string, size int, start time.Time, analyzeErr error) {
	if s.attempts == nil {
		return
	}
	a := domain.Attempt{
		MediaType:  mediaType,
		ImageBytes: size,
		Backend:    s.backend,
		Outcome:    domain.OutcomeSucceeded,
		DurationMs: s.now().Sub(start).Milliseconds(),
	}
	if analyzeErr != nil {
		a.Outcome = domain.OutcomeFailed
		a.FailureKind = domain.KindOf(analyzeErr).String()
		a.Message = analyzeErr.Error()
	}
	if _, err := s.attempts.Record(context.WithoutCancel(ctx), a); err != nil {
		s.logger.Error("failed to record analysis attempt", "error", err)
	}
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}
