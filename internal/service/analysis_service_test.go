package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/eatlytic/internal/analysis"
	"github.com/vbonduro/eatlytic/internal/db"
	"github.com/vbonduro/eatlytic/internal/domain"
	"github.com/vbonduro/eatlytic/internal/store"
)

const bananaJSON = `{"recognizedFood":"Banana","summary":"A potassium-rich fruit.","calories":105,"macros":[{"name":"Carbohydrates","amount":"27","unit":"g"}],"micros":[],"bodyImpacts":[{"system":"Muscles","description":"Potassium supports muscle contraction."}],"smartConsumption":"Pair with nut butter.","importantAwareness":"Ripe bananas raise blood sugar faster."}`

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46}

// stubRequester is a minimal analysis.Requester for tests.
type stubRequester struct {
	mu      sync.Mutex
	raw     string
	err     error
	ctxErrs []error
	last    analysis.Request
}

func (s *stubRequester) Request(ctx context.Context, req analysis.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = req
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	return s.raw, s.err
}

// failingAttempts always fails to record.
type failingAttempts struct{}

func (failingAttempts) Record(context.Context, domain.Attempt) (*domain.Attempt, error) {
	return nil, errors.New("disk full")
}

func (failingAttempts) Recent(context.Context, int) ([]*domain.Attempt, error) {
	return nil, errors.New("disk full")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, req analysis.Requester) (*AnalysisService, *store.AttemptStore) {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	attempts := store.NewAttemptStore(d)
	client := analysis.NewClient(req, quietLogger())
	return NewAnalysisService(client, attempts, "stub", quietLogger()), attempts
}

func TestAnalysisServiceAnalyze(t *testing.T) {
	stub := &stubRequester{raw: bananaJSON}
	svc, attempts := newTestService(t, stub)
	ctx := context.Background()

	var states []analysis.State
	got, err := svc.Analyze(ctx, bytes.NewReader(jpegBytes), "", func(s analysis.State) { states = append(states, s) })
	require.NoError(t, err)
	assert.Equal(t, "Banana", got.RecognizedFood)
	assert.Equal(t, []analysis.State{analysis.StateRequesting, analysis.StateSucceeded}, states)

	assert.Equal(t, "image/jpeg", stub.last.MediaType)
	assert.Equal(t, "/9j/4AAQSkY=", stub.last.ImagePayload)

	recent, err := attempts.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.OutcomeSucceeded, recent[0].Outcome)
	assert.Equal(t, len(jpegBytes), recent[0].ImageBytes)
	assert.Equal(t, "stub", recent[0].Backend)
	assert.Empty(t, recent[0].FailureKind)
}

func TestAnalysisServiceEncodingFailure(t *testing.T) {
	stub := &stubRequester{raw: bananaJSON}
	svc, attempts := newTestService(t, stub)
	ctx := context.Background()

	var states []analysis.State
	_, err := svc.Analyze(ctx, bytes.NewReader(nil), "image/png", func(s analysis.State) { states = append(states, s) })
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEncoding)
	assert.Equal(t, []analysis.State{analysis.StateFailed}, states)
	assert.Empty(t, stub.ctxErrs, "backend must not be called for an unreadable image")

	recent, err := attempts.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "encoding", recent[0].FailureKind)
}

func TestAnalysisServiceRecordsFailureKind(t *testing.T) {
	tests := []struct {
		name string
		stub *stubRequester
		kind string
		is   error
	}{
		{"transport", &stubRequester{err: errors.New("dial tcp: connection refused")}, "transport", domain.ErrTransport},
		{"response parse", &stubRequester{raw: `{"recognizedFood":"Banana"}`}, "response_parse", domain.ErrResponseParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, attempts := newTestService(t, tt.stub)
			ctx := context.Background()

			_, err := svc.Analyze(ctx, bytes.NewReader(jpegBytes), "image/jpeg", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)

			recent, err := attempts.Recent(ctx, 1)
			require.NoError(t, err)
			require.Len(t, recent, 1)
			assert.Equal(t, domain.OutcomeFailed, recent[0].Outcome)
			assert.Equal(t, tt.kind, recent[0].FailureKind)
			assert.Equal(t, err.Error(), recent[0].Message)
		})
	}
}

func TestAnalysisServiceDetachesCancellation(t *testing.T) {
	stub := &stubRequester{raw: bananaJSON}
	svc, _ := newTestService(t, stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Analyze(ctx, bytes.NewReader(jpegBytes), "image/jpeg", nil)
	require.NoError(t, err)
	require.Len(t, stub.ctxErrs, 1)
	assert.NoError(t, stub.ctxErrs[0])
}

func TestAnalysisServiceRecordErrorDoesNotMaskResult(t *testing.T) {
	client := analysis.NewClient(&stubRequester{raw: bananaJSON}, quietLogger())
	svc := NewAnalysisService(client, failingAttempts{}, "stub", quietLogger())

	got, err := svc.Analyze(context.Background(), strings.NewReader("data:image/png;base64,iVBORw0KGgo="), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Banana", got.RecognizedFood)
}

func TestAnalysisServiceWithoutAttemptLog(t *testing.T) {
	client := analysis.NewClient(&stubRequester{raw: bananaJSON}, quietLogger())
	svc := NewAnalysisService(client, nil, "stub", quietLogger())

	_, err := svc.Analyze(context.Background(), bytes.NewReader(jpegBytes), "image/jpeg", nil)
	require.NoError(t, err)

	recent, err := svc.RecentAttempts(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
