package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/eatlytic/internal/domain"
)

// stubRequester returns canned output and records every request it sees.
type stubRequester struct {
	mu       sync.Mutex
	raw      string
	err      error
	requests []Request
}

func (s *stubRequester) Request(_ context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.raw, s.err
}

func (s *stubRequester) last() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func newTestClient(r Requester) *Client {
	return NewClient(r, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1})))
}

func TestClientAnalyze(t *testing.T) {
	stub := &stubRequester{raw: "  " + bananaJSON + "\n"}
	client := newTestClient(stub)

	got, err := client.Analyze(context.Background(), "/9j/4AAQ", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "Banana", got.RecognizedFood)
	assert.Equal(t, float64(105), got.Calories)
	assert.Len(t, got.Macros, 1)
	assert.Len(t, got.Micros, 0)

	req := stub.last()
	assert.Equal(t, "/9j/4AAQ", req.ImagePayload)
	assert.Equal(t, "image/jpeg", req.MediaType)
	assert.Equal(t, Instructions, req.Instructions)
	require.NotNil(t, req.Schema)
	assert.Contains(t, req.Schema.Required, "calories")
}

func TestClientTransportFailure(t *testing.T) {
	cause := &net.OpError{Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED}}
	client := newTestClient(&stubRequester{err: cause})

	got, err := client.Analyze(context.Background(), "/9j/4AAQ", "image/jpeg")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.NotErrorIs(t, err, domain.ErrResponseParse)
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, domain.FoodAnalysis{}, got)
}

func TestClientKeepsRequesterKind(t *testing.T) {
	blocked := domain.Errorf(domain.KindResponseParse, "gemini", "response blocked by safety filter")
	client := newTestClient(&stubRequester{err: fmt.Errorf("wrapped: %w", blocked)})

	_, err := client.Analyze(context.Background(), "/9j/4AAQ", "image/jpeg")
	assert.ErrorIs(t, err, domain.ErrResponseParse)
	assert.NotErrorIs(t, err, domain.ErrTransport)
}

func TestClientResponseParseFailure(t *testing.T) {
	missingCalories := strings.Replace(bananaJSON, `"calories":105,`, "", 1)
	client := newTestClient(&stubRequester{raw: missingCalories})

	got, err := client.Analyze(context.Background(), "/9j/4AAQ", "image/jpeg")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrResponseParse)
	assert.Equal(t, domain.FoodAnalysis{}, got)
}

func TestClientUnknownFailure(t *testing.T) {
	panicky := RequesterFunc(func(context.Context, Request) (string, error) {
		panic("sdk exploded")
	})
	client := newTestClient(panicky)

	_, err := client.Analyze(context.Background(), "/9j/4AAQ", "image/jpeg")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknown)
	assert.Contains(t, err.Error(), "sdk exploded")
}

func TestClientNoRequester(t *testing.T) {
	_, err := newTestClient(nil).Analyze(context.Background(), "/9j/4AAQ", "image/jpeg")
	assert.ErrorIs(t, err, domain.ErrUnknown)
}

func TestClientRejectsEmptyInput(t *testing.T) {
	stub := &stubRequester{raw: bananaJSON}
	client := newTestClient(stub)

	_, err := client.Analyze(context.Background(), "", "image/jpeg")
	assert.ErrorIs(t, err, domain.ErrEncoding)
	_, err = client.Analyze(context.Background(), "/9j/4AAQ", " ")
	assert.ErrorIs(t, err, domain.ErrEncoding)
	assert.Empty(t, stub.requests)
}

func TestClientStateTransitions(t *testing.T) {
	tests := []struct {
		name string
		req  Requester
		want []State
	}{
		{"success", &stubRequester{raw: bananaJSON}, []State{StateRequesting, StateSucceeded}},
		{"transport", &stubRequester{err: errors.New("down")}, []State{StateRequesting, StateFailed}},
		{"parse", &stubRequester{raw: "{}"}, []State{StateRequesting, StateFailed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen []State
			_, _ = newTestClient(tt.req).AnalyzeObserved(context.Background(), "/9j/4AAQ", "image/png", func(s State) {
				seen = append(seen, s)
			})
			assert.Equal(t, tt.want, seen)
			assert.True(t, seen[len(seen)-1].Terminal())
		})
	}
}

func TestClientSequentialCallsAreIndependent(t *testing.T) {
	apple := strings.NewReplacer(
		`"Banana"`, `"Apple"`,
		`105`, `95`,
		`"micros":[]`, `"micros":[{"name":"Vitamin C","amount":"8","unit":"mg"}]`,
	).Replace(bananaJSON)

	responses := map[string]string{"banana": bananaJSON, "apple": apple}
	client := newTestClient(RequesterFunc(func(_ context.Context, req Request) (string, error) {
		return responses[req.ImagePayload], nil
	}))

	first, err := client.Analyze(context.Background(), "banana", "image/jpeg")
	require.NoError(t, err)
	second, err := client.Analyze(context.Background(), "apple", "image/png")
	require.NoError(t, err)

	assert.Equal(t, "Banana", first.RecognizedFood)
	assert.Empty(t, first.Micros)
	assert.Equal(t, "Apple", second.RecognizedFood)
	assert.Equal(t, float64(95), second.Calories)
	require.Len(t, second.Micros, 1)

	second.Macros[0].Name = "mutated"
	assert.Equal(t, "Carbohydrates", first.Macros[0].Name)

	again, err := client.Analyze(context.Background(), "banana", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "requesting", StateRequesting.String())
	assert.Equal(t, "succeeded", StateSucceeded.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.False(t, StateRequesting.Terminal())
}
