// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/protocol-engine/internal/cache"
	"github.com/pdiddy/protocol-engine/pkg/types"
)

// --- mock backends ---

type mockBackend struct {
	response string
	err      error
	calls    int
	lastReq  Request
}

func (m *mockBackend) Name() string { return "mock/test-model" }

func (m *mockBackend) Generate(_ context.Context, req Request) (string, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// failNTimesBackend fails the first N calls, then succeeds.
type failNTimesBackend struct {
	failures  int
	callCount int
	response  string
}

func (f *failNTimesBackend) Name() string { return "mock/flaky" }

func (f *failNTimesBackend) Generate(_ context.Context, _ Request) (string, error) {
	f.callCount++
	if f.callCount <= f.failures {
		return "", fmt.Errorf("transient error (call %d)", f.callCount)
	}
	return f.response, nil
}

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	backoffBase = time.Millisecond
	os.Exit(m.Run())
}

const protocolJSON = `{
	"title": "Buffer Mixing Protocol",
	"reagents": ["Buffer A", "Buffer B"],
	"materials": ["Pipette", "Incubator"],
	"preparation": ["Pre-warm the incubator to 37C"],
	"procedure": [
		{"step": 3, "action": "Mix 10uL of buffer A with 5uL of buffer B"},
		{"step": 7, "action": "Incubate", "time": "30 min", "temp": "37C"}
	],
	"conditions": {"total_time": "35 min", "temperature": "37C"},
	"critical_notes": ["Keep buffers on ice"],
	"safety_warnings": []
}`

func testArticle() *types.Article {
	return &types.Article{
		PMCID:       "1234567",
		Title:       "Buffer Mixing in Practice",
		MethodsText: "Mix 10uL of buffer A with 5uL of buffer B, incubate at 37°C for 30 min.",
	}
}

func newTestSynthesizer(t *testing.T, backend Backend) *Synthesizer {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"), 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewSynthesizer(backend, store, types.SynthesisConfig{MaxRetries: 3}, nil)
}

func TestSynthesizeBuildsProtocol(t *testing.T) {
	backend := &mockBackend{response: protocolJSON}
	s := newTestSynthesizer(t, backend)

	p, err := s.Synthesize(context.Background(), testArticle(), types.StyleDetailed)
	require.NoError(t, err)

	assert.Equal(t, "Buffer Mixing Protocol", p.Title)
	assert.Equal(t, "1234567", p.Article.PMCID)
	assert.Equal(t, []string{"Buffer A", "Buffer B"}, p.Reagents)
	assert.Equal(t, "mock/test-model", p.Generator)
	assert.False(t, p.GeneratedAt.IsZero())
}

func TestSynthesizeRenumbersProcedure(t *testing.T) {
	s := newTestSynthesizer(t, &mockBackend{response: protocolJSON})

	p, err := s.Synthesize(context.Background(), testArticle(), types.StyleDetailed)
	require.NoError(t, err)

	// Model emitted steps 3 and 7; numbering is normalized.
	require.Len(t, p.Procedure, 2)
	assert.Equal(t, 1, p.Procedure[0].Step)
	assert.Equal(t, 2, p.Procedure[1].Step)
	assert.Equal(t, "Mix 10uL of buffer A with 5uL of buffer B", p.Procedure[0].Action)
}

func TestSynthesizeEmptyMethods(t *testing.T) {
	backend := &mockBackend{response: protocolJSON}
	s := newTestSynthesizer(t, backend)

	art := testArticle()
	art.MethodsText = "   \n\t"
	_, err := s.Synthesize(context.Background(), art, types.StyleDetailed)

	var eerr *EmptyInputError
	require.ErrorAs(t, err, &eerr)
	assert.Zero(t, backend.calls, "backend must not be called for empty input")
}

func TestSynthesizeSecondCallHitsCache(t *testing.T) {
	backend := &mockBackend{response: protocolJSON}
	s := newTestSynthesizer(t, backend)

	ctx := context.Background()
	first, err := s.Synthesize(ctx, testArticle(), types.StyleConcise)
	require.NoError(t, err)
	second, err := s.Synthesize(ctx, testArticle(), types.StyleConcise)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.calls, "second synthesis must be served from cache")
	assert.Equal(t, first, second)
}

func TestSynthesizeStylesAreDistinctEntries(t *testing.T) {
	backend := &mockBackend{response: protocolJSON}
	s := newTestSynthesizer(t, backend)

	ctx := context.Background()
	_, err := s.Synthesize(ctx, testArticle(), types.StyleDetailed)
	require.NoError(t, err)
	_, err = s.Synthesize(ctx, testArticle(), types.StyleEducational)
	require.NoError(t, err)

	assert.Equal(t, 2, backend.calls)
}

func TestSynthesizeUnknownStyleFallsBackToDetailed(t *testing.T) {
	backend := &mockBackend{response: protocolJSON}
	s := newTestSynthesizer(t, backend)

	_, err := s.Synthesize(context.Background(), testArticle(), types.Style("verbose"))
	require.NoError(t, err)
	assert.Contains(t, backend.lastReq.User, styleInstructions[types.StyleDetailed])

	// The fallback shares the detailed cache entry.
	_, err = s.Synthesize(context.Background(), testArticle(), types.StyleDetailed)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.calls)
}

func TestSynthesizeRequestParameters(t *testing.T) {
	backend := &mockBackend{response: protocolJSON}
	s := newTestSynthesizer(t, backend)

	art := testArticle()
	_, err := s.Synthesize(context.Background(), art, types.StyleEducational)
	require.NoError(t, err)

	req := backend.lastReq
	assert.InDelta(t, 0.3, req.Temperature, 1e-9)
	assert.Equal(t, 4000, req.MaxOutputTokens)
	assert.True(t, req.JSONResponse)
	assert.Contains(t, req.User, art.MethodsText)
	assert.Contains(t, req.User, styleInstructions[types.StyleEducational])
	assert.Contains(t, req.System, `"procedure"`)
}

func TestSynthesizeRetriesTransientFailures(t *testing.T) {
	backend := &failNTimesBackend{failures: 2, response: protocolJSON}
	s := newTestSynthesizer(t, backend)

	p, err := s.Synthesize(context.Background(), testArticle(), types.StyleDetailed)
	require.NoError(t, err)
	assert.Equal(t, 3, backend.callCount)
	assert.Equal(t, "Buffer Mixing Protocol", p.Title)
}

func TestSynthesizeExhaustedRetries(t *testing.T) {
	backend := &mockBackend{err: errors.New("rate limited")}
	s := newTestSynthesizer(t, backend)

	_, err := s.Synthesize(context.Background(), testArticle(), types.StyleDetailed)

	var serr *SynthesisError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "mock/test-model", serr.Provider)
	assert.Equal(t, 4, backend.calls, "initial call plus three retries")
}

func TestSynthesizeUnparseableResponse(t *testing.T) {
	s := newTestSynthesizer(t, &mockBackend{response: "this is not JSON"})

	_, err := s.Synthesize(context.Background(), testArticle(), types.StyleDetailed)
	var serr *SynthesisError
	require.ErrorAs(t, err, &serr)
}

func TestSynthesizeTolerantOfCodeFences(t *testing.T) {
	s := newTestSynthesizer(t, &mockBackend{response: "```json\n" + protocolJSON + "\n```"})

	p, err := s.Synthesize(context.Background(), testArticle(), types.StyleDetailed)
	require.NoError(t, err)
	assert.Equal(t, "Buffer Mixing Protocol", p.Title)
}

func TestSynthesizeDefaultsForMissingFields(t *testing.T) {
	s := newTestSynthesizer(t, &mockBackend{response: `{"procedure": null}`})

	p, err := s.Synthesize(context.Background(), testArticle(), types.StyleDetailed)
	require.NoError(t, err)

	assert.Equal(t, "Untitled protocol", p.Title)
	assert.NotNil(t, p.Procedure)
	assert.Empty(t, p.Procedure)
	assert.NotNil(t, p.Reagents)
	assert.NotNil(t, p.Conditions)
	assert.NotNil(t, p.SafetyWarnings)
}

func TestParseProtocolStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"bare", `{"title": "T"}`},
		{"fenced", "```\n{\"title\": \"T\"}\n```"},
		{"fenced json", "```json\n{\"title\": \"T\"}\n```"},
		{"padded", "  \n```json\n{\"title\": \"T\"}\n```\n  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := parseProtocol(tt.in)
			require.NoError(t, err)
			assert.Equal(t, "T", p.Title)
		})
	}
}

func TestNewBackendUnknownProvider(t *testing.T) {
	_, err := NewBackend(types.SynthesisConfig{Provider: "mystery"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mystery")
}

func TestNewBackendOpenAIDefault(t *testing.T) {
	b, err := NewBackend(types.SynthesisConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o-mini", b.Name())
}

func TestNewBackendAnthropic(t *testing.T) {
	b, err := NewBackend(types.SynthesisConfig{Provider: "anthropic", Model: "claude-sonnet-4-5", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-sonnet-4-5", b.Name())
}
