// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synth turns extracted methods text into structured laboratory
// protocols via a generative AI backend. Responses are cached keyed on the
// methods text and style, so regenerating the same protocol is free within
// the cache TTL.
package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/protocol-engine/internal/cache"
	"github.com/pdiddy/protocol-engine/pkg/types"
)

const (
	synthesisTemperature = 0.3
	synthesisMaxTokens   = 4000

	// cacheKeyPrefixRunes bounds how much of the methods text feeds the
	// cache key. Methods sections differing only beyond this prefix share
	// an entry; acceptable because the prefix plus style identifies the
	// source article in practice.
	cacheKeyPrefixRunes = 100

	defaultTimeout    = 120 * time.Second
	defaultMaxRetries = 3

	defaultProtocolTitle = "Untitled protocol"
)

// backoffBase controls the base duration for exponential backoff between
// backend retries. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// timeNow returns the current time. Package-level var so tests can pin the
// GeneratedAt stamp.
var timeNow = time.Now

// Synthesizer generates protocols from methods text through a Backend.
type Synthesizer struct {
	Backend Backend
	Cache   *cache.Store
	Config  types.SynthesisConfig
	Log     *zap.Logger
}

// NewSynthesizer builds a Synthesizer. A nil logger disables logging.
func NewSynthesizer(backend Backend, store *cache.Store, cfg types.SynthesisConfig, log *zap.Logger) *Synthesizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Synthesizer{Backend: backend, Cache: store, Config: cfg, Log: log}
}

// Synthesize generates a structured protocol from the article's methods
// text. Blank methods text fails with *EmptyInputError before any backend
// call. An unknown style falls back to detailed. The result is cached keyed
// on the methods text prefix and style; a hit skips the backend entirely.
func (s *Synthesizer) Synthesize(ctx context.Context, article *types.Article, style types.Style) (*types.Protocol, error) {
	methods := strings.TrimSpace(article.MethodsText)
	if methods == "" {
		return nil, &EmptyInputError{}
	}
	if !style.Valid() {
		style = types.StyleDetailed
	}

	key := cache.Key(fmt.Sprintf("protocol_%s_%s", prefixRunes(methods, cacheKeyPrefixRunes), style))
	if raw, ok := s.Cache.Get(ctx, key); ok {
		var p types.Protocol
		if err := json.Unmarshal(raw, &p); err == nil {
			return &p, nil
		}
	}

	timeout := s.Config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := Request{
		System:          systemPrompt,
		User:            buildPrompt(methods, style),
		Temperature:     synthesisTemperature,
		MaxOutputTokens: synthesisMaxTokens,
		JSONResponse:    true,
	}

	maxRetries := s.Config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	raw, err := s.callWithRetry(ctx, req, maxRetries)
	if err != nil {
		return nil, &SynthesisError{Provider: s.Backend.Name(), Err: err}
	}

	protocol, err := parseProtocol(raw)
	if err != nil {
		return nil, &SynthesisError{Provider: s.Backend.Name(), Err: err}
	}

	protocol.Article = *article
	protocol.GeneratedAt = timeNow().UTC()
	protocol.Generator = s.Backend.Name()

	s.cachePut(ctx, key, protocol)
	s.Log.Info("protocol synthesized",
		zap.String("pmc_id", article.PMCID),
		zap.String("style", string(style)),
		zap.Int("steps", len(protocol.Procedure)))
	return protocol, nil
}

// callWithRetry calls the backend with exponential backoff.
func (s *Synthesizer) callWithRetry(ctx context.Context, req Request, maxRetries int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := s.Backend.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		s.Log.Warn("backend call failed", zap.Int("attempt", attempt), zap.Error(err))
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// protocolResponse mirrors the JSON shape the system prompt demands.
type protocolResponse struct {
	Title          string                `json:"title"`
	Reagents       []string              `json:"reagents"`
	Materials      []string              `json:"materials"`
	Preparation    []string              `json:"preparation"`
	Procedure      []types.ProcedureStep `json:"procedure"`
	Conditions     map[string]string     `json:"conditions"`
	CriticalNotes  []string              `json:"critical_notes"`
	SafetyWarnings []string              `json:"safety_warnings"`
}

// parseProtocol decodes a backend response into a Protocol, tolerating
// Markdown code fences and substituting defaults for missing fields.
// Procedure steps are renumbered contiguously from 1 regardless of the
// numbers the model emitted.
func parseProtocol(raw string) (*types.Protocol, error) {
	var resp protocolResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &resp); err != nil {
		return nil, fmt.Errorf("parsing protocol JSON: %w", err)
	}

	p := &types.Protocol{
		Title:          resp.Title,
		Reagents:       orEmpty(resp.Reagents),
		Materials:      orEmpty(resp.Materials),
		Preparation:    orEmpty(resp.Preparation),
		Procedure:      resp.Procedure,
		Conditions:     resp.Conditions,
		CriticalNotes:  orEmpty(resp.CriticalNotes),
		SafetyWarnings: orEmpty(resp.SafetyWarnings),
	}
	if p.Title == "" {
		p.Title = defaultProtocolTitle
	}
	if p.Procedure == nil {
		p.Procedure = []types.ProcedureStep{}
	}
	if p.Conditions == nil {
		p.Conditions = map[string]string{}
	}
	for i := range p.Procedure {
		p.Procedure[i].Step = i + 1
	}
	return p, nil
}

// stripFences removes a surrounding Markdown code fence if present. Some
// providers wrap JSON output despite instructions not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func orEmpty(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

// prefixRunes returns the first n runes of s, or all of s if shorter.
func prefixRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func (s *Synthesizer) cachePut(ctx context.Context, key string, p *types.Protocol) {
	raw, err := json.Marshal(p)
	if err != nil {
		s.Log.Warn("cache payload marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.Cache.Put(ctx, key, raw); err != nil {
		s.Log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
