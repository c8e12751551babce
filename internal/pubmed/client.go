// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmed searches PubMed Central and fetches parsed articles.
// Every network call is fronted by the content-addressed cache, so a
// repeated query or fetch within the TTL replays the stored result.
package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/protocol-engine/internal/cache"
	"github.com/pdiddy/protocol-engine/internal/httputil"
	"github.com/pdiddy/protocol-engine/internal/jats"
	"github.com/pdiddy/protocol-engine/pkg/types"
)

// eutilsBase is the NCBI eutils endpoint. Declared as a var so tests can
// substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

const (
	defaultSearchTimeout = 10 * time.Second
	defaultFetchTimeout  = 30 * time.Second
	defaultMaxResults    = 5
)

// Client queries the PubMed Central eutils API.
type Client struct {
	HTTP   *http.Client
	Cache  *cache.Store
	Config types.PubMedConfig
	Log    *zap.Logger
}

// NewClient builds a Client backed by the given cache store. A nil logger
// disables logging.
func NewClient(store *cache.Store, cfg types.PubMedConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		HTTP:   &http.Client{},
		Cache:  store,
		Config: cfg,
		Log:    log,
	}
}

// Search returns PMC identifiers for articles matching query, constrained
// to open-access results and ranked by relevance, capped at maxResults.
// Results are cached under a key derived from (query, maxResults). An
// empty result list is valid, not an error.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		maxResults = c.Config.MaxResults
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	key := cache.Key(fmt.Sprintf("search_%s_%d", query, maxResults))
	if raw, ok := c.Cache.Get(ctx, key); ok {
		var ids []string
		if err := json.Unmarshal(raw, &ids); err == nil {
			return ids, nil
		}
	}

	timeout := c.Config.Timeout
	if timeout <= 0 {
		timeout = defaultSearchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params := url.Values{
		"db":      {"pmc"},
		"term":    {query + " AND open access[filter]"},
		"retmode": {"json"},
		"retmax":  {fmt.Sprintf("%d", maxResults)},
		"sort":    {"relevance"},
	}
	if c.Config.APIKey != "" {
		params.Set("api_key", c.Config.APIKey)
	}

	resp, err := c.get(ctx, eutilsBase+"/esearch.fcgi?"+params.Encode())
	if err != nil {
		return nil, &SearchError{Query: query, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &SearchError{Query: query, Err: fmt.Errorf("eutils returned HTTP %d", resp.StatusCode)}
	}

	var result struct {
		ESearchResult *struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &SearchError{Query: query, Err: fmt.Errorf("parsing search response: %w", err)}
	}
	if result.ESearchResult == nil {
		return nil, &SearchError{Query: query, Err: fmt.Errorf("search response has no esearchresult")}
	}

	ids := result.ESearchResult.IDList
	if ids == nil {
		ids = []string{}
	}

	c.cachePut(ctx, key, ids)
	c.Log.Info("search complete", zap.String("query", query), zap.Int("results", len(ids)))
	return ids, nil
}

// Fetch retrieves the full article XML for a PMC identifier and parses it
// into an Article, extracting metadata and the methods section. The parsed
// Article is cached under a key derived from the identifier and
// reconstructed verbatim on a hit.
func (c *Client) Fetch(ctx context.Context, pmcID string) (*types.Article, error) {
	key := cache.Key("article_" + pmcID)
	if raw, ok := c.Cache.Get(ctx, key); ok {
		var art types.Article
		if err := json.Unmarshal(raw, &art); err == nil {
			return &art, nil
		}
	}

	timeout := c.Config.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params := url.Values{
		"db":      {"pmc"},
		"id":      {pmcID},
		"retmode": {"xml"},
	}
	if c.Config.APIKey != "" {
		params.Set("api_key", c.Config.APIKey)
	}

	resp, err := c.get(ctx, eutilsBase+"/efetch.fcgi?"+params.Encode())
	if err != nil {
		return nil, &FetchError{PMCID: pmcID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{PMCID: pmcID, Err: fmt.Errorf("eutils returned HTTP %d", resp.StatusCode)}
	}

	root, err := jats.Parse(resp.Body)
	if err != nil {
		return nil, &FetchError{PMCID: pmcID, Err: fmt.Errorf("parsing article XML: %w", err)}
	}

	art := jats.ParseArticle(root, pmcID)
	art.FullTextURL = fmt.Sprintf("https://www.ncbi.nlm.nih.gov/pmc/articles/PMC%s/", pmcID)

	c.cachePut(ctx, key, art)
	c.Log.Info("article fetched",
		zap.String("pmc_id", pmcID),
		zap.Bool("has_methods", art.HasMethods()))
	return art, nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.Config.UserAgent)
	return httputil.DoWithRetry(ctx, c.HTTP, req, 0)
}

// cachePut stores v under key. Cache writes are advisory: a failure is
// logged and the computed value is still returned to the caller.
func (c *Client) cachePut(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.Log.Warn("cache payload marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.Cache.Put(ctx, key, raw); err != nil {
		c.Log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
