package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kestrellabs/deepresearch/internal/evidence"
	"github.com/kestrellabs/deepresearch/internal/metrics"
)

const defaultPerplexityBaseURL = "https://api.perplexity.ai"

// searchSystemPrompt instructs the provider to answer with inline [n]
// markers that index into its citation list and nothing else.
const searchSystemPrompt = `Your job is to use the search tool to provide accurate search results.
The citation format is [number] and should be used to reference the search results in the answer.
- NO SPACE between the last word and the citation, and ALWAYS use brackets. Only use this format to cite search results. NEVER include a References section at the end of your answer.
- If you don't know the answer or the premise is incorrect, explain why.
- If the search results are empty or unhelpful, answer the query as well as you can with existing knowledge.
Use markdown to format paragraphs, lists, tables, and quotes whenever possible, but NEVER start the answer with a heading and NEVER write URLs or links.`

// PerplexityConfig configures the search client.
type PerplexityConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// PerplexityClient implements SearchProvider against the Perplexity
// chat-completions API, whose responses carry an ordered citation list
// alongside the answer text.
type PerplexityClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewPerplexityClient(cfg PerplexityConfig, logger *zap.Logger) *PerplexityClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultPerplexityBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "sonar"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	return &PerplexityClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  logger,
	}
}

// Search issues one query and normalizes the provider's citation list
// into locally-numbered RawCitations starting at 1.
func (c *PerplexityClient) Search(ctx context.Context, query string) (SearchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return SearchResponse{}, err
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: searchSystemPrompt},
			{Role: "user", Content: query},
		},
		Temperature: 1,
	})
	if err != nil {
		return SearchResponse{}, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return SearchResponse{}, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return SearchResponse{}, &ProviderError{Provider: "perplexity", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return SearchResponse{}, &ProviderError{Provider: "perplexity", Status: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return SearchResponse{}, &ProviderError{Provider: "perplexity", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return SearchResponse{}, &ProviderError{Provider: "perplexity", Err: fmt.Errorf("empty response")}
	}

	out := SearchResponse{
		Query:   query,
		Content: parsed.Choices[0].Message.Content,
	}
	for i, u := range parsed.Citations {
		out.Citations = append(out.Citations, evidence.RawCitation{
			LocalIndex: i + 1,
			URL:        u,
		})
	}

	metrics.SearchesTotal.WithLabelValues("ok").Inc()
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	c.logger.Debug("search finished",
		zap.String("query", query),
		zap.Int("citations", len(out.Citations)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}
