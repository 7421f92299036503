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

	"github.com/kestrellabs/deepresearch/internal/metrics"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterConfig configures the chat-completions client.
type OpenRouterConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// OpenRouterClient implements LanguageModel against the OpenRouter
// chat-completions API.
type OpenRouterClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewOpenRouterClient(cfg OpenRouterConfig, logger *zap.Logger) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenRouterBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	return &OpenRouterClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
}

// Complete sends a single-turn chat completion and returns the model's text.
func (c *OpenRouterClient) Complete(ctx context.Context, prompt string, model string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 1,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.LLMCallsTotal.WithLabelValues(model, "error").Inc()
		return "", &ProviderError{Provider: "openrouter", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.LLMCallsTotal.WithLabelValues(model, "error").Inc()
		return "", &ProviderError{Provider: "openrouter", Status: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.LLMCallsTotal.WithLabelValues(model, "error").Inc()
		return "", &ProviderError{Provider: "openrouter", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		metrics.LLMCallsTotal.WithLabelValues(model, "error").Inc()
		return "", &ProviderError{Provider: "openrouter", Err: fmt.Errorf("empty completion")}
	}

	metrics.LLMCallsTotal.WithLabelValues(model, "ok").Inc()
	metrics.LLMCallDuration.Observe(time.Since(start).Seconds())
	c.logger.Debug("completion finished",
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(start)),
	)
	return parsed.Choices[0].Message.Content, nil
}
