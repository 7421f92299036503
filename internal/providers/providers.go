package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/kestrellabs/deepresearch/internal/evidence"
)

// LanguageModel is the contract the planner, gap analyzer and report
// synthesizer consume. Implementations carry their own timeouts; the
// orchestration layer retries a failed call at most once.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string, model string) (string, error)
}

// SearchProvider executes one search query and returns the provider's
// answer text plus its ordered, locally-numbered citation list.
type SearchProvider interface {
	Search(ctx context.Context, query string) (SearchResponse, error)
}

// FreshSearcher is implemented by providers that can bypass any
// caching layer. Used when the gap analyzer explicitly re-issues a
// query it already tried, where stale cached results would defeat the
// point of the repeat.
type FreshSearcher interface {
	SearchFresh(ctx context.Context, query string) (SearchResponse, error)
}

// SearchResponse is one raw search result: content with inline [n]
// markers and the citation list those markers index into.
type SearchResponse struct {
	Query     string                 `json:"query"`
	Content   string                 `json:"content"`
	Citations []evidence.RawCitation `json:"citations"`
}

// ProviderError marks transient failures from an external provider:
// rate limits, timeouts, malformed payloads. Callers retry once and
// then degrade rather than failing the session.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsProviderError reports whether err is (or wraps) a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
