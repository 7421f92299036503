package citations

import (
	"net/url"
	"strings"
	"sync"

	"github.com/kestrellabs/deepresearch/internal/evidence"
)

// GlobalCitation is a source with a session-stable identifier. Ids
// start at 1 and are never reissued or renumbered.
type GlobalCitation struct {
	ID      int    `json:"global_id"`
	URL     string `json:"url"`
	Key     string `json:"key"` // normalized dedup key
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// Registry maps per-response citation indices to global ids,
// deduplicating sources by normalized URL. It is the one piece of
// state shared across concurrent sub-question loops, so registration
// is serialized end to end under a single mutex.
type Registry struct {
	mu     sync.Mutex
	byKey  map[string]int
	items  []GlobalCitation
	nextID int
}

func NewRegistry() *Registry {
	return &Registry{
		byKey:  make(map[string]int),
		nextID: 1,
	}
}

// Register ingests one search response's citation batch and returns
// the local-index -> global-id mapping for it. URLs seen before reuse
// their existing id; new URLs are assigned the next id atomically.
// Registration never fails: a URL that cannot be parsed is keyed by
// its raw string instead.
func (r *Registry) Register(batch []evidence.RawCitation) map[int]int {
	mapping := make(map[int]int, len(batch))
	if len(batch) == 0 {
		return mapping
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, raw := range batch {
		key := NormalizeURL(raw.URL)
		id, ok := r.byKey[key]
		if !ok {
			id = r.nextID
			r.nextID++
			r.byKey[key] = id
			r.items = append(r.items, GlobalCitation{
				ID:      id,
				URL:     raw.URL,
				Key:     key,
				Title:   raw.Title,
				Snippet: raw.Snippet,
			})
		} else {
			// Non-authoritative merge: fill fields the first
			// sighting left empty, never overwrite.
			item := &r.items[id-1]
			if item.Title == "" {
				item.Title = raw.Title
			}
			if item.Snippet == "" {
				item.Snippet = raw.Snippet
			}
		}
		mapping[raw.LocalIndex] = id
	}
	return mapping
}

// Resolve returns the citation for a global id, if issued.
func (r *Registry) Resolve(id int) (GlobalCitation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 1 || id > len(r.items) {
		return GlobalCitation{}, false
	}
	return r.items[id-1], true
}

// Snapshot returns all citations in ascending global-id order.
func (r *Registry) Snapshot() []GlobalCitation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]GlobalCitation, len(r.items))
	copy(out, r.items)
	return out
}

// Size reports how many distinct sources have been registered.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// trackingParams are stripped before comparing URLs for identity.
var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "msclkid",
	"ref", "source",
}

// NormalizeURL produces the dedup key for a URL: host and path with
// the scheme dropped (http/https compare equal), lowercase host
// without a www. prefix, no fragment, no tracking parameters, no
// trailing slash. The result is idempotent under re-normalization.
// Inputs that do not parse as URLs come back trimmed but otherwise
// untouched, so malformed sources dedup by raw string.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	withScheme := s
	if !strings.Contains(withScheme, "://") {
		withScheme = "https://" + withScheme
	}
	parsed, err := url.Parse(withScheme)
	if err != nil || parsed.Host == "" {
		return s
	}

	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")

	if parsed.RawQuery != "" {
		q := parsed.Query()
		for _, p := range trackingParams {
			q.Del(p)
		}
		parsed.RawQuery = q.Encode()
	}

	path := strings.TrimSuffix(parsed.Path, "/")

	key := host + path
	if parsed.RawQuery != "" {
		key += "?" + parsed.RawQuery
	}
	return key
}
