package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kestrellabs/deepresearch/internal/citations"
	"github.com/kestrellabs/deepresearch/internal/evidence"
)

const (
	searchResultsFile = "search_results.md"
	globalResultsFile = "search_results_with_global_citations.md"
	reportFile        = "research_report.md"
)

// Writer emits the per-session markdown artifacts: raw search results
// as they arrive, the globally-renumbered results, and the final
// report. Files live under dir/<session-id>/.
type Writer struct {
	mu     sync.Mutex
	dir    string
	logger *zap.Logger
}

func NewWriter(dir string, logger *zap.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

func (w *Writer) sessionDir(sessionID string) (string, error) {
	dir := filepath.Join(w.dir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	return dir, nil
}

// AppendSearchResult records one raw search result with its local
// citation list. Concurrent sub-question loops share the file, so
// appends are serialized.
func (w *Writer) AppendSearchResult(sessionID, query, content string, cites []evidence.RawCitation) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir, err := w.sessionDir(sessionID)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, searchResultsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open search results: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n## content\n%s\n## citations\n", query, content)
	if len(cites) == 0 {
		sb.WriteString("No citations available\n")
	}
	for _, c := range cites {
		fmt.Fprintf(&sb, "%d. %s\n", c.LocalIndex, c.URL)
	}
	sb.WriteString("***\n\n")

	if _, err := f.WriteString(sb.String()); err != nil {
		return fmt.Errorf("append search result: %w", err)
	}
	return nil
}

// WriteGlobalResults writes the consolidated digest with global
// citation markers.
func (w *Writer) WriteGlobalResults(sessionID, digest string) error {
	return w.write(sessionID, globalResultsFile, digest)
}

// WriteReport writes the final report.
func (w *Writer) WriteReport(sessionID, report string) error {
	return w.write(sessionID, reportFile, report)
}

func (w *Writer) write(sessionID, name, content string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir, err := w.sessionDir(sessionID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// CitationTable renders the session's citation registry as markdown,
// kept alongside the other artifacts for inspection.
func CitationTable(cites []citations.GlobalCitation) string {
	var sb strings.Builder
	sb.WriteString("# Global Citations\n")
	for _, c := range cites {
		fmt.Fprintf(&sb, "%d. %s\n", c.ID, c.URL)
	}
	return sb.String()
}
