package synthesizer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kestrellabs/deepresearch/internal/citations"
	"github.com/kestrellabs/deepresearch/internal/evidence"
	"github.com/kestrellabs/deepresearch/internal/providers"
)

const reportPrompt = `Merge the content from all search results below, add appropriate connecting paragraphs, and expand it into an in-depth research report covering all of the search data. The report must mention all search results, be persuasive, and explain cause and effect relationships.
Each important argument or data point must keep its citation markers exactly as they appear in the source material, e.g. [1][2]; ordinary descriptions do not need citations. Do NOT renumber citations and do NOT add a references section; it is appended separately.`

var referencesHeadingRe = regexp.MustCompile(`(?mi)^#{0,3}\s*(references|bibliography|sources)\s*:?\s*$`)

// Synthesizer assembles the final narrative from globally-cited
// evidence and appends the bibliography for exactly the sources the
// narrative cites, in ascending global-id order.
type Synthesizer struct {
	llm    providers.LanguageModel
	model  string
	logger *zap.Logger
}

func New(llm providers.LanguageModel, model string, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{llm: llm, model: model, logger: logger}
}

// Digest renders all evidence with global citation markers, grouped
// by query, followed by each section's citation list. This is both
// the synthesis model's input and the recited-results artifact.
func Digest(units []evidence.EvidenceUnit, cites []citations.GlobalCitation) string {
	byID := make(map[int]citations.GlobalCitation, len(cites))
	for _, c := range cites {
		byID[c.ID] = c
	}

	var sb strings.Builder
	for _, u := range units {
		fmt.Fprintf(&sb, "# %s\n## content\n%s\n## citations\n", u.Query, u.Text)
		if len(u.GlobalRefs) == 0 {
			sb.WriteString("No citations available\n")
		}
		for _, id := range u.GlobalRefs {
			if c, ok := byID[id]; ok {
				fmt.Fprintf(&sb, "%d. %s\n", id, c.URL)
			}
		}
		sb.WriteString("***\n\n")
	}
	return sb.String()
}

// Synthesize produces the cited report. The returned text always ends
// with a References section listing only the global ids the narrative
// actually uses.
func (s *Synthesizer) Synthesize(ctx context.Context, topic string, units []evidence.EvidenceUnit, cites []citations.GlobalCitation) (string, error) {
	digest := Digest(units, cites)
	prompt := fmt.Sprintf("%s\n\nResearch topic: %s\n\n%s", reportPrompt, topic, digest)

	body, err := s.llm.Complete(ctx, prompt, s.model)
	if err != nil {
		return "", err
	}

	report := stripTrailingReferences(body)
	return appendBibliography(report, cites), nil
}

// Fallback builds a report without a model: the digest itself becomes
// the body. Used when synthesis failed after its retry so the session
// still terminates with a cited report.
func (s *Synthesizer) Fallback(topic string, units []evidence.EvidenceUnit, cites []citations.GlobalCitation) string {
	s.logger.Warn("falling back to digest report", zap.String("topic", topic))
	header := fmt.Sprintf("# Research Report: %s\n\n_Synthesis was unavailable; collected findings follow._\n\n", topic)
	return appendBibliography(header+Digest(units, cites), cites)
}

// stripTrailingReferences removes a model-emitted references section;
// the bibliography is appended deterministically instead.
func stripTrailingReferences(report string) string {
	loc := referencesHeadingRe.FindStringIndex(report)
	if loc == nil {
		return strings.TrimSpace(report)
	}
	return strings.TrimSpace(report[:loc[0]])
}

func appendBibliography(report string, cites []citations.GlobalCitation) string {
	byID := make(map[int]citations.GlobalCitation, len(cites))
	for _, c := range cites {
		byID[c.ID] = c
	}

	used := evidence.MarkersIn(report)
	var sb strings.Builder
	sb.WriteString(report)
	sb.WriteString("\n\n## References\n")
	listed := 0
	for _, id := range used {
		c, ok := byID[id]
		if !ok {
			continue
		}
		line := fmt.Sprintf("%d. %s", id, c.URL)
		if c.Title != "" {
			line += " - " + c.Title
		}
		sb.WriteString(line + "\n")
		listed++
	}
	if listed == 0 {
		sb.WriteString("No sources cited.\n")
	}
	return sb.String()
}
