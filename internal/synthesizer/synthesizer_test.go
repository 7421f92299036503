package synthesizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kestrellabs/deepresearch/internal/citations"
	"github.com/kestrellabs/deepresearch/internal/evidence"
)

type fakeLLM struct {
	response string
	err      error
	prompt   string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt, model string) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

var testCites = []citations.GlobalCitation{
	{ID: 1, URL: "https://a.com/x", Title: "Source A"},
	{ID: 2, URL: "https://b.com/y"},
	{ID: 3, URL: "https://c.com/z", Title: "Source C"},
}

var testUnits = []evidence.EvidenceUnit{
	{Query: "first query", Text: "Finding one[1] and two[2].", GlobalRefs: []int{1, 2}},
	{Query: "second query", Text: "Finding three[3].", GlobalRefs: []int{3}},
	{Query: "third query", Text: "No sources here."},
}

func TestDigest(t *testing.T) {
	out := Digest(testUnits, testCites)

	assert.Contains(t, out, "# first query\n## content\nFinding one[1] and two[2].\n## citations\n1. https://a.com/x\n2. https://b.com/y\n")
	assert.Contains(t, out, "# second query\n")
	assert.Contains(t, out, "3. https://c.com/z\n")
	assert.Contains(t, out, "No citations available\n")
	assert.Equal(t, 3, strings.Count(out, "***\n"))
}

func TestSynthesizeAppendsOnlyCitedSources(t *testing.T) {
	llm := &fakeLLM{response: "Narrative citing one[1] and three[3] only."}
	s := New(llm, "m", zaptest.NewLogger(t))

	report, err := s.Synthesize(context.Background(), "topic", testUnits, testCites)
	require.NoError(t, err)

	assert.Contains(t, report, "## References\n")
	assert.Contains(t, report, "1. https://a.com/x - Source A\n")
	assert.Contains(t, report, "3. https://c.com/z - Source C\n")
	assert.NotContains(t, report, "https://b.com/y", "uncited source stays out of the bibliography")

	// Ascending order.
	assert.Less(t, strings.Index(report, "1. https://a.com/x"), strings.Index(report, "3. https://c.com/z"))

	// The digest went into the prompt.
	assert.Contains(t, llm.prompt, "# first query")
	assert.Contains(t, llm.prompt, "topic")
}

func TestSynthesizeStripsModelReferences(t *testing.T) {
	llm := &fakeLLM{response: "Body citing[2].\n\n## References\n2. https://made-up.example\n"}
	s := New(llm, "m", zaptest.NewLogger(t))

	report, err := s.Synthesize(context.Background(), "topic", testUnits, testCites)
	require.NoError(t, err)

	assert.NotContains(t, report, "made-up.example")
	assert.Contains(t, report, "2. https://b.com/y\n")
	assert.Equal(t, 1, strings.Count(report, "## References"))
}

func TestSynthesizeNoMarkersInNarrative(t *testing.T) {
	llm := &fakeLLM{response: "A narrative that cites nothing."}
	s := New(llm, "m", zaptest.NewLogger(t))

	report, err := s.Synthesize(context.Background(), "topic", testUnits, testCites)
	require.NoError(t, err)
	assert.Contains(t, report, "No sources cited.")
}

func TestSynthesizeModelError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("unavailable")}
	s := New(llm, "m", zaptest.NewLogger(t))

	_, err := s.Synthesize(context.Background(), "topic", testUnits, testCites)
	assert.Error(t, err)
}

func TestFallbackContainsEvidenceAndBibliography(t *testing.T) {
	s := New(&fakeLLM{}, "m", zaptest.NewLogger(t))

	report := s.Fallback("solar energy", testUnits, testCites)

	assert.Contains(t, report, "solar energy")
	assert.Contains(t, report, "Finding one[1] and two[2].")
	assert.Contains(t, report, "## References\n")
	assert.Contains(t, report, "1. https://a.com/x - Source A\n")
	assert.Contains(t, report, "2. https://b.com/y\n")
	assert.Contains(t, report, "3. https://c.com/z - Source C\n")
}
