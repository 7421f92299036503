package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
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

const planJSON = `{
  "sub_questions": [
    {"question": "What drives adoption?", "query": ["residential solar adoption drivers"]},
    {"question": "What are the costs?", "query": ["", "solar installation cost trends"]}
  ]
}`

func TestPlan(t *testing.T) {
	llm := &fakeLLM{response: planJSON}
	p := New(llm, "test/model", zaptest.NewLogger(t))

	subs, err := p.Plan(context.Background(), "solar energy", "")
	require.NoError(t, err)
	require.Len(t, subs, 2)

	assert.Equal(t, "What drives adoption?", subs[0].Text)
	assert.Equal(t, "residential solar adoption drivers", subs[0].SeedQuery)
	assert.NotEmpty(t, subs[0].ID)
	assert.NotEqual(t, subs[0].ID, subs[1].ID)

	// First non-empty query becomes the seed.
	assert.Equal(t, "solar installation cost trends", subs[1].SeedQuery)

	assert.Contains(t, llm.prompt, "solar energy")
}

func TestPlanWithCodeFences(t *testing.T) {
	llm := &fakeLLM{response: "```json\n" + planJSON + "\n```"}
	p := New(llm, "m", zaptest.NewLogger(t))

	subs, err := p.Plan(context.Background(), "topic", "")
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}

func TestPlanIncludesPreliminaryFindings(t *testing.T) {
	llm := &fakeLLM{response: planJSON}
	p := New(llm, "m", zaptest.NewLogger(t))

	_, err := p.Plan(context.Background(), "topic", "early findings here")
	require.NoError(t, err)
	assert.Contains(t, llm.prompt, "early findings here")
}

func TestPlanModelError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("boom")}
	p := New(llm, "m", zaptest.NewLogger(t))

	_, err := p.Plan(context.Background(), "topic", "")
	assert.ErrorIs(t, err, ErrPlanningFailed)
}

func TestPlanUnparseableResponse(t *testing.T) {
	llm := &fakeLLM{response: "sorry, I cannot help with that"}
	p := New(llm, "m", zaptest.NewLogger(t))

	_, err := p.Plan(context.Background(), "topic", "")
	assert.ErrorIs(t, err, ErrPlanningFailed)
}

func TestPlanEmptyPlan(t *testing.T) {
	llm := &fakeLLM{response: `{"sub_questions": [{"question": "", "query": [""]}]}`}
	p := New(llm, "m", zaptest.NewLogger(t))

	_, err := p.Plan(context.Background(), "topic", "")
	assert.ErrorIs(t, err, ErrPlanningFailed)
}
