package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kestrellabs/deepresearch/internal/evidence"
	"github.com/kestrellabs/deepresearch/internal/providers"
)

// ErrPlanningFailed aborts the session: without a plan no search can
// be attributed to a sub-question.
var ErrPlanningFailed = errors.New("planning failed")

const planPrompt = `You need to break down the research topic below into detailed sub-questions and generate one detailed search query for each sub-question.
Keywords like "2024" or "launch date" should be avoided.
Respond according to the following JSON format:
` + "```json" + `
{
    "sub_questions": [
        {
            "question": "detailed description of the research goal of the sub-question and what the search should surface",
            "query": ["search query with a detailed description"]
        }
    ]
}
` + "```"

// Planner decomposes a topic into an ordered sub-question list with
// seed queries. One model call, no iteration; the caller retries the
// call once before giving up.
type Planner struct {
	llm    providers.LanguageModel
	model  string
	logger *zap.Logger
}

func New(llm providers.LanguageModel, model string, logger *zap.Logger) *Planner {
	return &Planner{llm: llm, model: model, logger: logger}
}

// Plan produces the session's sub-questions. preliminary, when
// non-empty, is the content of an initial exploratory search and is
// offered to the model as context.
func (p *Planner) Plan(ctx context.Context, topic, preliminary string) ([]evidence.SubQuestion, error) {
	prompt := fmt.Sprintf("%s\nResearch topic: %s", planPrompt, topic)
	if preliminary != "" {
		prompt += fmt.Sprintf("\nPreliminary search findings for orientation:\n%s", preliminary)
	}

	raw, err := p.llm.Complete(ctx, prompt, p.model)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanningFailed, err)
	}

	var parsed struct {
		SubQuestions []struct {
			Question string   `json:"question"`
			Query    []string `json:"query"`
		} `json:"sub_questions"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &parsed); err != nil {
		p.logger.Error("failed to parse plan response",
			zap.Error(err),
			zap.String("response", raw),
		)
		return nil, fmt.Errorf("%w: unparseable plan: %v", ErrPlanningFailed, err)
	}

	var subs []evidence.SubQuestion
	for _, sq := range parsed.SubQuestions {
		question := strings.TrimSpace(sq.Question)
		seed := ""
		for _, q := range sq.Query {
			if strings.TrimSpace(q) != "" {
				seed = strings.TrimSpace(q)
				break
			}
		}
		if question == "" || seed == "" {
			continue
		}
		subs = append(subs, evidence.SubQuestion{
			ID:        uuid.NewString(),
			Text:      question,
			SeedQuery: seed,
		})
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("%w: plan contained no usable sub-questions", ErrPlanningFailed)
	}

	p.logger.Info("research plan ready",
		zap.String("topic", topic),
		zap.Int("sub_questions", len(subs)),
	)
	return subs, nil
}

func stripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```json") {
		t = strings.TrimPrefix(t, "```json")
	} else if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```")
	} else if start := strings.Index(t, "```json"); start != -1 {
		t = t[start+len("```json"):]
	} else {
		return t
	}
	if idx := strings.LastIndex(t, "```"); idx != -1 {
		t = t[:idx]
	}
	return strings.TrimSpace(t)
}
