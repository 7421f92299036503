package evidence

// SubQuestion is one decomposed facet of the overall research topic.
// Created by the planner, immutable for the lifetime of the session.
type SubQuestion struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	SeedQuery string `json:"seed_query"`
}

// SearchQuery is a single query issued on behalf of a sub-question.
// Depth 0 is the seed; each refinement increments it by one.
type SearchQuery struct {
	Text          string `json:"text"`
	SubQuestionID string `json:"sub_question_id"`
	Depth         int    `json:"depth"`
}

// RawCitation is a citation as returned by the search provider. Its
// LocalIndex is only meaningful within the response that produced it.
type RawCitation struct {
	LocalIndex int    `json:"local_index"`
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	Snippet    string `json:"snippet,omitempty"`
}

// EvidenceUnit is one normalized chunk of search-derived content.
// LocalRefs hold the per-response citation indices present in Text;
// after registration the registry mapping rewrites Text in place and
// fills GlobalRefs.
type EvidenceUnit struct {
	SubQuestionID string `json:"sub_question_id"`
	Query         string `json:"query"`
	Depth         int    `json:"depth"`
	Text          string `json:"text"`
	LocalRefs     []int  `json:"local_citation_refs,omitempty"`
	GlobalRefs    []int  `json:"global_citation_refs,omitempty"`
}
