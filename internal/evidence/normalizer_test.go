package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCollectsLocalRefs(t *testing.T) {
	cites := []RawCitation{
		{LocalIndex: 1, URL: "https://a.com"},
		{LocalIndex: 2, URL: "https://b.com"},
	}
	unit, err := Normalize("First finding[1] and second[2], first again[1].", cites, "sq-1", "q", 0)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, unit.LocalRefs)
	assert.Equal(t, "sq-1", unit.SubQuestionID)
	assert.Equal(t, 0, unit.Depth)
}

func TestNormalizeDropsDanglingMarkers(t *testing.T) {
	cites := []RawCitation{{LocalIndex: 1, URL: "https://a.com"}}
	unit, err := Normalize("Cited[1] but this[7] has no source.", cites, "sq-1", "q", 0)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, unit.LocalRefs)
	assert.Equal(t, "Cited[1] but this has no source.", unit.Text)
}

func TestNormalizeNonContiguousProviderNumbering(t *testing.T) {
	cites := []RawCitation{
		{LocalIndex: 2, URL: "https://b.com"},
		{LocalIndex: 5, URL: "https://e.com"},
	}
	unit, err := Normalize("Facts[5] and more[2].", cites, "sq-1", "q", 1)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 5}, unit.LocalRefs)
}

func TestNormalizeEmptyTextIsMalformed(t *testing.T) {
	_, err := Normalize("   \n ", nil, "sq-1", "q", 0)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestNormalizeNoMarkersIsValid(t *testing.T) {
	unit, err := Normalize("Plain prose without citations.", nil, "sq-1", "q", 0)
	require.NoError(t, err)
	assert.Empty(t, unit.LocalRefs)
	assert.Equal(t, "Plain prose without citations.", unit.Text)
}

func TestRewriteReplacesMarkersAndFillsGlobalRefs(t *testing.T) {
	unit := EvidenceUnit{
		Text:      "One[1], two[2], one again[1].",
		LocalRefs: []int{1, 2},
	}
	out := Rewrite(unit, map[int]int{1: 4, 2: 2})

	assert.Equal(t, "One[4], two[2], one again[4].", out.Text)
	assert.Equal(t, []int{2, 4}, out.GlobalRefs)
}

func TestRewriteSharedSourceCollapses(t *testing.T) {
	unit := EvidenceUnit{
		Text:      "Both[1] markers[2] cite the same page.",
		LocalRefs: []int{1, 2},
	}
	out := Rewrite(unit, map[int]int{1: 3, 2: 3})

	assert.Equal(t, "Both[3] markers[3] cite the same page.", out.Text)
	assert.Equal(t, []int{3}, out.GlobalRefs)
}

func TestMarkersIn(t *testing.T) {
	ids := MarkersIn("Intro[3] body[1] repeat[3] tail[12]")
	assert.Equal(t, []int{1, 3, 12}, ids)

	assert.Empty(t, MarkersIn("no markers here"))
}
