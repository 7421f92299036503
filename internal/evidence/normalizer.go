package evidence

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedResponse is returned when a search response carries no
// extractable text. Callers treat it as an empty evidence contribution
// for that query; it never fails the session.
var ErrMalformedResponse = errors.New("malformed search response: no extractable text")

var markerRe = regexp.MustCompile(`\[(\d+)\]`)

// Normalize turns one raw search response into an EvidenceUnit with
// local citation refs. Inline [n] markers that do not correspond to an
// entry in the response's citation list are dropped from the text
// rather than left dangling; provider numbering may be non-contiguous.
func Normalize(content string, citations []RawCitation, subQuestionID, query string, depth int) (EvidenceUnit, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return EvidenceUnit{}, ErrMalformedResponse
	}

	valid := make(map[int]bool, len(citations))
	for _, c := range citations {
		valid[c.LocalIndex] = true
	}

	seen := make(map[int]bool)
	var refs []int
	text = markerRe.ReplaceAllStringFunc(text, func(m string) string {
		n, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil || !valid[n] {
			return ""
		}
		if !seen[n] {
			seen[n] = true
			refs = append(refs, n)
		}
		return m
	})
	sort.Ints(refs)

	return EvidenceUnit{
		SubQuestionID: subQuestionID,
		Query:         query,
		Depth:         depth,
		Text:          text,
		LocalRefs:     refs,
	}, nil
}

// Rewrite replaces the unit's local [n] markers with the global ids
// from mapping and fills GlobalRefs. Markers without a mapping entry
// are left untouched; Normalize already dropped dangling ones.
func Rewrite(unit EvidenceUnit, mapping map[int]int) EvidenceUnit {
	unit.Text = markerRe.ReplaceAllStringFunc(unit.Text, func(m string) string {
		n, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil {
			return m
		}
		gid, ok := mapping[n]
		if !ok {
			return m
		}
		return "[" + strconv.Itoa(gid) + "]"
	})

	seen := make(map[int]bool)
	var refs []int
	for _, local := range unit.LocalRefs {
		gid, ok := mapping[local]
		if !ok || seen[gid] {
			continue
		}
		seen[gid] = true
		refs = append(refs, gid)
	}
	sort.Ints(refs)
	unit.GlobalRefs = refs
	return unit
}

// MarkersIn returns the distinct citation ids referenced by [n]
// markers in text, ascending. Used by the synthesizer to build the
// bibliography from the final narrative.
func MarkersIn(text string) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, m := range markerRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		ids = append(ids, n)
	}
	sort.Ints(ids)
	return ids
}
