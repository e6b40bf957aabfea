// Package rank orders candidate tags by how strongly they co-occur with the
// tags of the document being edited.
//
// Every corpus document gets an overlap score: the number of its tags that
// also appear in the current document. Each candidate tag keeps a histogram
// of the overlap scores of the documents it appears in. Candidates are then
// compared bucket by bucket from the highest score down, so a tag seen in a
// few documents that share many tags with the current one beats a tag seen in
// many unrelated documents.
//
// All state lives in a Table built for a single request and thrown away
// afterwards.
package rank

import (
	"slices"
)

// Cap is the highest overlap bucket. Larger overlaps are clamped into it.
const Cap = 10

// Histogram counts documents per overlap bucket.
type Histogram [Cap + 1]int

// Total returns the number of documents counted in h.
func (h *Histogram) Total() int {
	n := 0
	for _, c := range h {
		n += c
	}
	return n
}

// Top returns the highest bucket with a non-zero count, or -1 for an empty histogram.
func (h *Histogram) Top() int {
	for i := Cap; i >= 0; i-- {
		if h[i] != 0 {
			return i
		}
	}
	return -1
}

// Suggestion is a ranked candidate together with its histogram.
type Suggestion struct {
	Tag       string
	Histogram Histogram
}

// Overlap counts the elements of docTags that are members of current.
// Duplicates in docTags are counted once per occurrence.
func Overlap(docTags, current []string) int {
	n := 0
	for _, t := range docTags {
		if slices.Contains(current, t) {
			n++
		}
	}
	return n
}

// Bucket clamps an overlap score into [0, Cap].
func Bucket(overlap int) int {
	return min(max(overlap, 0), Cap)
}

// Compare orders two histograms, scanning from Cap down to 0.
// It returns a negative number when a ranks before b, positive when b ranks
// before a, and 0 when every bucket matches.
func Compare(a, b *Histogram) int {
	for i := Cap; i >= 0; i-- {
		if a[i] != b[i] {
			return b[i] - a[i]
		}
	}
	return 0
}

// IsSubsequence reports whether every rune of sub appears in s in order.
// Matching is case-sensitive; an empty sub matches anything.
func IsSubsequence(s, sub string) bool {
	want := []rune(sub)
	if len(want) == 0 {
		return true
	}
	j := 0
	for _, r := range s {
		if r == want[j] {
			j++
			if j == len(want) {
				return true
			}
		}
	}
	return false
}

// Rank returns the corpus tags ordered by relevance to current, keeping only
// those that match query as a subsequence and that current does not already use.
func Rank(current []string, corpus [][]string, query string) []string {
	scored := RankScored(current, corpus, query)
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Tag
	}
	return out
}

// RankScored is Rank with each tag's histogram attached.
func RankScored(current []string, corpus [][]string, query string) []Suggestion {
	table := NewTable()
	for _, docTags := range corpus {
		table.Add(docTags, current)
	}

	candidates := table.Tags()
	slices.SortStableFunc(candidates, func(a, b string) int {
		return Compare(table.Histogram(a), table.Histogram(b))
	})

	out := make([]Suggestion, 0, len(candidates))
	for _, tag := range candidates {
		if !IsSubsequence(tag, query) || slices.Contains(current, tag) {
			continue
		}
		out = append(out, Suggestion{Tag: tag, Histogram: *table.Histogram(tag)})
	}
	return out
}
