package rank

// Table maps each tag seen in the corpus to its co-occurrence histogram.
// It is not safe for concurrent writers.
type Table struct {
	hists map[string]*Histogram
	order []string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{hists: make(map[string]*Histogram)}
}

// Add folds one corpus document into the table. Every tag occurrence in
// docTags gets one increment in the bucket of the document's overlap with current.
func (t *Table) Add(docTags, current []string) {
	if len(docTags) == 0 {
		return
	}
	bucket := Bucket(Overlap(docTags, current))
	for _, tag := range docTags {
		h, ok := t.hists[tag]
		if !ok {
			h = new(Histogram)
			t.hists[tag] = h
			t.order = append(t.order, tag)
		}
		h[bucket]++
	}
}

// Histogram returns the histogram for tag, or nil when the tag was never seen.
func (t *Table) Histogram(tag string) *Histogram {
	return t.hists[tag]
}

// Tags returns a copy of the known tags in first-seen order.
func (t *Table) Tags() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of distinct tags.
func (t *Table) Len() int {
	return len(t.order)
}
