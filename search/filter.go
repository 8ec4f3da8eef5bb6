package search

import "sort"

// DocFilter restricts search results to an allowed set of document IDs.
//
// A nil *DocFilter allows every document. A non-nil filter with no documents
// allows none.
type DocFilter struct {
	docs map[string]struct{}
}

// NewDocFilter returns a filter allowing exactly docIDs.
func NewDocFilter(docIDs ...string) *DocFilter {
	f := &DocFilter{docs: make(map[string]struct{}, len(docIDs))}
	for _, id := range docIDs {
		f.docs[id] = struct{}{}
	}
	return f
}

// Allows reports whether docID passes the filter.
func (f *DocFilter) Allows(docID string) bool {
	if f == nil {
		return true
	}
	_, ok := f.docs[docID]
	return ok
}

// Len returns the number of allowed documents, or -1 for a nil filter.
func (f *DocFilter) Len() int {
	if f == nil {
		return -1
	}
	return len(f.docs)
}

// DocIDs returns the allowed document IDs in sorted order.
func (f *DocFilter) DocIDs() []string {
	if f == nil {
		return nil
	}
	ids := make([]string, 0, len(f.docs))
	for id := range f.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Intersect returns a filter allowing only documents allowed by both f and other.
func (f *DocFilter) Intersect(other *DocFilter) *DocFilter {
	switch {
	case f == nil:
		return other
	case other == nil:
		return f
	}
	out := NewDocFilter()
	for id := range f.docs {
		if other.Allows(id) {
			out.docs[id] = struct{}{}
		}
	}
	return out
}
