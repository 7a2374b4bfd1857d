package editor

import (
	"iter"
	"maps"

	"locus/pkg/store"

	"github.com/google/uuid"
)

// HighlightIndex holds every known highlight keyed by id, across documents.
type HighlightIndex struct {
	byID map[uuid.UUID]store.Highlight
}

func NewHighlightIndex() *HighlightIndex {
	return &HighlightIndex{byID: make(map[uuid.UUID]store.Highlight)}
}

// SetAll replaces the index with hs. Later records win on duplicate ids.
func (x *HighlightIndex) SetAll(hs []store.Highlight) {
	next := make(map[uuid.UUID]store.Highlight, len(hs))
	for _, h := range hs {
		next[h.ID] = h
	}
	x.byID = next
}

// Add inserts or overwrites h and returns its id, which the caller marks as
// the current highlight.
func (x *HighlightIndex) Add(h store.Highlight) uuid.UUID {
	x.byID[h.ID] = h
	return h.ID
}

func (x *HighlightIndex) Get(id uuid.UUID) (store.Highlight, bool) {
	h, ok := x.byID[id]
	return h, ok
}

// Remove deletes the highlight with the given id.
func (x *HighlightIndex) Remove(id uuid.UUID) bool {
	if _, ok := x.byID[id]; !ok {
		return false
	}
	delete(x.byID, id)
	return true
}

func (x *HighlightIndex) Len() int {
	return len(x.byID)
}

// All yields every highlight in no particular order.
func (x *HighlightIndex) All() iter.Seq[store.Highlight] {
	return func(yield func(store.Highlight) bool) {
		for h := range maps.Values(x.byID) {
			if !yield(h) {
				return
			}
		}
	}
}

// ByDocument yields the highlights owned by docID in no particular order.
// The sequence reads the index when it is ranged over, so it can be ranged
// over again after the index changes.
func (x *HighlightIndex) ByDocument(docID uuid.UUID) iter.Seq[store.Highlight] {
	return func(yield func(store.Highlight) bool) {
		for _, h := range x.byID {
			if h.DocID != docID {
				continue
			}
			if !yield(h) {
				return
			}
		}
	}
}
