package chat

import (
	"cmp"
	"slices"

	"locus/pkg/store"

	"github.com/google/uuid"
)

// Library maps conversation ids to stored transcripts.
type Library struct {
	byID map[uuid.UUID]store.Transcript
}

func NewLibrary() *Library {
	return &Library{byID: make(map[uuid.UUID]store.Transcript)}
}

func (l *Library) SetAll(ts []store.Transcript) {
	next := make(map[uuid.UUID]store.Transcript, len(ts))
	for _, t := range ts {
		next[t.ID] = t
	}
	l.byID = next
}

// Put stores or replaces one transcript.
func (l *Library) Put(t store.Transcript) {
	l.byID[t.ID] = t
}

func (l *Library) Get(id uuid.UUID) (store.Transcript, bool) {
	t, ok := l.byID[id]
	return t, ok
}

func (l *Library) Len() int { return len(l.byID) }

// List returns the transcripts sorted by label.
func (l *Library) List() []store.Transcript {
	out := make([]store.Transcript, 0, len(l.byID))
	for _, t := range l.byID {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b store.Transcript) int {
		if c := cmp.Compare(a.Label(), b.Label()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out
}
