// Package editor holds the state of the active editing context: the open
// document, the navigation history used when following citations, and the
// highlight index.
//
// None of the types here lock. They are owned by a single writer, see
// pkg/workspace.
package editor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"locus/pkg/delta"
	"locus/pkg/store"

	"github.com/google/uuid"
)

var (
	ErrNoAttachment = errors.New("editor: external reference has no attachment")
	ErrNotEditable  = errors.New("editor: content type cannot be opened")
	ErrUnknownField = errors.New("editor: unknown field")
	ErrFieldType    = errors.New("editor: value has the wrong type for field")
)

// Field names a session field that may be set directly.
type Field string

const (
	FieldTitle   Field = "title"
	FieldType    Field = "type"
	FieldContent Field = "content"
	FieldDelta   Field = "delta"
	FieldAuthors Field = "authors"
)

// ScrollTarget is a pending instruction for the attachment viewer.
type ScrollTarget struct {
	HighlightID uuid.UUID
	Position    json.RawMessage
}

// Session is the open document. An absent ID means the document has not
// been saved yet.
type Session struct {
	ID               *uuid.UUID
	Title            string
	Type             store.ContentType
	Content          string
	Delta            string
	Filename         string
	Authors          []store.Author
	CurrentHighlight *uuid.UUID
	ScrollTarget     *ScrollTarget
}

// Clone returns a deep copy that shares no memory with s.
func (s Session) Clone() Session {
	out := s
	out.ID = cloneID(s.ID)
	out.CurrentHighlight = cloneID(s.CurrentHighlight)
	out.Authors = store.CloneAuthors(s.Authors)
	if s.ScrollTarget != nil {
		t := *s.ScrollTarget
		t.Position = bytes.Clone(s.ScrollTarget.Position)
		out.ScrollTarget = &t
	}
	return out
}

// Attachment reports whether the session shows an external attachment
// rather than rich text.
func (s Session) Attachment() bool {
	return s.Filename != ""
}

// Document converts the session back into the shape the collaborator saves.
func (s Session) Document() store.Document {
	doc := store.Document{
		Title:       s.Title,
		ContentType: s.Type,
		Authors:     store.CloneAuthors(s.Authors),
		Delta:       s.Delta,
		Filename:    s.Filename,
	}
	if s.ID != nil {
		doc.ID = *s.ID
	}
	return doc
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// Store owns the live Session.
type Store struct {
	s Session
}

func NewStore() *Store {
	return &Store{}
}

// Session returns a copy of the live session.
func (st *Store) Session() Session {
	return st.s.Clone()
}

// Load replaces the session with doc. On error the session is unchanged.
func (st *Store) Load(doc store.Document) error {
	if !doc.ContentType.Editable() {
		return fmt.Errorf("%w: %q", ErrNotEditable, doc.ContentType)
	}

	next := Session{
		ID:      cloneID(&doc.ID),
		Title:   doc.Title,
		Type:    doc.ContentType,
		Authors: store.CloneAuthors(doc.Authors),
	}

	if doc.ContentType == store.TypeExternalReference {
		if doc.Filename == "" {
			return ErrNoAttachment
		}
		next.Filename = doc.Filename
	} else {
		d, err := delta.Parse(doc.Delta)
		if err != nil {
			return err
		}
		next.Delta = doc.Delta
		next.Content = d.ToHTML()
	}

	st.s = next
	return nil
}

// Reset clears the session for a new, unsaved document.
func (st *Store) Reset() {
	st.s = Session{}
}

// SetField sets one editable field.
func (st *Store) SetField(name Field, value any) error {
	switch name {
	case FieldTitle, FieldContent, FieldDelta:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s wants string, got %T", ErrFieldType, name, value)
		}
		switch name {
		case FieldTitle:
			st.s.Title = v
		case FieldContent:
			st.s.Content = v
		default:
			st.s.Delta = v
		}
	case FieldType:
		switch v := value.(type) {
		case store.ContentType:
			st.s.Type = v
		case string:
			st.s.Type = store.ContentType(v)
		default:
			return fmt.Errorf("%w: %s wants content type, got %T", ErrFieldType, name, value)
		}
	case FieldAuthors:
		v, ok := value.([]store.Author)
		if !ok {
			return fmt.Errorf("%w: %s wants []store.Author, got %T", ErrFieldType, name, value)
		}
		st.s.Authors = store.CloneAuthors(v)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// SetID records the id the collaborator assigned on first save.
func (st *Store) SetID(id uuid.UUID) {
	st.s.ID = &id
}

// AppendAuthor adds a unless an author with the same identity is already
// present. Authors without an id are matched by name.
func (st *Store) AppendAuthor(a store.Author) bool {
	for _, cur := range st.s.Authors {
		if sameAuthor(cur, a) {
			return false
		}
	}
	st.s.Authors = append(st.s.Authors, a)
	return true
}

func sameAuthor(a, b store.Author) bool {
	if a.ID != uuid.Nil || b.ID != uuid.Nil {
		return a.ID == b.ID
	}
	return a.FirstName == b.FirstName && a.LastName == b.LastName
}

func (st *Store) SetCurrentHighlight(id *uuid.UUID) {
	st.s.CurrentHighlight = cloneID(id)
}

// ScrollTo records a scroll instruction for the attachment viewer.
func (st *Store) ScrollTo(t ScrollTarget) {
	t.Position = bytes.Clone(t.Position)
	st.s.ScrollTarget = &t
}

// TakeScrollTarget returns and clears the pending scroll instruction.
func (st *Store) TakeScrollTarget() (ScrollTarget, bool) {
	if st.s.ScrollTarget == nil {
		return ScrollTarget{}, false
	}
	t := *st.s.ScrollTarget
	st.s.ScrollTarget = nil
	return t, true
}

// Snapshot returns a deep copy of the live session.
func (st *Store) Snapshot() Session {
	return st.s.Clone()
}

// Restore replaces the live session with a copy of snap.
func (st *Store) Restore(snap Session) {
	st.s = snap.Clone()
}
