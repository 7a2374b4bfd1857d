package workspace

import (
	"context"
	"fmt"

	"locus/pkg/citation"
	"locus/pkg/client"
	"locus/pkg/delta"
	"locus/pkg/editor"
	"locus/pkg/store"

	"github.com/google/uuid"
)

// richText returns the parsed payload of the open document.
func (w *Workspace) richText() (delta.Delta, error) {
	s := w.session.Session()
	if s.Attachment() || (s.Type != "" && !s.Type.RichText()) {
		return delta.Delta{}, ErrNotRichText
	}
	if s.Delta == "" {
		return delta.FromText(""), nil
	}
	return delta.Parse(s.Delta)
}

func (w *Workspace) setPayload(d delta.Delta) error {
	payload, err := d.Encode()
	if err != nil {
		return err
	}
	if err := w.session.SetField(editor.FieldDelta, payload); err != nil {
		return err
	}
	return w.session.SetField(editor.FieldContent, d.ToHTML())
}

// SetDelta replaces the rich-text payload of the open document.
func (w *Workspace) SetDelta(payload string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.richText(); err == ErrNotRichText {
		return w.fail("edit", err)
	}
	d, err := delta.Parse(payload)
	if err != nil {
		return w.fail("edit", err)
	}
	if err := w.setPayload(d); err != nil {
		return w.fail("edit", err)
	}
	return nil
}

// SetText replaces the open document with plain text.
func (w *Workspace) SetText(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.richText(); err == ErrNotRichText {
		return w.fail("edit", err)
	}
	if err := w.setPayload(delta.FromText(text)); err != nil {
		return w.fail("edit", err)
	}
	return nil
}

// Text is the plain text of the open document, with citations shown as
// embed placeholders. Cursor positions refer to it.
func (w *Workspace) Text() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	d, err := w.richText()
	if err != nil {
		return "", err
	}
	return d.Text(), nil
}

// CiteAt reports the citation being typed at cursor and the external
// references matching it. ok is false when no citation is being typed.
func (w *Workspace) CiteAt(cursor int) (m citation.Match, suggestions []store.Document, ok bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	d, err := w.richText()
	if err != nil {
		return citation.Match{}, nil, false, w.fail("cite", err)
	}
	m, ok = citation.Detect(d.Text(), cursor, w.trigger)
	if !ok {
		return citation.Match{}, nil, false, nil
	}
	return m, citation.Suggest(m.Query, w.catalog), true, nil
}

// InsertCitation replaces the citation being typed at cursor with a link to
// docID.
func (w *Workspace) InsertCitation(cursor int, docID uuid.UUID) (citation.Resolution, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	d, err := w.richText()
	if err != nil {
		return citation.Resolution{}, w.fail("insert citation", err)
	}
	m, ok := citation.Detect(d.Text(), cursor, w.trigger)
	if !ok {
		return citation.Resolution{}, w.fail("insert citation", ErrNoCitation)
	}
	doc, ok := w.catalog.Find(docID)
	if !ok {
		return citation.Resolution{}, w.fail("insert citation", fmt.Errorf("%w: document %s", ErrNotFound, docID))
	}

	r := citation.Resolve(doc)
	out, err := citation.Splice(d, m, r)
	if err != nil {
		return citation.Resolution{}, w.fail("insert citation", err)
	}
	if err := w.setPayload(out); err != nil {
		return citation.Resolution{}, w.fail("insert citation", err)
	}
	return r, nil
}

// Citations lists the documents cited by the open document.
func (w *Workspace) Citations() ([]store.Document, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	d, err := w.richText()
	if err != nil {
		return nil, err
	}
	var out []store.Document
	for _, id := range citation.Cited(d) {
		if doc, ok := w.catalog.Find(id); ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Save stores the open rich-text document, signing it with the logged-in
// user. The refreshed catalog replaces the local one and a new document
// adopts the id it was given.
func (w *Workspace) Save(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	d, err := w.richText()
	if err != nil {
		return w.fail("save", err)
	}

	before := w.session.Snapshot()
	if w.user != nil {
		w.session.AppendAuthor(w.user.Author())
	}
	if before.Delta == "" {
		if err := w.setPayload(d); err != nil {
			w.session.Restore(before)
			return w.fail("save", err)
		}
	}

	s := w.session.Session()
	typ := s.Type
	if typ == "" {
		typ = store.TypeNote
	}
	res, err := w.api.SaveDocument(ctx, client.SaveRequest{
		ID:      s.ID,
		Title:   s.Title,
		Content: s.Content,
		Type:    typ,
		Delta:   s.Delta,
		Authors: s.Authors,
	})
	if err != nil {
		w.session.Restore(before)
		return w.fail("save", err)
	}

	w.catalog = res.SavedContent
	if s.Type == "" {
		_ = w.session.SetField(editor.FieldType, typ)
	}
	if s.ID == nil && res.ID != uuid.Nil {
		w.session.SetID(res.ID)
	}
	return nil
}
