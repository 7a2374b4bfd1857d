// Package citation implements author-citation autocomplete: detecting a
// citation being typed, suggesting catalog entries for it, and splicing the
// chosen reference into a document.
package citation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"locus/pkg/delta"
	"locus/pkg/store"

	"github.com/google/uuid"
)

// Trigger is the literal text that opens a citation and the delimiter that
// closes it.
type Trigger struct {
	Open  string
	Close string
}

// LaTeX-style \cite{...}
var DefaultTrigger = Trigger{Open: `\cite{`, Close: "}"}

// Match is an active citation: the trigger starts at Start and the query
// runs up to the cursor at End. Positions count runes.
type Match struct {
	Start int
	End   int
	Query string
}

// Detect looks backward from cursor for an unclosed trigger. It reports
// false when no citation is being typed.
func Detect(text string, cursor int, t Trigger) (Match, bool) {
	if t.Open == "" || cursor < 0 {
		return Match{}, false
	}
	runes := []rune(text)
	if cursor > len(runes) {
		return Match{}, false
	}
	before := string(runes[:cursor])

	at := strings.LastIndex(before, t.Open)
	if at < 0 {
		return Match{}, false
	}
	query := before[at+len(t.Open):]
	if t.Close != "" && strings.Contains(query, t.Close) {
		return Match{}, false
	}
	return Match{
		Start: utf8.RuneCountInString(before[:at]),
		End:   cursor,
		Query: query,
	}, true
}

// Suggest returns, in catalog order, the external references whose title or
// any author name contains query, ignoring case. An empty query matches
// nothing.
func Suggest(query string, catalog []store.Document) []store.Document {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)
	var out []store.Document
	for _, doc := range catalog {
		if doc.ContentType != store.TypeExternalReference {
			continue
		}
		if matches(doc, q) {
			out = append(out, doc)
		}
	}
	return out
}

func matches(doc store.Document, q string) bool {
	if strings.Contains(strings.ToLower(doc.Title), q) {
		return true
	}
	for _, a := range doc.Authors {
		if strings.Contains(strings.ToLower(a.FirstName), q) || strings.Contains(strings.ToLower(a.LastName), q) {
			return true
		}
	}
	return false
}

// Reference points at the cited document.
type Reference struct {
	DocID uuid.UUID
	URL   string
}

// Resolution is a chosen suggestion ready to be spliced in.
type Resolution struct {
	Label     string
	Reference Reference
}

// Op is the citation-link embed for the resolution.
func (r Resolution) Op() delta.Op {
	return delta.CitationOp(delta.Citation{
		URL:   r.Reference.URL,
		DocID: r.Reference.DocID.String(),
		Text:  r.Label,
	})
}

// Resolve builds the citation for doc.
func Resolve(doc store.Document) Resolution {
	return Resolution{
		Label: Label(doc),
		Reference: Reference{
			DocID: doc.ID,
			URL:   DocumentURL(doc.ID),
		},
	}
}

func DocumentURL(id uuid.UUID) string {
	return "/documents/" + id.String()
}

// Label is "Smith", "Smith & Jones" or "Smith et al." depending on the
// number of authors. A document without authors is cited by title.
func Label(doc store.Document) string {
	switch n := len(doc.Authors); {
	case n == 0:
		return doc.Title
	case n == 1:
		return doc.Authors[0].LastName
	case n == 2:
		return doc.Authors[0].LastName + " & " + doc.Authors[1].LastName
	default:
		return doc.Authors[0].LastName + " et al."
	}
}

// Splice replaces the trigger and query of m in d with the citation.
func Splice(d delta.Delta, m Match, r Resolution) (delta.Delta, error) {
	out, err := d.Replace(m.Start, m.End-m.Start, r.Op())
	if err != nil {
		return delta.Delta{}, fmt.Errorf("splice citation: %w", err)
	}
	return out, nil
}

// Cited lists the document ids referenced from d, in order.
func Cited(d delta.Delta) []uuid.UUID {
	var out []uuid.UUID
	for _, c := range d.Citations() {
		id, err := uuid.Parse(c.DocID)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
