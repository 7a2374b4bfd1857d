// Package delta decodes, edits and renders Quill rich-text deltas.
//
// Positions are counted in runes of the document text; an embed counts as a
// single position, the way the editor counts it.
package delta

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"strings"
	"unicode/utf8"
)

// EmbedRune stands in for an embed in Text output.
const EmbedRune = '\uFFFC'

// CitationFormat is the embed key of a citation link.
const CitationFormat = "citation-link"

// DecodeError reports a payload that is not a document delta.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delta: %s: %v", e.Reason, e.Err)
	}
	return "delta: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

var ErrOutOfRange = errors.New("delta: position out of range")

// Insert is either a run of text or a single embed.
type Insert struct {
	Text  string
	Embed map[string]json.RawMessage
}

func (i Insert) IsEmbed() bool { return i.Embed != nil }

// Len is the number of positions the insert occupies.
func (i Insert) Len() int {
	if i.IsEmbed() {
		return 1
	}
	return utf8.RuneCountInString(i.Text)
}

func (i Insert) MarshalJSON() ([]byte, error) {
	if i.IsEmbed() {
		return json.Marshal(i.Embed)
	}
	return json.Marshal(i.Text)
}

func (i *Insert) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		i.Embed = nil
		return json.Unmarshal(b, &i.Text)
	}
	var embed map[string]json.RawMessage
	if err := json.Unmarshal(b, &embed); err != nil {
		return err
	}
	if len(embed) == 0 {
		return errors.New("empty embed")
	}
	i.Text = ""
	i.Embed = embed
	return nil
}

type Op struct {
	Insert     *Insert        `json:"insert,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`

	// Present only in change deltas; a document must not carry them.
	Retain *int `json:"retain,omitempty"`
	Delete *int `json:"delete,omitempty"`
}

// Delta is a document: a sequence of insert operations.
type Delta struct {
	Ops []Op `json:"ops"`
}

// TextOp builds a text insert.
func TextOp(text string, attrs map[string]any) Op {
	return Op{Insert: &Insert{Text: text}, Attributes: attrs}
}

// Citation is the value of a citation-link embed.
type Citation struct {
	URL   string `json:"url"`
	DocID string `json:"docId"`
	Text  string `json:"text"`
}

// CitationOp builds a citation-link embed.
func CitationOp(c Citation) Op {
	raw, _ := json.Marshal(c)
	return Op{Insert: &Insert{Embed: map[string]json.RawMessage{CitationFormat: raw}}}
}

// Parse decodes a serialized document delta.
func Parse(s string) (Delta, error) {
	if strings.TrimSpace(s) == "" {
		return Delta{}, &DecodeError{Reason: "empty payload"}
	}
	var d Delta
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return Delta{}, &DecodeError{Reason: "malformed json", Err: err}
	}
	if d.Ops == nil {
		return Delta{}, &DecodeError{Reason: "missing ops"}
	}
	for n, op := range d.Ops {
		if op.Insert == nil || op.Retain != nil || op.Delete != nil {
			return Delta{}, &DecodeError{Reason: fmt.Sprintf("op %d is not an insert", n)}
		}
	}
	return d, nil
}

// FromText builds a plain document, terminated by a newline like every
// editor document.
func FromText(text string) Delta {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return Delta{Ops: []Op{TextOp(text, nil)}}
}

// Encode serializes the delta.
func (d Delta) Encode() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Len is the total number of positions in the document.
func (d Delta) Len() int {
	n := 0
	for _, op := range d.Ops {
		n += op.Insert.Len()
	}
	return n
}

// Text returns the plain text, with embeds as EmbedRune.
func (d Delta) Text() string {
	var sb strings.Builder
	for _, op := range d.Ops {
		if op.Insert.IsEmbed() {
			sb.WriteRune(EmbedRune)
			continue
		}
		sb.WriteString(op.Insert.Text)
	}
	return sb.String()
}

// Replace removes length positions starting at start and inserts ops there.
func (d Delta) Replace(start, length int, ops ...Op) (Delta, error) {
	total := d.Len()
	if start < 0 || length < 0 || start+length > total {
		return Delta{}, ErrOutOfRange
	}

	out := make([]Op, 0, len(d.Ops)+len(ops)+1)
	pos := 0
	inserted := false
	end := start + length
	emit := func() {
		if !inserted {
			out = append(out, ops...)
			inserted = true
		}
	}

	for _, op := range d.Ops {
		n := op.Insert.Len()
		opStart, opEnd := pos, pos+n
		pos = opEnd

		if opEnd <= start {
			out = append(out, op)
			continue
		}
		if opStart >= end {
			emit()
			out = append(out, op)
			continue
		}
		if op.Insert.IsEmbed() {
			// fully inside the removed range
			emit()
			continue
		}
		runes := []rune(op.Insert.Text)
		if opStart < start {
			out = append(out, TextOp(string(runes[:start-opStart]), op.Attributes))
		}
		emit()
		if opEnd > end {
			out = append(out, TextOp(string(runes[end-opStart:]), op.Attributes))
		}
	}
	emit()
	return Delta{Ops: compact(out)}, nil
}

// compact merges neighbouring text inserts with equal attributes and drops
// empty ones.
func compact(ops []Op) []Op {
	out := ops[:0:0]
	for _, op := range ops {
		if !op.Insert.IsEmbed() && op.Insert.Text == "" {
			continue
		}
		if len(out) > 0 {
			last := &out[len(out)-1]
			if !last.Insert.IsEmbed() && !op.Insert.IsEmbed() && sameAttrs(last.Attributes, op.Attributes) {
				last.Insert = &Insert{Text: last.Insert.Text + op.Insert.Text}
				continue
			}
		}
		out = append(out, op)
	}
	return out
}

func sameAttrs(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return maps.EqualFunc(a, b, func(x, y any) bool { return reflect.DeepEqual(x, y) })
}

// Citations lists the citation embeds in document order.
func (d Delta) Citations() []Citation {
	var out []Citation
	for _, op := range d.Ops {
		if !op.Insert.IsEmbed() {
			continue
		}
		raw, ok := op.Insert.Embed[CitationFormat]
		if !ok {
			continue
		}
		var c Citation
		if err := json.Unmarshal(raw, &c); err == nil {
			out = append(out, c)
		}
	}
	return out
}
