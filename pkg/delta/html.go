package delta

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

type segment struct {
	insert Insert
	attrs  map[string]any
}

type line struct {
	segments []segment
	attrs    map[string]any
}

// lines splits the document at newlines; each newline carries the block
// attributes of the line it terminates.
func (d Delta) lines() []line {
	var out []line
	var cur line
	for _, op := range d.Ops {
		if op.Insert.IsEmbed() {
			cur.segments = append(cur.segments, segment{insert: *op.Insert, attrs: op.Attributes})
			continue
		}
		parts := strings.Split(op.Insert.Text, "\n")
		for i, part := range parts {
			if part != "" {
				cur.segments = append(cur.segments, segment{insert: Insert{Text: part}, attrs: op.Attributes})
			}
			if i < len(parts)-1 {
				cur.attrs = op.Attributes
				out = append(out, cur)
				cur = line{}
			}
		}
	}
	if len(cur.segments) > 0 {
		out = append(out, cur)
	}
	return out
}

// ToHTML renders the document the way the editor serializes its contents.
func (d Delta) ToHTML() string {
	var sb strings.Builder
	lines := d.lines()

	for i := 0; i < len(lines); {
		l := lines[i]
		switch {
		case attrString(l.attrs, "list") != "":
			kind := attrString(l.attrs, "list")
			tag := "ul"
			if kind == "ordered" {
				tag = "ol"
			}
			sb.WriteString("<" + tag + ">")
			for ; i < len(lines) && attrString(lines[i].attrs, "list") == kind; i++ {
				sb.WriteString("<li>")
				writeInline(&sb, lines[i].segments)
				sb.WriteString("</li>")
			}
			sb.WriteString("</" + tag + ">")
		case attrBool(l.attrs, "code-block"):
			sb.WriteString(`<pre class="ql-syntax" spellcheck="false">`)
			for first := true; i < len(lines) && attrBool(lines[i].attrs, "code-block"); i++ {
				if !first {
					sb.WriteString("\n")
				}
				first = false
				for _, s := range lines[i].segments {
					sb.WriteString(html.EscapeString(s.insert.Text))
				}
			}
			sb.WriteString("</pre>")
		default:
			tag := "p"
			if h := attrInt(l.attrs, "header"); h >= 1 && h <= 6 {
				tag = fmt.Sprintf("h%d", h)
			} else if attrBool(l.attrs, "blockquote") {
				tag = "blockquote"
			}
			sb.WriteString("<" + tag + ">")
			writeInline(&sb, l.segments)
			sb.WriteString("</" + tag + ">")
			i++
		}
	}
	return sb.String()
}

func writeInline(sb *strings.Builder, segs []segment) {
	if len(segs) == 0 {
		sb.WriteString("<br>")
		return
	}
	for _, s := range segs {
		if s.insert.IsEmbed() {
			writeEmbed(sb, s.insert)
			continue
		}
		text := html.EscapeString(s.insert.Text)
		if attrBool(s.attrs, "code") {
			text = "<code>" + text + "</code>"
		}
		if attrBool(s.attrs, "strike") {
			text = "<s>" + text + "</s>"
		}
		if attrBool(s.attrs, "underline") {
			text = "<u>" + text + "</u>"
		}
		if attrBool(s.attrs, "italic") {
			text = "<em>" + text + "</em>"
		}
		if attrBool(s.attrs, "bold") {
			text = "<strong>" + text + "</strong>"
		}
		if href := attrString(s.attrs, "link"); href != "" {
			text = fmt.Sprintf(`<a href="%s" rel="noopener noreferrer" target="_blank">%s</a>`, html.EscapeString(href), text)
		}
		sb.WriteString(text)
	}
}

func writeEmbed(sb *strings.Builder, in Insert) {
	if raw, ok := in.Embed[CitationFormat]; ok {
		var c Citation
		if err := json.Unmarshal(raw, &c); err == nil {
			fmt.Fprintf(sb, `<a href="%s" class="citation-link" data-doc-id="%s">%s</a>`,
				html.EscapeString(c.URL), html.EscapeString(c.DocID), html.EscapeString(c.Text))
			return
		}
	}
	if raw, ok := in.Embed["image"]; ok {
		var src string
		if err := json.Unmarshal(raw, &src); err == nil {
			fmt.Fprintf(sb, `<img src="%s">`, html.EscapeString(src))
			return
		}
	}
	// unknown embeds render as nothing
}

func attrString(attrs map[string]any, key string) string {
	if v, ok := attrs[key].(string); ok {
		return v
	}
	return ""
}

func attrBool(attrs map[string]any, key string) bool {
	switch v := attrs[key].(type) {
	case bool:
		return v
	case string:
		return v != "" && v != "false"
	}
	return false
}

func attrInt(attrs map[string]any, key string) int {
	switch v := attrs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
