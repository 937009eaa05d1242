// Package document provides the text-document abstraction the resolver reads
// from: line/character addressing, word ranges and the small amount of
// syntactic context (previous character, parent scope) needed to classify an
// identifier.
package document

import (
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// Document is an immutable snapshot of a source file.
// Characters are addressed as byte offsets within a line; HDL sources are
// ASCII in practice.
type Document struct {
	URI     uri.URI
	Content string
	lines   []string
}

// New creates a document snapshot for the given content.
func New(u uri.URI, content string) *Document {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return &Document{
		URI:     u,
		Content: content,
		lines:   strings.Split(content, "\n"),
	}
}

// Path returns the filesystem path of the document.
func (d *Document) Path() string {
	return d.URI.Filename()
}

// LineCount returns the number of lines in the document.
func (d *Document) LineCount() int {
	return len(d.lines)
}

// Line returns line n (zero-based) without its terminator, or "" when out of range.
func (d *Document) Line(n int) string {
	if n < 0 || n >= len(d.lines) {
		return ""
	}
	return d.lines[n]
}

// Text returns the text covered by r. Positions past the end of a line or
// the document are clamped.
func (d *Document) Text(r protocol.Range) string {
	if len(d.lines) == 0 {
		return ""
	}
	start := d.clamp(r.Start)
	end := d.clamp(r.End)
	if start.Line == end.Line {
		if end.Character < start.Character {
			return ""
		}
		return d.lines[start.Line][start.Character:end.Character]
	}
	if end.Line < start.Line {
		return ""
	}

	var b strings.Builder
	b.WriteString(d.lines[start.Line][start.Character:])
	for l := start.Line + 1; l < end.Line; l++ {
		b.WriteByte('\n')
		b.WriteString(d.lines[l])
	}
	b.WriteByte('\n')
	b.WriteString(d.lines[end.Line][:end.Character])
	return b.String()
}

func (d *Document) clamp(p protocol.Position) protocol.Position {
	line := int(p.Line)
	if line >= len(d.lines) {
		line = len(d.lines) - 1
		return protocol.Position{Line: uint32(line), Character: uint32(len(d.lines[line]))}
	}
	char := int(p.Character)
	if char > len(d.lines[line]) {
		char = len(d.lines[line])
	}
	return protocol.Position{Line: uint32(line), Character: uint32(char)}
}

// IsWordChar reports whether c can be part of an identifier.
func IsWordChar(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// WordRangeAt returns the range of the identifier at pos. A position just
// past the last character of a word still selects that word. The second
// return value is false when there is no word at pos.
func (d *Document) WordRangeAt(pos protocol.Position) (protocol.Range, bool) {
	if int(pos.Line) >= len(d.lines) {
		return protocol.Range{}, false
	}
	line := d.lines[pos.Line]
	char := int(pos.Character)
	if char > len(line) {
		return protocol.Range{}, false
	}

	start, end := char, char
	for start > 0 && IsWordChar(line[start-1]) {
		start--
	}
	for end < len(line) && IsWordChar(line[end]) {
		end++
	}
	if start == end {
		return protocol.Range{}, false
	}
	return protocol.Range{
		Start: protocol.Position{Line: pos.Line, Character: uint32(start)},
		End:   protocol.Position{Line: pos.Line, Character: uint32(end)},
	}, true
}

// PrevChar returns the character immediately before r, or "" at the start
// of a line. Whitespace is not skipped.
func (d *Document) PrevChar(r protocol.Range) string {
	line := d.Line(int(r.Start.Line))
	i := int(r.Start.Character)
	if i <= 0 || i > len(line) {
		return ""
	}
	return line[i-1 : i]
}

// Separator returns the scope separator ("." or "::") directly preceding r,
// or "" when there is none.
func (d *Document) Separator(r protocol.Range) string {
	line := d.Line(int(r.Start.Line))
	i := int(r.Start.Character)
	if i > len(line) {
		return ""
	}
	switch {
	case i >= 2 && line[i-2:i] == "::":
		return "::"
	case i >= 1 && line[i-1] == '.':
		return "."
	}
	return ""
}

// ParentText returns the identifier that scopes the word at r: the
// identifier directly before a "." or "::" separator. When the word has no
// such parent (no separator, or the separator is not preceded by an
// identifier as in a ".PORT(x)" connection) the word itself is returned.
func (d *Document) ParentText(r protocol.Range) string {
	word := d.Text(r)
	sep := d.Separator(r)
	if sep == "" {
		return word
	}

	line := d.Line(int(r.Start.Line))
	end := int(r.Start.Character) - len(sep)
	start := end
	for start > 0 && IsWordChar(line[start-1]) {
		start--
	}
	if start == end {
		return word
	}
	return line[start:end]
}
