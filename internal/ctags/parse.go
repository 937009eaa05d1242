package ctags

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/mvp-joe/hdlnav/internal/document"
	"github.com/mvp-joe/hdlnav/internal/symbol"
)

// containerKinds close with a matching "end<kind>" keyword.
var containerKinds = map[symbol.Kind]bool{
	symbol.KindModule:    true,
	symbol.KindInterface: true,
	symbol.KindPackage:   true,
	symbol.KindProgram:   true,
	symbol.KindClass:     true,
	symbol.KindFunction:  true,
	symbol.KindTask:      true,
	"covergroup":         true,
	"property":           true,
	"sequence":           true,
	"checker":            true,
	"clocking":           true,
}

// fieldKeys are extension fields that never describe a scope.
var fieldKeys = map[string]bool{
	"typeref":   true,
	"parameter": true,
	"end":       true,
	"line":      true,
	"signature": true,
	"access":    true,
	"file":      true,
	"language":  true,
	"roles":     true,
	"extras":    true,
	"kind":      true,
}

// tag is one parsed line of ctags output.
type tag struct {
	name      string
	kind      symbol.Kind
	line      int // zero-based
	endLine   int // zero-based, -1 when not reported
	scope     string
	scopeKind symbol.Kind
	typeRef   string
}

// Parse converts ctags output for doc into symbols, in output order.
// Malformed lines are skipped.
func Parse(doc *document.Document, output []byte) []symbol.Symbol {
	var syms []symbol.Symbol

	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		t, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		syms = append(syms, t.toSymbol(doc))
	}
	return syms
}

// parseLine parses `name<TAB>file<TAB>N;"<TAB>kind<TAB>field...`.
func parseLine(line string) (tag, bool) {
	if line == "" || strings.HasPrefix(line, "!_") {
		return tag{}, false
	}
	parts := strings.Split(line, "\t")
	if len(parts) < 4 {
		return tag{}, false
	}

	lineNo, err := strconv.Atoi(strings.TrimSuffix(parts[2], `;"`))
	if err != nil || lineNo < 1 {
		return tag{}, false
	}

	t := tag{
		name:    parts[0],
		kind:    symbol.Kind(parts[3]),
		line:    lineNo - 1,
		endLine: -1,
	}

	for _, field := range parts[4:] {
		key, value, found := strings.Cut(field, ":")
		if !found {
			continue
		}
		switch key {
		case "parameter":
			t.kind = symbol.KindParameter
		case "typeref":
			// typeref:<kind>:<name>
			if i := strings.LastIndex(value, ":"); i >= 0 {
				value = value[i+1:]
			}
			t.typeRef = value
		case "end":
			if n, err := strconv.Atoi(value); err == nil && n >= 1 {
				t.endLine = n - 1
			}
		case "scope":
			// scope:<kind>:<name>
			if k, n, ok := strings.Cut(value, ":"); ok {
				t.scopeKind, t.scope = symbol.Kind(k), n
			}
		default:
			if !fieldKeys[key] && t.scope == "" {
				t.scopeKind, t.scope = symbol.Kind(key), value
			}
		}
	}

	// Nested scopes are reported dotted (pkg.cls); keep the innermost name.
	if i := strings.LastIndex(t.scope, "."); i >= 0 {
		t.scope = t.scope[i+1:]
	}
	return t, true
}

func (t tag) toSymbol(doc *document.Document) symbol.Symbol {
	decl := declRange(doc, t.line, t.name)
	return symbol.Symbol{
		Name:      t.name,
		Kind:      t.kind,
		DeclRange: decl,
		FullRange: fullRange(doc, t, decl),
		TypeRef:   t.typeRef,
		Scope:     t.scope,
		ScopeKind: t.scopeKind,
		URI:       doc.URI,
	}
}

// declRange locates the first whole-word occurrence of name on line.
func declRange(doc *document.Document, line int, name string) protocol.Range {
	text := doc.Line(line)
	idx := indexWord(text, name)
	if idx < 0 {
		return symbol.NewRange(uint32(line), 0, uint32(line), uint32(len(text)))
	}
	return symbol.NewRange(uint32(line), uint32(idx), uint32(line), uint32(idx+len(name)))
}

func indexWord(text, word string) int {
	if word == "" {
		return -1
	}
	from := 0
	for {
		i := strings.Index(text[from:], word)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(word)
		leftOK := i == 0 || !document.IsWordChar(text[i-1])
		rightOK := end == len(text) || !document.IsWordChar(text[end])
		if leftOK && rightOK {
			return i
		}
		from = i + 1
	}
}

func fullRange(doc *document.Document, t tag, decl protocol.Range) protocol.Range {
	switch {
	case t.kind == symbol.KindInstance:
		return instanceRange(doc, t, decl)
	case containerKinds[t.kind]:
		end := t.endLine
		if end < 0 {
			end = findEnd(doc, t.line, t.kind)
		}
		return symbol.NewRange(uint32(t.line), 0, uint32(end), uint32(len(doc.Line(end))))
	default:
		return symbol.NewRange(uint32(t.line), 0, uint32(t.line), uint32(len(doc.Line(t.line))))
	}
}

// maxHeaderLines bounds the backward search for an instance's type name.
const maxHeaderLines = 64

// instanceRange spans from the instantiated type name to the semicolon
// closing the statement. The type name may sit on an earlier line when a
// parameter override list precedes the instance name; without it the range
// starts at the declaration line.
func instanceRange(doc *document.Document, t tag, decl protocol.Range) protocol.Range {
	startLine, startChar := typeStart(doc, t, decl)

	for l := t.line; l < doc.LineCount(); l++ {
		text := doc.Line(l)
		from := 0
		if l == t.line {
			from = int(decl.End.Character)
		}
		if from > len(text) {
			from = len(text)
		}
		if i := strings.IndexByte(text[from:], ';'); i >= 0 {
			return symbol.NewRange(uint32(startLine), uint32(startChar), uint32(l), uint32(from+i+1))
		}
	}
	last := doc.LineCount() - 1
	return symbol.NewRange(uint32(startLine), uint32(startChar), uint32(last), uint32(len(doc.Line(last))))
}

// typeStart locates the type name of an instance statement, looking back
// from the instance name to the end of the previous statement.
func typeStart(doc *document.Document, t tag, decl protocol.Range) (int, int) {
	if t.typeRef == "" {
		return t.line, 0
	}
	head := doc.Line(t.line)[:decl.Start.Character]
	if i := indexWord(head, t.typeRef); i >= 0 {
		return t.line, i
	}
	if strings.Contains(stripComment(head), ";") {
		return t.line, 0
	}

	for l := t.line - 1; l >= 0 && l >= t.line-maxHeaderLines; l-- {
		text := stripComment(doc.Line(l))
		from := strings.LastIndexByte(text, ';') + 1
		if i := indexWord(text[from:], t.typeRef); i >= 0 {
			return l, from + i
		}
		if from > 0 {
			break
		}
	}
	return t.line, 0
}

var endPatterns = map[symbol.Kind]*regexp.Regexp{}

func init() {
	for kind := range containerKinds {
		endPatterns[kind] = regexp.MustCompile(`\bend` + string(kind) + `\b`)
	}
}

// findEnd returns the line of the first "end<kind>" after line, or the last
// line of the document when the construct is unterminated.
func findEnd(doc *document.Document, line int, kind symbol.Kind) int {
	re := endPatterns[kind]
	for l := line; l < doc.LineCount(); l++ {
		if re.MatchString(stripComment(doc.Line(l))) {
			return l
		}
	}
	return doc.LineCount() - 1
}

func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		return line[:i]
	}
	return line
}
