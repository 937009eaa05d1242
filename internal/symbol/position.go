package symbol

import "go.lsp.dev/protocol"

// Before reports whether a sorts strictly before b.
func Before(a, b protocol.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Character < b.Character
}

// Contains reports whether pos lies inside r. Both ends are inclusive,
// matching editor semantics where a cursor at the end of a word is still
// on that word.
func Contains(r protocol.Range, pos protocol.Position) bool {
	return !Before(pos, r.Start) && !Before(r.End, pos)
}

// NewRange builds a range from zero-based line/character pairs.
func NewRange(startLine, startChar, endLine, endChar uint32) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: startLine, Character: startChar},
		End:   protocol.Position{Line: endLine, Character: endChar},
	}
}
