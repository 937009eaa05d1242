package resolve

import (
	"fmt"

	"go.lsp.dev/protocol"

	"github.com/mvp-joe/hdlnav/internal/document"
)

// AccessKind classifies how an identifier is reached at the cursor.
type AccessKind int

const (
	// PlainIdentifier: no scope operator in front of the word.
	PlainIdentifier AccessKind = iota
	// MemberPortAccess: a named connection on an instantiation, ".DEPTH(16)".
	MemberPortAccess
	// HierarchicalAccess: a dotted reference through an instance, "my_bus.valid".
	HierarchicalAccess
	// QualifiedScopeAccess: a scoped reference, "my_pkg::my_func".
	QualifiedScopeAccess
)

func (k AccessKind) String() string {
	switch k {
	case PlainIdentifier:
		return "plain"
	case MemberPortAccess:
		return "member-port"
	case HierarchicalAccess:
		return "hierarchical"
	case QualifiedScopeAccess:
		return "qualified-scope"
	default:
		return fmt.Sprintf("AccessKind(%d)", int(k))
	}
}

// MarshalText renders the kind by name in JSON output.
func (k AccessKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Access is the classification of the word under the cursor.
type Access struct {
	Range    protocol.Range `json:"range"`
	Target   string         `json:"target"`
	Parent   string         `json:"parent"`
	PrevChar string         `json:"prev_char"`
	Kind     AccessKind     `json:"kind"`
}

// Classify inspects the text around the word at r.
func Classify(doc *document.Document, r protocol.Range) Access {
	a := Access{
		Range:    r,
		Target:   doc.Text(r),
		Parent:   doc.ParentText(r),
		PrevChar: doc.PrevChar(r),
	}

	switch {
	case a.PrevChar == "." && a.Parent == a.Target:
		a.Kind = MemberPortAccess
	case a.PrevChar == ".":
		a.Kind = HierarchicalAccess
	case doc.Separator(r) == "::" && a.Parent != a.Target:
		a.Kind = QualifiedScopeAccess
	default:
		a.Kind = PlainIdentifier
	}
	return a
}
