// Package editor resolves positions inside an open document and applies
// line-addressed insertions and replacements to it.
package editor

// LocationKind selects how a Location is resolved.
type LocationKind int

const (
	LocStart LocationKind = iota + 1
	LocEnd
	LocLineTarget
)

func (k LocationKind) String() string {
	switch k {
	case LocStart:
		return "start"
	case LocEnd:
		return "end"
	case LocLineTarget:
		return "line target"
	default:
		return "unknown"
	}
}

// Anchor places a resolved position relative to the matched text.
type Anchor int

const (
	Before Anchor = iota
	After
)

func (a Anchor) String() string {
	if a == After {
		return "after"
	}
	return "before"
}

// Location describes where an insertion goes. Line and Target are only
// meaningful for LocLineTarget.
type Location struct {
	Kind   LocationKind
	Line   int
	Target string
	Anchor Anchor
}

func AtStart() Location { return Location{Kind: LocStart} }

func AtEnd() Location { return Location{Kind: LocEnd} }

// AtLineTarget searches for target starting at line and places the cursor
// before or after the first match.
func AtLineTarget(line int, target string, anchor Anchor) Location {
	return Location{Kind: LocLineTarget, Line: line, Target: target, Anchor: anchor}
}

// OpKind selects the mutation an Operation performs.
type OpKind int

const (
	OpInsert OpKind = iota + 1
	OpReplace
)

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Operation is one edit. Insert uses Text and At; Replace uses Line,
// Target and Text as the replacement.
type Operation struct {
	Kind   OpKind
	Text   string
	At     Location
	Line   int
	Target string
}

func InsertOp(text string, at Location) Operation {
	return Operation{Kind: OpInsert, Text: text, At: at}
}

func ReplaceOp(line int, target, newText string) Operation {
	return Operation{Kind: OpReplace, Line: line, Target: target, Text: newText}
}
