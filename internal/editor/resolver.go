package editor

import (
	"fmt"

	"office-tools-server/internal/document"
)

// SearchScope bounds the search performed for a line target.
type SearchScope string

const (
	// ScopeForward searches from the addressed line to the end of the
	// document. It never wraps back to the beginning.
	ScopeForward SearchScope = "forward"
	// ScopeLine searches the addressed line only.
	ScopeLine SearchScope = "line"
)

// Resolver turns a Location into a cursor position.
type Resolver struct {
	scope SearchScope
}

// NewResolver creates a Resolver. An empty scope means ScopeForward.
func NewResolver(scope SearchScope) *Resolver {
	if scope == "" {
		scope = ScopeForward
	}
	return &Resolver{scope: scope}
}

// Scope returns the configured search scope.
func (r *Resolver) Scope() SearchScope { return r.scope }

// Resolve moves the session cursor to loc and returns the position.
// A failed search leaves the document untouched.
func (r *Resolver) Resolve(s document.Session, loc Location) (document.Position, error) {
	switch loc.Kind {
	case LocStart:
		s.GotoStart()
		return s.Cursor(), nil
	case LocEnd:
		s.GotoEnd()
		return s.Cursor(), nil
	case LocLineTarget:
		return r.resolveLineTarget(s, loc)
	default:
		return document.Position{}, Validationf("resolve", "unknown location kind %d", int(loc.Kind))
	}
}

func (r *Resolver) resolveLineTarget(s document.Session, loc Location) (document.Position, error) {
	if loc.Target == "" {
		return document.Position{}, Validationf("resolve", "search text must not be empty")
	}
	if err := checkLine("resolve", s, loc.Line); err != nil {
		return document.Position{}, err
	}
	if err := s.GotoLine(loc.Line); err != nil {
		return document.Position{}, Automation("resolve", fmt.Sprintf("failed to move to line %d", loc.Line), err)
	}

	pos, ok := s.Find(loc.Target, document.FindOptions{LineOnly: r.scope == ScopeLine})
	if !ok {
		e := NotFound("resolve", loc.Line, loc.Target)
		if r.scope == ScopeForward {
			e.Msg = fmt.Sprintf("no match for %q from line %d to the end of the document", loc.Target, loc.Line)
		}
		return document.Position{}, e
	}
	if loc.Anchor == After {
		s.MoveRight(len([]rune(loc.Target)))
		pos = s.Cursor()
	}
	return pos, nil
}

// checkLine rejects line numbers the session cannot address. Out of range
// lines fail instead of being clamped.
func checkLine(op string, s document.Session, line int) error {
	if line < 1 {
		return &Error{Kind: KindValidation, Op: op, Line: line,
			Msg: fmt.Sprintf("line number must be a positive integer, got %d", line)}
	}
	if n := s.LineCount(); line > n {
		return &Error{Kind: KindValidation, Op: op, Line: line,
			Msg: fmt.Sprintf("line %d is out of range, document has %d lines", line, n)}
	}
	return nil
}
