package editor

import (
	"fmt"
	"strings"

	"office-tools-server/internal/document"
)

// Success messages returned by Executor.Apply.
const (
	MsgInsertDone = "document content written successfully"
	msgReplaced   = "line %d occurrence replaced"
)

// Executor applies operations to a session and saves it.
type Executor struct {
	resolver *Resolver
}

func NewExecutor(resolver *Resolver) *Executor {
	if resolver == nil {
		resolver = NewResolver(ScopeForward)
	}
	return &Executor{resolver: resolver}
}

// Apply performs op on s and, when it succeeded, saves s in place. The
// returned string is the confirmation message. Nothing is saved on error.
func (x *Executor) Apply(s document.Session, op Operation) (string, error) {
	var (
		msg string
		err error
	)
	switch op.Kind {
	case OpInsert:
		msg, err = x.insert(s, op)
	case OpReplace:
		msg, err = x.replace(s, op)
	default:
		return "", Validationf("apply", "unknown operation kind %d", int(op.Kind))
	}
	if err != nil {
		return "", err
	}
	if err := s.Save(); err != nil {
		return "", Automation(op.Kind.String(), "failed to save "+s.Path(), err)
	}
	return msg, nil
}

func (x *Executor) insert(s document.Session, op Operation) (string, error) {
	if op.Text == "" {
		return "", Validationf("insert", "text is required")
	}

	switch op.At.Kind {
	case LocStart:
		s.GotoStart()
		if err := s.InsertParagraphBreak(); err != nil {
			return "", Automation("insert", "failed to insert paragraph break", err)
		}
		s.GotoStart()
	case LocEnd:
		s.GotoEnd()
		if err := s.InsertParagraphBreak(); err != nil {
			return "", Automation("insert", "failed to insert paragraph break", err)
		}
	case LocLineTarget:
		if _, err := x.resolver.Resolve(s, op.At); err != nil {
			return "", err
		}
	default:
		return "", Validationf("insert", "unknown location kind %d", int(op.At.Kind))
	}

	if err := s.InsertText(op.Text); err != nil {
		return "", Automation("insert", "failed to insert text", err)
	}
	return MsgInsertDone, nil
}

func (x *Executor) replace(s document.Session, op Operation) (string, error) {
	if op.Target == "" {
		return "", Validationf("replace", "search text must not be empty")
	}
	if strings.ContainsAny(op.Text, "\r\n") {
		return "", Validationf("replace", "replacement text must not contain line breaks")
	}
	if err := checkLine("replace", s, op.Line); err != nil {
		return "", err
	}
	if err := s.GotoLine(op.Line); err != nil {
		return "", Automation("replace", fmt.Sprintf("failed to move to line %d", op.Line), err)
	}

	line, err := s.ReadLine(op.Line)
	if err != nil {
		return "", Automation("replace", fmt.Sprintf("failed to read line %d", op.Line), err)
	}
	idx := strings.Index(line, op.Target)
	if idx < 0 {
		return "", NotFound("replace", op.Line, op.Target)
	}

	updated := line[:idx] + op.Text + line[idx+len(op.Target):]
	if err := s.WriteLine(op.Line, updated); err != nil {
		return "", Automation("replace", fmt.Sprintf("failed to write line %d", op.Line), err)
	}
	return fmt.Sprintf(msgReplaced, op.Line), nil
}
