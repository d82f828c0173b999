package editor

import "fmt"

// Outcome is the normalised result of a tool call.
type Outcome struct {
	OK      bool
	Message string
}

// Report converts the result of an edit into an Outcome. A nil err yields
// success with the given message; otherwise the message is prefixed with
// the failure category.
func Report(success string, err error) Outcome {
	if err == nil {
		return Outcome{OK: true, Message: success}
	}
	return Outcome{OK: false, Message: fmt.Sprintf("%s: %s", KindOf(err), err.Error())}
}

// ReportPanic converts a recovered panic value into a failed Outcome.
func ReportPanic(v interface{}) Outcome {
	return Outcome{OK: false, Message: fmt.Sprintf("%s: unexpected failure: %v", KindAutomation, v)}
}
