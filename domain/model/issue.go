package model

import "fmt"

// IssueKind classifies a recorded issue.
type IssueKind string

const (
	// IssueError marks a problem that prevented data from loading.
	IssueError IssueKind = "ERROR"
	// IssueWarning marks a problem that degraded but did not prevent loading.
	IssueWarning IssueKind = "WARNING"
)

// String returns the stored representation of the kind.
func (k IssueKind) String() string {
	return string(k)
}

// Standard issue messages
const (
	MessageFileNotFound   = "File not found"
	MessageColumnNotFound = "Column not found in header"
)

// Issue is one recoverable problem found while importing a feed.
// Column and Line are optional; nil is stored as NULL.
type Issue struct {
	Filename string
	Kind     IssueKind
	Column   *string
	Line     *int
	Message  string
}

// NewFileNotFoundIssue creates the ERROR issue recorded for a missing source file.
func NewFileNotFoundIssue(filename string) Issue {
	return Issue{
		Filename: filename,
		Kind:     IssueError,
		Message:  MessageFileNotFound,
	}
}

// NewColumnNotFoundIssue creates the WARNING issue for a schema column absent from a header.
func NewColumnNotFoundIssue(filename, column string) Issue {
	return Issue{
		Filename: filename,
		Kind:     IssueWarning,
		Column:   &column,
		Message:  MessageColumnNotFound,
	}
}

// NewRowIssue creates an issue bound to a line of a source file.
func NewRowIssue(filename string, kind IssueKind, line int, message string) Issue {
	return Issue{
		Filename: filename,
		Kind:     kind,
		Line:     &line,
		Message:  message,
	}
}

// String renders the issue for logs.
func (i Issue) String() string {
	s := fmt.Sprintf("%s %s: %s", i.Kind, i.Filename, i.Message)
	if i.Column != nil {
		s += fmt.Sprintf(" (column %s)", *i.Column)
	}
	if i.Line != nil {
		s += fmt.Sprintf(" (line %d)", *i.Line)
	}
	return s
}
