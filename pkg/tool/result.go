package tool

import "fmt"

// ErrorKind labels a failed dispatch
type ErrorKind string

const (
	KindInvalidArgument ErrorKind = "InvalidArgument"
	KindDataAccess      ErrorKind = "DataAccess"
)

// ToolError describes why a dispatch could not produce a reply
type ToolError struct {
	Kind   ErrorKind
	Detail string
}

// Result is either a reply or a ToolError. Not-found lookups are replies.
type Result struct {
	Tool  Name
	Reply string
	Err   *ToolError
}

func Ok(tool Name, reply string) Result {
	return Result{Tool: tool, Reply: reply}
}

func Fail(tool Name, kind ErrorKind, detail string) Result {
	return Result{Tool: tool, Err: &ToolError{Kind: kind, Detail: detail}}
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Text renders the result for the user
func (r Result) Text() string {
	if r.Err == nil {
		return r.Reply
	}
	return fmt.Sprintf("Tool error (%s): %s: %s", r.Tool, r.Err.Kind, r.Err.Detail)
}

// Outcome is a short label for metrics
func (r Result) Outcome() string {
	switch {
	case r.Err == nil:
		return "ok"
	case r.Err.Kind == KindInvalidArgument:
		return "invalid_argument"
	default:
		return "data_access"
	}
}
