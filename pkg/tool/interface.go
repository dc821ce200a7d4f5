package tool

import "context"

// Handler executes one kind of tool call against the data gateway
type Handler interface {
	// Name returns the tag of the calls this handler accepts
	Name() Name

	// Execute runs the call. It never panics on a call of another type and
	// reports every failure in the returned Result.
	Execute(ctx context.Context, call Call) Result
}
