package tool

import (
	"context"
	"sort"
)

// Registry maps tool names to their handlers
type Registry struct {
	handlers map[Name]Handler
}

// NewRegistry creates a registry with the given handlers. A later handler
// replaces an earlier one with the same name.
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[Name]Handler)}
	for _, h := range handlers {
		r.handlers[h.Name()] = h
	}
	return r
}

// Names returns registered tool names in lexical order
func (r *Registry) Names() []Name {
	names := make([]Name, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Execute runs call with its handler
func (r *Registry) Execute(ctx context.Context, call Call) Result {
	if none, ok := call.(NoneCall); ok {
		return Ok(NameNone, none.Answer)
	}

	h, ok := r.handlers[call.Tool()]
	if !ok {
		return Fail(call.Tool(), KindInvalidArgument, "tool is not available")
	}
	return h.Execute(ctx, call)
}
