// Package mcp publishes the kost tools as a Model Context Protocol server so
// that other agents can list rooms, book visits, open tickets and check
// arrears through the same dispatch path as the chatbot.
package mcp

import (
	"context"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sabrinaskaa/chatbot-binara/pkg/tool"
	"github.com/sabrinaskaa/chatbot-binara/pkg/utils/logging"
)

const (
	serverName    = "kostbot"
	serverVersion = "0.1.0"
)

// Dispatcher executes a parsed tool call
type Dispatcher interface {
	Dispatch(ctx context.Context, call tool.Call) tool.Result
}

type listRoomsParams struct {
	RoomType string `json:"room_type,omitempty" jsonschema:"Room type filter: single or sharing. Omit for all types"`
}

type createVisitParams struct {
	Name          string `json:"name" jsonschema:"Name of the visitor"`
	Phone         string `json:"phone" jsonschema:"Phone number of the visitor"`
	PreferredDate string `json:"preferred_date" jsonschema:"Visit date in YYYY-MM-DD"`
}

type createTicketParams struct {
	RoomCode    string `json:"room_code" jsonschema:"Room code such as A1"`
	Description string `json:"description" jsonschema:"What is broken"`
}

type checkUnpaidParams struct {
	Phone string `json:"phone" jsonschema:"Registered phone number of the tenant"`
}

// NewServer creates an MCP server exposing every kost tool
func NewServer(d Dispatcher) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        string(tool.NameListAvailableRooms),
		Description: "List available rooms with their monthly price",
	}, func(ctx context.Context, req *mcp.CallToolRequest, p *listRoomsParams) (*mcp.CallToolResult, any, error) {
		return dispatch(ctx, d, tool.ListAvailableRoomsCall{RoomType: tool.ParseRoomType(p.RoomType)})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        string(tool.NameCreateVisit),
		Description: "Create a visit request to see the kost",
	}, func(ctx context.Context, req *mcp.CallToolRequest, p *createVisitParams) (*mcp.CallToolResult, any, error) {
		return dispatch(ctx, d, tool.CreateVisitCall{
			Name:          p.Name,
			Phone:         p.Phone,
			PreferredDate: p.PreferredDate,
		})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        string(tool.NameCreateTicket),
		Description: "Open a maintenance ticket for a room",
	}, func(ctx context.Context, req *mcp.CallToolRequest, p *createTicketParams) (*mcp.CallToolResult, any, error) {
		return dispatch(ctx, d, tool.CreateTicketCall{
			RoomCode:    p.RoomCode,
			Description: p.Description,
		})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        string(tool.NameCheckUnpaid),
		Description: "List unpaid monthly payments of a tenant",
	}, func(ctx context.Context, req *mcp.CallToolRequest, p *checkUnpaidParams) (*mcp.CallToolResult, any, error) {
		return dispatch(ctx, d, tool.CheckUnpaidCall{Phone: p.Phone})
	})

	return server
}

// dispatch reports tool errors as error results rather than protocol errors
func dispatch(ctx context.Context, d Dispatcher, call tool.Call) (*mcp.CallToolResult, any, error) {
	result := d.Dispatch(ctx, call)
	logging.From(ctx).Debug("mcp tool called", "tool", call.Tool(), "outcome", result.Outcome())

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: result.Text()},
		},
		IsError: !result.OK(),
	}, nil, nil
}

// ServeStdio runs the server on stdin and stdout until ctx is done or the
// peer disconnects
func ServeStdio(ctx context.Context, d Dispatcher) error {
	if err := NewServer(d).Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "failed to run MCP server on stdio")
	}
	return nil
}

// HTTPHandler serves the streamable HTTP transport
func HTTPHandler(d Dispatcher) http.Handler {
	server := NewServer(d)
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, nil)
}
