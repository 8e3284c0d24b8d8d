// Package mcp implements the Model Context Protocol (MCP) server for
// Kintree. It provides JSON-RPC 2.0 based tools for reading and extending a
// family tree over stdio.
package mcp

import (
	"github.com/mattiasfr/kintree/pkg/types"
)

// EventArgs carries an optional life event in create requests. A block where
// both fields are empty is treated as absent.
type EventArgs struct {
	Date  string `json:"date,omitempty"`
	Place string `json:"place,omitempty"`
}

// event converts the arguments to the stored representation, returning nil
// when both fields are empty.
func (a *EventArgs) event() *types.Event {
	if a == nil || (a.Date == "" && a.Place == "") {
		return nil
	}
	e := &types.Event{}
	if a.Date != "" {
		d := a.Date
		e.Date = &d
	}
	if a.Place != "" {
		p := a.Place
		e.Place = &p
	}
	return e
}

// GetPersonArgs contains arguments for the get_person method.
type GetPersonArgs struct {
	ID string `json:"id"` // Person ID (required)
}

// GetFamilyArgs contains arguments for the get_family method.
type GetFamilyArgs struct {
	ID string `json:"id"` // Family ID (required)
}

// CreatePersonArgs contains arguments for the create_person method.
type CreatePersonArgs struct {
	ID    string     `json:"id"`              // New person ID (required)
	Name  string     `json:"name,omitempty"`  // Display name
	Birth *EventArgs `json:"birth,omitempty"` // Birth event
	Death *EventArgs `json:"death,omitempty"` // Death event
}

// CreateFamilyArgs contains arguments for the create_family method.
// Referenced person IDs are not validated against the store; a family may
// name members that do not (yet) exist.
type CreateFamilyArgs struct {
	ID       string   `json:"id"`                 // New family ID (required)
	Husband  string   `json:"husband,omitempty"`  // Husband person ID
	Wife     string   `json:"wife,omitempty"`     // Wife person ID
	Children []string `json:"children,omitempty"` // Child person IDs
}

// CreateResult is returned by both create methods.
type CreateResult struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

// ListPersonsResult contains the result of list_persons.
type ListPersonsResult struct {
	Persons []types.Person `json:"persons"`
	Total   int            `json:"total"`
}

// ListFamiliesResult contains the result of list_families.
type ListFamiliesResult struct {
	Families []types.Family `json:"families"`
	Total    int            `json:"total"`
}

// PingResult contains the result of ping.
type PingResult struct {
	Status   string `json:"status"` // always "ok"
	Persons  int    `json:"persons"`
	Families int    `json:"families"`
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"` // Must be "2.0"
	Method  string      `json:"method"`  // Method name
	Params  interface{} `json:"params"`  // Method parameters
	ID      interface{} `json:"id"`      // Request ID (string, number, or null)
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`          // Must be "2.0"
	Result  interface{}   `json:"result,omitempty"` // Result (if successful)
	Error   *JSONRPCError `json:"error,omitempty"`  // Error (if failed)
	ID      interface{}   `json:"id"`               // Request ID
}

// JSONRPCError represents a JSON-RPC 2.0 error.
type JSONRPCError struct {
	Code    int         `json:"code"`           // Error code
	Message string      `json:"message"`        // Error message
	Data    interface{} `json:"data,omitempty"` // Additional error data
}

// JSON-RPC error codes
const (
	ErrCodeParseError     = -32700 // Invalid JSON
	ErrCodeInvalidRequest = -32600 // Invalid request object
	ErrCodeMethodNotFound = -32601 // Method not found
	ErrCodeInvalidParams  = -32602 // Invalid method parameters
	ErrCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrCodeServerError    = -32000 // Server error
	ErrCodeConflict       = -32001 // Identifier already exists
	ErrCodeNotFound       = -32004 // Record not found
)

// ---------------------------------------------------------------------------
// Standard MCP protocol types (initialize / tools/list / tools/call)
// ---------------------------------------------------------------------------

// MCPInitializeParams holds the parameters sent by an MCP client in the
// initialize request.
type MCPInitializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities,omitempty"`
	ClientInfo      MCPClientInfo          `json:"clientInfo"`
}

// MCPClientInfo identifies the connecting MCP client.
type MCPClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPServerInfo identifies this MCP server.
type MCPServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPServerCapabilities describes what this server supports.
type MCPServerCapabilities struct {
	Tools *MCPToolsCapability `json:"tools,omitempty"`
}

// MCPToolsCapability signals that the server exposes tools.
type MCPToolsCapability struct{}

// MCPInitializeResult is the response to the initialize request.
type MCPInitializeResult struct {
	ProtocolVersion string                `json:"protocolVersion"`
	Capabilities    MCPServerCapabilities `json:"capabilities"`
	ServerInfo      MCPServerInfo         `json:"serverInfo"`
}

// MCPTool describes a single tool exposed via the MCP tools/list endpoint.
type MCPTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// MCPToolsListResult is the response to the tools/list request.
type MCPToolsListResult struct {
	Tools []MCPTool `json:"tools"`
}

// MCPToolCallParams holds the parameters sent in a tools/call request.
type MCPToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// MCPToolCallContent is a single content block in a tool call response.
type MCPToolCallContent struct {
	Type string `json:"type"` // always "text" for now
	Text string `json:"text"`
}

// MCPToolCallResult is the response to a tools/call request.
type MCPToolCallResult struct {
	Content []MCPToolCallContent `json:"content"`
	IsError bool                 `json:"isError,omitempty"`
}
