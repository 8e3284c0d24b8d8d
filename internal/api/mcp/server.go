package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/mattiasfr/kintree/internal/config"
	"github.com/mattiasfr/kintree/internal/journal"
	"github.com/mattiasfr/kintree/internal/snapshot"
	"github.com/mattiasfr/kintree/internal/storage"
	"github.com/mattiasfr/kintree/pkg/types"
)

// Notifier receives insert events for fan-out to connected observers.
// Using a small interface keeps the MCP package decoupled from the web
// layer's websocket hub.
type Notifier interface {
	NotifyInsert(kind, id string)
}

// Server implements the Model Context Protocol (MCP) for Kintree.
// It provides JSON-RPC 2.0 based tools for AI assistants to read and extend
// the family tree.
type Server struct {
	store        storage.TreeStore
	config       *config.Config
	snapshotPath string // empty disables persistence
	journal      *journal.Journal
	notifier     Notifier
	sessionID    string // unique ID generated once per MCP server lifetime
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithConfig injects a *config.Config into the Server.
func WithConfig(cfg *config.Config) ServerOption {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithSnapshotPath enables snapshot persistence after every successful
// mutation. An empty path leaves persistence disabled.
func WithSnapshotPath(path string) ServerOption {
	return func(s *Server) {
		s.snapshotPath = path
	}
}

// WithJournal injects a mutation journal. Journal failures never fail a
// mutation.
func WithJournal(j *journal.Journal) ServerOption {
	return func(s *Server) {
		s.journal = j
	}
}

// WithNotifier injects an insert-event notifier.
func WithNotifier(n Notifier) ServerOption {
	return func(s *Server) {
		s.notifier = n
	}
}

// NewServer creates a new MCP server instance over the given store.
//
// The variadic opts parameter accepts zero or more ServerOption values:
//
//	srv := mcp.NewServer(store)
//	srv := mcp.NewServer(store, mcp.WithSnapshotPath(path), mcp.WithConfig(cfg))
func NewServer(store storage.TreeStore, opts ...ServerOption) *Server {
	s := &Server{
		store:     store,
		sessionID: uuid.New().String(),
	}
	for _, opt := range opts {
		opt(s)
	}
	log.Printf("kintree-mcp: session ID: %s", s.sessionID)
	return s
}

// Config returns the configuration that was injected via WithConfig, or nil.
func (s *Server) Config() *config.Config {
	return s.config
}

// rpcError carries an explicit JSON-RPC error code through the handler
// return path.
type rpcError struct {
	code    int
	message string
}

func (e *rpcError) Error() string { return e.message }

// errorCode maps a handler error to its JSON-RPC error code.
func errorCode(err error) int {
	var rpc *rpcError
	if errors.As(err, &rpc) {
		return rpc.code
	}
	if errors.Is(err, storage.ErrNotFound) {
		return ErrCodeNotFound
	}
	if errors.Is(err, storage.ErrDuplicateID) {
		return ErrCodeConflict
	}
	return ErrCodeServerError
}

// HandleRequest processes a JSON-RPC 2.0 request and returns a response.
// This is the main entry point for MCP protocol handling.
func (s *Server) HandleRequest(ctx context.Context, requestJSON []byte) ([]byte, error) {
	var req JSONRPCRequest
	if err := json.Unmarshal(requestJSON, &req); err != nil {
		return s.errorResponse(nil, ErrCodeParseError, "Parse error", err.Error())
	}

	// Validate JSON-RPC version
	if req.JSONRPC != "2.0" {
		return s.errorResponse(req.ID, ErrCodeInvalidRequest, "Invalid JSON-RPC version", nil)
	}

	var result interface{}
	var err error

	switch req.Method {
	// Standard MCP protocol methods
	case "initialize":
		result, err = s.handleInitialize(ctx, req.Params)
	case "initialized":
		// Notification; no response body required.
		result = map[string]interface{}{}
	case "tools/list":
		result, err = s.handleToolsList(ctx, req.Params)
	case "tools/call":
		result, err = s.handleToolsCall(ctx, req.Params)

	// Native JSON-RPC methods (kept for direct callers)
	case "ping":
		result, err = s.handlePing(ctx, req.Params)
	case "get_person":
		result, err = s.handleGetPerson(ctx, req.Params)
	case "get_family":
		result, err = s.handleGetFamily(ctx, req.Params)
	case "list_persons":
		result, err = s.handleListPersons(ctx, req.Params)
	case "list_families":
		result, err = s.handleListFamilies(ctx, req.Params)
	case "create_person":
		result, err = s.handleCreatePerson(ctx, req.Params)
	case "create_family":
		result, err = s.handleCreateFamily(ctx, req.Params)
	default:
		return s.errorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}

	if err != nil {
		return s.errorResponse(req.ID, errorCode(err), err.Error(), nil)
	}

	return s.successResponse(req.ID, result)
}

// Ping reports liveness and current store counts.
func (s *Server) Ping(ctx context.Context) (*PingResult, error) {
	persons, families := s.store.Counts()
	return &PingResult{Status: "ok", Persons: persons, Families: families}, nil
}

// GetPerson looks up a person by ID.
func (s *Server) GetPerson(ctx context.Context, args GetPersonArgs) (*types.Person, error) {
	if args.ID == "" {
		return nil, &rpcError{ErrCodeInvalidParams, "id is required"}
	}
	p, err := s.store.GetPerson(args.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &rpcError{ErrCodeNotFound, fmt.Sprintf("person %s not found", args.ID)}
		}
		return nil, err
	}
	return &p, nil
}

// GetFamily looks up a family by ID.
func (s *Server) GetFamily(ctx context.Context, args GetFamilyArgs) (*types.Family, error) {
	if args.ID == "" {
		return nil, &rpcError{ErrCodeInvalidParams, "id is required"}
	}
	f, err := s.store.GetFamily(args.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &rpcError{ErrCodeNotFound, fmt.Sprintf("family %s not found", args.ID)}
		}
		return nil, err
	}
	return &f, nil
}

// ListPersons returns every person in the tree.
func (s *Server) ListPersons(ctx context.Context) (*ListPersonsResult, error) {
	persons := s.store.ListPersons()
	return &ListPersonsResult{Persons: persons, Total: len(persons)}, nil
}

// ListFamilies returns every family in the tree.
func (s *Server) ListFamilies(ctx context.Context) (*ListFamiliesResult, error) {
	families := s.store.ListFamilies()
	return &ListFamiliesResult{Families: families, Total: len(families)}, nil
}

// CreatePerson inserts a new person and persists the tree.
func (s *Server) CreatePerson(ctx context.Context, args CreatePersonArgs) (*CreateResult, error) {
	if strings.TrimSpace(args.ID) == "" {
		return nil, &rpcError{ErrCodeInvalidParams, "id is required"}
	}

	p := types.Person{
		ID:    args.ID,
		Birth: args.Birth.event(),
		Death: args.Death.event(),
	}
	if args.Name != "" {
		name := args.Name
		p.Name = &name
	}

	if err := s.store.InsertPerson(p); err != nil {
		var dup *storage.DuplicateError
		if errors.As(err, &dup) {
			return nil, &rpcError{ErrCodeConflict, dup.Error()}
		}
		return nil, err
	}

	if err := s.persist(); err != nil {
		return nil, err
	}
	s.recordMutation(string(storage.KindPerson), args.ID)

	return &CreateResult{ID: args.ID, Created: true}, nil
}

// CreateFamily inserts a new family and persists the tree. Member IDs are
// accepted without existence checks.
func (s *Server) CreateFamily(ctx context.Context, args CreateFamilyArgs) (*CreateResult, error) {
	if strings.TrimSpace(args.ID) == "" {
		return nil, &rpcError{ErrCodeInvalidParams, "id is required"}
	}

	f := types.Family{
		ID:       args.ID,
		Children: []string{},
	}
	if args.Husband != "" {
		h := args.Husband
		f.Husband = &h
	}
	if args.Wife != "" {
		w := args.Wife
		f.Wife = &w
	}
	if len(args.Children) > 0 {
		f.Children = append(f.Children, args.Children...)
	}

	if err := s.store.InsertFamily(f); err != nil {
		var dup *storage.DuplicateError
		if errors.As(err, &dup) {
			return nil, &rpcError{ErrCodeConflict, dup.Error()}
		}
		return nil, err
	}

	if err := s.persist(); err != nil {
		return nil, err
	}
	s.recordMutation(string(storage.KindFamily), args.ID)

	return &CreateResult{ID: args.ID, Created: true}, nil
}

// persist writes the current store contents to the snapshot path. The
// insert that preceded it is never rolled back: a persist failure leaves
// the new record visible in memory but not yet durable, and the next
// successful mutation writes the full state anyway.
func (s *Server) persist() error {
	if s.snapshotPath == "" {
		return nil
	}
	if err := snapshot.Write(s.snapshotPath, s.store.Export()); err != nil {
		return &rpcError{ErrCodeServerError, fmt.Sprintf("failed to persist data: %v", err)}
	}
	return nil
}

// recordMutation journals the insert and notifies observers. Both are
// advisory and never fail the mutation.
func (s *Server) recordMutation(kind, id string) {
	if s.journal != nil {
		s.journal.Record(kind, id)
	}
	if s.notifier != nil {
		s.notifier.NotifyInsert(kind, id)
	}
}

// --- JSON-RPC handler wrappers ---

func (s *Server) handlePing(ctx context.Context, params interface{}) (interface{}, error) {
	return s.Ping(ctx)
}

func (s *Server) handleGetPerson(ctx context.Context, params interface{}) (interface{}, error) {
	var args GetPersonArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.GetPerson(ctx, args)
}

func (s *Server) handleGetFamily(ctx context.Context, params interface{}) (interface{}, error) {
	var args GetFamilyArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.GetFamily(ctx, args)
}

func (s *Server) handleListPersons(ctx context.Context, params interface{}) (interface{}, error) {
	return s.ListPersons(ctx)
}

func (s *Server) handleListFamilies(ctx context.Context, params interface{}) (interface{}, error) {
	return s.ListFamilies(ctx)
}

func (s *Server) handleCreatePerson(ctx context.Context, params interface{}) (interface{}, error) {
	var args CreatePersonArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.CreatePerson(ctx, args)
}

func (s *Server) handleCreateFamily(ctx context.Context, params interface{}) (interface{}, error) {
	var args CreateFamilyArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.CreateFamily(ctx, args)
}

// --- Standard MCP protocol handlers ---

func (s *Server) handleInitialize(ctx context.Context, params interface{}) (interface{}, error) {
	return MCPInitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: MCPServerCapabilities{
			Tools: &MCPToolsCapability{},
		},
		ServerInfo: MCPServerInfo{
			Name:    "kintree",
			Version: "1.0.0",
		},
	}, nil
}

// handleToolsList returns the list of all tools this server exposes.
func (s *Server) handleToolsList(ctx context.Context, params interface{}) (interface{}, error) {
	return MCPToolsListResult{Tools: s.buildToolsList()}, nil
}

// handleToolsCall dispatches a tools/call request to the appropriate handler
// and wraps the result in the MCP content envelope.
func (s *Server) handleToolsCall(ctx context.Context, params interface{}) (interface{}, error) {
	var p MCPToolCallParams
	if err := s.unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	// Re-marshal arguments so they can be passed to the native handlers
	// which expect an interface{} produced by JSON unmarshal.
	argsJSON, err := json.Marshal(p.Arguments)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal arguments: %w", err)
	}
	var rawParams interface{}
	if err := json.Unmarshal(argsJSON, &rawParams); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	var result interface{}
	var handlerErr error

	switch p.Name {
	case "ping":
		result, handlerErr = s.handlePing(ctx, rawParams)
	case "get_person":
		result, handlerErr = s.handleGetPerson(ctx, rawParams)
	case "get_family":
		result, handlerErr = s.handleGetFamily(ctx, rawParams)
	case "list_persons":
		result, handlerErr = s.handleListPersons(ctx, rawParams)
	case "list_families":
		result, handlerErr = s.handleListFamilies(ctx, rawParams)
	case "create_person":
		result, handlerErr = s.handleCreatePerson(ctx, rawParams)
	case "create_family":
		result, handlerErr = s.handleCreateFamily(ctx, rawParams)
	default:
		return &MCPToolCallResult{
			Content: []MCPToolCallContent{{Type: "text", Text: fmt.Sprintf("unknown tool: %s", p.Name)}},
			IsError: true,
		}, nil
	}

	if handlerErr != nil {
		return &MCPToolCallResult{
			Content: []MCPToolCallContent{{Type: "text", Text: handlerErr.Error()}},
			IsError: true,
		}, nil
	}

	text, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &MCPToolCallResult{
		Content: []MCPToolCallContent{{Type: "text", Text: string(text)}},
	}, nil
}

// buildToolsList returns the canonical list of MCP tool definitions.
func (s *Server) buildToolsList() []MCPTool {
	eventSchema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"date":  map[string]interface{}{"type": "string", "description": "Free-form date text, e.g. '1 JAN 1900'"},
			"place": map[string]interface{}{"type": "string", "description": "Free-form place text"},
		},
	}

	return []MCPTool{
		{
			Name:        "ping",
			Description: "Check server liveness and get current person/family counts.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "get_person",
			Description: "Look up a single person by ID.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"id"},
				"properties": map[string]interface{}{
					"id": map[string]interface{}{"type": "string", "description": "Person ID, e.g. I1"},
				},
			},
		},
		{
			Name:        "get_family",
			Description: "Look up a single family by ID.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"id"},
				"properties": map[string]interface{}{
					"id": map[string]interface{}{"type": "string", "description": "Family ID, e.g. F1"},
				},
			},
		},
		{
			Name:        "list_persons",
			Description: "List every person in the tree.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "list_families",
			Description: "List every family in the tree.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "create_person",
			Description: "Add a new person. The ID must not collide with an existing person. The change is persisted immediately.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"id"},
				"properties": map[string]interface{}{
					"id":    map[string]interface{}{"type": "string", "description": "New person ID (required)"},
					"name":  map[string]interface{}{"type": "string", "description": "Display name, e.g. 'John /Doe/'"},
					"birth": eventSchema,
					"death": eventSchema,
				},
			},
		},
		{
			Name:        "create_family",
			Description: "Add a new family unit. Member IDs are not checked for existence. The change is persisted immediately.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"id"},
				"properties": map[string]interface{}{
					"id":       map[string]interface{}{"type": "string", "description": "New family ID (required)"},
					"husband":  map[string]interface{}{"type": "string", "description": "Husband person ID"},
					"wife":     map[string]interface{}{"type": "string", "description": "Wife person ID"},
					"children": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Child person IDs"},
				},
			},
		},
	}
}

// unmarshalParams converts the generic params value into a typed struct via
// a JSON round trip.
func (s *Server) unmarshalParams(params interface{}, dest interface{}) error {
	data, err := json.Marshal(params)
	if err != nil {
		return &rpcError{ErrCodeInvalidParams, fmt.Sprintf("failed to marshal params: %v", err)}
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return &rpcError{ErrCodeInvalidParams, fmt.Sprintf("failed to unmarshal params: %v", err)}
	}

	return nil
}

// successResponse creates a JSON-RPC success response.
func (s *Server) successResponse(id interface{}, result interface{}) ([]byte, error) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
	return json.Marshal(resp)
}

// errorResponse creates a JSON-RPC error response.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) ([]byte, error) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
	return json.Marshal(resp)
}
