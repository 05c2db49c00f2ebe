package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/ctxforge/taskmcp/internal/validation"
)

// protocolVersion is the MCP handshake version this server speaks.
const protocolVersion = "2025-03-26"

// Server implements the MCP JSON-RPC method dispatch over a Registry.
// Transport-specific concerns (HTTP framing, headers, CORS) live in
// http.go; Server only knows how to turn one decoded Request into a
// Response.
type Server struct {
	registry     *Registry
	info         ServerInfo
	logger       *zap.Logger
	defaultActor string
	validator    *validation.InputValidator
}

// NewServer builds a Server around registry. defaultActor is the actor
// attributed to a tool call whose arguments don't name one (the --actor
// CLI flag / DEFAULT_USER_ID, resolved by internal/shared.ResolveActor).
func NewServer(registry *Registry, info ServerInfo, logger *zap.Logger, defaultActor string) *Server {
	return &Server{
		registry:     registry,
		info:         info,
		logger:       logger,
		defaultActor: defaultActor,
		validator:    validation.NewInputValidator(),
	}
}

// HandleMessage parses one JSON-RPC message and dispatches it. Returns nil
// for notifications, which get no response per JSON-RPC 2.0.
func (s *Server) HandleMessage(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return &Response{
			JSONRPC: "2.0",
			Error:   &RPCError{Code: ErrCodeParse, Message: "parse error", Data: err.Error()},
		}
	}

	if req.ID == nil || string(req.ID) == "null" {
		s.logger.Debug("received notification", zap.String("method", req.Method))
		return nil
	}

	result, rpcErr := s.dispatch(ctx, &req)
	resp := &Response{JSONRPC: "2.0", ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	return resp
}

func (s *Server) dispatch(ctx context.Context, req *Request) (any, *RPCError) {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req.Params)
	case "tools/list":
		return &ToolsListResult{Tools: s.registry.List()}, nil
	case "tools/call":
		return s.handleToolsCall(ctx, req.Params)
	default:
		return nil, &RPCError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
	}
}

func (s *Server) handleInitialize(params json.RawMessage) (any, *RPCError) {
	var initParams InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &initParams); err != nil {
			return nil, &RPCError{Code: ErrCodeInvalidParams, Message: "invalid initialize params", Data: err.Error()}
		}
	}
	s.logger.Info("client connecting",
		zap.String("client", initParams.ClientInfo.Name),
		zap.String("protocol_version", initParams.ProtocolVersion),
	)
	return &InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    ServerCapability{Tools: &ToolsCapability{}},
		ServerInfo:      s.info,
	}, nil
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (any, *RPCError) {
	var callParams ToolsCallParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return nil, &RPCError{Code: ErrCodeInvalidParams, Message: "invalid tools/call params", Data: err.Error()}
	}

	handler := s.registry.Get(callParams.Name)
	if handler == nil {
		return nil, &RPCError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("tool not found: %s", callParams.Name)}
	}

	args, err := coerceArguments(callParams.Arguments)
	if err != nil {
		return nil, &RPCError{Code: ErrCodeInvalidParams, Message: "invalid tool arguments", Data: err.Error()}
	}
	action, _ := args["action"].(string)
	args["actor"] = resolveActor(args, s.defaultActor)

	env := handler.Dispatch(ctx, action, args)
	auditLog(s.logger, s.validator, callParams.Name, action, args["actor"].(string), env.OperationID.String(), env.Data)

	body, err := json.Marshal(env)
	if err != nil {
		return nil, &RPCError{Code: ErrCodeInternal, Message: "failed to marshal response envelope", Data: err.Error()}
	}
	return &ToolsCallResult{
		Content: []ContentBlock{TextContent(string(body))},
		IsError: !env.Success,
	}, nil
}
