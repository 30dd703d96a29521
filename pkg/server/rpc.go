// JSON-RPC methods
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package server

import (
	"context"
	"math"

	"gcode-toolpath/pkg/errors"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

type jsonRPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
	ID      any            `json:"id,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonRPCError `json:"error,omitempty"`
	ID      any           `json:"id,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonRPCNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, errors.ErrRPCMethod):
		return codeMethodNotFound
	case errors.Is(err, errors.ErrRPCParam), errors.Is(err, errors.ErrIndexRange):
		return codeInvalidParams
	default:
		return codeServerError
	}
}

func rpcError(err error) *jsonRPCError {
	return &jsonRPCError{Code: errorCode(err), Message: err.Error()}
}

// dispatchMethod routes a method call to its handler.
func (s *Server) dispatchMethod(ctx context.Context, method string, params map[string]any) (any, error) {
	switch method {
	case "server.info":
		return s.info(), nil
	case "toolpath.parse":
		return s.methodParse(ctx, params)
	case "toolpath.cancel":
		return map[string]any{"canceled": s.cancelParse()}, nil
	case "toolpath.summary":
		return s.snapshot().Summary(), nil
	case "toolpath.layers":
		return s.snapshot().LayerSpans(), nil
	case "toolpath.line":
		return s.methodLine(params)
	case "toolpath.tools":
		return map[string]any{"tools": s.snapshot().Tools()}, nil
	default:
		return nil, errors.RPCMethodError(method)
	}
}

func (s *Server) methodParse(ctx context.Context, params map[string]any) (any, error) {
	program, ok := params["gcode"].(string)
	if !ok {
		return nil, errors.RPCParamError("toolpath.parse", "gcode", "must be a string")
	}
	if int64(len(program)) > s.cfg.MaxUpload {
		return nil, errors.RPCParamError("toolpath.parse", "gcode", "exceeds the upload limit")
	}
	return s.Parse(ctx, []byte(program))
}

func (s *Server) methodLine(params map[string]any) (any, error) {
	index, err := intParam("toolpath.line", params, "index")
	if err != nil {
		return nil, err
	}
	return s.snapshot().LineAt(index)
}

// intParam reads an integral number parameter. JSON numbers decode as
// float64.
func intParam(method string, params map[string]any, name string) (int, error) {
	raw, ok := params[name]
	if !ok {
		return 0, errors.RPCParamError(method, name, "is required")
	}
	f, ok := raw.(float64)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, errors.RPCParamError(method, name, "must be an integer")
	}
	return int(f), nil
}
