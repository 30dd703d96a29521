// HTTP endpoints
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"gcode-toolpath/pkg/errors"
)

// handleJSONRPC handles JSON-RPC 2.0 requests posted over HTTP.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req jsonRPCRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxUpload+4096)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, jsonRPCResponse{
			JSONRPC: "2.0",
			Error:   &jsonRPCError{Code: codeParseError, Message: "Parse error"},
		})
		return
	}

	result, err := s.dispatchMethod(r.Context(), req.Method, req.Params)
	resp := jsonRPCResponse{JSONRPC: "2.0", ID: req.ID}
	if err != nil {
		resp.Error = rpcError(err)
	} else {
		resp.Result = result
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleServerInfo(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.info())
}

// handleParse parses the raw request body as a G-code program.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUpload))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge,
			errors.RPCParamError("toolpath.parse", "body", "exceeds the upload limit"))
		return
	}

	result, err := s.Parse(r.Context(), data)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeResult(w, result)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeResult(w, map[string]any{"canceled": s.cancelParse()})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.snapshot().Summary())
}

func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.snapshot().LayerSpans())
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	writeResult(w, map[string]any{"tools": s.snapshot().Tools()})
}

func (s *Server) handleLine(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest,
			errors.RPCParamError("toolpath.line", "index", "must be an integer"))
		return
	}

	line, err := s.snapshot().LineAt(index)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeResult(w, line)
}

// JSON response helpers

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeResult(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": rpcError(err)})
}
