// Toolpath service
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package server exposes the toolpath builder over HTTP and a websocket
// JSON-RPC 2.0 interface. Clients upload a G-code program, follow the parse
// through progress notifications and then query the resulting model.
package server

import (
	"context"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"gcode-toolpath/pkg/errors"
	"gcode-toolpath/pkg/gcodefile"
	"gcode-toolpath/pkg/log"
	"gcode-toolpath/pkg/metrics"
	"gcode-toolpath/pkg/toolpath"
)

// Version is reported by server.info.
const Version = "0.3.0"

// DefaultMaxUpload bounds the size of an uploaded program.
const DefaultMaxUpload = 64 << 20

// Config holds server configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":7130".
	Addr string

	// MaxUpload is the largest accepted program in bytes.
	MaxUpload int64

	// Options configures each parse. Progress and Metrics are set by the
	// server.
	Options toolpath.Options

	// Metrics is exposed on /metrics when set.
	Metrics *metrics.ParserMetrics
}

// ParseResult describes a finished parse.
type ParseResult struct {
	Summary  toolpath.Summary   `json:"summary"`
	Metadata gcodefile.Metadata `json:"metadata"`
	Canceled bool               `json:"canceled"`
	Duration float64            `json:"duration"`
}

// Server serves toolpath parsing and queries.
type Server struct {
	cfg    Config
	logger *log.Logger

	httpServer *http.Server

	wsUpgrader websocket.Upgrader
	wsClients  map[int64]*WSClient
	wsClientMu sync.RWMutex
	nextWSID   int64

	// model is the last completed parse; active is the builder of the
	// parse in flight, if any.
	mu     sync.RWMutex
	model  *toolpath.Toolpath
	result *ParseResult
	active *toolpath.Builder
	busy   atomic.Bool

	running   atomic.Bool
	startTime time.Time
}

// New creates a toolpath server.
func New(cfg Config) *Server {
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = DefaultMaxUpload
	}
	s := &Server{
		cfg:       cfg,
		logger:    log.GetLogger("server"),
		wsClients: make(map[int64]*WSClient),
		model:     toolpath.New(),
		startTime: time.Now(),
	}
	s.wsUpgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	return s
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/jsonrpc", s.handleJSONRPC)
	mux.HandleFunc("/websocket", s.handleWebSocket)

	mux.HandleFunc("/server/info", s.handleServerInfo)
	mux.HandleFunc("/toolpath/parse", s.handleParse)
	mux.HandleFunc("/toolpath/cancel", s.handleCancel)
	mux.HandleFunc("/toolpath/summary", s.handleSummary)
	mux.HandleFunc("/toolpath/layers", s.handleLayers)
	mux.HandleFunc("/toolpath/line", s.handleLine)
	mux.HandleFunc("/toolpath/tools", s.handleTools)

	if s.cfg.Metrics != nil {
		mux.Handle("/metrics", metrics.Handler(s.cfg.Metrics.Registry()))
	}

	return corsMiddleware(mux)
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.running.Store(true)
	s.logger.Info("toolpath server listening on %s", s.cfg.Addr)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop cancels any running parse, disconnects websocket clients and closes
// the listener.
func (s *Server) Stop() error {
	s.running.Store(false)
	s.cancelParse()

	s.wsClientMu.Lock()
	for _, client := range s.wsClients {
		client.Close()
	}
	s.wsClients = make(map[int64]*WSClient)
	s.wsClientMu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// Parse builds a new model from data, replacing the current one when done.
// Only one parse runs at a time; a second caller gets a PARSE_BUSY error.
// A canceled parse still replaces the model with what was built.
func (s *Server) Parse(ctx context.Context, data []byte) (*ParseResult, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, errors.ParseBusyError()
	}
	defer s.busy.Store(false)

	opts := s.cfg.Options
	if s.cfg.Metrics != nil {
		opts.Metrics = s.cfg.Metrics
	}
	last := -1
	opts.Progress = func(percent int) {
		if percent == last {
			return
		}
		last = percent
		s.broadcast("notify_parse_progress", []any{percent})
	}

	builder := toolpath.NewBuilderWithOptions(data, opts)
	s.mu.Lock()
	s.active = builder
	s.mu.Unlock()

	start := time.Now()
	model := builder.Parse(ctx, nil)
	result := &ParseResult{
		Summary:  model.Summary(),
		Metadata: gcodefile.ParseMetadata(data),
		Canceled: builder.Canceled(),
		Duration: time.Since(start).Seconds(),
	}

	s.mu.Lock()
	s.active = nil
	s.model = model
	s.result = result
	s.mu.Unlock()

	s.logger.WithFields(log.Fields{
		"bytes":    len(data),
		"lines":    result.Summary.Lines,
		"canceled": result.Canceled,
	}).Info("parse finished")
	s.broadcast("notify_parse_complete", []any{result})
	return result, nil
}

// cancelParse stops the parse in flight and reports whether there was one.
func (s *Server) cancelParse() bool {
	s.mu.RLock()
	active := s.active
	s.mu.RUnlock()
	if active == nil {
		return false
	}
	active.Cancel()
	return true
}

// snapshot returns the current model. The model is never mutated once
// published so readers may use it without holding the lock.
func (s *Server) snapshot() *toolpath.Toolpath {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// broadcast sends a JSON-RPC notification to every websocket client.
func (s *Server) broadcast(method string, params []any) {
	msg := jsonRPCNotification{JSONRPC: "2.0", Method: method, Params: params}

	s.wsClientMu.RLock()
	defer s.wsClientMu.RUnlock()
	for _, client := range s.wsClients {
		client.Send(msg)
	}
}

func (s *Server) clientCount() int {
	s.wsClientMu.RLock()
	defer s.wsClientMu.RUnlock()
	return len(s.wsClients)
}

func (s *Server) info() map[string]any {
	hostname, _ := os.Hostname()
	return map[string]any{
		"version":         Version,
		"hostname":        hostname,
		"uptime":          time.Since(s.startTime).Seconds(),
		"parsing":         s.busy.Load(),
		"websocket_count": s.clientCount(),
		"max_upload":      s.cfg.MaxUpload,
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
