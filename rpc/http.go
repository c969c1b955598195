package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"treasurehunt/core"
	"treasurehunt/indexer"
	"treasurehunt/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20

	defaultReadHeaderTimeout = 5 * time.Second
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 2 * time.Minute
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeNotFound       = -32004
	codeTxRejected     = -32003
	codeDuplicateTx    = -32010
	codeRateLimited    = -32020
)

// Leaderboard serves the ranking read from the indexer.
type Leaderboard interface {
	Top(ctx context.Context, limit int) ([]indexer.Entry, error)
	Player(ctx context.Context, address string) (*indexer.Entry, error)
	Search(ctx context.Context, query string, limit int) ([]indexer.Entry, error)
	Stats(ctx context.Context) (indexer.Stats, error)
}

// ServerConfig configures the JSON-RPC server.
type ServerConfig struct {
	Auth              AuthConfig
	RateLimit         RateLimit
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

// Server exposes the node over JSON-RPC, a websocket event stream and
// operational endpoints.
type Server struct {
	node    *core.Node
	board   Leaderboard
	auth    *Authenticator
	limiter *RateLimiter
	logger  *slog.Logger
	cfg     ServerConfig

	mu     sync.Mutex
	server *http.Server
}

// NewServer wires a server around node. board may be nil when the indexer is
// disabled; leaderboard methods then report an error.
func NewServer(node *core.Node, board Leaderboard, cfg ServerConfig, logger *slog.Logger) (*Server, error) {
	if node == nil {
		return nil, errors.New("rpc: node required")
	}
	if cfg.Auth.Enabled && strings.TrimSpace(cfg.Auth.HMACSecret) == "" {
		return nil, errors.New("rpc: auth enabled without a secret")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	return &Server{
		node:    node,
		board:   board,
		auth:    NewAuthenticator(cfg.Auth),
		limiter: NewRateLimiter(cfg.RateLimit),
		logger:  logger,
		cfg:     cfg,
	}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware)
		r.Post("/", s.handle)
		r.Post("/rpc", s.handle)
		r.Get("/ws/events", s.handleEventStream)
	})
	return otelhttp.NewHandler(r, "hunt-rpc")
}

// Serve serves on an existing listener.
func (s *Server) Serve(listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()
	s.logger.Info("rpc server listening", slog.String("addr", listener.Addr().String()))
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// RPCRequest is a JSON-RPC 2.0 request with positional params.
type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

type methodHandler func(w http.ResponseWriter, r *http.Request, req *RPCRequest)

func (s *Server) methods() map[string]methodHandler {
	return map[string]methodHandler{
		"hunt_chainInfo":       s.handleChainInfo,
		"hunt_getNonce":        s.handleGetNonce,
		"hunt_sendTransaction": s.requireAuth(s.handleSendTransaction),
		"hunt_getReceipt":      s.handleGetReceipt,
		"treasure_get":         s.handleTreasureGet,
		"treasure_list":        s.handleTreasureList,
		"treasure_nearby":      s.handleTreasureNearby,
		"token_balance":        s.handleTokenBalance,
		"metadata_get":         s.handleMetadataGet,
		"leaderboard_top":      s.handleLeaderboardTop,
		"leaderboard_player":   s.handleLeaderboardPlayer,
		"leaderboard_search":   s.handleLeaderboardSearch,
		"leaderboard_stats":    s.handleLeaderboardStats,
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	handler, ok := s.methods()[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
		return
	}
	start := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	handler(recorder, r, req)
	observability.RPC().Observe(req.Method, recorder.status, time.Since(start))
}

func (s *Server) requireAuth(next methodHandler) methodHandler {
	return func(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
		if err := s.auth.Authorize(r); err != nil {
			writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "unauthorized", err.Error())
			return
		}
		next(w, r, req)
	}
}

// decodeParam unmarshals the i-th positional parameter into dst.
func decodeParam(req *RPCRequest, i int, dst interface{}) *RPCError {
	if i >= len(req.Params) {
		return &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("missing parameter %d", i)}
	}
	if err := json.Unmarshal(req.Params[i], dst); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid parameter %d", i), Data: err.Error()}
	}
	return nil
}

// decodeOptionalParam leaves dst untouched when the parameter is absent.
func decodeOptionalParam(req *RPCRequest, i int, dst interface{}) *RPCError {
	if i >= len(req.Params) || string(bytes.TrimSpace(req.Params[i])) == "null" {
		return nil
	}
	return decodeParam(req, i, dst)
}

func writeRPCError(w http.ResponseWriter, id interface{}, err *RPCError) {
	status := http.StatusBadRequest
	switch err.Code {
	case codeNotFound:
		status = http.StatusNotFound
	case codeServerError:
		status = http.StatusInternalServerError
	case codeDuplicateTx:
		status = http.StatusConflict
	}
	writeError(w, status, id, err.Code, err.Message, err.Data)
}
