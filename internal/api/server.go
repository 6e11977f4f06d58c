package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/serroba/rich-docs/internal/acl"
	"github.com/serroba/rich-docs/internal/collab"
	"github.com/serroba/rich-docs/internal/storage"
	"github.com/serroba/rich-docs/internal/ws"
)

var errHijackUnsupported = errors.New("response writer does not support hijacking")

// Server handles HTTP requests for the collaboration API.
type Server struct {
	manager   *collab.Manager
	store     storage.Store
	permStore acl.Store
	checker   *acl.Checker
	hub       *ws.Hub
	logger    *zap.Logger
	upgrader  websocket.Upgrader
}

// ServerConfig holds configuration for creating a server.
type ServerConfig struct {
	Manager   *collab.Manager
	Store     storage.Store
	PermStore acl.Store // nil switches access control off
	Hub       *ws.Hub
	Logger    *zap.Logger
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var checker *acl.Checker
	if cfg.PermStore != nil {
		checker = acl.NewChecker(cfg.PermStore)
	}

	return &Server{
		manager:   cfg.Manager,
		store:     cfg.Store,
		permStore: cfg.PermStore,
		checker:   checker,
		hub:       cfg.Hub,
		logger:    logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool {
				return true // Any origin may connect
			},
		},
	}
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Document endpoints (require auth)
	mux.Handle("/documents", s.authMiddleware(http.HandlerFunc(s.handleCreateDocument)))
	mux.Handle("/documents/", s.authMiddleware(http.HandlerFunc(s.handleDocumentByID)))

	// WebSocket endpoint (requires auth)
	mux.Handle("/ws", s.authMiddleware(http.HandlerFunc(s.handleWebSocket)))

	return s.logRequests(mux)
}

// handleDocumentByID routes /documents/{id} and /documents/{id}/permissions.
func (s *Server) handleDocumentByID(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(extractDocID(r.URL.Path, "/documents/"), permissionsSuffix) {
		s.handlePermissions(w, r)

		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetDocument(w, r)
	case http.MethodDelete:
		s.handleDeleteDocument(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack hands the connection to the WebSocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errHijackUnsupported
	}

	r.status = http.StatusSwitchingProtocols

	return h.Hijack()
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
