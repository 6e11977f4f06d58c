package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/serroba/rich-docs/internal/acl"
	"github.com/serroba/rich-docs/internal/delta"
	"github.com/serroba/rich-docs/internal/storage"
)

// CreateDocumentRequest is the request body for creating a document.
// An empty ID asks the server to generate one.
type CreateDocumentRequest struct {
	ID string `json:"id"`
}

// CreateDocumentResponse is the response body for creating a document.
type CreateDocumentResponse struct {
	ID string `json:"id"`
}

// GetDocumentResponse is the response body for getting a document.
type GetDocumentResponse struct {
	ID       string       `json:"id"`
	Delta    *delta.Delta `json:"delta"`
	Content  string       `json:"content"`
	Revision int          `json:"revision"`
}

// handleCreateDocument handles POST /documents.
func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)

		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	} else if strings.Contains(req.ID, "/") {
		http.Error(w, "document ID must not contain '/'", http.StatusBadRequest)

		return
	}

	if err := s.store.CreateDocument(req.ID); err != nil {
		if errors.Is(err, storage.ErrDocumentExists) {
			http.Error(w, "document already exists", http.StatusConflict)

			return
		}

		s.logger.Error("create document", zap.String("doc_id", req.ID), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)

		return
	}

	userID, _ := UserIDFromContext(r.Context())

	if s.permStore != nil {
		if err := s.permStore.Grant(req.ID, userID, acl.Owner); err != nil {
			s.logger.Error("grant owner", zap.String("doc_id", req.ID), zap.Error(err))
			http.Error(w, "internal server error", http.StatusInternalServerError)

			return
		}
	}

	s.logger.Info("document created",
		zap.String("doc_id", req.ID),
		zap.String("user_id", userID),
	)

	s.writeJSON(w, http.StatusCreated, CreateDocumentResponse(req))
}

// handleGetDocument handles GET /documents/{id}.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	docID := extractDocID(r.URL.Path, "/documents/")
	if docID == "" {
		http.Error(w, "document ID is required", http.StatusBadRequest)

		return
	}

	session, err := s.manager.GetOrCreateSession(docID)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)

			return
		}

		s.logger.Error("open session", zap.String("doc_id", docID), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)

		return
	}

	userID, _ := UserIDFromContext(r.Context())

	state, err := session.GetState(userID)
	if err != nil {
		if errors.Is(err, acl.ErrAccessDenied) {
			http.Error(w, "forbidden", http.StatusForbidden)

			return
		}

		s.logger.Error("read document state", zap.String("doc_id", docID), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, http.StatusOK, GetDocumentResponse{
		ID:       docID,
		Delta:    state.Delta,
		Content:  state.Content,
		Revision: state.Revision,
	})
}

// handleDeleteDocument handles DELETE /documents/{id}.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := extractDocID(r.URL.Path, "/documents/")
	if docID == "" {
		http.Error(w, "document ID is required", http.StatusBadRequest)

		return
	}

	userID, _ := UserIDFromContext(r.Context())

	if !s.authorize(w, docID, userID, acl.ActionDelete) {
		return
	}

	// The session's final snapshot must land before the document goes
	if err := s.manager.CloseSession(docID); err != nil {
		s.logger.Warn("close session before delete", zap.String("doc_id", docID), zap.Error(err))
	}

	if err := s.store.DeleteDocument(docID); err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)

			return
		}

		s.logger.Error("delete document", zap.String("doc_id", docID), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)

		return
	}

	if s.permStore != nil {
		if err := s.permStore.RevokeAll(docID); err != nil {
			s.logger.Warn("drop permissions", zap.String("doc_id", docID), zap.Error(err))
		}
	}

	s.logger.Info("document deleted",
		zap.String("doc_id", docID),
		zap.String("user_id", userID),
	)

	w.WriteHeader(http.StatusNoContent)
}

// authorize writes 403 and reports false when userID may not perform action.
// An unknown document is a 404 rather than a 403.
func (s *Server) authorize(w http.ResponseWriter, docID, userID string, action acl.Action) bool {
	err := s.checker.Require(docID, userID, action)
	if err == nil {
		return true
	}

	if errors.Is(err, acl.ErrAccessDenied) {
		if exists, _ := s.store.DocumentExists(docID); !exists {
			http.Error(w, "document not found", http.StatusNotFound)
		} else {
			http.Error(w, "forbidden", http.StatusForbidden)
		}

		return false
	}

	s.logger.Error("check permission", zap.String("doc_id", docID), zap.Error(err))
	http.Error(w, "internal server error", http.StatusInternalServerError)

	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

// extractDocID extracts the document ID from a URL path.
func extractDocID(path, prefix string) string {
	if !strings.HasPrefix(path, prefix) {
		return ""
	}

	return strings.TrimPrefix(path, prefix)
}
