package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/serroba/rich-docs/internal/acl"
)

const permissionsSuffix = "/permissions"

// GrantRequest is the request body for sharing a document.
type GrantRequest struct {
	UserID string   `json:"userId"`
	Role   acl.Role `json:"role"`
}

// ListPermissionsResponse is the response body for listing who can access a document.
type ListPermissionsResponse struct {
	Permissions []acl.Permission `json:"permissions"`
}

// handlePermissions handles GET, PUT and DELETE on /documents/{id}/permissions.
func (s *Server) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if s.permStore == nil {
		http.Error(w, "access control is disabled", http.StatusNotImplemented)

		return
	}

	docID := strings.TrimSuffix(extractDocID(r.URL.Path, "/documents/"), permissionsSuffix)
	if docID == "" || strings.Contains(docID, "/") {
		http.Error(w, "document ID is required", http.StatusBadRequest)

		return
	}

	userID, _ := UserIDFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		if s.authorize(w, docID, userID, acl.ActionRead) {
			s.listPermissions(w, docID)
		}
	case http.MethodPut:
		if s.authorize(w, docID, userID, acl.ActionShare) {
			s.grantPermission(w, r, docID, userID)
		}
	case http.MethodDelete:
		if s.authorize(w, docID, userID, acl.ActionShare) {
			s.revokePermission(w, r, docID, userID)
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) listPermissions(w http.ResponseWriter, docID string) {
	perms, err := s.permStore.ListPermissions(docID)
	if err != nil {
		s.logger.Error("list permissions", zap.String("doc_id", docID), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, http.StatusOK, ListPermissionsResponse{Permissions: perms})
}

func (s *Server) grantPermission(w http.ResponseWriter, r *http.Request, docID, granter string) {
	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)

		return
	}

	if req.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)

		return
	}

	if req.UserID == granter && req.Role != acl.Owner {
		http.Error(w, "owners cannot demote themselves", http.StatusBadRequest)

		return
	}

	if err := s.permStore.Grant(docID, req.UserID, req.Role); err != nil {
		s.logger.Error("grant permission", zap.String("doc_id", docID), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)

		return
	}

	s.logger.Info("permission granted",
		zap.String("doc_id", docID),
		zap.String("user_id", req.UserID),
		zap.Stringer("role", req.Role),
		zap.String("granted_by", granter),
	)

	s.writeJSON(w, http.StatusOK, acl.Permission{DocID: docID, UserID: req.UserID, Role: req.Role})
}

func (s *Server) revokePermission(w http.ResponseWriter, r *http.Request, docID, revoker string) {
	target := r.URL.Query().Get("userId")
	if target == "" {
		http.Error(w, "userId query parameter is required", http.StatusBadRequest)

		return
	}

	if target == revoker {
		http.Error(w, "owners cannot revoke themselves", http.StatusBadRequest)

		return
	}

	if err := s.permStore.Revoke(docID, target); err != nil {
		if errors.Is(err, acl.ErrPermissionNotFound) {
			http.Error(w, "permission not found", http.StatusNotFound)

			return
		}

		s.logger.Error("revoke permission", zap.String("doc_id", docID), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)

		return
	}

	s.logger.Info("permission revoked",
		zap.String("doc_id", docID),
		zap.String("user_id", target),
		zap.String("revoked_by", revoker),
	)

	w.WriteHeader(http.StatusNoContent)
}
