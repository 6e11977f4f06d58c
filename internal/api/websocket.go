package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/serroba/rich-docs/internal/acl"
	"github.com/serroba/rich-docs/internal/collab"
	"github.com/serroba/rich-docs/internal/delta"
	"github.com/serroba/rich-docs/internal/ot"
	"github.com/serroba/rich-docs/internal/storage"
	"github.com/serroba/rich-docs/internal/ws"
)

// editSession is the part of a collab.Session the WebSocket loop drives.
type editSession interface {
	ApplyDelta(clientID, userID string, change *delta.Delta, baseRevision int) (int, error)
	GetState(userID string) (collab.State, error)
}

// handleWebSocket handles GET /ws?docId={id}.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "docId query parameter is required", http.StatusBadRequest)

		return
	}

	userID, _ := UserIDFromContext(r.Context())

	client, cleanup, err := s.setupWebSocketClient(w, r, docID, userID)
	if err != nil {
		return
	}

	defer cleanup()

	session, err := s.initializeSession(client, docID, userID)
	if err != nil {
		return
	}

	s.handleMessages(client, session, docID, userID)
}

// setupWebSocketClient upgrades the connection and subscribes a new client
// to the document.
func (s *Server) setupWebSocketClient(
	w http.ResponseWriter, r *http.Request, docID, userID string,
) (*ws.Client, func(), error) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.String("doc_id", docID), zap.Error(err))

		return nil, nil, err
	}

	client := ws.NewClient(uuid.NewString(), userID, conn)
	s.hub.Register(client)
	s.hub.Subscribe(client, docID)

	logger := s.logger.With(
		zap.String("doc_id", docID),
		zap.String("client_id", client.ID),
		zap.String("user_id", userID),
	)
	logger.Info("client connected")

	cleanup := func() {
		s.hub.Unregister(client)
		_ = client.Close()

		logger.Info("client disconnected")
	}

	return client, cleanup, nil
}

// initializeSession opens the document's session and sends the initial state.
func (s *Server) initializeSession(client *ws.Client, docID, userID string) (editSession, error) {
	session, err := s.manager.GetOrCreateSession(docID)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			_ = client.SendError(ws.ErrorCodeInvalidMessage, "document not found")
		} else {
			_ = client.SendError(ws.ErrorCodeInternalError, "failed to load document")
		}

		return nil, err
	}

	if err := s.sendState(client, session, docID, userID); err != nil {
		return nil, err
	}

	return session, nil
}

// handleMessages processes incoming messages until the client goes away.
func (s *Server) handleMessages(client *ws.Client, session editSession, docID, userID string) {
	for {
		msg, err := client.Receive()
		if err != nil {
			return
		}

		switch msg.Type {
		case ws.MessageTypeOperation:
			s.handleOperation(client, session, userID, msg)
		case ws.MessageTypeSync:
			_ = s.sendState(client, session, docID, userID)
		case ws.MessageTypeAck, ws.MessageTypeBroadcast, ws.MessageTypeState, ws.MessageTypeError:
			_ = client.SendError(ws.ErrorCodeInvalidMessage, "unexpected message type")
		default:
			_ = client.SendError(ws.ErrorCodeInvalidMessage, "unknown message type")
		}
	}
}

// handleOperation sequences a client's delta and acknowledges it.
func (s *Server) handleOperation(client *ws.Client, session editSession, userID string, msg ws.Message) {
	payload, ok := msg.Payload.(ws.OperationPayload)
	if !ok {
		_ = client.SendError(ws.ErrorCodeInvalidMessage, "invalid operation payload")

		return
	}

	revision, err := session.ApplyDelta(client.ID, userID, payload.Delta, payload.BaseRevision)
	if err != nil {
		switch {
		case errors.Is(err, acl.ErrAccessDenied):
			_ = client.SendError(ws.ErrorCodeForbidden, err.Error())
		case errors.Is(err, ot.ErrRevisionTooOld), errors.Is(err, ot.ErrFutureRevision):
			_ = client.SendError(ws.ErrorCodeStaleRevision, err.Error())
		case errors.Is(err, collab.ErrRejectedChange), errors.Is(err, delta.ErrIncompatibleLengths):
			_ = client.SendError(ws.ErrorCodeRejected, err.Error())
		default:
			_ = client.SendError(ws.ErrorCodeInternalError, err.Error())
		}

		return
	}

	_ = client.Send(ws.Message{
		Type: ws.MessageTypeAck,
		Payload: ws.AckPayload{
			Revision: revision,
		},
	})
}

// sendState sends the full document state to the client.
func (s *Server) sendState(client *ws.Client, session editSession, docID, userID string) error {
	state, err := session.GetState(userID)
	if errors.Is(err, acl.ErrAccessDenied) {
		_ = client.SendError(ws.ErrorCodeForbidden, "read access denied")

		return err
	}

	if err != nil {
		_ = client.SendError(ws.ErrorCodeInternalError, "failed to get document state")

		return err
	}

	return client.Send(ws.Message{
		Type: ws.MessageTypeState,
		Payload: ws.StatePayload{
			DocID:    docID,
			Delta:    state.Delta,
			Content:  state.Content,
			Revision: state.Revision,
		},
	})
}
