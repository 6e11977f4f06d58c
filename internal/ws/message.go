package ws

import "github.com/serroba/rich-docs/internal/delta"

// MessageType identifies the kind of WebSocket message.
type MessageType string

const (
	// Client to Server messages.
	MessageTypeOperation MessageType = "operation" // Client submits a delta
	MessageTypeSync      MessageType = "sync"      // Client requests current state

	// Server to Client messages.
	MessageTypeAck       MessageType = "ack"       // Server confirms a delta was sequenced
	MessageTypeBroadcast MessageType = "broadcast" // Server pushes a sequenced delta to peers
	MessageTypeState     MessageType = "state"     // Server sends full document state
	MessageTypeError     MessageType = "error"     // Server reports an error
)

// Message is the envelope for all WebSocket communication.
type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

// OperationPayload is sent when a client submits a change. Delta is
// expressed against the document at BaseRevision.
type OperationPayload struct {
	DocID        string       `json:"docId"`
	BaseRevision int          `json:"baseRevision"`
	Delta        *delta.Delta `json:"delta"`
}

// SyncPayload asks for the current document state.
type SyncPayload struct {
	DocID string `json:"docId"`
}

// AckPayload confirms a change was sequenced.
type AckPayload struct {
	Revision int `json:"revision"` // The assigned revision number
}

// BroadcastPayload pushes a sequenced change to other clients. Delta is
// expressed against the document at Revision-1.
type BroadcastPayload struct {
	DocID    string       `json:"docId"`
	Revision int          `json:"revision"`
	Delta    *delta.Delta `json:"delta"`
	UserID   string       `json:"userId"`
}

// StatePayload sends the full document state.
type StatePayload struct {
	DocID    string       `json:"docId"`
	Delta    *delta.Delta `json:"delta"`
	Content  string       `json:"content"`
	Revision int          `json:"revision"`
}

// ErrorPayload reports an error to the client.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeStaleRevision  = "stale_revision"
	ErrorCodeRejected       = "rejected"
	ErrorCodeForbidden      = "forbidden"
	ErrorCodeInternalError  = "internal_error"
)
