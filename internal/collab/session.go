package collab

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/serroba/rich-docs/internal/acl"
	"github.com/serroba/rich-docs/internal/delta"
	"github.com/serroba/rich-docs/internal/ot"
	"github.com/serroba/rich-docs/internal/storage"
	"github.com/serroba/rich-docs/internal/ws"
)

// Common errors.
var (
	ErrSessionClosed = errors.New("session is closed")

	// ErrRejectedChange is returned when a rebased change does not fit the
	// document, usually because the client built it against a stale length.
	ErrRejectedChange = errors.New("change does not fit document")
)

// DefaultHistorySize is how many sequenced changes a session keeps for
// rebasing late clients.
const DefaultHistorySize = 100

// State is a consistent view of a session's document.
type State struct {
	Delta    *delta.Delta
	Content  string
	Revision int
}

// Session is the authoritative copy of one document. Every incoming change is
// rebased onto the latest revision, composed into the document, logged and
// then broadcast to the other subscribers.
type Session struct {
	docID string

	mu       sync.RWMutex
	document *ot.Document
	queue    *ot.Queue
	closed   bool

	store          storage.Store
	permChecker    *acl.Checker
	hub            *ws.Hub
	snapshotPolicy *storage.SnapshotPolicy
	undoDepth      int
	logger         *zap.Logger
}

// SessionConfig holds configuration for creating a session.
type SessionConfig struct {
	DocID          string
	Store          storage.Store
	PermChecker    *acl.Checker // nil allows every user everything
	Hub            *ws.Hub
	SnapshotPolicy *storage.SnapshotPolicy
	HistorySize    int
	UndoDepth      int
	Logger         *zap.Logger
}

// NewSession creates a new collaborative editing session.
func NewSession(cfg SessionConfig) *Session {
	historySize := cfg.HistorySize
	if historySize == 0 {
		historySize = DefaultHistorySize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	logger = logger.With(zap.String("doc_id", cfg.DocID))

	s := &Session{
		docID:          cfg.DocID,
		queue:          ot.NewQueue(historySize),
		store:          cfg.Store,
		permChecker:    cfg.PermChecker,
		hub:            cfg.Hub,
		snapshotPolicy: cfg.SnapshotPolicy,
		undoDepth:      cfg.UndoDepth,
		logger:         logger,
	}
	s.document = s.newDocument()

	return s
}

func (s *Session) newDocument() *ot.Document {
	return ot.NewDocument(
		ot.WithLogger(s.logger.Named("ot")),
		ot.WithMaxUndos(s.undoDepth),
	)
}

// Load initializes the session from the latest snapshot and change log.
func (s *Session) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	result, err := storage.NewDocumentLoader(s.store).Load(s.docID)
	if err != nil {
		return err
	}

	s.document = s.newDocument()
	s.document.SetDelta(result.State)
	s.queue = ot.NewQueue(s.queue.HistorySize())
	s.queue.SetRevision(result.Revision)

	s.logger.Info("session loaded",
		zap.Int("revision", result.Revision),
		zap.Int("length", s.document.Len()),
		zap.Bool("new", result.IsNew),
	)

	return nil
}

// ApplyDelta processes a change submitted by a client against baseRevision.
// It returns the revision assigned to the change. A change that only
// restyles text needs the format right; anything else needs the edit right.
func (s *Session) ApplyDelta(clientID, userID string, change *delta.Delta, baseRevision int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSessionClosed
	}

	if err := s.permChecker.Require(s.docID, userID, acl.ActionFor(change)); err != nil {
		return 0, err
	}

	seq, err := s.applyAndPersist(change, baseRevision, userID)
	if err != nil {
		s.logger.Warn("change rejected",
			zap.String("client_id", clientID),
			zap.String("user_id", userID),
			zap.Int("base_revision", baseRevision),
			zap.Error(err),
		)

		return 0, err
	}

	s.maybeSnapshot()
	s.broadcast(clientID, seq)

	return seq.Revision, nil
}

// applyAndPersist rebases the change, logs it and only then moves the
// document and queue forward, so a failed write leaves the session as it was.
func (s *Session) applyAndPersist(change *delta.Delta, baseRevision int, userID string) (ot.SequencedDelta, error) {
	rebased, err := s.queue.Rebase(change, baseRevision)
	if err != nil {
		return ot.SequencedDelta{}, err
	}

	if _, err := s.document.Delta().Compose(rebased); err != nil {
		return ot.SequencedDelta{}, fmt.Errorf("%w: %w", ErrRejectedChange, err)
	}

	pending := ot.SequencedDelta{
		Delta:    rebased,
		Revision: s.queue.Revision() + 1,
		UserID:   userID,
	}

	if err := s.store.AppendChange(s.docID, pending); err != nil {
		return ot.SequencedDelta{}, fmt.Errorf("log revision %d: %w", pending.Revision, err)
	}

	if err := s.document.Compose(rebased); err != nil {
		panic(fmt.Sprintf("collab: change fitted the document a moment ago: %v", err))
	}

	return s.queue.Commit(rebased, userID), nil
}

// maybeSnapshot writes a snapshot when the policy says one is due.
func (s *Session) maybeSnapshot() {
	if s.snapshotPolicy == nil {
		return
	}

	if !s.snapshotPolicy.RecordChange(s.docID) {
		return
	}

	if err := s.saveSnapshot(); err != nil {
		s.logger.Error("snapshot failed", zap.Error(err))

		return
	}

	s.snapshotPolicy.Reset(s.docID)
}

// broadcast sends the sequenced change to other connected clients.
func (s *Session) broadcast(clientID string, seq ot.SequencedDelta) {
	if s.hub == nil {
		return
	}

	s.hub.BroadcastDelta(s.docID, seq.Revision, seq.Delta, seq.UserID, clientID)
}

// saveSnapshot persists the current document delta.
func (s *Session) saveSnapshot() error {
	return s.store.SaveSnapshot(s.docID, s.queue.Revision(), s.document.ToJSON())
}

// GetState returns the current document state as userID may see it.
func (s *Session) GetState(userID string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return State{}, ErrSessionClosed
	}

	if err := s.permChecker.Require(s.docID, userID, acl.ActionRead); err != nil {
		return State{}, err
	}

	content, err := s.document.Text()
	if err != nil {
		return State{}, err
	}

	return State{
		Delta:    s.document.Delta(),
		Content:  content,
		Revision: s.queue.Revision(),
	}, nil
}

// DocID returns the document ID for this session.
func (s *Session) DocID() string {
	return s.docID
}

// Revision returns the current revision number.
func (s *Session) Revision() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queue.Revision()
}

// Close closes the session and saves a final snapshot.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	s.logger.Info("session closed", zap.Int("revision", s.queue.Revision()))

	return s.saveSnapshot()
}
