package ot

import (
	"errors"
	"fmt"
	"sync"

	"github.com/serroba/rich-docs/internal/delta"
)

// Queue errors.
var (
	// ErrRevisionTooOld is returned when the client's base revision is too far behind.
	ErrRevisionTooOld = errors.New("base revision too old, history unavailable")

	// ErrFutureRevision is returned when the client claims a revision the queue has not reached.
	ErrFutureRevision = errors.New("base revision is in the future")
)

// SequencedDelta is a change with its assigned revision.
type SequencedDelta struct {
	Delta    *delta.Delta
	Revision int
	UserID   string
}

// Queue sequences changes arriving from several clients. It keeps recent
// changes so that a change based on an older revision can be transformed
// forward before it is applied.
type Queue struct {
	mu          sync.RWMutex
	revision    int              // Current document revision
	history     []SequencedDelta // Recent changes for transformation
	historySize int              // Maximum history size to keep
}

// NewQueue creates a new change queue.
// historySize determines how many past changes to retain for transformation.
func NewQueue(historySize int) *Queue {
	return &Queue{
		history:     make([]SequencedDelta, 0, historySize),
		historySize: historySize,
	}
}

// Revision returns the current document revision.
func (q *Queue) Revision() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.revision
}

// SetRevision resets the queue to revision with an empty history, as after
// loading a document from storage.
func (q *Queue) SetRevision(revision int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.revision = revision
	q.history = q.history[:0]
}

// HistorySize returns how many changes the queue retains.
func (q *Queue) HistorySize() int {
	return q.historySize
}

// Rebase transforms a change based on baseRevision against every change
// sequenced since, without assigning it a revision.
// Earlier changes win insert ties, so clients see their own text land after
// text the server already accepted.
func (q *Queue) Rebase(change *delta.Delta, baseRevision int) (*delta.Delta, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.rebaseLocked(change, baseRevision)
}

// Commit assigns the next revision to a change that is already based on the
// current revision.
func (q *Queue) Commit(change *delta.Delta, userID string) SequencedDelta {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.commitLocked(change, userID)
}

// Apply takes a change and its base revision, transforms it against any
// changes that have occurred since that revision, and returns the transformed
// change with its new sequence number.
func (q *Queue) Apply(change *delta.Delta, baseRevision int, userID string) (SequencedDelta, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rebased, err := q.rebaseLocked(change, baseRevision)
	if err != nil {
		return SequencedDelta{}, err
	}

	return q.commitLocked(rebased, userID), nil
}

func (q *Queue) rebaseLocked(change *delta.Delta, baseRevision int) (*delta.Delta, error) {
	if baseRevision > q.revision {
		return nil, ErrFutureRevision
	}

	// We need every change after baseRevision to be in history
	if baseRevision < q.revision {
		if len(q.history) == 0 || baseRevision < q.history[0].Revision-1 {
			return nil, ErrRevisionTooOld
		}
	}

	transformed := change

	for _, seq := range q.history {
		if seq.Revision <= baseRevision {
			continue
		}

		_, next, err := seq.Delta.Transform(transformed)
		if err != nil {
			return nil, fmt.Errorf("transform against revision %d: %w", seq.Revision, err)
		}

		transformed = next
	}

	return transformed, nil
}

func (q *Queue) commitLocked(change *delta.Delta, userID string) SequencedDelta {
	q.revision++

	result := SequencedDelta{
		Delta:    change,
		Revision: q.revision,
		UserID:   userID,
	}

	q.addToHistory(result)

	return result
}

// addToHistory adds a change to history, pruning old entries if needed.
func (q *Queue) addToHistory(seq SequencedDelta) {
	q.history = append(q.history, seq)

	// Prune if exceeding history size
	if len(q.history) > q.historySize {
		q.history = q.history[1:]
	}
}

// History returns the changes sequenced after sinceRevision.
// Useful for clients that need to catch up.
func (q *Queue) History(sinceRevision int) []SequencedDelta {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var result []SequencedDelta

	for _, seq := range q.history {
		if seq.Revision > sinceRevision {
			result = append(result, seq)
		}
	}

	return result
}
