package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/serroba/rich-docs/internal/delta"
)

// SnapshotPolicy decides when a document has logged enough changes to be
// worth snapshotting.
type SnapshotPolicy struct {
	mu        sync.Mutex
	threshold int            // Snapshot every N changes
	pending   map[string]int // Changes per document since its last snapshot
}

// NewSnapshotPolicy creates a policy that triggers every threshold changes.
// A threshold below 1 triggers on every change.
func NewSnapshotPolicy(threshold int) *SnapshotPolicy {
	return &SnapshotPolicy{
		threshold: max(threshold, 1),
		pending:   make(map[string]int),
	}
}

// RecordChange counts a logged change and reports whether a snapshot is due.
func (p *SnapshotPolicy) RecordChange(docID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending[docID]++

	return p.pending[docID] >= p.threshold
}

// Reset clears the counter once a snapshot is written.
func (p *SnapshotPolicy) Reset(docID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.pending, docID)
}

// ChangesSinceSnapshot returns the number of changes logged since the last snapshot.
func (p *SnapshotPolicy) ChangesSinceSnapshot(docID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.pending[docID]
}

// DocumentLoader rebuilds a document from storage: the latest snapshot
// followed by every change logged after it.
type DocumentLoader struct {
	store Store
}

// NewDocumentLoader creates a new document loader.
func NewDocumentLoader(store Store) *DocumentLoader {
	return &DocumentLoader{store: store}
}

// LoadResult contains the result of loading a document.
type LoadResult struct {
	State    *delta.Delta // Reconstructed document delta
	Revision int          // Current revision
	IsNew    bool         // True if nothing was ever stored
}

// Load reconstructs a document's state from storage.
func (l *DocumentLoader) Load(docID string) (LoadResult, error) {
	snapshot, err := l.store.LoadSnapshot(docID)

	state := delta.New()

	var startRevision int

	switch {
	case errors.Is(err, ErrSnapshotNotFound):
		// No snapshot - start from empty
	case err != nil:
		return LoadResult{}, err
	default:
		state, err = delta.FromJSON(snapshot.Content)
		if err != nil {
			return LoadResult{}, fmt.Errorf("decode snapshot %s@%d: %w", docID, snapshot.Revision, err)
		}

		startRevision = snapshot.Revision
	}

	changes, err := l.store.LoadChanges(docID, startRevision)
	if err != nil {
		return LoadResult{}, err
	}

	currentRevision := startRevision

	for _, change := range changes {
		state, err = state.Compose(change.Delta)
		if err != nil {
			return LoadResult{}, fmt.Errorf("replay %s@%d: %w", docID, change.Revision, err)
		}

		currentRevision = change.Revision
	}

	return LoadResult{
		State:    state,
		Revision: currentRevision,
		IsNew:    startRevision == 0 && len(changes) == 0,
	}, nil
}
