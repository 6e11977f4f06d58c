package storage

import (
	"errors"
	"time"

	"github.com/serroba/rich-docs/internal/ot"
)

// Common errors.
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentExists   = errors.New("document already exists")
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrRevisionConflict is returned when a change does not come after
	// everything already recorded for the document.
	ErrRevisionConflict = errors.New("revision is not newer than the log")
)

// Snapshot is the document delta, in JSON form, as of Revision.
type Snapshot struct {
	DocID     string
	Revision  int
	Content   string
	CreatedAt time.Time
}

// Documents tracks which document IDs exist.
type Documents interface {
	// CreateDocument fails with ErrDocumentExists for a taken ID.
	CreateDocument(docID string) error
	// DeleteDocument drops the document with its snapshot and change log.
	DeleteDocument(docID string) error
	DocumentExists(docID string) (bool, error)
}

// Snapshots keeps the latest full state of each document. Saving a snapshot
// folds every logged change up to its revision into it.
type Snapshots interface {
	SaveSnapshot(docID string, revision int, content string) error
	// LoadSnapshot fails with ErrSnapshotNotFound before the first save.
	LoadSnapshot(docID string) (Snapshot, error)
}

// ChangeLog records sequenced deltas in revision order.
type ChangeLog interface {
	// AppendChange fails with ErrRevisionConflict unless change.Revision is
	// newer than the latest revision of the document.
	AppendChange(docID string, change ot.SequencedDelta) error
	// LoadChanges returns the changes newer than sinceRevision, oldest first.
	LoadChanges(docID string, sinceRevision int) ([]ot.SequencedDelta, error)
	// LatestRevision is the revision of the newest change or snapshot.
	LatestRevision(docID string) (int, error)
}

// Store is everything a session needs to persist a document. Every method
// taking a docID fails with ErrDocumentNotFound for an unknown document,
// except DocumentExists.
type Store interface {
	Documents
	Snapshots
	ChangeLog
}
