package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/serroba/rich-docs/internal/ot"
)

// changeLog is an ordered run of sequenced deltas.
type changeLog []ot.SequencedDelta

// since returns the entries newer than revision.
func (l changeLog) since(revision int) changeLog {
	i := sort.Search(len(l), func(i int) bool { return l[i].Revision > revision })

	return l[i:]
}

// latest returns the newest revision in the log, or 0 when it is empty.
func (l changeLog) latest() int {
	if len(l) == 0 {
		return 0
	}

	return l[len(l)-1].Revision
}

// memoryDocument is what MemoryStore keeps per document.
type memoryDocument struct {
	snapshot *Snapshot
	log      changeLog
}

func (d *memoryDocument) latestRevision() int {
	if rev := d.log.latest(); rev > 0 {
		return rev
	}

	if d.snapshot != nil {
		return d.snapshot.Revision
	}

	return 0
}

// MemoryStore keeps everything in process memory. Data is lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*memoryDocument
	now  func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]*memoryDocument),
		now:  time.Now,
	}
}

// lookup must be called with m.mu held.
func (m *MemoryStore) lookup(docID string) (*memoryDocument, error) {
	doc, ok := m.docs[docID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}

	return doc, nil
}

func (m *MemoryStore) CreateDocument(docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[docID]; ok {
		return fmt.Errorf("%w: %s", ErrDocumentExists, docID)
	}

	m.docs[docID] = &memoryDocument{}

	return nil
}

func (m *MemoryStore) DeleteDocument(docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.lookup(docID); err != nil {
		return err
	}

	delete(m.docs, docID)

	return nil
}

func (m *MemoryStore) DocumentExists(docID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.docs[docID]

	return ok, nil
}

func (m *MemoryStore) SaveSnapshot(docID string, revision int, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.lookup(docID)
	if err != nil {
		return err
	}

	doc.snapshot = &Snapshot{
		DocID:     docID,
		Revision:  revision,
		Content:   content,
		CreatedAt: m.now(),
	}
	doc.log = append(changeLog(nil), doc.log.since(revision)...)

	return nil
}

func (m *MemoryStore) LoadSnapshot(docID string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, err := m.lookup(docID)
	if err != nil {
		return Snapshot{}, err
	}

	if doc.snapshot == nil {
		return Snapshot{}, ErrSnapshotNotFound
	}

	return *doc.snapshot, nil
}

func (m *MemoryStore) AppendChange(docID string, change ot.SequencedDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.lookup(docID)
	if err != nil {
		return err
	}

	if latest := doc.latestRevision(); change.Revision <= latest {
		return fmt.Errorf("%w: got %d, have %d", ErrRevisionConflict, change.Revision, latest)
	}

	doc.log = append(doc.log, change)

	return nil
}

func (m *MemoryStore) LoadChanges(docID string, sinceRevision int) ([]ot.SequencedDelta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, err := m.lookup(docID)
	if err != nil {
		return nil, err
	}

	return append([]ot.SequencedDelta(nil), doc.log.since(sinceRevision)...), nil
}

func (m *MemoryStore) LatestRevision(docID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, err := m.lookup(docID)
	if err != nil {
		return 0, err
	}

	return doc.latestRevision(), nil
}

var _ Store = (*MemoryStore)(nil)
