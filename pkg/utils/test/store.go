package testutils

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/papercomputeco/stacks/pkg/store"
)

// StoredChunk is one committed chunk row held by the MockStore.
type StoredChunk struct {
	Text      string
	Order     int
	Embedding []float32
}

// MockStore is an in-memory store.Store with transactional visibility:
// rows inserted through a Tx become visible only on Commit.
type MockStore struct {
	mu     sync.Mutex
	nextID int64

	// Docs maps committed document ids to filenames.
	Docs map[int64]string

	// Chunks maps committed document ids to their chunk rows.
	Chunks map[int64][]StoredChunk

	// BeginErr, when set, causes Begin to fail.
	BeginErr error

	// InsertChunkFailOn causes InsertChunk to fail when the chunk text matches.
	InsertChunkFailOn string

	// CommitErr, when set, causes Commit to fail.
	CommitErr error
}

func NewMockStore() *MockStore {
	return &MockStore{
		Docs:   make(map[int64]string),
		Chunks: make(map[int64][]StoredChunk),
	}
}

func (s *MockStore) Begin(_ context.Context) (store.Tx, error) {
	if s.BeginErr != nil {
		return nil, s.BeginErr
	}
	return &mockTx{store: s}, nil
}

// TopKByDistance brute-forces cosine distance over committed chunks.
func (s *MockStore) TopKByDistance(_ context.Context, documentID int64, query []float32, k int) ([]store.ScoredChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks := s.Chunks[documentID]
	results := make([]store.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, store.ScoredChunk{
			Text:     c.Text,
			Order:    c.Order,
			Distance: cosineDistance(query, c.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *MockStore) DocumentExists(_ context.Context, documentID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.Docs[documentID]
	return ok, nil
}

func (s *MockStore) DeleteDocument(_ context.Context, documentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.Docs[documentID]; !ok {
		return store.ErrDocumentNotFound
	}
	delete(s.Docs, documentID)
	delete(s.Chunks, documentID)
	return nil
}

func (s *MockStore) Close() error {
	return nil
}

// mockTx buffers inserts until Commit.
type mockTx struct {
	store *MockStore

	docID    int64
	filename string
	pending  []StoredChunk
	done     bool
}

func (t *mockTx) InsertDocument(_ context.Context, filename string) (int64, error) {
	t.store.mu.Lock()
	t.store.nextID++
	t.docID = t.store.nextID
	t.store.mu.Unlock()

	t.filename = filename
	return t.docID, nil
}

func (t *mockTx) InsertChunk(_ context.Context, documentID int64, text string, embedding []float32, order int) error {
	if t.store.InsertChunkFailOn != "" && text == t.store.InsertChunkFailOn {
		return fmt.Errorf("mock insert failure for chunk: %s", text)
	}
	if documentID != t.docID {
		return fmt.Errorf("chunk references document %d outside this transaction", documentID)
	}

	t.pending = append(t.pending, StoredChunk{
		Text:      text,
		Order:     order,
		Embedding: embedding,
	})
	return nil
}

func (t *mockTx) Commit(_ context.Context) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	if t.store.CommitErr != nil {
		t.done = true
		return t.store.CommitErr
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.Docs[t.docID] = t.filename
	t.store.Chunks[t.docID] = t.pending
	return nil
}

func (t *mockTx) Rollback(_ context.Context) error {
	t.done = true
	t.pending = nil
	return nil
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

var _ store.Store = (*MockStore)(nil)
