package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/everwatt/evercore/pkg/features"
	"github.com/everwatt/evercore/pkg/graph"
)

// Key prefixes for BadgerDB storage organization.
// Using single-byte prefixes for efficiency.
const (
	prefixRecord = byte(0x01) // record: orgID + 0x00 + recordID -> JSON
	prefixIndex  = byte(0x02) // index: orgID + 0x00 + version(be64) -> JSON
	prefixGraph  = byte(0x03) // graph: projectID -> JSON
)

// BadgerStore provides persistent storage using BadgerDB.
//
// Key Structure:
//   - Records: 0x01 + orgID + 0x00 + recordID -> JSON(CompletedProjectRecord)
//   - Indexes: 0x02 + orgID + 0x00 + bigEndian(version) -> JSON(MemoryIndex)
//   - Graphs:  0x03 + projectID -> JSON(ProjectGraph)
//
// Index versions are encoded big-endian so a reverse prefix scan lands on
// the latest snapshot first.
//
// Example:
//
//	store, err := storage.NewBadgerStore("./data/evercore")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
type BadgerStore struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// DataDir is the directory for storing data files. Required unless
	// InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode. Useful for testing.
	// Data is not persisted.
	InMemory bool

	// SyncWrites forces fsync after each write. Slower but more durable.
	SyncWrites bool
}

// NewBadgerStore creates a persistent store with default settings.
//
// Parameters:
//   - dataDir: directory path for data files, created if it doesn't exist
//
// Returns:
//   - *BadgerStore on success
//   - error if the database cannot be opened
func NewBadgerStore(dataDir string) (*BadgerStore, error) {
	return NewBadgerStoreWithOptions(BadgerOptions{DataDir: dataDir})
}

// NewBadgerStoreWithOptions creates a BadgerStore with custom configuration.
func NewBadgerStoreWithOptions(opts BadgerOptions) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)

	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}

	// Quiet logger and reduced buffers for containerized environments.
	badgerOpts = badgerOpts.
		WithLogger(nil).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStoreInMemory creates an in-memory BadgerDB for testing.
// Data is lost when the store is closed.
func NewBadgerStoreInMemory() (*BadgerStore, error) {
	return NewBadgerStoreWithOptions(BadgerOptions{InMemory: true})
}

// ============================================================================
// Key encoding helpers
// ============================================================================

func recordKey(orgID, recordID string) []byte {
	key := make([]byte, 0, 1+len(orgID)+1+len(recordID))
	key = append(key, prefixRecord)
	key = append(key, []byte(orgID)...)
	key = append(key, 0x00)
	key = append(key, []byte(recordID)...)
	return key
}

func recordPrefix(orgID string) []byte {
	key := make([]byte, 0, 1+len(orgID)+1)
	key = append(key, prefixRecord)
	key = append(key, []byte(orgID)...)
	key = append(key, 0x00)
	return key
}

func indexKey(orgID string, version int) []byte {
	key := make([]byte, 0, 1+len(orgID)+1+8)
	key = append(key, prefixIndex)
	key = append(key, []byte(orgID)...)
	key = append(key, 0x00)
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], uint64(version))
	key = append(key, v[:]...)
	return key
}

func indexPrefix(orgID string) []byte {
	key := make([]byte, 0, 1+len(orgID)+1)
	key = append(key, prefixIndex)
	key = append(key, []byte(orgID)...)
	key = append(key, 0x00)
	return key
}

func graphKey(projectID string) []byte {
	return append([]byte{prefixGraph}, []byte(projectID)...)
}

// ============================================================================
// Store implementation
// ============================================================================

func (s *BadgerStore) guard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return nil
}

func (s *BadgerStore) put(key []byte, v any) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (s *BadgerStore) get(key []byte, v any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return decode(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *BadgerStore) PutRecord(ctx context.Context, rec *graph.CompletedProjectRecord) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record requires an id: %w", graph.ErrInvalidID)
	}
	return s.put(recordKey(rec.OrgID, rec.ID), rec)
}

func (s *BadgerStore) Record(ctx context.Context, orgID, id string) (*graph.CompletedProjectRecord, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	var rec graph.CompletedProjectRecord
	if err := s.get(recordKey(orgID, id), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BadgerStore) RecordsByOrg(ctx context.Context, orgID string) ([]graph.CompletedProjectRecord, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	var out []graph.CompletedProjectRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix(orgID)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec graph.CompletedProjectRecord
			err := it.Item().Value(func(val []byte) error {
				return decode(val, &rec)
			})
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Record ids follow the key order of the prefix scan, which is already
	// lexicographic, so no extra sort is needed.
	return out, nil
}

func (s *BadgerStore) PutIndex(ctx context.Context, idx *features.MemoryIndex) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	if idx == nil || idx.OrgID == "" {
		return fmt.Errorf("index requires an org id: %w", graph.ErrInvalidID)
	}
	return s.put(indexKey(idx.OrgID, idx.Version), idx)
}

func (s *BadgerStore) Index(ctx context.Context, orgID string, version int) (*features.MemoryIndex, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	var idx features.MemoryIndex
	if err := s.get(indexKey(orgID, version), &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

func (s *BadgerStore) LatestIndex(ctx context.Context, orgID string) (*features.MemoryIndex, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	var idx features.MemoryIndex
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = indexPrefix(orgID)
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()
		// Reverse iteration needs a seek key past the end of the prefix.
		seek := append(indexPrefix(orgID), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		it.Seek(seek)
		if !it.Valid() {
			return nil
		}
		found = true
		return it.Item().Value(func(val []byte) error {
			return decode(val, &idx)
		})
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &idx, nil
}

func (s *BadgerStore) PutGraph(ctx context.Context, g *graph.ProjectGraph) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	if g == nil || g.ProjectID == "" {
		return fmt.Errorf("graph requires a project id: %w", graph.ErrInvalidID)
	}
	return s.put(graphKey(g.ProjectID), g)
}

func (s *BadgerStore) Graph(ctx context.Context, projectID string) (*graph.ProjectGraph, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	var g graph.ProjectGraph
	if err := s.get(graphKey(projectID), &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

var _ Store = (*BadgerStore)(nil)
