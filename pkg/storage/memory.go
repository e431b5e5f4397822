package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/everwatt/evercore/pkg/features"
	"github.com/everwatt/evercore/pkg/graph"
)

// MemoryStore is an in-process Store backed by maps.
//
// All values are deep-copied on the way in and out, so callers can mutate
// what they put or got without corrupting the store. Safe for concurrent
// use.
//
// Example:
//
//	store := storage.NewMemoryStore()
//	defer store.Close()
//	store.PutGraph(ctx, g)
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string][]byte // orgID -> recordID -> JSON
	indexes map[string]map[int][]byte    // orgID -> version -> JSON
	graphs  map[string][]byte            // projectID -> JSON
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[string][]byte),
		indexes: make(map[string]map[int][]byte),
		graphs:  make(map[string][]byte),
	}
}

// encode marshals a value for storage. Values are stored as JSON bytes so
// gets always return independent copies.
func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}
	return data, nil
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding value: %w", err)
	}
	return nil
}

func (s *MemoryStore) PutRecord(ctx context.Context, rec *graph.CompletedProjectRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record requires an id: %w", graph.ErrInvalidID)
	}
	data, err := encode(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	byOrg, ok := s.records[rec.OrgID]
	if !ok {
		byOrg = make(map[string][]byte)
		s.records[rec.OrgID] = byOrg
	}
	byOrg[rec.ID] = data
	return nil
}

func (s *MemoryStore) Record(ctx context.Context, orgID, id string) (*graph.CompletedProjectRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	data, ok := s.records[orgID][id]
	if !ok {
		return nil, ErrNotFound
	}
	var rec graph.CompletedProjectRecord
	if err := decode(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *MemoryStore) RecordsByOrg(ctx context.Context, orgID string) ([]graph.CompletedProjectRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	byOrg := s.records[orgID]
	ids := make([]string, 0, len(byOrg))
	for id := range byOrg {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]graph.CompletedProjectRecord, 0, len(ids))
	for _, id := range ids {
		var rec graph.CompletedProjectRecord
		if err := decode(byOrg[id], &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryStore) PutIndex(ctx context.Context, idx *features.MemoryIndex) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if idx == nil || idx.OrgID == "" {
		return fmt.Errorf("index requires an org id: %w", graph.ErrInvalidID)
	}
	data, err := encode(idx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	byOrg, ok := s.indexes[idx.OrgID]
	if !ok {
		byOrg = make(map[int][]byte)
		s.indexes[idx.OrgID] = byOrg
	}
	byOrg[idx.Version] = data
	return nil
}

func (s *MemoryStore) Index(ctx context.Context, orgID string, version int) (*features.MemoryIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	data, ok := s.indexes[orgID][version]
	if !ok {
		return nil, ErrNotFound
	}
	var idx features.MemoryIndex
	if err := decode(data, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

func (s *MemoryStore) LatestIndex(ctx context.Context, orgID string) (*features.MemoryIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	byOrg := s.indexes[orgID]
	if len(byOrg) == 0 {
		return nil, ErrNotFound
	}
	best := -1
	for v := range byOrg {
		if v > best {
			best = v
		}
	}
	var idx features.MemoryIndex
	if err := decode(byOrg[best], &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

func (s *MemoryStore) PutGraph(ctx context.Context, g *graph.ProjectGraph) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g == nil || g.ProjectID == "" {
		return fmt.Errorf("graph requires a project id: %w", graph.ErrInvalidID)
	}
	data, err := encode(g)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.graphs[g.ProjectID] = data
	return nil
}

func (s *MemoryStore) Graph(ctx context.Context, projectID string) (*graph.ProjectGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	data, ok := s.graphs[projectID]
	if !ok {
		return nil, ErrNotFound
	}
	var g graph.ProjectGraph
	if err := decode(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Store = (*MemoryStore)(nil)
