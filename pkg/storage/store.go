// Package storage provides storage engine implementations for EverCore.
//
// Two engines implement the Store interface:
//   - MemoryStore: in-process maps, for tests and ephemeral tooling
//   - BadgerStore: persistent disk-based storage using BadgerDB
//
// The store holds three record families:
//   - completed project records (immutable ground truth, keyed org + id)
//   - memory index snapshots (keyed org + version; rebuilt wholesale)
//   - project graphs (keyed project id; replaced atomically on decision)
package storage

import (
	"context"
	"errors"

	"github.com/everwatt/evercore/pkg/features"
	"github.com/everwatt/evercore/pkg/graph"
)

// Common errors
var (
	ErrNotFound = errors.New("storage: not found")
	ErrClosed   = errors.New("storage: store is closed")
)

// Store is the persistence boundary for the recommendation pipeline.
//
// Writes are whole-value replacements: callers persist complete records,
// complete index snapshots, and complete replacement graphs. There is no
// partial update surface, which keeps both engines trivially consistent.
type Store interface {
	// PutRecord stores or replaces one completed project record.
	PutRecord(ctx context.Context, rec *graph.CompletedProjectRecord) error
	// Record fetches one completed project record, ErrNotFound if absent.
	Record(ctx context.Context, orgID, id string) (*graph.CompletedProjectRecord, error)
	// RecordsByOrg returns all completed project records for an org,
	// sorted by record id.
	RecordsByOrg(ctx context.Context, orgID string) ([]graph.CompletedProjectRecord, error)

	// PutIndex stores a memory index snapshot under its (org, version) key.
	PutIndex(ctx context.Context, idx *features.MemoryIndex) error
	// Index fetches a snapshot by exact version, ErrNotFound if absent.
	Index(ctx context.Context, orgID string, version int) (*features.MemoryIndex, error)
	// LatestIndex fetches the highest-versioned snapshot for an org,
	// ErrNotFound when the org has none.
	LatestIndex(ctx context.Context, orgID string) (*features.MemoryIndex, error)

	// PutGraph stores or replaces a full project graph.
	PutGraph(ctx context.Context, g *graph.ProjectGraph) error
	// Graph fetches a project graph by project id, ErrNotFound if absent.
	Graph(ctx context.Context, projectID string) (*graph.ProjectGraph, error)

	// Close releases engine resources. The store is unusable afterwards.
	Close() error
}
