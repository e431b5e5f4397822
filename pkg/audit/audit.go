// Package audit provides the append-only decision ledger for EverCore.
//
// Every human accept/reject decision on an inbox item is mirrored into a
// structured JSONL ledger file, one event per line. The ledger exists so
// that months later anyone can answer "who approved this measure, when,
// and on what evidence" without reconstructing state from the graph.
//
// Features:
//   - Immutable append-only entries (never rewritten, never deleted)
//   - One JSON object per line for machine processing
//   - Optional fsync per write for durability
//   - Callback hook for mirroring decisions to external systems
//
// Example Usage:
//
//	config := audit.DefaultConfig()
//	config.LedgerPath = "/var/lib/evercore/decisions.jsonl"
//
//	ledger, err := audit.NewLedger(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ledger.Close()
//
//	ledger.Record(audit.Event{
//		ProjectID: "proj-42",
//		Entry:     decisionEntry,
//	})
//
// ELI12:
//
// The ledger is the pen-and-ink logbook next to the graph. The graph can
// be rebuilt, re-indexed, or migrated, but the logbook only ever gains
// lines at the bottom. If two people disagree about why a measure was
// approved, you don't argue, you read the line.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/everwatt/evercore/pkg/graph"
)

// ErrClosed is returned when recording to a closed ledger.
var ErrClosed = errors.New("audit: ledger is closed")

// Event is one ledger line: a decision entry plus the project scope it
// was made in. The embedded DecisionEntry already carries the actor's
// reason, the evidence reference, and any created ids.
type Event struct {
	ProjectID string              `json:"projectId"`
	OrgID     string              `json:"orgId,omitempty"`
	Entry     graph.DecisionEntry `json:"entry"`
}

// Config holds ledger configuration.
type Config struct {
	// Enabled controls whether ledger writing is active. When false the
	// ledger is a no-op, which keeps call sites unconditional.
	Enabled bool

	// LedgerPath is the path to the JSONL ledger file.
	LedgerPath string

	// SyncWrites forces fsync after each write. Slower but more durable.
	SyncWrites bool
}

// DefaultConfig returns sensible defaults for the decision ledger.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		LedgerPath: "./data/decisions.jsonl",
		SyncWrites: true,
	}
}

// Ledger appends decision events to the ledger file.
//
// Thread Safety:
//
//	Safe for concurrent use from multiple goroutines.
type Ledger struct {
	mu     sync.Mutex
	writer io.Writer
	file   *os.File
	config Config
	closed bool

	// Callback invoked after each successful append, for mirroring
	// decisions into external systems.
	recordCallback func(Event)
}

// NewLedger opens (or creates) the ledger file in append mode.
//
// The parent directory is created if missing. When config.Enabled is
// false, the returned ledger discards all events.
func NewLedger(config Config) (*Ledger, error) {
	if !config.Enabled {
		return &Ledger{config: config}, nil
	}

	dir := filepath.Dir(config.LedgerPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	file, err := os.OpenFile(config.LedgerPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return nil, fmt.Errorf("opening ledger file: %w", err)
	}

	return &Ledger{
		writer: file,
		file:   file,
		config: config,
	}, nil
}

// NewLedgerWithWriter creates a ledger with a custom writer (for testing).
func NewLedgerWithWriter(writer io.Writer, config Config) *Ledger {
	return &Ledger{
		writer: writer,
		config: config,
	}
}

// SetRecordCallback sets a callback invoked after each appended event.
func (l *Ledger) SetRecordCallback(fn func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recordCallback = fn
}

// Record appends one decision event to the ledger.
//
// Returns nil when the ledger is disabled, ErrClosed after Close.
func (l *Ledger) Record(event Event) error {
	if !l.config.Enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling ledger event: %w", err)
	}

	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing ledger event: %w", err)
	}

	if l.config.SyncWrites && l.file != nil {
		if err := l.file.Sync(); err != nil {
			return fmt.Errorf("syncing ledger: %w", err)
		}
	}

	if l.recordCallback != nil {
		l.recordCallback(event)
	}
	return nil
}

// Close flushes and closes the ledger file.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// ReadLedger reads all events from a JSONL ledger file, oldest first.
//
// Blank lines are skipped; a malformed line is an error carrying its line
// number, since a ledger that cannot be trusted end-to-end is worse than
// no ledger.
func ReadLedger(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger file: %w", err)
	}
	defer file.Close()
	return readEvents(file)
}

func readEvents(r io.Reader) ([]Event, error) {
	var out []Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", line, err)
		}
		out = append(out, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	return out, nil
}
