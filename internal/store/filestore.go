package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spec-kit/ticket-engine/internal/domain"
)

// TicketStore is the durable keyed collection of ticket records. Load and
// Save always move the whole map; there is no cross-call cache, so every Load
// reflects the last completed Save.
type TicketStore interface {
	Load() (map[string]*domain.Ticket, error)
	Save(tickets map[string]*domain.Ticket) error
	// Update runs fn on a freshly loaded map and persists the result, all
	// under the store lock. Interleaved read-modify-write from concurrent
	// callers serializes here instead of racing last-write-wins.
	Update(fn func(tickets map[string]*domain.Ticket) error) error
	// NextSequence returns the next ticket sequence number. The counter is
	// persisted separately from the ticket map so deletions and data loss
	// never cause identifier reuse.
	NextSequence() (int64, error)
}

// FileStore keeps the ticket map as a pretty-printed JSON file plus a small
// sibling file holding the monotonic ticket sequence.
type FileStore struct {
	mu       sync.Mutex
	dataPath string
	seqPath  string
}

// NewFileStore prepares the data directory and creates an empty persisted map
// on first use.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	fs := &FileStore{
		dataPath: filepath.Join(dir, "tickets.json"),
		seqPath:  filepath.Join(dir, "tickets.seq"),
	}
	if _, err := os.Stat(fs.dataPath); os.IsNotExist(err) {
		if err := writeAtomic(fs.dataPath, []byte("{}\n")); err != nil {
			return nil, fmt.Errorf("initialize store: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat store: %w", err)
	}
	return fs, nil
}

// Load reads the full ticket map. A read or decode failure is returned to the
// caller; the store never degrades to an empty map.
func (f *FileStore) Load() (map[string]*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadLocked()
}

// Save atomically replaces the persisted map.
func (f *FileStore) Save(tickets map[string]*domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveLocked(tickets)
}

// Update implements the serialized load-mutate-save critical section.
func (f *FileStore) Update(fn func(tickets map[string]*domain.Ticket) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tickets, err := f.loadLocked()
	if err != nil {
		return err
	}
	if err := fn(tickets); err != nil {
		return err
	}
	return f.saveLocked(tickets)
}

// NextSequence increments and persists the ticket counter.
func (f *FileStore) NextSequence() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var current int64
	raw, err := os.ReadFile(f.seqPath)
	switch {
	case err == nil:
		current, err = strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse sequence file %s: %w", f.seqPath, err)
		}
	case os.IsNotExist(err):
		current = 0
	default:
		return 0, fmt.Errorf("read sequence file: %w", err)
	}

	next := current + 1
	if err := writeAtomic(f.seqPath, []byte(strconv.FormatInt(next, 10)+"\n")); err != nil {
		return 0, fmt.Errorf("persist sequence: %w", err)
	}
	return next, nil
}

func (f *FileStore) loadLocked() (map[string]*domain.Ticket, error) {
	raw, err := os.ReadFile(f.dataPath)
	if err != nil {
		return nil, fmt.Errorf("read store %s: %w", f.dataPath, err)
	}
	tickets := make(map[string]*domain.Ticket)
	if err := json.Unmarshal(raw, &tickets); err != nil {
		return nil, fmt.Errorf("decode store %s: %w", f.dataPath, err)
	}
	return tickets, nil
}

func (f *FileStore) saveLocked(tickets map[string]*domain.Ticket) error {
	raw, err := json.MarshalIndent(tickets, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if err := writeAtomic(f.dataPath, append(raw, '\n')); err != nil {
		return fmt.Errorf("write store %s: %w", f.dataPath, err)
	}
	return nil
}

// writeAtomic writes to a temp file in the target directory and renames it
// over the destination, so a crash mid-write never truncates the durable
// file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
