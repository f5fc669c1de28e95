// Package transcript records the artifacts of a PSI session (the query
// ciphertext, the sender's reply and the final result) so a run can be
// audited after the fact. Artifacts are content-addressed: each entry
// carries the SHA-256 digest of its payload.
package transcript

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Common errors.
var (
	ErrNotFound = errors.New("transcript entry not found")
	ErrClosed   = errors.New("transcript store closed")
)

// Kind identifies which artifact of a session an entry holds.
type Kind string

const (
	KindQuery    Kind = "query"
	KindResponse Kind = "response"
	KindResult   Kind = "result"
)

// Entry describes one recorded artifact.
type Entry struct {
	Session string
	Kind    Kind
	Digest  string
	Size    int
	At      time.Time
}

// Store persists session artifacts.
type Store interface {
	// Record saves an artifact, replacing any previous one of the same kind.
	Record(ctx context.Context, session string, kind Kind, data []byte) (Entry, error)
	// Load retrieves an artifact's payload.
	Load(ctx context.Context, session string, kind Kind) ([]byte, error)
	// Entries lists the recorded artifacts of a session, ordered by kind.
	Entries(ctx context.Context, session string) ([]Entry, error)
	// Close releases the store.
	Close() error
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MemoryStore keeps the transcript in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[Kind]Entry
	data    map[string]map[Kind][]byte
	closed  bool
}

// NewMemoryStore creates an in-memory transcript store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]map[Kind]Entry),
		data:    make(map[string]map[Kind][]byte),
	}
}

func (s *MemoryStore) Record(ctx context.Context, session string, kind Kind, data []byte) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Entry{}, ErrClosed
	}

	entry := Entry{
		Session: session,
		Kind:    kind,
		Digest:  digest(data),
		Size:    len(data),
		At:      time.Now(),
	}

	if s.entries[session] == nil {
		s.entries[session] = make(map[Kind]Entry)
		s.data[session] = make(map[Kind][]byte)
	}
	s.entries[session][kind] = entry
	s.data[session][kind] = append([]byte(nil), data...)

	return entry, nil
}

func (s *MemoryStore) Load(ctx context.Context, session string, kind Kind) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	data, ok := s.data[session][kind]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Entries(ctx context.Context, session string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var entries []Entry
	for _, e := range s.entries[session] {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Kind < entries[j].Kind })
	return entries, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	s.data = nil
	return nil
}

// FileStore keeps the transcript on disk, one directory per session, one
// file per artifact kind.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a file-backed transcript store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) path(session string, kind Kind) string {
	return filepath.Join(s.baseDir, session, string(kind))
}

func (s *FileStore) Record(ctx context.Context, session string, kind Kind, data []byte) (Entry, error) {
	dir := filepath.Join(s.baseDir, session)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return Entry{}, fmt.Errorf("create session dir: %w", err)
	}

	// Write atomically via temp file.
	path := s.path(session, kind)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return Entry{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return Entry{}, fmt.Errorf("rename temp file: %w", err)
	}

	return Entry{
		Session: session,
		Kind:    kind,
		Digest:  digest(data),
		Size:    len(data),
		At:      time.Now(),
	}, nil
}

func (s *FileStore) Load(ctx context.Context, session string, kind Kind) ([]byte, error) {
	data, err := os.ReadFile(s.path(session, kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read transcript file: %w", err)
	}
	return data, nil
}

func (s *FileStore) Entries(ctx context.Context, session string) ([]Entry, error) {
	dir := filepath.Join(s.baseDir, session)
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session dir: %w", err)
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			return nil, fmt.Errorf("read transcript file: %w", err)
		}
		info, err := f.Info()
		if err != nil {
			return nil, fmt.Errorf("stat transcript file: %w", err)
		}
		entries = append(entries, Entry{
			Session: session,
			Kind:    Kind(f.Name()),
			Digest:  digest(data),
			Size:    len(data),
			At:      info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Kind < entries[j].Kind })
	return entries, nil
}

func (s *FileStore) Close() error {
	return nil
}
