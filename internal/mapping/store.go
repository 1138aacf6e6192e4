package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrCorrupt is returned when the mapping file exists but cannot be parsed.
// Callers must refuse to proceed rather than guess at partial state.
var ErrCorrupt = errors.New("mapping store is corrupt")

const storeVersion = "1"

// Entry is the durable record linking a source resource identity to the
// identity it was given on a target server.
type Entry struct {
	Kind         string    `json:"kind"`
	SourceServer string    `json:"sourceServer"`
	SourceID     string    `json:"sourceId"`
	TargetServer string    `json:"targetServer"`
	TargetID     string    `json:"targetId"`
	TargetName   string    `json:"targetName"`
	ToolManaged  bool      `json:"toolManaged"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Key identifies at most one live entry.
type Key struct {
	Kind         string
	SourceServer string
	SourceID     string
	TargetServer string
}

func (e Entry) key() Key {
	return Key{Kind: e.Kind, SourceServer: e.SourceServer, SourceID: e.SourceID, TargetServer: e.TargetServer}
}

// Store is the persistent resource mapping store. It is the single source
// of truth for what the tool created and may later delete. One store file
// is shared across runs; each run loads it fully and persists it atomically
// at points of durable progress.
type Store struct {
	path    string
	entries []Entry
	index   map[Key]int
}

type storeFile struct {
	Version string  `json:"version"`
	Entries []Entry `json:"entries"`
}

// Load reads the store from disk. A missing file yields an empty store; an
// unreadable or malformed file yields ErrCorrupt.
func Load(path string) (*Store, error) {
	s := &Store{path: path, index: make(map[Key]int)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read mapping store %s: %w", path, err)
	}

	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}

	s.entries = file.Entries
	for i, e := range s.entries {
		s.index[e.key()] = i
	}
	return s, nil
}

// Save writes the full store atomically: marshal everything, write to a
// temp file in the same directory, then rename over the final path. A crash
// leaves either the previous file or the new one, never a torn mix.
func (s *Store) Save() error {
	file := storeFile{Version: storeVersion, Entries: s.entries}
	if file.Entries == nil {
		file.Entries = []Entry{}
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal mapping store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create mapping store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".mappings-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp mapping file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp mapping file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp mapping file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp mapping file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace mapping store: %w", err)
	}
	return nil
}

// Put inserts or replaces the entry for its key.
func (s *Store) Put(e Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if i, ok := s.index[e.key()]; ok {
		s.entries[i] = e
		return
	}
	s.index[e.key()] = len(s.entries)
	s.entries = append(s.entries, e)
}

// Get returns the entry for a key, or false when the resource is unmapped.
func (s *Store) Get(key Key) (Entry, bool) {
	i, ok := s.index[key]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// Delete removes the entry for a key, if present.
func (s *Store) Delete(key Key) {
	i, ok := s.index[key]
	if !ok {
		return
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.index, key)
	for j := i; j < len(s.entries); j++ {
		s.index[s.entries[j].key()] = j
	}
}

// AllFor lists entries targeting a server, in insertion (creation) order.
func (s *Store) AllFor(targetServer string) []Entry {
	var entries []Entry
	for _, e := range s.entries {
		if e.TargetServer == targetServer {
			entries = append(entries, e)
		}
	}
	return entries
}

// All returns every entry in insertion order.
func (s *Store) All() []Entry {
	return append([]Entry(nil), s.entries...)
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Path returns the on-disk location of the store.
func (s *Store) Path() string {
	return s.path
}
