package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"bridge-swap/pkg/types"
)

const (
	DefaultStorageFileName = ".bridge-swap-history.json"
)

// Record is one submitted swap together with what is needed to resume
// tracking it
type Record struct {
	types.TxLifecycle
	RequestID string `json:"request_id,omitempty"`
	Provider  string `json:"provider,omitempty"`
	FromToken string `json:"from_token,omitempty"`
	ToToken   string `json:"to_token,omitempty"`
	Amount    string `json:"amount,omitempty"`
}

// Storage handles persistence of submitted transactions
type Storage struct {
	filePath string
	mu       sync.RWMutex
	records  map[string]*Record
}

// fileFormat represents the JSON structure on disk
type fileFormat struct {
	Records map[string]*Record `json:"records"`
}

// NewStorage opens the history file, creating nothing until the first write
func NewStorage(filePath string) (*Storage, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStorageFileName)
	}

	s := &Storage{
		filePath: filePath,
		records:  make(map[string]*Record),
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return s, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to unmarshal history: %w", err)
	}
	if f.Records != nil {
		s.records = f.Records
	}
	return nil
}

// saveLocked writes all records; the caller holds the lock
func (s *Storage) saveLocked() error {
	data, err := json.MarshalIndent(fileFormat{Records: s.records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// write then rename so a crash never leaves a truncated file
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Put inserts or replaces a record by lifecycle id
func (s *Storage) Put(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record has no lifecycle id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.records[rec.ID]; ok {
		// a status update carries only the lifecycle
		if rec.RequestID == "" {
			rec.RequestID = prev.RequestID
		}
		if rec.Provider == "" {
			rec.Provider = prev.Provider
		}
		if rec.FromToken == "" {
			rec.FromToken, rec.ToToken, rec.Amount = prev.FromToken, prev.ToToken, prev.Amount
		}
		// a resumed lifecycle keeps its original start
		if !prev.CreatedAt.IsZero() {
			rec.CreatedAt = prev.CreatedAt
		}
	}
	s.records[rec.ID] = &rec
	return s.saveLocked()
}

// UpdateLifecycle stores a newer snapshot of an existing record
func (s *Storage) UpdateLifecycle(lc types.TxLifecycle) error {
	s.mu.RLock()
	_, ok := s.records[lc.ID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("transaction '%s' not found", lc.ID)
	}
	return s.Put(Record{TxLifecycle: lc})
}

// Get retrieves a record by lifecycle id or source transaction hash
func (s *Storage) Get(key string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.records[key]; ok {
		cp := *rec
		return &cp, nil
	}
	for _, rec := range s.records {
		if rec.FromTxHash != "" && rec.FromTxHash == key {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("transaction '%s' not found", key)
}

// Delete removes a record
func (s *Storage) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("transaction '%s' not found", id)
	}
	delete(s.records, id)
	return s.saveLocked()
}

// List returns all records, newest first
func (s *Storage) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ListPending returns records whose lifecycle has not reached a terminal status
func (s *Storage) ListPending() []Record {
	var out []Record
	for _, rec := range s.List() {
		if !rec.Status.Terminal() {
			out = append(out, rec)
		}
	}
	return out
}

// Count returns the number of stored records
func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// FilePath returns the storage file path
func (s *Storage) FilePath() string {
	return s.filePath
}
