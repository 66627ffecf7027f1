package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileRepository keeps the history in a single JSON file, rewritten
// atomically on every change.
type FileRepository struct {
	filePath   string
	mu         sync.RWMutex
	data       *fileData
	maxEntries int
}

// NewFileRepository creates a file-backed repository. maxEntries <= 0 keeps
// everything.
func NewFileRepository(filePath string, maxEntries int) *FileRepository {
	return &FileRepository{
		filePath:   filePath,
		data:       &fileData{NextID: 1},
		maxEntries: maxEntries,
	}
}

// Load loads history from disk
func (r *FileRepository) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(r.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := os.ReadFile(r.filePath)
	if os.IsNotExist(err) {
		r.data = &fileData{NextID: 1}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read history file: %w", err)
	}

	var loaded fileData
	if err := json.Unmarshal(data, &loaded); err != nil {
		// Corrupted file - backup and start fresh
		if err := os.Rename(r.filePath, r.filePath+".backup"); err != nil {
			return fmt.Errorf("failed to back up corrupted history file: %w", err)
		}
		r.data = &fileData{NextID: 1}
		return nil
	}

	for _, e := range loaded.Entries {
		if e.ID >= loaded.NextID {
			loaded.NextID = e.ID + 1
		}
	}
	if loaded.NextID < 1 {
		loaded.NextID = 1
	}
	r.data = &loaded
	return nil
}

func (r *FileRepository) Save(_ context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	saved := *entry
	if saved.Timestamp.IsZero() {
		saved.Timestamp = time.Now()
	}
	saved.ID = r.data.NextID

	entries := make([]Entry, 0, len(r.data.Entries)+1)
	entries = append(entries, r.data.Entries...)
	entries = append(entries, saved)
	if r.maxEntries > 0 && len(entries) > r.maxEntries {
		entries = entries[len(entries)-r.maxEntries:]
	}

	next := &fileData{NextID: saved.ID + 1, Entries: entries}
	if err := r.commitUnlocked(next); err != nil {
		return err
	}

	*entry = saved
	return nil
}

func (r *FileRepository) FindByID(_ context.Context, id int64) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.data.Entries {
		if e.ID == id {
			entry := e
			return &entry, nil
		}
	}
	return nil, ErrNotFound
}

func (r *FileRepository) FindAll(_ context.Context) ([]Entry, error) {
	return r.filter(func(Entry) bool { return true }), nil
}

func (r *FileRepository) FindRecent(_ context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = DefaultRecentLimit
	}

	entries := r.filter(func(Entry) bool { return true })
	sort.SliceStable(entries, func(i, j int) bool {
		return newer(entries[i], entries[j])
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *FileRepository) FindByModel(_ context.Context, model string) ([]Entry, error) {
	return r.filter(func(e Entry) bool { return e.Model == model }), nil
}

func (r *FileRepository) FindSince(_ context.Context, since time.Time) ([]Entry, error) {
	return r.filter(func(e Entry) bool { return e.Timestamp.After(since) }), nil
}

// filter returns a copy of the matching entries, oldest first.
func (r *FileRepository) filter(keep func(Entry) bool) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.data.Entries))
	for _, e := range r.data.Entries {
		if keep(e) {
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return newer(entries[j], entries[i])
	})
	return entries
}

func (r *FileRepository) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.commitUnlocked(&fileData{NextID: r.data.NextID})
}

func (r *FileRepository) Close() error {
	return nil
}

// commitUnlocked writes next to disk and makes it the current state once the
// rename succeeded. On failure the current state is left untouched. Must be
// called with the lock held.
func (r *FileRepository) commitUnlocked(next *fileData) error {
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	tempPath := r.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, r.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	r.data = next
	return nil
}

// newer orders by timestamp, then by ID for equal timestamps.
func newer(a, b Entry) bool {
	if a.Timestamp.Equal(b.Timestamp) {
		return a.ID > b.ID
	}
	return a.Timestamp.After(b.Timestamp)
}
