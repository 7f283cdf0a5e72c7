package download

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// History is the durable, append-only ledger of dedup keys (document URLs
// without query parameters) downloaded in any past run. A key present in
// the ledger is never re-queued. Appends are serialized, so concurrent
// workers may report completions through a shared History.
type History struct {
	mu   sync.Mutex
	path string
	file *os.File
	keys map[string]bool
}

// LoadHistory reads the ledger fully into memory, creating an empty file
// (and its parent directories) if none exists yet.
func LoadHistory(logger *slog.Logger, path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open history file %s: %w", path, err)
	}

	keys := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			keys[line] = true
		}
	}
	if err := scanner.Err(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("read history file %s: %w", path, err)
	}

	if len(keys) > 0 {
		logger.Info("download history loaded", "entries", len(keys))
	} else {
		logger.Info("download history file is empty or was just created", "path", path)
	}

	return &History{path: path, file: file, keys: keys}, nil
}

// Contains reports whether the dedup key is already in the ledger.
func (h *History) Contains(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.keys[key]
}

// Append records a completed download. The write hits the file before the
// in-memory set is updated, so a crash leaves the ledger consistent with
// what was actually written to disk.
func (h *History) Append(key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := fmt.Fprintln(h.file, key); err != nil {
		return fmt.Errorf("append to history file: %w", err)
	}
	h.keys[key] = true
	return nil
}

// Len returns the number of ledger entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.keys)
}

// Close releases the ledger file handle.
func (h *History) Close() error {
	return h.file.Close()
}
