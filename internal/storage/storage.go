// Package storage provides file-based JSON storage for session snapshots
// and locally mirrored note collections.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrNotFound = errors.New("not found")
)

// Storage provides file-based JSON storage. Values live at
// <base>/<path...>.json and writes are atomic (temp file + rename) under a
// per-file flock, so concurrent writers never leave a torn file behind.
type Storage struct {
	basePath string
	mu       sync.Mutex
	locks    map[string]*lockEntry
}

// lockEntry reference-counts a file lock so the entry can be dropped once
// the last holder releases it. The map stays bounded by in-use keys, not
// by every key ever written.
type lockEntry struct {
	lock *FileLock
	refs int
}

// New creates a new Storage instance rooted at basePath.
func New(basePath string) *Storage {
	return &Storage{
		basePath: basePath,
		locks:    make(map[string]*lockEntry),
	}
}

func (s *Storage) pathToFile(path []string) string {
	parts := append([]string{s.basePath}, path...)
	return filepath.Join(parts...) + ".json"
}

func (s *Storage) pathToDir(path []string) string {
	parts := append([]string{s.basePath}, path...)
	return filepath.Join(parts...)
}

// Get retrieves a value from storage into v.
func (s *Storage) Get(ctx context.Context, path []string, v any) error {
	data, err := os.ReadFile(s.pathToFile(path))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}

	return nil
}

// Put stores a value in storage.
func (s *Storage) Put(ctx context.Context, path []string, v any) error {
	filePath := s.pathToFile(path)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	lock := s.acquireLock(filePath)
	defer s.releaseLock(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// Delete removes a value from storage. Deleting an absent key is not an
// error.
func (s *Storage) Delete(ctx context.Context, path []string) error {
	filePath := s.pathToFile(path)

	lock := s.acquireLock(filePath)
	defer s.releaseLock(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// List returns the keys stored directly under a path, in lexicographic
// order. ULID keys therefore come back in creation order.
func (s *Storage) List(ctx context.Context, path []string) ([]string, error) {
	entries, err := os.ReadDir(s.pathToDir(path))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var items []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			items = append(items, name)
		} else if strings.HasSuffix(name, ".json") {
			items = append(items, strings.TrimSuffix(name, ".json"))
		}
	}

	return items, nil
}

// Scan iterates over all items at a path in key order. Unreadable files are
// skipped; a callback error aborts the scan.
func (s *Storage) Scan(ctx context.Context, path []string, fn func(key string, data json.RawMessage) error) error {
	dirPath := s.pathToDir(path)

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dirPath, name))
		if err != nil {
			continue
		}

		key := strings.TrimSuffix(name, ".json")
		if err := fn(key, json.RawMessage(data)); err != nil {
			return err
		}
	}

	return nil
}

// Exists checks if a key exists.
func (s *Storage) Exists(ctx context.Context, path []string) bool {
	_, err := os.Stat(s.pathToFile(path))
	return err == nil
}

func (s *Storage) acquireLock(filePath string) *FileLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.locks[filePath]
	if !ok {
		entry = &lockEntry{lock: NewFileLock(filePath)}
		s.locks[filePath] = entry
	}
	entry.refs++

	return entry.lock
}

func (s *Storage) releaseLock(filePath string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.locks[filePath]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(s.locks, filePath)
	}
}
