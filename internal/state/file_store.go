// Package state persists draft snapshots as JSON files under the data
// directory. It is the fallback snapshot backend when the embedded NATS
// bucket is not wanted.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rentloop/listr/internal/draft"
	"github.com/rentloop/listr/internal/logger"
)

// FileStore keeps one <key>.json file per draft in <dataDir>/drafts.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dataDir.
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{dir: filepath.Join(dataDir, "drafts")}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Save writes the snapshot atomically by renaming a temp file into place.
func (s *FileStore) Save(_ context.Context, key string, snap *draft.Snapshot) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating drafts directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	logger.Debug("Snapshot saved to %s", s.path(key))
	return nil
}

// Load returns nil when the file does not exist. A corrupt file is logged
// and treated as absent so a bad write never blocks the wizard.
func (s *FileStore) Load(_ context.Context, key string) (*draft.Snapshot, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	snap, err := draft.Decode(data)
	if err != nil {
		logger.Warn("Ignoring unreadable snapshot %s: %v", s.path(key), err)
		return nil, nil
	}
	return snap, nil
}

// Clear removes the snapshot file. Missing files are not an error.
func (s *FileStore) Clear(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing snapshot: %w", err)
	}
	return nil
}
