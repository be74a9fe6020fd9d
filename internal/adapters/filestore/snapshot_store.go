// Package filestore persists the session snapshot as a JSON file in the user's
// home directory, one file per namespace.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	domainauth "github.com/target/identity-session/internal/domain/auth"
	"github.com/target/identity-session/internal/ports"
)

// DefaultDirName is created under the user's home directory when no directory is configured.
const DefaultDirName = ".identity-session"

// SnapshotStore implements ports.SnapshotStore using a JSON file.
type SnapshotStore struct {
	path string
}

// DefaultDir returns ~/.identity-session.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, DefaultDirName), nil
}

// NewSnapshotStore creates the directory if needed and returns a store for
// <dir>/<namespace>.json. An empty dir uses DefaultDir.
func NewSnapshotStore(dir, namespace string) (*SnapshotStore, error) {
	if namespace == "" || strings.ContainsAny(namespace, `/\`) || namespace == "." || namespace == ".." {
		return nil, fmt.Errorf("invalid snapshot namespace %q", namespace)
	}
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &SnapshotStore{path: filepath.Join(dir, namespace+".json")}, nil
}

// Path returns the snapshot file location.
func (s *SnapshotStore) Path() string {
	return s.path
}

func (s *SnapshotStore) Load(_ context.Context) (domainauth.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domainauth.Snapshot{}, ports.ErrNoSnapshot
		}
		return domainauth.Snapshot{}, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	var snap domainauth.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domainauth.Snapshot{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// Save writes to a temporary file and renames it so a crash never leaves a torn snapshot.
func (s *SnapshotStore) Save(_ context.Context, snap domainauth.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to chmod snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Clear deletes the snapshot file; a missing file is not an error.
func (s *SnapshotStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

var _ ports.SnapshotStore = (*SnapshotStore)(nil)
