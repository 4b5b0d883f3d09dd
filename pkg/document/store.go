package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/owl-os/retina-console/pkg/logger"
)

const (
	// applianceDocumentPath is where the merge pipeline expects user.yml
	// on the appliance.
	applianceDocumentPath = "/data/retina-node/user.yml"

	// lockTimeout is the maximum time to wait for the advisory file lock.
	lockTimeout = 1 * time.Second

	// documentPerms keeps user.yml readable by the merge pipeline, which
	// runs as a different user.
	documentPerms = 0o644
)

// Store defines the persistence operations for the settings document.
type Store interface {
	// Load reads the document. A missing file yields an empty document,
	// not an error (first-run semantics).
	Load(ctx context.Context) (Document, error)
	// Save writes the full document back atomically.
	Save(ctx context.Context, doc Document) error
}

// LocalStore implements Store on the local file system.
type LocalStore struct {
	path string
}

// NewLocalStore creates a file-backed document store. If path is empty the
// default location is used.
func NewLocalStore(path string) (*LocalStore, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return &LocalStore{path: filepath.Clean(path)}, nil
}

// DefaultPath returns the appliance document path, or an XDG config path
// when the appliance data directory does not exist (dev environment).
func DefaultPath() (string, error) {
	if _, err := os.Stat(filepath.Dir(applianceDocumentPath)); err == nil {
		return applianceDocumentPath, nil
	}
	path, err := xdg.ConfigFile("retina-console/user.yml")
	if err != nil {
		return "", fmt.Errorf("unable to determine document path: %w", err)
	}
	return path, nil
}

// Path returns the file the store reads and writes.
func (s *LocalStore) Path() string {
	return s.path
}

// Load reads and decodes the document file.
func (s *LocalStore) Load(_ context.Context) (Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debugf("no document at %s, starting empty", s.path)
			return Document{}, nil
		}
		return nil, fmt.Errorf("unable to read document %s: %w", s.path, err)
	}

	doc := Document{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", s.path, err)
	}
	return doc, nil
}

// Save writes the document with write-temp-then-rename discipline so a
// crash mid-write never corrupts the previously valid file. An advisory
// lock serializes writers on the same host.
func (s *LocalStore) Save(ctx context.Context, doc Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error serializing document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("unable to create document directory %s: %w", dir, err)
	}

	// Use a separate lock file for cross-platform compatibility.
	fileLock := flock.New(s.path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire document lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire document lock: timeout after %v", lockTimeout)
	}
	defer fileLock.Unlock()

	tmp, err := os.CreateTemp(dir, ".user-*.yml")
	if err != nil {
		return fmt.Errorf("unable to create temporary document: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to sync document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close document: %w", err)
	}
	if err := os.Chmod(tmpPath, documentPerms); err != nil {
		return fmt.Errorf("unable to set document permissions: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("unable to replace document %s: %w", s.path, err)
	}
	return nil
}
