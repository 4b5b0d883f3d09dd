// Package sshkeys manages the appliance's shared authorized_keys file.
package sshkeys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/adrg/xdg"
)

// applianceKeysPath is the authorized_keys file sshd is configured to read
// for console-managed access.
const applianceKeysPath = "/data/retina-node/authorized_keys"

// keyFilePerms keeps the file world-readable so sshd can read it for any
// user.
const keyFilePerms = 0o644

// maxKeyLength bounds a single key line. RSA 4096 is ~750 chars; this
// leaves headroom for comments.
const maxKeyLength = 2000

// validKeyTypes is the exact-match whitelist of accepted key types.
var validKeyTypes = []string{
	"ssh-rsa", "ssh-ed25519", "ssh-dss",
	"ecdsa-sha2-nistp256", "ecdsa-sha2-nistp384", "ecdsa-sha2-nistp521",
	"sk-ssh-ed25519@openssh.com", "sk-ecdsa-sha2-nistp256@openssh.com",
}

var base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]+=*$`)

const shellMetaChars = "|;&$`(){}<>!#"

// ErrInvalidKey is returned when a key fails validation.
var ErrInvalidKey = errors.New("invalid SSH key format")

// Valid reports whether key is an acceptable SSH public key line: a
// whitelisted type followed by base64 data and an optional comment, with no
// newlines or shell metacharacters anywhere.
func Valid(key string) bool {
	if strings.ContainsAny(key, "\n\r") {
		return false
	}
	if len(key) > maxKeyLength {
		return false
	}
	if strings.ContainsAny(key, shellMetaChars) {
		return false
	}

	parts := strings.Fields(key)
	if len(parts) < 2 {
		return false
	}
	if !slices.Contains(validKeyTypes, parts[0]) {
		return false
	}
	return base64Pattern.MatchString(parts[1])
}

// Manager reads and rewrites an authorized_keys file.
type Manager struct {
	path string
}

// NewManager creates a manager for the given file. An empty path selects
// the appliance location, or an XDG data path in a dev environment.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		var err error
		path, err = defaultPath()
		if err != nil {
			return nil, err
		}
	}
	return &Manager{path: filepath.Clean(path)}, nil
}

func defaultPath() (string, error) {
	if _, err := os.Stat(filepath.Dir(applianceKeysPath)); err == nil {
		return applianceKeysPath, nil
	}
	path, err := xdg.DataFile("retina-console/authorized_keys")
	if err != nil {
		return "", fmt.Errorf("unable to determine authorized_keys path: %w", err)
	}
	return path, nil
}

// Path returns the managed file.
func (m *Manager) Path() string {
	return m.path
}

// List returns the current keys, one per line, blanks dropped. A missing
// file yields an empty list.
func (m *Manager) List() ([]string, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to read %s: %w", m.path, err)
	}

	var keys []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			keys = append(keys, line)
		}
	}
	return keys, nil
}

// Add validates and appends a key. Adding a key that is already present is
// a no-op.
func (m *Manager) Add(key string) error {
	key = strings.TrimSpace(key)
	if !Valid(key) {
		return ErrInvalidKey
	}

	keys, err := m.List()
	if err != nil {
		return err
	}
	if slices.Contains(keys, key) {
		return nil
	}
	return m.write(append(keys, key))
}

// Remove deletes a key. Removing a key that is not present is a no-op.
func (m *Manager) Remove(key string) error {
	keys, err := m.List()
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(keys, func(k string) bool { return k == key })
	return m.write(kept)
}

// write rewrites the file atomically (write-temp-then-rename).
func (m *Manager) write(keys []string) error {
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("unable to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".authorized_keys-*")
	if err != nil {
		return fmt.Errorf("unable to create temporary key file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if len(keys) > 0 {
		if _, err := tmp.WriteString(strings.Join(keys, "\n") + "\n"); err != nil {
			tmp.Close()
			return fmt.Errorf("unable to write key file: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close key file: %w", err)
	}
	if err := os.Chmod(tmpPath, keyFilePerms); err != nil {
		return fmt.Errorf("unable to set key file permissions: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		return fmt.Errorf("unable to replace %s: %w", m.path, err)
	}
	return nil
}
