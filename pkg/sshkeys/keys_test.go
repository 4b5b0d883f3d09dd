package sshkeys

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ed25519Key = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIOMqqnkVzrm0SdG6UOoqKLsabgH5C9okWi0dh2l9GKJl user@host"
	rsaKey     = "ssh-rsa AAAAB3NzaC1yc2EAAAADAQABAAABgQC7vbqajDhA admin@console"
)

func TestValid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		key  string
		want bool
	}{
		{"ed25519 with comment", ed25519Key, true},
		{"rsa without comment", "ssh-rsa AAAAB3NzaC1yc2EAAAADAQABAAABgQC7vbqajDhA", true},
		{"security key type", "sk-ssh-ed25519@openssh.com AAAAC3Nza comment", true},
		{"embedded newline", "ssh-ed25519 AAAA\nssh-rsa BBBB", false},
		{"carriage return", "ssh-ed25519 AAAA\r", false},
		{"shell metacharacter", "ssh-ed25519 AAAA; rm -rf /", false},
		{"command substitution", "ssh-ed25519 $(whoami) x", false},
		{"unknown key type", "ssh-foo AAAAB3Nza", false},
		{"type prefix trick", "ssh-rsaX AAAAB3Nza", false},
		{"missing key data", "ssh-rsa", false},
		{"invalid base64 charset", "ssh-rsa AAAA*BBB", false},
		{"too long", "ssh-rsa " + strings.Repeat("A", 2001), false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Valid(tc.key))
		})
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "authorized_keys"))
	require.NoError(t, err)
	return m
}

func TestManager_AddListRemove(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	keys, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, m.Add(ed25519Key))
	require.NoError(t, m.Add(rsaKey))

	keys, err = m.List()
	require.NoError(t, err)
	assert.Equal(t, []string{ed25519Key, rsaKey}, keys)

	require.NoError(t, m.Remove(ed25519Key))
	keys, err = m.List()
	require.NoError(t, err)
	assert.Equal(t, []string{rsaKey}, keys)
}

func TestManager_AddDuplicateIsNoop(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	require.NoError(t, m.Add(ed25519Key))
	require.NoError(t, m.Add(ed25519Key))

	keys, err := m.List()
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestManager_AddInvalidKey(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	err := m.Add("ssh-ed25519 AAAA; echo pwned")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, statErr := os.Stat(m.Path())
	assert.True(t, os.IsNotExist(statErr), "no file may be created for a rejected key")
}

func TestManager_RemoveMissingIsNoop(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	require.NoError(t, m.Add(ed25519Key))
	require.NoError(t, m.Remove("ssh-rsa BBBB not-there"))

	keys, err := m.List()
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestManager_FileIsWorldReadable(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	require.NoError(t, m.Add(ed25519Key))

	info, err := os.Stat(m.Path())
	require.NoError(t, err)
	// sshd reads this file as arbitrary users.
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}
