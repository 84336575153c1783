package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateToken(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "nested", "token")

	// Given no token file, a new token is generated and persisted
	first, err := LoadOrCreateToken(path)
	req.NoError(err)
	req.NotEmpty(first)
	req.FileExists(path)

	// When loading again, the same token is reused
	second, err := LoadOrCreateToken(path)
	req.NoError(err)
	req.Equal(first, second)
}

func TestLoadOrCreateToken_Replaces_Blank_File(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "token")
	req.NoError(os.WriteFile(path, []byte("  \n"), 0o600))

	token, err := LoadOrCreateToken(path)

	req.NoError(err)
	req.NotEmpty(token)
	data, err := os.ReadFile(path)
	req.NoError(err)
	req.Equal(token+"\n", string(data))
}
