package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreate_CreatesThenReuses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)

	first, err := LoadOrCreate(path)
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err)

	second, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadOrCreate_ReplacesGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("not-a-uuid"), 0o600))

	id, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", id)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, id+"\n", string(data))
}

func TestLoadOrCreate_KeepsExistingWithWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	want := uuid.New().String()
	require.NoError(t, os.WriteFile(path, []byte("  "+want+"\n\n"), 0o600))

	id, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, want, id)
}
