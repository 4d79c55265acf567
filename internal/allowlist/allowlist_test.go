package allowlist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Uppercases(t *testing.T) {
	list, err := Parse(strings.NewReader(`["starbucks", "Uber Eats", "SHELL"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"STARBUCKS", "UBER EATS", "SHELL"}, list.Terms())
	assert.True(t, list.Matches("uber eats order 42"))
}

func TestParse_Empty(t *testing.T) {
	list, err := Parse(strings.NewReader(`[]`))
	require.NoError(t, err)
	assert.Equal(t, 0, list.Len())
}

func TestParse_NotAnArray(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"starbucks": true}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding allow list")
}

func TestParse_NonStringEntry(t *testing.T) {
	_, err := Parse(strings.NewReader(`["ok", 42]`))
	assert.Error(t, err)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_InvalidJSONNamesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, Save(path, []string{"venmo", "Zelle"}))

	list, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"VENMO", "ZELLE"}, list.Terms())
}

func TestSave_NilWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, Save(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}
