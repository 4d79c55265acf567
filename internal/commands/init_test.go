package commands_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subscout-dev/subscout/internal/allowlist"
	"github.com/subscout-dev/subscout/internal/config"
)

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	out, err := runSubscout(t, dir, nil, "init", "proj")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Initialized subscout at")

	for _, d := range []string{"import", "data"} {
		info, err := os.Stat(filepath.Join(dir, "proj", d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}
	_, err = os.Stat(filepath.Join(dir, "proj", "import", ".gitkeep"))
	require.NoError(t, err)
}

func TestInit_Config(t *testing.T) {
	dir := initProject(t)

	cfg, err := config.Load(filepath.Join(dir, config.DefaultFile))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestInit_EmptyAllowList(t *testing.T) {
	dir := initProject(t)

	entries, err := allowlist.Load(filepath.Join(dir, allowlist.DefaultFile))
	require.NoError(t, err)
	assert.Equal(t, 0, entries.Len())
}

func TestInit_KeepsExistingAllowList(t *testing.T) {
	dir := t.TempDir()
	wl := filepath.Join(dir, allowlist.DefaultFile)
	require.NoError(t, os.WriteFile(wl, []byte(`["netflix"]`), 0o644))

	_, err := runSubscout(t, dir, nil, "init")
	require.NoError(t, err)

	entries, err := allowlist.Load(wl)
	require.NoError(t, err)
	assert.Equal(t, []string{"NETFLIX"}, entries.Terms())
}

func TestInit_Gitignore(t *testing.T) {
	dir := initProject(t)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	for _, pattern := range []string{"data/", ".env", "logs/"} {
		assert.Contains(t, string(data), pattern, ".gitignore should contain %s", pattern)
	}
}

func TestInit_RefusesOverwrite(t *testing.T) {
	dir := initProject(t)

	out, err := runSubscout(t, dir, nil, "init")
	require.Error(t, err)
	assert.Contains(t, out, "already exists")

	_, err = runSubscout(t, dir, nil, "init", "--force")
	require.NoError(t, err)
}
