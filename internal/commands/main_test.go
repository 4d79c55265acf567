package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "subscout-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "subscout")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/subscout")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

// runSubscout runs the binary in dir with credentials cleared and logging
// limited to errors so stdout can be parsed.
func runSubscout(t *testing.T, dir string, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"PLAID_CLIENT_ID=",
		"PLAID_SECRET=",
		"SUBSCOUT_STORE_DRIVER=",
		"SUBSCOUT_STORE_PATH=",
		"SUBSCOUT_STORE_DSN=",
		"LOG_LEVEL=error",
	)
	cmd.Env = append(cmd.Env, env...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// initProject runs init in a fresh temp dir and returns it.
func initProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := runSubscout(t, dir, nil, "init")
	require.NoError(t, err)
	return dir
}

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dst, data, 0o644))
}
