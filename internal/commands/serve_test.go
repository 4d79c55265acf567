package commands_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe_MissingCredentials(t *testing.T) {
	dir := initProject(t)

	out, err := runSubscout(t, dir, nil, "serve", "--addr", "127.0.0.1:0")
	require.Error(t, err)
	assert.Contains(t, out, "client id and secret are required")
}

func TestServe_MissingAllowList(t *testing.T) {
	dir := initProject(t)

	out, err := runSubscout(t, dir, plaidEnv, "serve", "--whitelist", "missing.json")
	require.Error(t, err)
	assert.Contains(t, out, "missing.json")
}
