package commands_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_Empty(t *testing.T) {
	dir := initProject(t)

	out, err := runSubscout(t, dir, nil, "history")
	require.NoError(t, err, out)
	assert.Equal(t, "No runs recorded.\n", out)
}

func TestHistory_ListsRuns(t *testing.T) {
	dir := scanProject(t)

	_, err := runSubscout(t, dir, nil, "scan")
	require.NoError(t, err)
	_, err = runSubscout(t, dir, nil, "scan", "import/chase_credit.csv")
	require.NoError(t, err)

	out, err := runSubscout(t, dir, nil, "history")
	require.NoError(t, err, out)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "chase_checking.csv;chase_credit.csv: 15 transactions, 3 recurring")
	assert.Contains(t, lines[0], "GITHUB *PRO SUBSCRIPTION, NETFLIX.COM, SPOTIFY USA")
	assert.Contains(t, lines[1], "chase_credit.csv: 6 transactions, 1 recurring (SPOTIFY USA)")

	out, err = runSubscout(t, dir, nil, "history", "-n", "1")
	require.NoError(t, err, out)
	assert.NotContains(t, out, "15 transactions")
	assert.Contains(t, out, "6 transactions")
}
