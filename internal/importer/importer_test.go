package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checkingHeader = "Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #\n"

func TestChaseParser_ParseChecking(t *testing.T) {
	data, err := os.ReadFile("../../testdata/chase_checking.csv")
	require.NoError(t, err)

	p := &ChaseParser{}
	txns, err := p.Parse(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Len(t, txns, 9)

	// First: GITHUB subscription
	assert.Equal(t, "GITHUB *PRO SUBSCRIPTION", txns[0].Name)
	assert.Equal(t, "-4.00", txns[0].Amount.StringFixed(2))
	assert.Equal(t, 2025, txns[0].Date.Year())
	assert.Equal(t, 1, int(txns[0].Date.Month()))
	assert.Equal(t, 3, txns[0].Date.Day())

	// Fourth: ACME income (positive)
	assert.Equal(t, "ACME CONSULTING INVOICE 1042", txns[3].Name)
	assert.True(t, txns[3].Amount.IsPositive())
	assert.Equal(t, "3500.00", txns[3].Amount.StringFixed(2))
}

func TestChaseParser_ParseCreditCard(t *testing.T) {
	data, err := os.ReadFile("../../testdata/chase_credit.csv")
	require.NoError(t, err)

	p := &ChaseParser{}
	txns, err := p.Parse(strings.NewReader(string(data)))
	require.NoError(t, err)
	require.Len(t, txns, 6)

	// Transaction Date wins over Post Date.
	assert.Equal(t, "Spotify USA", txns[0].Name)
	assert.Equal(t, 8, int(txns[0].Date.Month()))
	assert.Equal(t, 1, txns[0].Date.Day())
	assert.Equal(t, "-11.99", txns[0].Amount.String())
}

func TestChaseParser_NegativePositiveAmounts(t *testing.T) {
	data, err := os.ReadFile("../../testdata/chase_checking.csv")
	require.NoError(t, err)

	p := &ChaseParser{}
	txns, err := p.Parse(strings.NewReader(string(data)))
	require.NoError(t, err)

	for _, txn := range txns {
		if txn.Name == "ACME CONSULTING INVOICE 1042" {
			assert.True(t, txn.Amount.IsPositive())
		} else {
			assert.True(t, txn.Amount.IsNegative(), "expected negative for %s", txn.Name)
		}
	}
}

func TestChaseParser_EmptyFile(t *testing.T) {
	p := &ChaseParser{}
	txns, err := p.Parse(strings.NewReader(checkingHeader))
	require.NoError(t, err)
	assert.Nil(t, txns)

	txns, err = p.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, txns)
}

func TestChaseParser_BOMHeader(t *testing.T) {
	csv := "\ufeffTransaction Date,Description,Amount\n03/01/2024,HULU,-7.99\n"
	p := &ChaseParser{}
	txns, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "HULU", txns[0].Name)
}

func TestChaseParser_KeepsDescriptionAsIs(t *testing.T) {
	csv := "Transaction Date,Description,Amount\n" +
		"03/01/2024,\"NETFLIX \",-15.49\n" +
		"04/01/2024,NETFLIX,-15.49\n"
	p := &ChaseParser{}
	txns, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "NETFLIX ", txns[0].Name)
	assert.Equal(t, "NETFLIX", txns[1].Name)
}

func TestChaseParser_MissingColumn(t *testing.T) {
	p := &ChaseParser{}
	_, err := p.Parse(strings.NewReader("Transaction Date,Description\n01/03/2025,desc\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing "Amount" column`)
}

func TestChaseParser_ShortRow(t *testing.T) {
	p := &ChaseParser{}
	_, err := p.Parse(strings.NewReader(checkingHeader + "DEBIT,01/03/2025\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestChaseParser_BadDate(t *testing.T) {
	csv := checkingHeader + "DEBIT,NOTADATE,desc,-4.00,ACH_DEBIT,100.00,\n"
	p := &ChaseParser{}
	_, err := p.Parse(strings.NewReader(csv))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parsing date")
}

func TestChaseParser_ISODateRejected(t *testing.T) {
	csv := checkingHeader + "DEBIT,2025-01-03,desc,-4.00,ACH_DEBIT,100.00,\n"
	p := &ChaseParser{}
	_, err := p.Parse(strings.NewReader(csv))
	assert.ErrorContains(t, err, "parsing date")
}

func TestChaseParser_BadAmount(t *testing.T) {
	csv := checkingHeader + "DEBIT,01/03/2025,desc,NOTANUMBER,ACH_DEBIT,100.00,\n"
	p := &ChaseParser{}
	_, err := p.Parse(strings.NewReader(csv))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parsing amount")
}

func TestChaseParser_Format(t *testing.T) {
	p := &ChaseParser{}
	assert.Equal(t, "chase", p.Format())
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get("nonexistent"))
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	p := r.Get("chase")
	require.NotNil(t, p)
	assert.Equal(t, "chase", p.Format())
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	assert.NotNil(t, r.Get("Chase"))
	assert.NotNil(t, r.Get("CHASE"))
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	assert.Panics(t, func() { r.Register(&ChaseParser{}) })
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get("chase"))
	assert.Equal(t, []string{"chase"}, r.Formats())
}

func TestParseFile(t *testing.T) {
	txns, err := ParseFile("../../testdata/chase_credit.csv", &ChaseParser{})
	require.NoError(t, err)
	assert.Len(t, txns, 6)
}

func TestParseFile_NotFound(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.csv"), &ChaseParser{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestScan_FindsCSVs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Chase1234.CSV"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bank.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "Chase1234.CSV", files[0].Name)
	assert.Equal(t, "bank.csv", files[1].Name)
	assert.Equal(t, int64(4), files[1].Size)
}

func TestScan_IgnoresProcessedDir(t *testing.T) {
	dir := t.TempDir()
	processed := filepath.Join(dir, "processed")
	require.NoError(t, os.MkdirAll(processed, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(processed, "old.csv"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, "new.csv", files[0].Name)
}

func TestScan_MissingDir(t *testing.T) {
	files, err := Scan(filepath.Join(t.TempDir(), "import"))
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bank.csv"), []byte("data"), 0o644))

	err := MarkProcessed(dir, "bank.csv")
	require.NoError(t, err)

	// Source gone.
	_, err = os.Stat(filepath.Join(dir, "bank.csv"))
	assert.True(t, os.IsNotExist(err))

	// Destination exists.
	_, err = os.Stat(filepath.Join(dir, "processed", "bank.csv"))
	assert.NoError(t, err)
}
