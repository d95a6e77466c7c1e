package ledger_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunrise/sales-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// RESOLVER TESTS
// =============================================================================

func TestNextDate_TrailingNewline(t *testing.T) {
	// GIVEN: a ledger whose last data row is 03/10/2024, file ends with \n
	// WHEN: resolving the next date
	// THEN: 2024-03-11 (the trailing newline must not yield an empty row)

	path := writeFile(t, "Sales,Gross Sales\n03/09/2024,100.00\n03/10/2024,250.50\n")

	next, err := ledger.NextDate(path)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 11), next)
}

func TestNextDate_NoTrailingNewline(t *testing.T) {
	// GIVEN: the same ledger without a trailing newline
	// THEN: same answer

	path := writeFile(t, "Sales,Gross Sales\n03/09/2024,100.00\n03/10/2024,250.50")

	next, err := ledger.NextDate(path)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 11), next)
}

func TestNextDate_MonthAndYearRollover(t *testing.T) {
	path := writeFile(t, "Sales\n12/31/2023,0\n")

	next, err := ledger.NextDate(path)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.January, 1), next)
}

func TestNextDate_LastRowBeyondOneChunk(t *testing.T) {
	// GIVEN: a ledger bigger than the scan chunk size, with many trailing
	//        newlines after the last data row
	// THEN: the scan still recovers the last DATA row

	var sb strings.Builder
	sb.WriteString("Sales,Gross Sales\n")
	day := date(2022, time.November, 1)
	for i := 0; i < 800; i++ { // ~20KB, several 4KB chunks
		sb.WriteString(day.Format(ledger.DateLayout))
		sb.WriteString(",123.45\n")
		day = day.AddDate(0, 0, 1)
	}
	sb.WriteString("\n\n")
	path := writeFile(t, sb.String())

	next, err := ledger.NextDate(path)
	require.NoError(t, err)
	assert.Equal(t, day, next, "next date should follow the 800th row")
}

func TestNextDate_HeaderOnly_ParseError(t *testing.T) {
	// GIVEN: a freshly created ledger with only the header row
	// THEN: a *ParseError - the resolver must never guess a start date

	path := writeFile(t, "Sales,Gross Sales,Returns\n")

	_, err := ledger.NextDate(path)
	var parseErr *ledger.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "Sales", parseErr.Value)
}

func TestNextDate_EmptyFile_ParseError(t *testing.T) {
	path := writeFile(t, "")

	_, err := ledger.NextDate(path)
	var parseErr *ledger.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.ErrorIs(t, err, ledger.ErrEmptyLedger)
}

func TestNextDate_NewlinesOnly_ParseError(t *testing.T) {
	path := writeFile(t, "\n\n\n")

	_, err := ledger.NextDate(path)
	assert.ErrorIs(t, err, ledger.ErrEmptyLedger)
}

func TestNextDate_CorruptedTrailingRow_ParseError(t *testing.T) {
	path := writeFile(t, "Sales\n03/10/2024,10.00\ngarbage-bytes,x\n")

	_, err := ledger.NextDate(path)
	var parseErr *ledger.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "garbage-bytes", parseErr.Value)
}

func TestNextDate_MissingFile_IOError(t *testing.T) {
	_, err := ledger.NextDate(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNextDateLayout_ISODates(t *testing.T) {
	// Tabular files with an ISO date in their first column.
	path := writeFile(t, "datetime,temp\n2024-03-09,11.2\n2024-03-10,12.8\n")

	next, err := ledger.NextDateLayout(path, "2006-01-02")
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 11), next)
}

func TestNextDate_Idempotent(t *testing.T) {
	// GIVEN: a well-formed ledger ending on date D
	// THEN: every call returns D+1, regardless of repetition

	path := writeFile(t, "Sales\n01/05/2024,5\n")

	for i := 0; i < 3; i++ {
		next, err := ledger.NextDate(path)
		require.NoError(t, err)
		assert.Equal(t, date(2024, time.January, 6), next)
	}
}
