package reports_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunrise/sales-engine/reports"
)

// =============================================================================
// AMOUNT CLEANING
// =============================================================================

func TestCleanAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"$1,234.56", "1234.56"},
		{"$0.00", "0"},
		{"-$45.10", "-45.1"},
		{"1234", "1234"},
		{"", "0"},
		{"-", "0"},
		{"$ 12.30 ", "12.3"},
	}
	for _, tc := range cases {
		d, err := reports.CleanAmount(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, d.String(), "input %q", tc.in)
	}
}

func TestCleanAmount_Garbage(t *testing.T) {
	_, err := reports.CleanAmount("1.2.3")
	assert.Error(t, err)
}

func TestAddSuffix(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "summary-2023_t.csv"),
		reports.AddSuffix(filepath.Join("out", "summary-2023.csv"), "t"))
	assert.Equal(t, "report_t.csv", reports.AddSuffix("report.csv", "t"))
}

// =============================================================================
// TRANSPOSE / COMBINE
// =============================================================================

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestTranspose(t *testing.T) {
	// GIVEN: a dashboard export with metrics as rows, months as columns
	// THEN: the transposed file has months as rows

	dir := t.TempDir()
	in := writeCSV(t, dir, "summary-2023.csv",
		"Sales,Jan,Feb\nGross Sales,$100.00,$200.00\nFees,$3.00,$6.00\n")

	out, err := reports.Transpose(in, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "summary-2023_t.csv"), out)

	rows := readCSV(t, out)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Sales", "Gross Sales", "Fees"}, rows[0])
	assert.Equal(t, []string{"Jan", "$100.00", "$3.00"}, rows[1])
	assert.Equal(t, []string{"Feb", "$200.00", "$6.00"}, rows[2])
}

func TestTranspose_RaggedRows(t *testing.T) {
	dir := t.TempDir()
	in := writeCSV(t, dir, "ragged.csv", "a,b,c\nd\n")

	out, err := reports.Transpose(in, filepath.Join(dir, "out.csv"))
	require.NoError(t, err)

	rows := readCSV(t, out)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"a", "d"}, rows[0])
	assert.Equal(t, []string{"b", ""}, rows[1])
	assert.Equal(t, []string{"c", ""}, rows[2])
}

func TestCombine(t *testing.T) {
	// GIVEN: two transposed yearly summaries with display formatting, an
	//        Unnamed column and a Payments column
	// THEN: one table with the first header, both columns dropped, and
	//       amounts cleaned to plain decimal text

	dir := t.TempDir()
	f2022 := writeCSV(t, dir, "2022_t.csv",
		"Sales,Gross Sales,Payments,Fees,Unnamed: 4\n"+
			"2022-11,\"$10,000.00\",412,$290.10,x\n"+
			"2022-12,\"$12,500.50\",498,$362.51,y\n")
	f2023 := writeCSV(t, dir, "2023_t.csv",
		"Sales,Gross Sales,Payments,Fees,Unnamed: 4\n"+
			"2023-01,\"$9,800.00\",377,$284.20,z\n")

	out := filepath.Join(dir, "combined.csv")
	require.NoError(t, reports.Combine([]string{f2022, f2023}, out))

	rows := readCSV(t, out)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Sales", "Gross Sales", "Fees"}, rows[0])
	assert.Equal(t, []string{"2022-11", "10000", "290.1"}, rows[1])
	assert.Equal(t, []string{"2022-12", "12500.5", "362.51"}, rows[2])
	assert.Equal(t, []string{"2023-01", "9800", "284.2"}, rows[3])
}

func TestCombine_NoFiles(t *testing.T) {
	err := reports.Combine(nil, filepath.Join(t.TempDir(), "out.csv"))
	assert.Error(t, err)
}

// =============================================================================
// SANITY: combined output parses cleanly
// =============================================================================

func TestCombine_OutputIsMachineReadable(t *testing.T) {
	dir := t.TempDir()
	in := writeCSV(t, dir, "y_t.csv", "Sales,Gross Sales\n2023-01,\"$1,000.00\"\n")
	out := filepath.Join(dir, "combined.csv")
	require.NoError(t, reports.Combine([]string{in}, out))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.False(t, strings.ContainsAny(string(raw), "$"), "no display glyphs may survive")
}
