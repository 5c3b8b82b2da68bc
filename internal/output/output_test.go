package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONLWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comments", "2025", "07", "26", "Comments_20250726_120000.jsonl")

	w, err := NewJSONLWriter(path)
	require.NoError(t, err)
	require.Equal(t, path, w.Path())

	require.NoError(t, w.Write(map[string]interface{}{"id": 1}))
	require.NoError(t, w.Write(map[string]interface{}{"id": 2}))
	require.Equal(t, 2, w.Count())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{\"id\":1}\n{\"id\":2}\n", string(data))
}

func TestJSONLWriter_RejectsUnmarshalable(t *testing.T) {
	w, err := NewJSONLWriter(filepath.Join(t.TempDir(), "out.jsonl"))
	require.NoError(t, err)
	defer w.Close()

	require.Error(t, w.Write(func() {}))
	require.Equal(t, 0, w.Count())
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "daily_aggregated_sales_20250726.csv")

	err := WriteCSV(path,
		[]string{"ProductCategory", "Region", "TotalSales"},
		[][]string{{"Books", "South", "45.50"}})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"ProductCategory", "Region", "TotalSales"},
		{"Books", "South", "45.50"},
	}, rows)
}

func TestWriteCSV_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")

	require.NoError(t, WriteCSV(path, []string{"a"}, [][]string{{"1"}, {"2"}}))
	require.NoError(t, WriteCSV(path, []string{"a"}, [][]string{{"3"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "a\n3\n", string(data))
}
