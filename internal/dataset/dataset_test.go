package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"insightportal/internal/apperr"
)

const incidentsCSV = `incident_id,timestamp,severity,category,status,description
INC001,2025-01-03 10:00:00,High,Phishing,Open,Credential harvesting email
INC002,2024-12-20 08:30:00,Critical,Malware,Resolved,Ransomware on file server
INC003,2025-02-11 14:15:00,Low,Phishing,Resolved,Spoofed invoice
INC004,2025-03-01 09:45:00,Critical,Intrusion,Open,Unexpected admin login
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWellFormedCSV(t *testing.T) {
	path := writeFile(t, "incidents.csv", incidentsCSV)

	table, err := Load(path, CyberIncidentColumns)
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())
	assert.Equal(t, CyberIncidentColumns, table.Columns)
	assert.Equal(t, "Malware", table.Cell(1, "category"))
	assert.Empty(t, MissingColumns(table, CyberIncidentColumns))
}

func TestLoadMissingFile(t *testing.T) {
	table, err := Load(filepath.Join(t.TempDir(), "nope.csv"), ITTicketColumns)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.True(t, table.IsEmpty())
	assert.Equal(t, ITTicketColumns, table.Columns)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, apperr.CodeNotFound, loadErr.Kind)
	assert.Equal(t, apperr.CodeNotFound, apperr.GetCode(err))
}

func TestLoadEmptyInputs(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero bytes", ""},
		{"header only", "ticket_id,priority,description,status,assigned_to,created_at,resolution_time_hours\n"},
		{"blank lines", "\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "tickets.csv", tt.content)
			table, err := Load(path, ITTicketColumns)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrEmptyInput), "got %v", err)
			assert.True(t, table.IsEmpty())
		})
	}
}

func TestLoadMalformedCSV(t *testing.T) {
	path := writeFile(t, "bad.csv", "a,b,c\n1,2\n")
	table, err := Load(path, []string{"a", "b", "c"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrMalformedInput))
	assert.True(t, table.IsEmpty())

	path = writeFile(t, "quote.csv", "a,b\n\"unterminated,1\n")
	_, err = Load(path, nil)
	assert.True(t, errors.Is(err, apperr.ErrMalformedInput))

	path = writeFile(t, "data.json", "{}")
	_, err = Load(path, nil)
	assert.True(t, errors.Is(err, apperr.ErrMalformedInput))
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"ticket_id", "priority", "description", "status", "assigned_to", "created_at", "resolution_time_hours"},
		{"T1", "High", "VPN down", "Open", "alice", "2025-01-02", "4"},
		{"T2", "Low", "New mouse", "Closed", "bob", "2025-01-03", "1.5"},
	}
	for i, r := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &r))
	}
	path := filepath.Join(t.TempDir(), "tickets.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := Load(path, ITTicketColumns)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "bob", table.Cell(1, "assigned_to"))
	assert.InDelta(t, 5.5, Sum(table, "resolution_time_hours"), 1e-9)
}

func TestFilter(t *testing.T) {
	table, err := Load(writeFile(t, "incidents.csv", incidentsCSV), CyberIncidentColumns)
	require.NoError(t, err)

	same := Filter(table, map[string][]string{"severity": {}, "status": nil})
	assert.Equal(t, table.Rows, same.Rows)

	critical := Filter(table, map[string][]string{"severity": {"Critical", "High"}, "status": {"Open"}})
	assert.Equal(t, 2, critical.Len())
	assert.Equal(t, "INC001", critical.Cell(0, "incident_id"))
	assert.Equal(t, "INC004", critical.Cell(1, "incident_id"))

	none := Filter(table, map[string][]string{"severity": {"Catastrophic"}})
	assert.Equal(t, 0, none.Len())
	assert.Equal(t, table.Columns, none.Columns)

	missingCol := Filter(table, map[string][]string{"region": {"EU"}})
	assert.Equal(t, 0, missingCol.Len())

	assert.Equal(t, 0, Filter(nil, map[string][]string{"a": {"b"}}).Len())
}

func TestAggregates(t *testing.T) {
	table := NewTable(
		[]string{"assigned_to", "status", "resolution_time_hours"},
		[][]string{
			{"alice", "Open", "4"},
			{"bob", "Closed", "10"},
			{"alice", "Closed", "2"},
			{"carol", "Waiting for User", "n/a"},
			{"bob", "Open", ""},
		},
	)

	assert.Equal(t, 5, Count(table))
	assert.Equal(t, 2, CountWhere(table, "status", "Open"))
	assert.Equal(t, 3, CountWhere(table, "status", "Open", "Waiting for User"))
	assert.Equal(t, 0, CountWhere(table, "missing", "Open"))

	assert.Equal(t, []ValueCount{
		{Value: "alice", Count: 2},
		{Value: "bob", Count: 2},
		{Value: "carol", Count: 1},
	}, ValueCounts(table, "assigned_to"))

	assert.Equal(t, []GroupStat{
		{Key: "alice", Count: 2, Mean: 3},
		{Key: "bob", Count: 2, Mean: 10},
		{Key: "carol", Count: 1, Mean: 0},
	}, GroupBy(table, "assigned_to", "resolution_time_hours"))

	assert.Equal(t, []string{"alice", "bob", "carol"}, Unique(table, "assigned_to"))
	assert.InDelta(t, 16, Sum(table, "resolution_time_hours"), 1e-9)
	assert.InDelta(t, 16.0/3, Mean(table, "resolution_time_hours"), 1e-9)
}

func TestAggregatesOnEmptyTable(t *testing.T) {
	empty := Empty(ITTicketColumns)

	assert.Equal(t, 0, Count(empty))
	assert.Equal(t, 0, CountWhere(empty, "status", "Open"))
	assert.Empty(t, ValueCounts(empty, "status"))
	assert.Empty(t, GroupBy(empty, "assigned_to", "resolution_time_hours"))
	assert.Empty(t, Unique(empty, "status"))
	assert.Zero(t, Sum(empty, "resolution_time_hours"))
	assert.Zero(t, Mean(empty, "resolution_time_hours"))
	assert.Empty(t, empty.Records())

	var nilTable *Table
	assert.Zero(t, Count(nilTable))
	assert.Empty(t, ValueCounts(nilTable, "status"))
}

func TestHistogram(t *testing.T) {
	bins := Histogram([]float64{0, 9.9, 10, 55, 100, 120}, 0, 100, 10)
	require.Len(t, bins, 10)
	assert.Equal(t, 2, bins[0].Count)
	assert.Equal(t, 1, bins[1].Count)
	assert.Equal(t, 1, bins[5].Count)
	assert.Equal(t, 1, bins[9].Count)
	assert.Empty(t, Histogram(nil, 0, 0, 10))
}

func TestMockDatasetsIsFreshCopy(t *testing.T) {
	a := MockDatasets()
	require.Equal(t, 5, a.Len())
	a.Rows[0][0] = "changed"
	b := MockDatasets()
	assert.Equal(t, "Network Logs", b.Cell(0, "dataset_name"))
	assert.Equal(t, "Network Logs", b.Records()[0]["dataset_name"])
}
