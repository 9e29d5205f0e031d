package dashboard

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightportal/internal/config"
)

const incidents = `incident_id,timestamp,severity,category,status,description
INC001,2025-01-03 10:00:00,High,Phishing,Open,Credential harvesting email
INC002,2024-12-20 08:30:00,Critical,Malware,Resolved,Ransomware on file server
INC003,2024-11-11 14:15:00,Low,Phishing,Resolved,Spoofed invoice
INC004,2025-03-01 09:45:00,Critical,Intrusion,Open,Unexpected admin login
INC005,2025-02-14 16:20:00,Medium,Phishing,Open,Fake payroll portal
`

const tickets = `ticket_id,priority,description,status,assigned_to,created_at,resolution_time_hours
T001,High,VPN down,Open,alice,2025-01-02,4
T002,Low,New mouse,Closed,bob,2025-01-03,1
T003,Medium,Printer jam,Waiting for User,alice,2025-01-04,8
T004,High,Disk full,Closed,carol,2025-01-05,20
`

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	cyberPath := filepath.Join(dir, "cyber_incidents.csv")
	itPath := filepath.Join(dir, "it_tickets.csv")
	require.NoError(t, os.WriteFile(cyberPath, []byte(incidents), 0o600))
	require.NoError(t, os.WriteFile(itPath, []byte(tickets), 0o600))
	return NewService(config.DataConfig{CyberIncidentsPath: cyberPath, ITTicketsPath: itPath}, nil)
}

func TestCyberSummary(t *testing.T) {
	svc := newTestService(t)

	sum := svc.Cyber(nil)
	assert.Equal(t, 5, sum.Total)
	assert.Equal(t, 3, sum.Open)
	assert.Equal(t, 2, sum.Critical)
	assert.Equal(t, "Phishing", sum.ByCategory[0].Value)
	assert.Equal(t, 3, sum.ByCategory[0].Count)
	assert.Equal(t, PhishingStats{Total: 3, Open: 2, Since: 2}, sum.Phishing)
	assert.Equal(t, []string{"High", "Critical", "Low", "Medium"}, sum.FilterOptions["severity"])
	assert.Len(t, sum.Records, 5)
	assert.Empty(t, sum.Warnings)

	filtered := svc.Cyber(Filters{"severity": {"Critical"}, "ignored": {"x"}})
	assert.Equal(t, 2, filtered.Total)
	assert.Equal(t, 0, filtered.Phishing.Total)
	assert.Len(t, filtered.FilterOptions["category"], 3)

	none := svc.Cyber(Filters{"status": {"Archived"}})
	assert.Equal(t, 0, none.Total)
	assert.Empty(t, none.Records)
}

func TestITSummary(t *testing.T) {
	svc := newTestService(t)

	sum := svc.IT(nil)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 1, sum.Open)
	assert.Equal(t, 1, sum.Waiting)
	assert.Equal(t, []StaffPerformance{
		{Staff: "alice", TicketCount: 2, AvgResolutionHours: 6},
		{Staff: "bob", TicketCount: 1, AvgResolutionHours: 1},
		{Staff: "carol", TicketCount: 1, AvgResolutionHours: 20},
	}, sum.Staff)
	require.NotNil(t, sum.Slowest)
	assert.Equal(t, "carol", sum.Slowest.Staff)

	alice := svc.IT(Filters{"assigned_to": {"alice"}})
	assert.Equal(t, 2, alice.Total)
	require.NotNil(t, alice.Slowest)
	assert.Equal(t, "alice", alice.Slowest.Staff)
}

func TestMissingFilesBecomeWarnings(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "it_tickets.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	svc := NewService(config.DataConfig{
		CyberIncidentsPath: filepath.Join(dir, "missing.csv"),
		ITTicketsPath:      empty,
	}, nil)

	cyber := svc.Cyber(Filters{"severity": {"High"}})
	assert.Equal(t, 0, cyber.Total)
	require.Len(t, cyber.Warnings, 1)
	assert.Contains(t, cyber.Warnings[0], "not found")

	it := svc.IT(nil)
	assert.Equal(t, 0, it.Total)
	assert.Nil(t, it.Slowest)
	require.Len(t, it.Warnings, 1)
	assert.Contains(t, it.Warnings[0], "empty")

	ov, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, ov.CyberIncidents)
	assert.Equal(t, 5, ov.Datasets)
	assert.Len(t, ov.Warnings, 2)

	unconfigured := NewService(config.DataConfig{}, nil).IT(nil)
	assert.Len(t, unconfigured.Warnings, 1)
}

func TestOverview(t *testing.T) {
	svc := newTestService(t)

	ov, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Overview{
		CyberIncidents: 5,
		OpenIncidents:  3,
		ITTickets:      4,
		OpenTickets:    1,
		Datasets:       5,
		Warnings:       []string{},
	}, ov)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Overview(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDataScienceSummary(t *testing.T) {
	sum := newTestService(t).DataScience()

	assert.Equal(t, 5, sum.TotalDatasets)
	assert.InDelta(t, 830, sum.TotalSizeMB, 1e-9)
	assert.InDelta(t, 87.6, sum.AvgQualityScore, 1e-9)
	assert.Equal(t, 2, sum.Archived)
	assert.Equal(t, "IT", sum.ByDepartment[0].Value)
	assert.Equal(t, 2, sum.ByDepartment[0].Count)
	require.Len(t, sum.QualityHistogram, 10)
	assert.Equal(t, 1, sum.QualityHistogram[7].Count)
	assert.Equal(t, 2, sum.QualityHistogram[8].Count)
	assert.Equal(t, 2, sum.QualityHistogram[9].Count)
	assert.Equal(t, []string{
		"Archive System Metrics (lowest quality score: 78%)",
		"Compress Security Events (largest dataset: 300MB)",
		"Backup Security Events (critical operational data)",
	}, sum.Recommendations)
	assert.Len(t, sum.Records, 5)
}
