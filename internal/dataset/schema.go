package dataset

// Column names of the security incident file, in file order.
var CyberIncidentColumns = []string{
	"incident_id",
	"timestamp",
	"severity",
	"category",
	"status",
	"description",
}

// Column names of the IT ticket file, in file order.
var ITTicketColumns = []string{
	"ticket_id",
	"priority",
	"description",
	"status",
	"assigned_to",
	"created_at",
	"resolution_time_hours",
}

// MockDatasetColumns describe the static dataset inventory shown on the data
// science page.
var MockDatasetColumns = []string{
	"dataset_name",
	"source_department",
	"file_size_mb",
	"row_count",
	"quality_score",
	"is_archived",
	"last_accessed",
}

// MockDatasets returns a fresh copy of the dataset inventory.
func MockDatasets() *Table {
	rows := [][]string{
		{"Network Logs", "IT", "250", "1000000", "85", "0", "2024-01-10"},
		{"User Activity", "IT", "120", "500000", "92", "0", "2024-01-09"},
		{"System Metrics", "Operations", "85", "250000", "78", "1", "2024-01-05"},
		{"Security Events", "Security", "300", "1500000", "88", "0", "2024-01-10"},
		{"Application Logs", "Development", "75", "300000", "95", "1", "2024-01-03"},
	}
	return NewTable(append([]string(nil), MockDatasetColumns...), rows)
}
