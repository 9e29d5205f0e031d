package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	"insightportal/internal/dataset"
)

const qualityBins = 10

type DataScienceSummary struct {
	TotalDatasets    int                  `json:"total_datasets"`
	TotalSizeMB      float64              `json:"total_size_mb"`
	AvgQualityScore  float64              `json:"avg_quality_score"`
	Archived         int                  `json:"archived"`
	ByDepartment     []dataset.ValueCount `json:"by_department"`
	QualityHistogram []dataset.Bin        `json:"quality_histogram"`
	Recommendations  []string             `json:"recommendations"`
	Columns          []string             `json:"columns"`
	Records          []map[string]string  `json:"records"`
}

// DataScience summarises the static dataset inventory.
func (s *Service) DataScience() *DataScienceSummary {
	table := dataset.MockDatasets()
	return &DataScienceSummary{
		TotalDatasets:    dataset.Count(table),
		TotalSizeMB:      dataset.Sum(table, "file_size_mb"),
		AvgQualityScore:  dataset.Mean(table, "quality_score"),
		Archived:         int(dataset.Sum(table, "is_archived")),
		ByDepartment:     dataset.ValueCounts(table, "source_department"),
		QualityHistogram: dataset.Histogram(dataset.Numbers(table, "quality_score"), 0, 100, qualityBins),
		Recommendations:  recommendations(table),
		Columns:          table.Columns,
		Records:          table.Records(),
	}
}

func recommendations(t *dataset.Table) []string {
	out := []string{}
	if i, q, ok := extreme(t, "quality_score", false); ok {
		out = append(out, fmt.Sprintf("Archive %s (lowest quality score: %.0f%%)", t.Cell(i, "dataset_name"), q))
	}
	if i, size, ok := extreme(t, "file_size_mb", true); ok {
		out = append(out, fmt.Sprintf("Compress %s (largest dataset: %.0fMB)", t.Cell(i, "dataset_name"), size))
	}
	for i := 0; i < t.Len(); i++ {
		if t.Cell(i, "source_department") == "Security" {
			out = append(out, fmt.Sprintf("Backup %s (critical operational data)", t.Cell(i, "dataset_name")))
		}
	}
	return out
}

// extreme finds the row holding the maximum (or minimum) numeric value of col.
func extreme(t *dataset.Table, col string, highest bool) (int, float64, bool) {
	idx, val, found := -1, 0.0, false
	for i := 0; i < t.Len(); i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(t.Cell(i, col)), 64)
		if err != nil {
			continue
		}
		if !found || (highest && v > val) || (!highest && v < val) {
			idx, val, found = i, v, true
		}
	}
	return idx, val, found
}
