package dashboard

import (
	"strings"

	"insightportal/internal/dataset"
)

const (
	statusOpen       = "Open"
	severityCritical = "Critical"
	categoryPhishing = "Phishing"
	// phishingCutoff is compared against the timestamp text, which sorts
	// chronologically in the ISO layout the incident file uses.
	phishingCutoff = "2025-01-01"
)

// CyberFilterColumns are the incident columns a caller may filter on.
var CyberFilterColumns = []string{"severity", "status", "category"}

type PhishingStats struct {
	Total int `json:"total"`
	Open  int `json:"open"`
	Since int `json:"since_2025"`
}

type CyberSummary struct {
	Total         int                  `json:"total"`
	Open          int                  `json:"open"`
	Critical      int                  `json:"critical"`
	ByCategory    []dataset.ValueCount `json:"by_category"`
	BySeverity    []dataset.ValueCount `json:"by_severity"`
	Phishing      PhishingStats        `json:"phishing"`
	FilterOptions map[string][]string  `json:"filter_options"`
	Columns       []string             `json:"columns"`
	Records       []map[string]string  `json:"records"`
	Warnings      []string             `json:"warnings"`
}

// Cyber summarises the incident file after applying filters. Filter options
// come from the unfiltered table so a selection never hides its alternatives.
func (s *Service) Cyber(filters Filters) *CyberSummary {
	table, warnings := s.load("cyber_incidents", s.cyberPath, dataset.CyberIncidentColumns)
	filtered := dataset.Filter(table, filters.restrict(CyberFilterColumns...))

	phishing := dataset.Filter(filtered, map[string][]string{"category": {categoryPhishing}})
	recent := dataset.Where(phishing, func(r dataset.Row) bool {
		return strings.TrimSpace(r.Get("timestamp")) > phishingCutoff
	})

	return &CyberSummary{
		Total:      dataset.Count(filtered),
		Open:       dataset.CountWhere(filtered, "status", statusOpen),
		Critical:   dataset.CountWhere(filtered, "severity", severityCritical),
		ByCategory: dataset.ValueCounts(filtered, "category"),
		BySeverity: dataset.ValueCounts(filtered, "severity"),
		Phishing: PhishingStats{
			Total: dataset.Count(phishing),
			Open:  dataset.CountWhere(phishing, "status", statusOpen),
			Since: dataset.Count(recent),
		},
		FilterOptions: filterOptions(table, CyberFilterColumns),
		Columns:       filtered.Columns,
		Records:       filtered.Records(),
		Warnings:      warnings,
	}
}

func filterOptions(table *dataset.Table, columns []string) map[string][]string {
	out := make(map[string][]string, len(columns))
	for _, c := range columns {
		out[c] = dataset.Unique(table, c)
	}
	return out
}
