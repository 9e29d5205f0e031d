package dashboard

import "insightportal/internal/dataset"

const statusWaiting = "Waiting for User"

// ITFilterColumns are the ticket columns a caller may filter on.
var ITFilterColumns = []string{"priority", "status", "assigned_to"}

type StaffPerformance struct {
	Staff              string  `json:"staff"`
	TicketCount        int     `json:"ticket_count"`
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
}

type ITSummary struct {
	Total         int                  `json:"total"`
	Open          int                  `json:"open"`
	Waiting       int                  `json:"waiting_for_user"`
	ByPriority    []dataset.ValueCount `json:"by_priority"`
	ByStatus      []dataset.ValueCount `json:"by_status"`
	Staff         []StaffPerformance   `json:"staff_performance"`
	Slowest       *StaffPerformance    `json:"slowest_staff,omitempty"`
	FilterOptions map[string][]string  `json:"filter_options"`
	Columns       []string             `json:"columns"`
	Records       []map[string]string  `json:"records"`
	Warnings      []string             `json:"warnings"`
}

// IT summarises the ticket file after applying filters.
func (s *Service) IT(filters Filters) *ITSummary {
	table, warnings := s.load("it_tickets", s.itPath, dataset.ITTicketColumns)
	filtered := dataset.Filter(table, filters.restrict(ITFilterColumns...))

	staff := staffPerformance(filtered)
	return &ITSummary{
		Total:         dataset.Count(filtered),
		Open:          dataset.CountWhere(filtered, "status", statusOpen),
		Waiting:       dataset.CountWhere(filtered, "status", statusWaiting),
		ByPriority:    dataset.ValueCounts(filtered, "priority"),
		ByStatus:      dataset.ValueCounts(filtered, "status"),
		Staff:         staff,
		Slowest:       slowest(staff),
		FilterOptions: filterOptions(table, ITFilterColumns),
		Columns:       filtered.Columns,
		Records:       filtered.Records(),
		Warnings:      warnings,
	}
}

func staffPerformance(t *dataset.Table) []StaffPerformance {
	if !t.HasColumn("assigned_to") || !t.HasColumn("resolution_time_hours") {
		return []StaffPerformance{}
	}
	groups := dataset.GroupBy(t, "assigned_to", "resolution_time_hours")
	out := make([]StaffPerformance, 0, len(groups))
	for _, g := range groups {
		out = append(out, StaffPerformance{Staff: g.Key, TicketCount: g.Count, AvgResolutionHours: g.Mean})
	}
	return out
}

// slowest picks the highest average resolution time; the first in staff order wins ties.
func slowest(staff []StaffPerformance) *StaffPerformance {
	if len(staff) == 0 {
		return nil
	}
	best := staff[0]
	for _, p := range staff[1:] {
		if p.AvgResolutionHours > best.AvgResolutionHours {
			best = p
		}
	}
	return &best
}
