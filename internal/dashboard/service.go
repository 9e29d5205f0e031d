// Package dashboard turns the loaded domain tables into the summaries the
// portal pages display.
package dashboard

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"insightportal/internal/config"
	"insightportal/internal/dataset"
)

// Service loads the backing files on every call. Tables are small and the
// files may be replaced while the server runs, so nothing is kept between calls.
type Service struct {
	cyberPath string
	itPath    string
	logger    *zap.Logger
}

func NewService(cfg config.DataConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cyberPath: cfg.CyberIncidentsPath,
		itPath:    cfg.ITTicketsPath,
		logger:    logger,
	}
}

// Filters holds the allowed values per column picked by the user.
type Filters map[string][]string

// restrict keeps only the columns a dashboard offers as filters.
func (f Filters) restrict(columns ...string) map[string][]string {
	out := make(map[string][]string, len(columns))
	for _, c := range columns {
		if vals := f[c]; len(vals) > 0 {
			out[c] = vals
		}
	}
	return out
}

// Overview is the landing page summary across both domains.
type Overview struct {
	CyberIncidents int      `json:"cyber_incidents"`
	OpenIncidents  int      `json:"open_incidents"`
	ITTickets      int      `json:"it_tickets"`
	OpenTickets    int      `json:"open_tickets"`
	Datasets       int      `json:"datasets"`
	Warnings       []string `json:"warnings"`
}

// Overview loads both domain files concurrently.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	var (
		cyber, it         *dataset.Table
		cyberWarn, itWarn []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		cyber, cyberWarn = s.load("cyber_incidents", s.cyberPath, dataset.CyberIncidentColumns)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		it, itWarn = s.load("it_tickets", s.itPath, dataset.ITTicketColumns)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Overview{
		CyberIncidents: dataset.Count(cyber),
		OpenIncidents:  dataset.CountWhere(cyber, "status", statusOpen),
		ITTickets:      dataset.Count(it),
		OpenTickets:    dataset.CountWhere(it, "status", statusOpen),
		Datasets:       dataset.MockDatasets().Len(),
		Warnings:       append(cyberWarn, itWarn...),
	}, nil
}

// load never fails: load errors and missing columns become warnings.
func (s *Service) load(name, path string, columns []string) (*dataset.Table, []string) {
	warnings := []string{}
	if path == "" {
		msg := fmt.Sprintf("%s: no data file configured", name)
		s.logger.Warn("dataset not configured", zap.String("dataset", name))
		return dataset.Empty(columns), append(warnings, msg)
	}
	table, err := dataset.Load(path, columns)
	if err != nil {
		s.logger.Warn("load dataset", zap.String("dataset", name), zap.String("path", path), zap.Error(err))
		warnings = append(warnings, fmt.Sprintf("%s: %v", name, err))
		return table, warnings
	}
	if missing := dataset.MissingColumns(table, columns); len(missing) > 0 {
		s.logger.Warn("dataset missing columns", zap.String("dataset", name), zap.Strings("columns", missing))
		warnings = append(warnings, fmt.Sprintf("%s: missing columns %s", name, strings.Join(missing, ", ")))
	}
	return table, warnings
}
