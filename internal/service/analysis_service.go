package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/senirlioglu/envanter-risk-analizi/internal/cache"
	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
	"github.com/senirlioglu/envanter-risk-analizi/internal/pipeline"
	"github.com/senirlioglu/envanter-risk-analizi/internal/reference"
	"github.com/senirlioglu/envanter-risk-analizi/internal/repository"
	"github.com/senirlioglu/envanter-risk-analizi/internal/risk"
)

// Repositories groups the persistence collaborators. Any of them may be
// nil; the service then runs without that part of the history.
type Repositories struct {
	Inventory     repository.PriorPeriodRepository
	Cancellations repository.CancellationRepository
	Roster        repository.RosterRepository
	Results       repository.ResultRepository
}

// AnalyzeRequest describes one analysis run over export files.
type AnalyzeRequest struct {
	Paths []string
	// Period ("2006-01") stamped on every line. Defaults to the current month.
	Period string
	// StoreID fills lines of exports that carry no store column.
	StoreID string
	Source  string
}

type AnalysisService struct {
	cfg      pipeline.Config
	analyzer *pipeline.Analyzer
	repos    Repositories
	cache    cache.ReportCache
	locker   cache.RunLocker
	refFiles reference.Files
	now      func() time.Time
}

func NewAnalysisService(cfg pipeline.Config, repos Repositories, reportCache cache.ReportCache, locker cache.RunLocker, refFiles reference.Files, opts ...pipeline.Option) *AnalysisService {
	if reportCache == nil {
		reportCache = cache.NewNoopReportCache()
	}
	if locker == nil {
		locker = cache.NewLocalRunLocker()
	}

	var analyzerOpts []pipeline.Option
	if repos.Inventory != nil {
		analyzerOpts = append(analyzerOpts, pipeline.WithPriorPeriods(repos.Inventory))
	}
	if repos.Cancellations != nil {
		analyzerOpts = append(analyzerOpts, pipeline.WithCancellations(repos.Cancellations))
	}
	analyzerOpts = append(analyzerOpts, opts...)

	return &AnalysisService{
		cfg:      cfg,
		analyzer: pipeline.NewAnalyzer(cfg, analyzerOpts...),
		repos:    repos,
		cache:    reportCache,
		locker:   locker,
		refFiles: refFiles,
		now:      time.Now,
	}
}

// AnalyzeFiles loads the export files, analyzes every store in them and
// persists the run. Only one run per period executes at a time.
func (s *AnalysisService) AnalyzeFiles(ctx context.Context, req AnalyzeRequest) (*domain.RegionReport, error) {
	if len(req.Paths) == 0 {
		return nil, fmt.Errorf("%w: no input files", domain.ErrInvalidInput)
	}
	period := req.Period
	if period == "" {
		period = s.now().Format("2006-01")
	}
	if _, err := time.Parse("2006-01", period); err != nil {
		return nil, fmt.Errorf("%w: period %q must look like 2006-01", domain.ErrInvalidInput, period)
	}

	release, err := s.locker.Obtain(ctx, period)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			log.Warn().Err(err).Str("period", period).Msg("analysis: releasing run lock failed")
		}
	}()

	opts := s.cfg.Normalize
	opts.Period = period
	opts.StoreID = req.StoreID
	lines, err := pipeline.LoadFiles(ctx, req.Paths, opts, s.cfg.WorkerCount)
	if err != nil {
		return nil, err
	}

	ref, err := s.Reference(ctx)
	if err != nil {
		return nil, err
	}

	report, err := s.analyzer.AnalyzeRegion(ctx, pipeline.RegionInput{
		Period:    period,
		Source:    req.Source,
		Lines:     lines,
		Reference: ref,
	})
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, report, lines, req.Source); err != nil {
		return nil, err
	}
	return report, nil
}

// persist stores the counted lines as history for later periods and the run
// results in one transaction, then drops cached summaries.
func (s *AnalysisService) persist(ctx context.Context, report *domain.RegionReport, lines []domain.InventoryLine, source string) error {
	switch {
	case s.repos.Results == nil && s.repos.Inventory != nil:
		if err := s.repos.Inventory.SaveLines(ctx, lines); err != nil {
			return fmt.Errorf("saving inventory lines: %w", err)
		}
	case s.repos.Results != nil:
		var (
			run *domain.AnalysisRun
			err error
		)
		if s.repos.Inventory != nil {
			run, err = s.repos.Results.SaveRunWithLines(ctx, report, lines, source)
		} else {
			run, err = s.repos.Results.SaveRun(ctx, report, source)
		}
		if err != nil {
			return fmt.Errorf("saving analysis run: %w", err)
		}
		log.Info().
			Str("run_id", run.ID).
			Str("period", run.Period).
			Int("stores", run.StoreCount).
			Int("lines", run.LineCount).
			Msg("analysis: run saved")
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("analysis: cache invalidation failed")
	}
	return nil
}

// Reference loads the lookup tables. A roster file takes precedence over
// the roster table.
func (s *AnalysisService) Reference(ctx context.Context) (domain.ReferenceData, error) {
	ref, err := reference.Load(s.refFiles)
	if err != nil {
		return ref, fmt.Errorf("loading reference data: %w", err)
	}
	if s.refFiles.Roster == "" && s.repos.Roster != nil {
		roster, err := s.repos.Roster.GetRoster(ctx)
		if err != nil {
			return ref, err
		}
		ref.Roster = roster
	}
	return ref, nil
}

// ImportRoster upserts the assignments of a roster file and returns how
// many were written.
func (s *AnalysisService) ImportRoster(ctx context.Context, path string) (int, error) {
	if s.repos.Roster == nil {
		return 0, errors.New("roster repository is not configured")
	}
	assignments, err := reference.LoadRoster(path)
	if err != nil {
		return 0, err
	}
	if err := s.repos.Roster.UpsertAssignments(ctx, assignments); err != nil {
		return 0, err
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("analysis: cache invalidation failed")
	}
	return len(assignments), nil
}

func (s *AnalysisService) results() (repository.ResultRepository, error) {
	if s.repos.Results == nil {
		return nil, errors.New("result repository is not configured")
	}
	return s.repos.Results, nil
}

func (s *AnalysisService) GetRun(ctx context.Context, runID string) (*domain.AnalysisRun, error) {
	repo, err := s.results()
	if err != nil {
		return nil, err
	}
	return repo.GetRun(ctx, runID)
}

func (s *AnalysisService) ListRuns(ctx context.Context, period string, limit int) ([]domain.AnalysisRun, error) {
	repo, err := s.results()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	return repo.ListRuns(ctx, period, limit)
}

// GetSummaries returns the store summaries matching filter, served from
// cache when possible.
func (s *AnalysisService) GetSummaries(ctx context.Context, filter domain.ReportFilter) ([]domain.StoreRiskSummary, error) {
	if summaries, ok, err := s.cache.GetSummaries(ctx, filter); err == nil && ok {
		return summaries, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("analysis: cache get summaries failed")
	}

	repo, err := s.results()
	if err != nil {
		return nil, err
	}
	summaries, err := repo.GetStoreSummaries(ctx, filter)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetSummaries(ctx, filter, summaries); err != nil {
		log.Warn().Err(err).Msg("analysis: cache set summaries failed")
	}
	return summaries, nil
}

// GetStoreSummary returns one store's summary for the latest run of period.
func (s *AnalysisService) GetStoreSummary(ctx context.Context, storeID, period string) (*domain.StoreRiskSummary, error) {
	summaries, err := s.GetSummaries(ctx, domain.ReportFilter{Period: period, StoreIDs: []string{storeID}})
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, fmt.Errorf("store %s in period %s: %w", storeID, period, domain.ErrNotFound)
	}
	return &summaries[0], nil
}

func (s *AnalysisService) GetRecords(ctx context.Context, runID, storeID string) ([]domain.ClassificationRecord, error) {
	repo, err := s.results()
	if err != nil {
		return nil, err
	}
	return repo.GetRecords(ctx, runID, storeID)
}

// GetRollups rebuilds manager or region roll-ups from persisted summaries.
func (s *AnalysisService) GetRollups(ctx context.Context, filter domain.ReportFilter) ([]domain.RollupSummary, error) {
	if filter.GroupBy != domain.RollupByManager && filter.GroupBy != domain.RollupByRegion {
		return nil, fmt.Errorf("%w: unknown roll-up %q", domain.ErrInvalidInput, filter.GroupBy)
	}
	if rollups, ok, err := s.cache.GetRollups(ctx, filter); err == nil && ok {
		return rollups, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("analysis: cache get rollups failed")
	}

	summaryFilter := filter
	summaryFilter.GroupBy = ""
	summaries, err := s.GetSummaries(ctx, summaryFilter)
	if err != nil {
		return nil, err
	}
	ref, err := s.Reference(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]domain.StoreReport, len(summaries))
	for i, sum := range summaries {
		reports[i] = domain.StoreReport{
			Summary: sum,
			Score:   domain.ScoreBreakdown{Total: sum.Score, Level: risk.ScoreLevel(sum.Score)},
		}
	}
	rollups := risk.Rollup(reports, ref.Roster, filter.GroupBy, s.cfg.Risk)

	if err := s.cache.SetRollups(ctx, filter, rollups); err != nil {
		log.Warn().Err(err).Msg("analysis: cache set rollups failed")
	}
	return rollups, nil
}
