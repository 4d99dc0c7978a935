package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/senirlioglu/envanter-risk-analizi/internal/classifier"
	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
	"github.com/senirlioglu/envanter-risk-analizi/internal/ranker"
	"github.com/senirlioglu/envanter-risk-analizi/internal/risk"
)

// Analyzer runs the full analysis over one or many stores.
type Analyzer struct {
	cfg     Config
	prior   PriorPeriodSource
	cancels CancellationSource
	newID   func() string
}

type Option func(*Analyzer)

// WithPriorPeriods enables chronic detectors backed by stored history.
func WithPriorPeriods(src PriorPeriodSource) Option {
	return func(a *Analyzer) { a.prior = src }
}

// WithCancellations enriches internal-theft rationale with void events.
func WithCancellations(src CancellationSource) Option {
	return func(a *Analyzer) { a.cancels = src }
}

// WithRunID replaces the run id generator.
func WithRunID(fn func() string) Option {
	return func(a *Analyzer) { a.newID = fn }
}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer(cfg Config, opts ...Option) *Analyzer {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	a := &Analyzer{cfg: cfg, newID: uuid.NewString}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analyzer) Config() Config {
	return a.cfg
}

// AnalyzeRegion classifies every store concurrently, then scores and rolls
// the stores up once all of them are done. Stores are returned sorted by
// id so identical input always yields identical output.
func (a *Analyzer) AnalyzeRegion(ctx context.Context, in RegionInput) (*domain.RegionReport, error) {
	if len(in.Lines) == 0 {
		return nil, domain.ErrNoRows
	}
	started := time.Now()

	period := in.Period
	if period == "" {
		period = in.Lines[0].Period
	}
	byStore := groupByStore(in.Lines)
	storeIDs := make([]string, 0, len(byStore))
	for id := range byStore {
		storeIDs = append(storeIDs, id)
	}
	sort.Strings(storeIDs)

	runID := a.newID()
	logger := log.With().Str("run_id", runID).Str("period", period).Logger()
	logger.Info().Int("stores", len(storeIDs)).Int("lines", len(in.Lines)).Msg("Starting analysis run")

	medians := risk.ProductMedians(in.Lines, a.cfg.Continuous.MinSales)

	// Stage 1: per store. Each task writes only its own slot.
	reports := make([]domain.StoreReport, len(storeIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.WorkerCount)
	for i, storeID := range storeIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			si, err := a.storeInput(gctx, storeID, period, byStore[storeID])
			if err != nil {
				return err
			}
			report := a.analyze(si, in.Reference, medians)
			reports[i] = report
			logger.Debug().
				Str("store_id", storeID).
				Int("records", len(report.Records)).
				Str("level", report.Summary.RiskLevel.String()).
				Msg("Store analyzed")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis run %s: %w", runID, err)
	}

	// Stage 2: region.
	report := a.finish(runID, period, reports, in)
	logger.Info().
		Dur("took", time.Since(started)).
		Float64("regional_loss_median", report.RegionalLossMedian).
		Msg("Analysis run completed")
	return report, nil
}

// AnalyzeStore analyzes a single store in isolation. The score uses the
// store's own loss ratio as the regional median.
func (a *Analyzer) AnalyzeStore(ctx context.Context, in StoreInput, ref domain.ReferenceData) (domain.StoreReport, error) {
	if len(in.Lines) == 0 {
		return domain.StoreReport{}, domain.ErrNoRows
	}
	if err := ctx.Err(); err != nil {
		return domain.StoreReport{}, err
	}
	if in.StoreID == "" {
		in.StoreID = in.Lines[0].StoreID
	}
	medians := risk.ProductMedians(in.Lines, a.cfg.Continuous.MinSales)
	report := a.analyze(in, ref, medians)
	report.Score = risk.Score(risk.ScoreInputFor(report, report.Summary.LossRatio), a.cfg.Weights)
	report.Summary.Score = report.Score.Total
	return report, nil
}

// storeInput gathers a store's optional history and void events.
func (a *Analyzer) storeInput(ctx context.Context, storeID, period string, lines []domain.InventoryLine) (StoreInput, error) {
	si := StoreInput{StoreID: storeID, Period: period, Lines: lines}

	if a.prior != nil && period != "" {
		p := period
		for depth := 0; depth < a.cfg.HistoryDepth; depth++ {
			prev, err := a.prior.PreviousPeriod(ctx, storeID, p)
			if errors.Is(err, domain.ErrNotFound) {
				break
			}
			if err != nil {
				return si, fmt.Errorf("store %s previous period: %w: %w", storeID, domain.ErrSourceUnavailable, err)
			}
			prevLines, err := a.prior.LinesForPeriod(ctx, storeID, prev)
			if err != nil {
				return si, fmt.Errorf("store %s period %s: %w: %w", storeID, prev, domain.ErrSourceUnavailable, err)
			}
			si.History = append(si.History, prevLines)
			p = prev
		}
	}

	if a.cancels != nil {
		events, err := a.cancels.EventsForStore(ctx, storeID, period)
		if err != nil {
			return si, fmt.Errorf("store %s cancellations: %w: %w", storeID, domain.ErrSourceUnavailable, err)
		}
		si.Cancellations = events
	}
	return si, nil
}

// analyze is the pure per-store part: classification completes before
// ranking starts.
func (a *Analyzer) analyze(in StoreInput, ref domain.ReferenceData, medians map[string]domain.ProductMedian) domain.StoreReport {
	sc := classifier.NewStoreContext(a.cfg.Thresholds, classifier.ContextInput{
		History:       in.History,
		Cancellations: in.Cancellations,
		Decoys:        ref.Decoys,
	})
	res := classifier.ClassifyStore(in.Lines, sc)

	top := ranker.TopN(in.Lines, res.Records, ranker.Options{
		N:                a.cfg.TopN,
		BalanceTolerance: a.cfg.Thresholds.BalanceTolerance,
		Exclude:          res.Confused,
	})

	summary := risk.Summarize(in.StoreID, in.Period, in.Lines, res.Records, a.cfg.Risk)
	if assigned, ok := ref.Roster[in.StoreID]; ok && summary.StoreName == "" {
		summary.StoreName = assigned.StoreName
	}

	familyShortages := 0
	for _, f := range res.Families {
		if f.Outcome == domain.FamilyShortage {
			familyShortages++
		}
	}

	report := domain.StoreReport{
		Summary:           summary,
		Records:           res.Records,
		Families:          res.Families,
		Categories:        res.Categories,
		LowValue:          res.LowValue,
		TopN:              top,
		DecoySurplusCount: res.DecoySurplusCount,
		CategoryLosses:    risk.CategoryLosses(in.Lines),
		MedianDeviations:  risk.MedianDeviations(in.Lines, medians, a.cfg.Continuous.DeviationMultiple, a.cfg.Continuous.MinSales),
	}

	// The continuous block only applies to weekly counts of fresh categories.
	continuous := risk.ContinuousLines(in.Lines)
	if len(continuous) == 0 {
		return report
	}
	var previous []domain.InventoryLine
	if len(in.History) > 0 {
		previous = in.History[0]
	}
	required := ref.RequiredFor(in.StoreID)
	score := risk.ContinuousScore(risk.ContinuousInput{
		Lines:                  continuous,
		Previous:               previous,
		Medians:                medians,
		Required:               required,
		ChronicShortageCount:   summary.CauseCounts[domain.CauseChronicShortage],
		ChronicWasteCount:      summary.CauseCounts[domain.CauseChronicWaste],
		WasteManipulationCount: summary.CauseCounts[domain.CauseWasteManipulation],
		FamilyShortageCount:    familyShortages,
	}, a.cfg.Continuous)
	discipline := risk.Discipline(continuous, a.cfg.Continuous.ExpectedCategories)
	report.Continuous = &score
	report.Discipline = &discipline
	report.UncountedStreaks = risk.UncountedStreaks(continuous, in.History, required)
	return report
}

// finish scores each store against the regional median and builds the
// roll-ups. It runs only after every store task has returned.
func (a *Analyzer) finish(runID, period string, reports []domain.StoreReport, in RegionInput) *domain.RegionReport {
	summaries := make([]domain.StoreRiskSummary, len(reports))
	for i, r := range reports {
		summaries[i] = r.Summary
	}
	median := risk.RegionalLossMedian(summaries)

	for i := range reports {
		reports[i].Score = risk.Score(risk.ScoreInputFor(reports[i], median), a.cfg.Weights)
		reports[i].Summary.Score = reports[i].Score.Total
	}

	return &domain.RegionReport{
		RunID:              runID,
		Period:             period,
		Stores:             reports,
		Managers:           risk.Rollup(reports, in.Reference.Roster, domain.RollupByManager, a.cfg.Risk),
		Regions:            risk.Rollup(reports, in.Reference.Roster, domain.RollupByRegion, a.cfg.Risk),
		Overview:           risk.Overview(in.Lines, a.cfg.Continuous.MinSales),
		RegionalLossMedian: median,
	}
}

// groupByStore splits lines by store, keeping input order within a store.
func groupByStore(lines []domain.InventoryLine) map[string][]domain.InventoryLine {
	out := make(map[string][]domain.InventoryLine)
	for _, l := range lines {
		out[l.StoreID] = append(out[l.StoreID], l)
	}
	return out
}
