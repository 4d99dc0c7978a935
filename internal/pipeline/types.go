package pipeline

import (
	"context"
	"fmt"

	"github.com/senirlioglu/envanter-risk-analizi/internal/classifier"
	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
	"github.com/senirlioglu/envanter-risk-analizi/internal/normalizer"
	"github.com/senirlioglu/envanter-risk-analizi/internal/ranker"
	"github.com/senirlioglu/envanter-risk-analizi/internal/risk"
)

// PriorPeriodSource supplies earlier counts of a store. Implementations
// return domain.ErrNotFound from PreviousPeriod when there is no earlier
// period.
type PriorPeriodSource interface {
	PreviousPeriod(ctx context.Context, storeID, period string) (string, error)
	LinesForPeriod(ctx context.Context, storeID, period string) ([]domain.InventoryLine, error)
}

// CancellationSource supplies till-level line voids of a store.
type CancellationSource interface {
	EventsForStore(ctx context.Context, storeID, period string) ([]domain.CancellationEvent, error)
}

// Config holds every tunable of an analysis run.
type Config struct {
	WorkerCount  int // Number of stores analyzed concurrently
	TopN         int
	HistoryDepth int // Earlier periods fetched per store for streaks

	Normalize  normalizer.Options
	Thresholds classifier.Thresholds
	Risk       risk.Config
	Weights    risk.Weights
	Continuous risk.ContinuousConfig
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		WorkerCount:  4,
		TopN:         ranker.DefaultN,
		HistoryDepth: 3,
		Normalize:    normalizer.Options{WasteLossSign: normalizer.WasteLossNegative, DecimalComma: true},
		Thresholds:   classifier.DefaultThresholds(),
		Risk:         risk.DefaultConfig(),
		Weights:      risk.DefaultWeights(),
		Continuous:   risk.DefaultContinuousConfig(),
	}
}

// Validate checks every nested threshold set.
func (c Config) Validate() error {
	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.WorkerCount)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if err := c.Risk.Validate(); err != nil {
		return err
	}
	if err := c.Continuous.Validate(); err != nil {
		return err
	}
	return c.Weights.Validate()
}

// StoreInput is one store's lines plus its optional context.
type StoreInput struct {
	StoreID       string
	Period        string
	Lines         []domain.InventoryLine
	History       [][]domain.InventoryLine
	Cancellations []domain.CancellationEvent
}

// RegionInput is the input of a whole run: lines of any number of stores.
type RegionInput struct {
	Period    string
	Source    string
	Lines     []domain.InventoryLine
	Reference domain.ReferenceData
}
