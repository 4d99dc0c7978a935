// Package risk rolls classifier output up into store, manager and region
// risk figures.
package risk

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

// Config holds the OR-of-thresholds level rule. Ratio thresholds are
// fractions (0.02 = 2%) and inclusive; count thresholds are strict.
type Config struct {
	CriticalLossRatio float64 `validate:"gtefield=RiskyLossRatio"`
	RiskyLossRatio    float64 `validate:"gtefield=CautionLossRatio"`
	CautionLossRatio  float64 `validate:"gt=0"`

	CriticalTheftCount int `validate:"gtefield=RiskyTheftCount"`
	RiskyTheftCount    int `validate:"gtefield=CautionTheftCount"`
	CautionTheftCount  int `validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		CriticalLossRatio:  0.02,
		RiskyLossRatio:     0.015,
		CautionLossRatio:   0.01,
		CriticalTheftCount: 50,
		RiskyTheftCount:    30,
		CautionTheftCount:  15,
	}
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid risk config: %w", err)
	}
	return nil
}

// ratioEps keeps a ratio computed as exactly 2% from landing below 0.02.
const ratioEps = 1e-12

// Level applies the thresholds. Either signal alone escalates the level.
func (c Config) Level(lossRatio float64, internalTheftCount int) domain.RiskLevel {
	switch {
	case lossRatio+ratioEps >= c.CriticalLossRatio || internalTheftCount > c.CriticalTheftCount:
		return domain.RiskCritical
	case lossRatio+ratioEps >= c.RiskyLossRatio || internalTheftCount > c.RiskyTheftCount:
		return domain.RiskRisky
	case lossRatio+ratioEps >= c.CautionLossRatio || internalTheftCount > c.CautionTheftCount:
		return domain.RiskCaution
	default:
		return domain.RiskClean
	}
}

// LossRatio is shortage / sales, or 0 without sales.
func LossRatio(shortage, sales float64) float64 {
	if sales <= 0 {
		return 0
	}
	r := math.Abs(shortage) / sales
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Summarize computes a store's totals, cause counts and risk level.
func Summarize(storeID, period string, lines []domain.InventoryLine, records []domain.ClassificationRecord, cfg Config) domain.StoreRiskSummary {
	s := domain.StoreRiskSummary{
		StoreID:     storeID,
		Period:      period,
		LineCount:   len(lines),
		CauseCounts: make(map[domain.Cause]int),
	}
	for _, l := range lines {
		if s.StoreName == "" {
			s.StoreName = l.StoreName
		}
		s.TotalSales += l.SalesAmount
		s.TotalVariance += l.VarianceAmount
		s.TotalWaste += l.WasteAmount
		s.NetEffect += l.NetEffectAmount()
		if l.VarianceAmount < 0 {
			s.TotalShortage += -l.VarianceAmount
		}
	}
	for _, c := range primaryCauses(records) {
		s.CauseCounts[c]++
	}
	s.InternalTheftCount = s.CauseCounts[domain.CauseInternalTheft]
	s.LossRatio = LossRatio(s.TotalShortage, s.TotalSales)
	s.RiskLevel = cfg.Level(s.LossRatio, s.InternalTheftCount)
	return s
}

// primaryCauses keeps one cause per product, the one with the lowest rank,
// so a product is never counted under two causes.
func primaryCauses(records []domain.ClassificationRecord) map[string]domain.Cause {
	out := make(map[string]domain.Cause, len(records))
	for _, r := range records {
		if cur, ok := out[r.ProductID]; !ok || r.Cause.Rank() < cur.Rank() {
			out[r.ProductID] = r.Cause
		}
	}
	return out
}
