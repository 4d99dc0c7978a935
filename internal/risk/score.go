package risk

import (
	"fmt"
	"math"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

// Weights are the points each factor of the 0-100 score can contribute.
// They must sum to 100. The *At fields set the raw value at which a
// factor earns its full weight.
type Weights struct {
	LossVsMedian     float64 `validate:"gte=0"`
	CategoryShortage float64 `validate:"gte=0"`
	InternalTheft    float64 `validate:"gte=0"`
	Chronic          float64 `validate:"gte=0"`
	DecoySurplus     float64 `validate:"gte=0"`

	LossMultipleAt     float64 `validate:"gt=1"`
	CategoryShortageAt float64 `validate:"gt=0"`
	InternalTheftAt    float64 `validate:"gt=0"`
	ChronicAt          float64 `validate:"gt=0"`
	DecoySurplusAt     float64 `validate:"gt=0"`
}

func DefaultWeights() Weights {
	return Weights{
		LossVsMedian:       30,
		CategoryShortage:   15,
		InternalTheft:      25,
		Chronic:            15,
		DecoySurplus:       15,
		LossMultipleAt:     3,
		CategoryShortageAt: 10,
		InternalTheftAt:    20,
		ChronicAt:          20,
		DecoySurplusAt:     10,
	}
}

func (w Weights) Sum() float64 {
	return w.LossVsMedian + w.CategoryShortage + w.InternalTheft + w.Chronic + w.DecoySurplus
}

func (w Weights) Validate() error {
	if err := validate.Struct(w); err != nil {
		return fmt.Errorf("invalid score weights: %w", err)
	}
	if sum := w.Sum(); math.Abs(sum-100) > 1e-9 {
		return fmt.Errorf("score weights sum to %v, want 100", sum)
	}
	return nil
}

// ScoreInput is one store's raw factors.
type ScoreInput struct {
	LossRatio          float64
	RegionalLossMedian float64
	// CategoryShortageCount is the short SKUs inside flagged categories.
	CategoryShortageCount int
	InternalTheftCount    int
	// ChronicCount is chronic shortage plus chronic waste findings.
	ChronicCount      int
	DecoySurplusCount int
}

// ScoreInputFor derives the score factors from a classified store.
func ScoreInputFor(r domain.StoreReport, regionalMedian float64) ScoreInput {
	in := ScoreInput{
		LossRatio:          r.Summary.LossRatio,
		RegionalLossMedian: regionalMedian,
		InternalTheftCount: r.Summary.InternalTheftCount,
		ChronicCount:       r.Summary.CauseCounts[domain.CauseChronicShortage] + r.Summary.CauseCounts[domain.CauseChronicWaste],
		DecoySurplusCount:  r.DecoySurplusCount,
	}
	for _, c := range r.Categories {
		if c.Flagged {
			in.CategoryShortageCount += c.ShortSKUCount
		}
	}
	return in
}

// Score computes the weighted 0-100 score. Each factor is normalized to
// [0,1] and scaled by its weight, so no factor can exceed its weight.
func Score(in ScoreInput, w Weights) domain.ScoreBreakdown {
	lossRaw := lossMultiple(in.LossRatio, in.RegionalLossMedian, w.LossMultipleAt)
	components := []domain.ScoreComponent{
		component("loss_vs_regional_median", w.LossVsMedian, lossRaw, (lossRaw-1)/(w.LossMultipleAt-1),
			fmt.Sprintf("loss ratio %.2f%% vs regional median %.2f%%", in.LossRatio*100, in.RegionalLossMedian*100)),
		component("category_shortage", w.CategoryShortage, float64(in.CategoryShortageCount),
			float64(in.CategoryShortageCount)/w.CategoryShortageAt, ""),
		component("internal_theft", w.InternalTheft, float64(in.InternalTheftCount),
			float64(in.InternalTheftCount)/w.InternalTheftAt, ""),
		component("chronic", w.Chronic, float64(in.ChronicCount),
			float64(in.ChronicCount)/w.ChronicAt, ""),
		component("decoy_surplus", w.DecoySurplus, float64(in.DecoySurplusCount),
			float64(in.DecoySurplusCount)/w.DecoySurplusAt, ""),
	}

	var total float64
	for _, c := range components {
		total += c.Points
	}
	total = math.Min(total, 100)
	return domain.ScoreBreakdown{
		Components: components,
		Total:      total,
		Max:        100,
		Level:      ScoreLevel(total),
	}
}

// lossMultiple is the store's loss ratio as a multiple of the regional
// median. Without a regional median any loss counts as fully deviant.
func lossMultiple(ratio, median, fullAt float64) float64 {
	if ratio <= 0 {
		return 0
	}
	if median <= 0 {
		return fullAt
	}
	return ratio / median
}

func component(name string, weight, raw, normalized float64, detail string) domain.ScoreComponent {
	if math.IsNaN(normalized) || normalized < 0 {
		normalized = 0
	}
	normalized = math.Min(normalized, 1)
	return domain.ScoreComponent{
		Name:   name,
		Weight: weight,
		Raw:    raw,
		Points: round2(normalized * weight),
		Detail: detail,
	}
}

// ScoreLevel maps a 0-100 score onto a risk level.
func ScoreLevel(score float64) domain.RiskLevel {
	switch {
	case score <= 25:
		return domain.RiskClean
	case score <= 50:
		return domain.RiskCaution
	case score <= 75:
		return domain.RiskRisky
	default:
		return domain.RiskCritical
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
