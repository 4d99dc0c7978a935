// Package classifier holds the per-product shrinkage detectors. Every
// detector is a pure function of one normalized line plus the store context.
package classifier

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

// CategoryRule selects the lines of a watched category by keyword.
// Keywords are matched against the folded product name and group.
type CategoryRule struct {
	Name          string   `mapstructure:"name" validate:"required"`
	NameKeywords  []string `mapstructure:"name_keywords"`
	GroupKeywords []string `mapstructure:"group_keywords"`
	Note          string   `mapstructure:"note"`
}

// Thresholds are the tunable constants of the rule set.
type Thresholds struct {
	BalanceTolerance float64 `validate:"gte=0"`

	InternalTheftMinUnitPrice float64 `validate:"gte=0"`
	InternalTheftMaxRatio     float64 `validate:"gt=0"`
	DeviationVeryHigh         float64 `validate:"gte=0"`
	DeviationHigh             float64 `validate:"gtefield=DeviationVeryHigh"`
	DeviationMedium           float64 `validate:"gtefield=DeviationHigh"`
	DeviationLowMedium        float64 `validate:"gtefield=DeviationMedium"`

	MaterialityFloor     float64 `validate:"gt=0"`
	ExternalHighMultiple float64 `validate:"gte=1"`

	FamilyTolerance     float64 `validate:"gte=0"`
	FamilySizeTolerance float64 `validate:"gte=0,lt=1"`

	LowValueThreshold float64 `validate:"gt=0"`
	FragmentedCount   int     `validate:"gte=1"`

	Categories []CategoryRule `validate:"dive"`
}

var (
	TobaccoRule = CategoryRule{
		Name: "tobacco",
		NameKeywords: []string{
			"sigara", "winston", "marlboro", "camel", "parliament",
			"kent", "tekel", "polo", "muratti", "lark",
		},
		GroupKeywords: []string{"tutun", "sigara"},
	}

	BreadRule = CategoryRule{
		Name: "bread",
		NameKeywords: []string{
			"ekmek", "firin", "somun", "pide", "simit", "pogaca", "francala",
		},
		Note: "similar products may be mixed up, run the family analysis",
	}
)

func DefaultThresholds() Thresholds {
	return Thresholds{
		BalanceTolerance:          domain.DefaultBalanceTolerance,
		InternalTheftMinUnitPrice: 100,
		InternalTheftMaxRatio:     5,
		DeviationVeryHigh:         0,
		DeviationHigh:             2,
		DeviationMedium:           5,
		DeviationLowMedium:        10,
		MaterialityFloor:          50,
		ExternalHighMultiple:      10,
		FamilyTolerance:           2,
		FamilySizeTolerance:       0.30,
		LowValueThreshold:         100,
		FragmentedCount:           10,
		Categories:                []CategoryRule{TobaccoRule, BreadRule},
	}
}

var validate = validator.New()

// Validate checks the thresholds are internally consistent.
func (t Thresholds) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid classifier thresholds: %w", err)
	}
	return nil
}
