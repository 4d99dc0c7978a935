package risk

import (
	"fmt"
	"math"
	"sort"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
	"github.com/senirlioglu/envanter-risk-analizi/internal/normalizer"
)

// ContinuousConfig tunes the continuous-inventory score.
type ContinuousConfig struct {
	MinSales          float64 `validate:"gte=0"`
	DeviationMultiple float64 `validate:"gt=1"`
	AbnormalQty       float64 `validate:"gt=0"`
	AbnormalExempt    []string
	RepeatTolerance   float64 `validate:"gte=0,lt=1"`
	RoundCategories   []string
	// ExpectedCategories are the storage categories counted every cycle.
	ExpectedCategories []string `validate:"min=1"`
}

func DefaultContinuousConfig() ContinuousConfig {
	return ContinuousConfig{
		MinSales:           500,
		DeviationMultiple:  1.5,
		AbnormalQty:        50,
		AbnormalExempt:     []string{"PATATES", "SOĞAN", "SOGAN"},
		RepeatTolerance:    0.03,
		RoundCategories:    []string{"Meyve/Sebz", "Et-Tavuk"},
		ExpectedCategories: []string{"Meyve/Sebz", "Et-Tavuk", "Ekmek"},
	}
}

func (c ContinuousConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid continuous score config: %w", err)
	}
	return nil
}

// ContinuousInput is one store's data for the continuous-inventory score.
type ContinuousInput struct {
	Lines []domain.InventoryLine
	// Previous is the store's preceding count, if any.
	Previous []domain.InventoryLine
	Medians  map[string]domain.ProductMedian
	Required []string

	ChronicShortageCount   int
	ChronicWasteCount      int
	WasteManipulationCount int
	FamilyShortageCount    int
}

// ContinuousMax is the highest attainable continuous score.
const ContinuousMax = 97

type band struct {
	at     float64
	points float64
}

// banded returns the points of the first band whose threshold v reaches.
// Bands are ordered from the highest threshold down.
func banded(v float64, bands ...band) float64 {
	for _, b := range bands {
		if v >= b.at {
			return b.points
		}
	}
	return 0
}

// ContinuousScore is the ten-factor score for continuous (weekly) counts
// of fresh categories.
func ContinuousScore(in ContinuousInput, cfg ContinuousConfig) domain.ScoreBreakdown {
	var components []domain.ScoreComponent
	add := func(name string, max, raw, points float64, detail string) {
		components = append(components, domain.ScoreComponent{
			Name: name, Weight: max, Raw: raw, Points: points, Detail: detail,
		})
	}

	deviating := len(MedianDeviations(in.Lines, in.Medians, cfg.DeviationMultiple, cfg.MinSales))
	add("median_deviation", 20, float64(deviating),
		banded(float64(deviating), band{15, 20}, band{10, 15}, band{5, 10}, band{2, 5}),
		fmt.Sprintf("%d products above %.1fx the regional median", deviating, cfg.DeviationMultiple))

	var cancelled float64
	for _, l := range in.Lines {
		cancelled += l.CancelledLineAmount
	}
	cancelled = math.Abs(cancelled)
	var cancelPoints float64
	switch {
	case cancelled <= 100:
		cancelPoints = 0
	case cancelled <= 500:
		cancelPoints = 4
	case cancelled <= 1500:
		cancelPoints = 8
	default:
		cancelPoints = 12
	}
	add("cancelled_lines", 12, cancelled, cancelPoints, "")

	add("chronic_shortage", 10, float64(in.ChronicShortageCount),
		banded(float64(in.ChronicShortageCount), band{10, 10}, band{5, 6}, band{2, 3}), "")
	add("family_shortage", 5, float64(in.FamilyShortageCount),
		banded(float64(in.FamilyShortageCount), band{3, 5}, band{1, 2}), "")
	add("chronic_waste", 8, float64(in.ChronicWasteCount),
		banded(float64(in.ChronicWasteCount), band{8, 8}, band{4, 5}, band{2, 2}), "")
	add("waste_manipulation", 8, float64(in.WasteManipulationCount),
		banded(float64(in.WasteManipulationCount), band{5, 8}, band{3, 5}, band{1, 2}), "")

	uncounted := len(Uncounted(in.Lines, in.Required))
	add("uncounted_required", 8, float64(uncounted),
		banded(float64(uncounted), band{10, 8}, band{5, 5}, band{2, 2}), "")

	abnormal := len(AbnormalCounts(in.Lines, cfg))
	add("abnormal_quantity", 10, float64(abnormal),
		banded(float64(abnormal), band{5, 10}, band{3, 6}, band{1, 3}), "")

	repeated := len(RepeatedCounts(in.Lines, in.Previous, cfg.RepeatTolerance))
	add("repeated_quantity", 8, float64(repeated),
		banded(float64(repeated), band{10, 8}, band{5, 5}, band{2, 2}), "")

	var share float64
	if len(in.Lines) > 0 {
		share = float64(len(RoundCounts(in.Lines, cfg))) / float64(len(in.Lines))
	}
	var roundPoints float64
	switch {
	case share > 0.35:
		roundPoints = 8
	case share > 0.20:
		roundPoints = 5
	case share > 0.10:
		roundPoints = 2
	}
	add("round_numbers", 8, round2(share), roundPoints, "")

	var total float64
	for _, c := range components {
		total += c.Points
	}
	return domain.ScoreBreakdown{
		Components: components,
		Total:      total,
		Max:        ContinuousMax,
		Level:      ScoreLevel(total),
	}
}

// Uncounted returns required products missing from the count.
func Uncounted(lines []domain.InventoryLine, required []string) []string {
	counted := make(domain.ProductSet, len(lines))
	for _, l := range lines {
		counted[l.ProductID] = struct{}{}
	}
	var out []string
	for _, id := range required {
		if !counted.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// UncountedStreaks walks back from the current count through history
// (most recent first) and reports required products missing from at
// least two consecutive counts. Three or more is High.
func UncountedStreaks(current []domain.InventoryLine, history [][]domain.InventoryLine, required []string) []domain.UncountedStreak {
	counts := make([]domain.ProductSet, 0, len(history)+1)
	for _, lines := range append([][]domain.InventoryLine{current}, history...) {
		set := make(domain.ProductSet, len(lines))
		for _, l := range lines {
			set[l.ProductID] = struct{}{}
		}
		counts = append(counts, set)
	}

	var out []domain.UncountedStreak
	for _, id := range required {
		streak := 0
		for _, counted := range counts {
			if counted.Has(id) {
				break
			}
			streak++
		}
		if streak < 2 {
			continue
		}
		sev := domain.SeverityMedium
		if streak >= 3 {
			sev = domain.SeverityHigh
		}
		out = append(out, domain.UncountedStreak{ProductID: id, Counts: streak, Severity: sev})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Counts != out[j].Counts {
			return out[i].Counts > out[j].Counts
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// ContinuousLines keeps the lines that came from continuous exports.
func ContinuousLines(lines []domain.InventoryLine) []domain.InventoryLine {
	var out []domain.InventoryLine
	for _, l := range lines {
		if l.Kind == domain.KindContinuous {
			out = append(out, l)
		}
	}
	return out
}

// AbnormalCounts returns lines counted above cfg.AbnormalQty, except bulk
// produce such as potatoes and onions.
func AbnormalCounts(lines []domain.InventoryLine, cfg ContinuousConfig) []domain.InventoryLine {
	exempt := make([]string, 0, len(cfg.AbnormalExempt))
	for _, e := range cfg.AbnormalExempt {
		exempt = append(exempt, normalizer.Fold(e))
	}
	var out []domain.InventoryLine
	for _, l := range lines {
		if l.CountedQty <= cfg.AbnormalQty {
			continue
		}
		if normalizer.ContainsAny(normalizer.Fold(l.ProductName), exempt...) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// RepeatedCounts returns lines whose count is within tolerance of the
// previous count, a sign the count was copied rather than taken.
func RepeatedCounts(lines, previous []domain.InventoryLine, tolerance float64) []domain.InventoryLine {
	if len(previous) == 0 {
		return nil
	}
	prev := make(map[string]float64, len(previous))
	for _, p := range previous {
		prev[p.ProductID] = p.CountedQty
	}
	var out []domain.InventoryLine
	for _, l := range lines {
		before, ok := prev[l.ProductID]
		if !ok || before <= 0 {
			continue
		}
		if math.Abs(l.CountedQty-before)/before <= tolerance {
			out = append(out, l)
		}
	}
	return out
}

// RoundCounts returns lines in the weighed categories counted as a
// multiple of five above five, a sign of estimated rather than weighed
// counts. Without storage categories every line is considered.
func RoundCounts(lines []domain.InventoryLine, cfg ContinuousConfig) []domain.InventoryLine {
	hasCategory := false
	for _, l := range lines {
		if l.StorageCategory != "" {
			hasCategory = true
			break
		}
	}
	var out []domain.InventoryLine
	for _, l := range lines {
		if hasCategory && !inCategories(l.StorageCategory, cfg.RoundCategories) {
			continue
		}
		q := l.CountedQty
		if q > 5 && q == math.Trunc(q) && math.Mod(q, 5) == 0 {
			out = append(out, l)
		}
	}
	return out
}

func inCategories(category string, categories []string) bool {
	folded := normalizer.Fold(category)
	for _, c := range categories {
		if folded == normalizer.Fold(c) {
			return true
		}
	}
	return false
}

// Discipline reports which expected storage categories a store counted.
func Discipline(lines []domain.InventoryLine, expected []string) domain.CountDiscipline {
	d := domain.CountDiscipline{
		Expected:   len(expected),
		Categories: make(map[string]bool, len(expected)),
	}
	for _, cat := range expected {
		d.Categories[cat] = false
	}
	for _, l := range lines {
		for _, cat := range expected {
			if !d.Categories[cat] && inCategories(l.StorageCategory, []string{cat}) {
				d.Categories[cat] = true
			}
		}
	}
	for _, done := range d.Categories {
		if done {
			d.Done++
		}
	}
	if d.Expected > 0 {
		d.Ratio = round2(float64(d.Done) / float64(d.Expected) * 100)
	}
	return d
}
