package risk

import (
	"math"
	"sort"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

// Rollup groups store reports by manager or region. Each group carries two
// separate views: totals recomputed over the summed figures, and the
// distribution of the member stores' scores.
func Rollup(stores []domain.StoreReport, roster domain.Roster, kind domain.RollupKind, cfg Config) []domain.RollupSummary {
	groups := make(map[string][]domain.StoreReport)
	for _, s := range stores {
		key := roster.GroupKey(s.Summary.StoreID, kind)
		groups[key] = append(groups[key], s)
	}

	out := make([]domain.RollupSummary, 0, len(groups))
	for key, members := range groups {
		sort.Slice(members, func(i, j int) bool { return members[i].Summary.StoreID < members[j].Summary.StoreID })
		out = append(out, domain.RollupSummary{
			Kind:         kind,
			Key:          key,
			StoreCount:   len(members),
			StoreIDs:     storeIDs(members),
			Totals:       rollupTotals(members, cfg),
			Distribution: scoreDistribution(members),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func storeIDs(stores []domain.StoreReport) []string {
	ids := make([]string, 0, len(stores))
	for _, s := range stores {
		ids = append(ids, s.Summary.StoreID)
	}
	return ids
}

func rollupTotals(stores []domain.StoreReport, cfg Config) domain.RollupTotals {
	var t domain.RollupTotals
	for _, s := range stores {
		t.Sales += s.Summary.TotalSales
		t.Variance += s.Summary.TotalVariance
		t.Shortage += s.Summary.TotalShortage
		t.Waste += s.Summary.TotalWaste
		t.InternalTheftCount += s.Summary.InternalTheftCount
	}
	t.LossRatio = LossRatio(t.Shortage, t.Sales)
	t.Level = cfg.Level(t.LossRatio, t.InternalTheftCount)
	return t
}

func scoreDistribution(stores []domain.StoreReport) domain.ScoreDistribution {
	d := domain.ScoreDistribution{LevelCounts: make(map[domain.RiskLevel]int)}
	if len(stores) == 0 {
		return d
	}
	scores := make([]float64, 0, len(stores))
	d.Min = math.Inf(1)
	d.Max = math.Inf(-1)
	var sum float64
	for _, s := range stores {
		v := s.Score.Total
		scores = append(scores, v)
		sum += v
		d.Min = math.Min(d.Min, v)
		d.Max = math.Max(d.Max, v)
		d.LevelCounts[s.Score.Level]++
	}
	d.Mean = round2(sum / float64(len(stores)))
	d.Median = Median(scores)
	return d
}
