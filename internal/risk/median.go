package risk

import (
	"math"
	"sort"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

// Median of values; 0 for an empty slice. values is not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		std += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(std / float64(len(values)))
}

// productLossPct is (|variance| + |waste|) / sales * 100.
func productLossPct(variance, waste, sales float64) float64 {
	if sales <= 0 {
		return 0
	}
	return (math.Abs(variance) + math.Abs(waste)) / sales * 100
}

// ProductMedians computes, per product, the distribution of store loss
// percentages across the region. Stores selling no more than minSales of a
// product are left out.
func ProductMedians(lines []domain.InventoryLine, minSales float64) map[string]domain.ProductMedian {
	type agg struct{ variance, waste, sales float64 }
	perStore := make(map[string]map[string]*agg)
	for _, l := range lines {
		stores, ok := perStore[l.ProductID]
		if !ok {
			stores = make(map[string]*agg)
			perStore[l.ProductID] = stores
		}
		a, ok := stores[l.StoreID]
		if !ok {
			a = &agg{}
			stores[l.StoreID] = a
		}
		a.variance += l.VarianceAmount
		a.waste += l.WasteAmount
		a.sales += l.SalesAmount
	}

	out := make(map[string]domain.ProductMedian, len(perStore))
	for productID, stores := range perStore {
		ratios := make([]float64, 0, len(stores))
		for _, a := range stores {
			if a.sales > minSales {
				ratios = append(ratios, productLossPct(a.variance, a.waste, a.sales))
			}
		}
		if len(ratios) == 0 {
			continue
		}
		sort.Float64s(ratios)
		mean, std := meanStd(ratios)
		out[productID] = domain.ProductMedian{
			ProductID: productID,
			Median:    Median(ratios),
			Mean:      mean,
			Std:       std,
			Count:     len(ratios),
		}
	}
	return out
}

// MedianDeviations lists a store's products whose loss percentage exceeds
// multiple times the regional median, largest multiple first.
func MedianDeviations(lines []domain.InventoryLine, medians map[string]domain.ProductMedian, multiple, minSales float64) []domain.MedianDeviation {
	var out []domain.MedianDeviation
	for _, l := range lines {
		m, ok := medians[l.ProductID]
		if !ok || m.Median <= 0 || l.SalesAmount < minSales {
			continue
		}
		ratio := productLossPct(l.VarianceAmount, l.WasteAmount, l.SalesAmount)
		if ratio <= m.Median*multiple {
			continue
		}
		times := ratio / m.Median
		sev := domain.SeverityMedium
		switch {
		case times > 3:
			sev = domain.SeverityVeryHigh
		case times > 2:
			sev = domain.SeverityHigh
		}
		out = append(out, domain.MedianDeviation{
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			StoreRatio:   round2(ratio),
			RegionMedian: round2(m.Median),
			Multiple:     math.Round(times*10) / 10,
			Severity:     sev,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Multiple != out[j].Multiple {
			return out[i].Multiple > out[j].Multiple
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// RegionalLossMedian is the median store loss ratio.
func RegionalLossMedian(summaries []domain.StoreRiskSummary) float64 {
	ratios := make([]float64, 0, len(summaries))
	for _, s := range summaries {
		ratios = append(ratios, s.LossRatio)
	}
	return Median(ratios)
}
