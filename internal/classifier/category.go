package classifier

import (
	"sort"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
	"github.com/senirlioglu/envanter-risk-analizi/internal/normalizer"
)

// Matches reports whether the line belongs to the category.
func (r CategoryRule) Matches(l domain.InventoryLine) bool {
	if len(r.NameKeywords) > 0 && normalizer.ContainsAny(normalizer.Fold(l.ProductName), foldAll(r.NameKeywords)...) {
		return true
	}
	return len(r.GroupKeywords) > 0 && normalizer.ContainsAny(normalizer.Fold(l.ProductGroup), foldAll(r.GroupKeywords)...)
}

func foldAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		out = append(out, normalizer.Fold(k))
	}
	return out
}

// CategoryShortages sums net position per watched category. A category is
// flagged as a whole when the sum is negative; its SKUs are never flagged
// one by one since shrinkage there is often miscoded between near-identical
// items. Balanced lines are left out of every figure.
func CategoryShortages(lines []domain.InventoryLine, sc *StoreContext) []domain.CategoryShortage {
	rules := sc.thresholds().Categories
	out := make([]domain.CategoryShortage, 0, len(rules))
	for _, rule := range rules {
		cs := domain.CategoryShortage{Category: rule.Name, Note: rule.Note}
		var waste float64
		for _, l := range lines {
			if !rule.Matches(l) || Balanced(l, sc) {
				continue
			}
			if cs.StoreID == "" {
				cs.StoreID = l.StoreID
			}
			cs.SKUCount++
			cs.NetPosition += l.NetPosition()
			cs.SalesAmount += l.SalesAmount
			waste += l.WasteQty
			if l.VarianceQty < 0 {
				cs.ShortSKUCount++
				cs.ShortageQty += l.VarianceQty
				cs.ShortageAmount += l.VarianceAmount
			}
		}
		if cs.SKUCount == 0 {
			continue
		}
		cs.WasteRecorded = waste != 0
		cs.Flagged = cs.NetPosition < 0
		out = append(out, cs)
	}
	return out
}

// LowValueGaps collects shortages with a net effect between -threshold
// and 0. Many of them at one store point to loose control rather than one
// large loss.
func LowValueGaps(lines []domain.InventoryLine, sc *StoreContext) domain.LowValueGaps {
	th := sc.thresholds()
	gaps := domain.LowValueGaps{Threshold: th.LowValueThreshold}
	for _, l := range lines {
		if Balanced(l, sc) {
			continue
		}
		effect := l.NetEffectAmount()
		if effect < 0 && effect > -th.LowValueThreshold {
			gaps.Count++
			gaps.Total += effect
			gaps.ProductIDs = append(gaps.ProductIDs, l.ProductID)
		}
	}
	sort.Strings(gaps.ProductIDs)
	gaps.Fragmented = gaps.Count >= th.FragmentedCount
	return gaps
}
