package risk

import (
	"sort"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

// CategoryLosses summarizes loss per storage category, sorted by name.
// Lines without a storage category are grouped under "".
func CategoryLosses(lines []domain.InventoryLine) []domain.CategoryLoss {
	byCat := make(map[string]*domain.CategoryLoss)
	for _, l := range lines {
		c, ok := byCat[l.StorageCategory]
		if !ok {
			c = &domain.CategoryLoss{Category: l.StorageCategory}
			byCat[l.StorageCategory] = c
		}
		c.VarianceAmount += l.VarianceAmount
		c.WasteAmount += l.WasteAmount
		c.SalesAmount += l.SalesAmount
		c.ProductCount++
	}

	out := make([]domain.CategoryLoss, 0, len(byCat))
	for _, c := range byCat {
		c.Ratio = round2(productLossPct(c.VarianceAmount, c.WasteAmount, c.SalesAmount))
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
