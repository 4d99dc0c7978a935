package normalizer

import (
	"strings"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

// continuousCategories are the fresh storage categories counted weekly.
var continuousCategories = []string{"et-tavuk", "ekmek", "meyve/sebz"}

// DetectKind tells a continuous export from a partial one. A storage group
// naming "Sürekli" marks a continuous export; a prior-variance column marks
// a partial one; failing both, any fresh storage category means continuous.
func DetectKind(header []string, records [][]string) domain.InventoryKind {
	return detectKind(MapColumns(header), records)
}

func detectKind(cols ColumnMap, records [][]string) domain.InventoryKind {
	if cols.Has(FieldStorageGroup) {
		idx := cols.Index(FieldStorageGroup)
		for _, r := range records {
			if idx < len(r) && strings.Contains(Fold(r[idx]), "surekli") {
				return domain.KindContinuous
			}
		}
	}
	if cols.Has(FieldPriorQty) || cols.Has(FieldPriorAmount) {
		return domain.KindPartial
	}
	if cols.Has(FieldStorageCategory) {
		idx := cols.Index(FieldStorageCategory)
		for _, r := range records {
			if idx < len(r) && IsContinuousCategory(r[idx]) {
				return domain.KindContinuous
			}
		}
	}
	return domain.KindPartial
}

// IsContinuousCategory reports whether a storage category is counted weekly.
func IsContinuousCategory(category string) bool {
	folded := Fold(category)
	if folded == "" {
		return false
	}
	for _, c := range continuousCategories {
		if folded == c {
			return true
		}
	}
	return false
}
