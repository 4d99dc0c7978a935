package risk

import (
	"math"
	"sort"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

const (
	overviewTopStores   = 10
	overviewTopProducts = 5
)

// Overview builds the region leaderboard: the stores with the highest
// (|variance| + |waste|) / sales and the products with the largest
// shortage, waste and loss ratio. minSales filters the ratio list.
func Overview(lines []domain.InventoryLine, minSales float64) domain.RegionOverview {
	return domain.RegionOverview{
		TopStores:   topStores(lines, overviewTopStores),
		TopShortage: topProducts(lines, overviewTopProducts, 0, shortageAmount),
		TopWaste:    topProducts(lines, overviewTopProducts, 0, wasteAmount),
		TopRatio:    topProducts(lines, overviewTopProducts, minSales, lossRatioPct),
	}
}

func topStores(lines []domain.InventoryLine, n int) []domain.StoreRatio {
	byStore := make(map[string]*domain.StoreRatio)
	for _, l := range lines {
		s, ok := byStore[l.StoreID]
		if !ok {
			s = &domain.StoreRatio{StoreID: l.StoreID, StoreName: l.StoreName}
			byStore[l.StoreID] = s
		}
		s.Variance += l.VarianceAmount
		s.Waste += l.WasteAmount
		s.Sales += l.SalesAmount
	}

	out := make([]domain.StoreRatio, 0, len(byStore))
	for _, s := range byStore {
		if s.StoreName == "" {
			s.StoreName = s.StoreID
		}
		s.Loss = math.Abs(s.Variance) + math.Abs(s.Waste)
		s.Ratio = round2(productLossPct(s.Variance, s.Waste, s.Sales))
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ratio != out[j].Ratio {
			return out[i].Ratio > out[j].Ratio
		}
		return out[i].StoreID < out[j].StoreID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

type productAgg struct {
	loss     domain.ProductLoss
	variance float64
	waste    float64
	stores   map[string]struct{}
}

// metric returns the ranking value of a product, and false to skip it.
type metric func(p *productAgg) (float64, bool)

func shortageAmount(p *productAgg) (float64, bool) {
	return -p.variance, p.variance < 0
}

func wasteAmount(p *productAgg) (float64, bool) {
	return -p.waste, p.waste < 0
}

func lossRatioPct(p *productAgg) (float64, bool) {
	return round2(productLossPct(p.variance, p.waste, p.loss.Sales)), p.loss.Sales > 0
}

func topProducts(lines []domain.InventoryLine, n int, minSales float64, rank metric) []domain.ProductLoss {
	byProduct := make(map[string]*productAgg)
	for _, l := range lines {
		p, ok := byProduct[l.ProductID]
		if !ok {
			p = &productAgg{
				loss:   domain.ProductLoss{ProductID: l.ProductID, ProductName: l.ProductName},
				stores: make(map[string]struct{}),
			}
			byProduct[l.ProductID] = p
		}
		p.variance += l.VarianceAmount
		p.waste += l.WasteAmount
		p.loss.Sales += l.SalesAmount
		p.stores[l.StoreID] = struct{}{}
	}

	out := make([]domain.ProductLoss, 0, len(byProduct))
	for _, p := range byProduct {
		if p.loss.Sales < minSales {
			continue
		}
		v, ok := rank(p)
		if !ok {
			continue
		}
		pl := p.loss
		pl.Amount = v
		pl.Ratio = round2(productLossPct(p.variance, p.waste, p.loss.Sales))
		pl.StoreCount = len(p.stores)
		out = append(out, pl)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
