// Package report renders a domain.RegionReport as flat tables, CSV files
// and an XLSX workbook.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

// Table is one sheet of the report.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Sheet names, also used as CSV file names.
const (
	SheetStores     = "Stores"
	SheetTopN       = "TopN"
	SheetRecords    = "Records"
	SheetFamilies   = "Families"
	SheetCategories = "Categories"
	SheetManagers   = "Managers"
	SheetRegions    = "Regions"
	SheetOverview   = "Overview"
)

// BuildTables flattens the report. Table order is fixed and rows follow
// the report's own ordering, so equal reports give equal tables.
func BuildTables(r *domain.RegionReport) []Table {
	return []Table{
		storesTable(r),
		topNTable(r),
		recordsTable(r),
		familiesTable(r),
		categoriesTable(r),
		rollupTable(SheetManagers, r.Managers),
		rollupTable(SheetRegions, r.Regions),
		overviewTable(r.Overview),
	}
}

func storesTable(r *domain.RegionReport) Table {
	t := Table{
		Name: SheetStores,
		Header: []string{
			"Store", "Store Name", "Period", "Lines", "Sales", "Variance", "Shortage", "Waste",
			"Net Effect", "Loss Ratio %", "Internal Theft", "Risk Level", "Score", "Score Level",
			"Continuous Score", "Continuous Level", "Count Discipline %", "Uncounted Streaks",
			"Low Value Gaps", "Fragmented", "Decoy Surplus",
		},
	}
	for _, s := range r.Stores {
		sum := s.Summary
		row := []any{
			sum.StoreID, sum.StoreName, sum.Period, sum.LineCount,
			money(sum.TotalSales), money(sum.TotalVariance), money(sum.TotalShortage), money(sum.TotalWaste),
			money(sum.NetEffect), percent(sum.LossRatio), sum.InternalTheftCount, sum.RiskLevel.String(),
			s.Score.Total, s.Score.Level.String(),
		}
		row = append(row, continuousCells(s)...)
		row = append(row, s.LowValue.Count, yesNo(s.LowValue.Fragmented), s.DecoySurplusCount)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// continuousCells are blank for stores without continuous counts.
func continuousCells(s domain.StoreReport) []any {
	if s.Continuous == nil {
		return []any{"", "", "", ""}
	}
	var discipline any = ""
	if s.Discipline != nil {
		discipline = s.Discipline.Ratio
	}
	return []any{s.Continuous.Total, s.Continuous.Level.String(), discipline, len(s.UncountedStreaks)}
}

func topNTable(r *domain.RegionReport) Table {
	t := Table{
		Name: SheetTopN,
		Header: []string{
			"Store", "Rank", "Product", "Product Name", "Group", "Variance Qty", "Partial Qty",
			"Prior Qty", "Net Position", "Cancelled Qty", "Variance Amount", "Net Effect",
			"Cause", "Severity", "Rationale", "Action",
		},
	}
	for _, s := range r.Stores {
		for _, it := range s.TopN {
			t.Rows = append(t.Rows, []any{
				s.Summary.StoreID, it.Rank, it.ProductID, it.ProductName, it.ProductGroup,
				quantity(it.VarianceQty), quantity(it.PartialCountQty), quantity(it.PriorVarianceQty),
				quantity(it.NetPosition), quantity(it.CancelledLineQty), money(it.VarianceAmount),
				money(it.NetEffectAmount), it.Cause.Label(), it.Severity.String(), it.Rationale,
				it.RecommendedAction,
			})
		}
	}
	return t
}

func recordsTable(r *domain.RegionReport) Table {
	t := Table{
		Name:   SheetRecords,
		Header: []string{"Store", "Product", "Product Name", "Cause", "Severity", "Net Position", "Net Effect", "Rationale", "Action"},
	}
	for _, s := range r.Stores {
		for _, rec := range s.Records {
			t.Rows = append(t.Rows, []any{
				rec.StoreID, rec.ProductID, rec.ProductName, rec.Cause.Label(), rec.Severity.String(),
				quantity(rec.NetPosition), money(rec.NetEffectAmount), rec.Rationale, rec.RecommendedAction,
			})
		}
	}
	return t
}

func familiesTable(r *domain.RegionReport) Table {
	t := Table{
		Name:   SheetFamilies,
		Header: []string{"Store", "Family", "Group", "Brand", "Products", "Variance Sum", "Partial Sum", "Prior Sum", "Net Sum", "Outcome", "Severity", "Rationale"},
	}
	for _, s := range r.Stores {
		for _, f := range s.Families {
			t.Rows = append(t.Rows, []any{
				s.Summary.StoreID, f.Key, f.ProductGroup, f.Brand, strings.Join(f.ProductIDs, ", "),
				quantity(f.VarianceSum), quantity(f.PartialSum), quantity(f.PriorSum), quantity(f.NetSum),
				string(f.Outcome), f.Severity.String(), f.Rationale,
			})
		}
	}
	return t
}

func categoriesTable(r *domain.RegionReport) Table {
	t := Table{
		Name:   SheetCategories,
		Header: []string{"Store", "Category", "SKUs", "Short SKUs", "Net Position", "Shortage Qty", "Shortage Amount", "Sales", "Waste Recorded", "Flagged", "Note"},
	}
	for _, s := range r.Stores {
		for _, c := range s.Categories {
			t.Rows = append(t.Rows, []any{
				s.Summary.StoreID, c.Category, c.SKUCount, c.ShortSKUCount, quantity(c.NetPosition),
				quantity(c.ShortageQty), money(c.ShortageAmount), money(c.SalesAmount),
				yesNo(c.WasteRecorded), yesNo(c.Flagged), c.Note,
			})
		}
	}
	return t
}

func rollupTable(name string, rollups []domain.RollupSummary) Table {
	t := Table{
		Name: name,
		Header: []string{
			"Key", "Stores", "Store IDs", "Sales", "Variance", "Shortage", "Waste", "Loss Ratio %",
			"Internal Theft", "Level", "Mean Score", "Median Score", "Min Score", "Max Score", "Score Levels",
		},
	}
	for _, ru := range rollups {
		t.Rows = append(t.Rows, []any{
			ru.Key, ru.StoreCount, strings.Join(ru.StoreIDs, ", "),
			money(ru.Totals.Sales), money(ru.Totals.Variance), money(ru.Totals.Shortage), money(ru.Totals.Waste),
			percent(ru.Totals.LossRatio), ru.Totals.InternalTheftCount, ru.Totals.Level.String(),
			ru.Distribution.Mean, ru.Distribution.Median, ru.Distribution.Min, ru.Distribution.Max,
			levelCounts(ru.Distribution.LevelCounts),
		})
	}
	return t
}

func overviewTable(o domain.RegionOverview) Table {
	t := Table{
		Name:   SheetOverview,
		Header: []string{"List", "Rank", "Key", "Name", "Amount", "Sales", "Ratio %"},
	}
	for i, s := range o.TopStores {
		t.Rows = append(t.Rows, []any{"top_stores", i + 1, s.StoreID, s.StoreName, money(s.Loss), money(s.Sales), s.Ratio})
	}
	products := []struct {
		name  string
		items []domain.ProductLoss
	}{
		{"top_shortage", o.TopShortage},
		{"top_waste", o.TopWaste},
		{"top_ratio", o.TopRatio},
	}
	for _, p := range products {
		for i, pl := range p.items {
			t.Rows = append(t.Rows, []any{p.name, i + 1, pl.ProductID, pl.ProductName, money(pl.Amount), money(pl.Sales), pl.Ratio})
		}
	}
	return t
}

func levelCounts(m map[domain.RiskLevel]int) string {
	parts := make([]string, 0, len(m))
	for _, lvl := range domain.RiskLevels {
		if n := m[lvl]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", lvl, n))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

// money rounds to kuruş. Cells stay numeric so spreadsheets can sum them.
func money(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func quantity(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(3).Float64()
	return f
}

func percent(ratio float64) float64 {
	f, _ := decimal.NewFromFloat(ratio).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return f
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// cellString renders a cell for text outputs.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return decimal.NewFromFloat(x).String()
	default:
		return fmt.Sprint(x)
	}
}
