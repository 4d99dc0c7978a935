// Package reference loads the organization-specific lookup tables (store
// roster, decoy SKUs, required products) from CSV or XLSX files.
package reference

import (
	"fmt"
	"strings"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
	"github.com/senirlioglu/envanter-risk-analizi/internal/ingest"
	"github.com/senirlioglu/envanter-risk-analizi/internal/normalizer"
)

// Files names the optional reference files. Empty paths are skipped.
type Files struct {
	Roster   string
	Decoys   string
	Required string
}

// Load reads every configured file.
func Load(f Files) (domain.ReferenceData, error) {
	ref := domain.ReferenceData{
		Roster:   domain.Roster{},
		Decoys:   domain.ProductSet{},
		Required: domain.ProductSet{},
		Blocked:  map[string]domain.ProductSet{},
	}
	if f.Roster != "" {
		t, err := ingest.ReadFile(f.Roster)
		if err != nil {
			return ref, err
		}
		ref.Roster = domain.NewRoster(ParseRoster(t))
	}
	if f.Decoys != "" {
		t, err := ingest.ReadFile(f.Decoys)
		if err != nil {
			return ref, err
		}
		ref.Decoys = ParseProductList(t)
	}
	if f.Required != "" {
		t, err := ingest.ReadFile(f.Required)
		if err != nil {
			return ref, err
		}
		ref.Required, ref.Blocked = ParseRequired(t)
	}
	return ref, nil
}

// LoadRoster reads a roster file.
func LoadRoster(path string) ([]domain.StoreAssignment, error) {
	t, err := ingest.ReadFile(path)
	if err != nil {
		return nil, err
	}
	assignments := ParseRoster(t)
	if len(assignments) == 0 {
		return nil, fmt.Errorf("roster %s: %w", path, domain.ErrNoRows)
	}
	return assignments, nil
}

type rosterColumns struct {
	store, name, manager, region int
}

func findRosterColumns(header []string) rosterColumns {
	cols := rosterColumns{store: -1, name: -1, manager: -1, region: -1}
	for i, h := range header {
		f := normalizer.Fold(h)
		switch {
		case cols.region < 0 && normalizer.ContainsAny(f, "bolge", "region"):
			cols.region = i
		case cols.manager < 0 && normalizer.ContainsAny(f, "satis mudur", "mudur", "manager"):
			cols.manager = i
		case cols.name < 0 && normalizer.ContainsAny(f, "magaza", "store") && normalizer.ContainsAny(f, "adi", "name"):
			cols.name = i
		case cols.store < 0 && normalizer.ContainsAny(f, "magaza", "store"):
			cols.store = i
		}
	}
	if cols.store < 0 && len(header) > 0 {
		cols.store = 0
	}
	return cols
}

// ParseRoster maps a table with store, store name, manager and region
// columns. Rows without a store id are dropped.
func ParseRoster(t ingest.Table) []domain.StoreAssignment {
	cols := findRosterColumns(t.Header)
	get := func(row []string, idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var out []domain.StoreAssignment
	for _, row := range t.Rows {
		id := strings.TrimSuffix(get(row, cols.store), ".0")
		if id == "" {
			continue
		}
		out = append(out, domain.StoreAssignment{
			StoreID:   id,
			StoreName: get(row, cols.name),
			Manager:   get(row, cols.manager),
			Region:    get(row, cols.region),
		})
	}
	return out
}

func productColumn(header []string) int {
	for i, h := range header {
		if normalizer.ContainsAny(normalizer.Fold(h), "malzeme kodu", "urun kodu", "sku", "product") {
			return i
		}
	}
	return 0
}

// ParseProductList returns the product ids of the product column, or of
// the first column when none is recognized.
func ParseProductList(t ingest.Table) domain.ProductSet {
	col := productColumn(t.Header)
	set := domain.ProductSet{}
	for _, row := range t.Rows {
		if col < len(row) {
			if id := strings.TrimSuffix(strings.TrimSpace(row[col]), ".0"); id != "" {
				set[id] = struct{}{}
			}
		}
	}
	return set
}

// ParseRequired reads the required-product list. An optional store column
// together with a blocked/exempt column marks per-store exemptions.
func ParseRequired(t ingest.Table) (domain.ProductSet, map[string]domain.ProductSet) {
	productCol := productColumn(t.Header)
	storeCol, blockedCol := -1, -1
	for i, h := range t.Header {
		f := normalizer.Fold(h)
		switch {
		case normalizer.ContainsAny(f, "blok", "haric", "exempt", "blocked"):
			blockedCol = i
		case storeCol < 0 && normalizer.ContainsAny(f, "magaza", "store"):
			storeCol = i
		}
	}

	required := domain.ProductSet{}
	blocked := map[string]domain.ProductSet{}
	for _, row := range t.Rows {
		if productCol >= len(row) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimSpace(row[productCol]), ".0")
		if id == "" {
			continue
		}
		if storeCol >= 0 && blockedCol >= 0 && storeCol < len(row) && blockedCol < len(row) && truthy(row[blockedCol]) {
			store := strings.TrimSpace(row[storeCol])
			if blocked[store] == nil {
				blocked[store] = domain.ProductSet{}
			}
			blocked[store][id] = struct{}{}
			continue
		}
		required[id] = struct{}{}
	}
	return required, blocked
}

func truthy(s string) bool {
	switch normalizer.Fold(s) {
	case "1", "x", "evet", "yes", "true", "blok", "blocked":
		return true
	}
	return false
}
