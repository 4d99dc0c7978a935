package domain

import "sort"

// ProductSet is a set of product ids.
type ProductSet map[string]struct{}

func NewProductSet(ids ...string) ProductSet {
	s := make(ProductSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s ProductSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order.
func (s ProductSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ReferenceData is organization-specific lookup data loaded at startup.
type ReferenceData struct {
	Roster Roster
	// Decoys are price-sensitive SKUs where unexplained surplus is suspicious.
	Decoys ProductSet
	// Required are products every store must count each period.
	Required ProductSet
	// Blocked holds per-store products exempt from Required.
	Blocked map[string]ProductSet
}

// RequiredFor returns the products storeID must count.
func (r ReferenceData) RequiredFor(storeID string) []string {
	blocked := r.Blocked[storeID]
	out := make([]string, 0, len(r.Required))
	for _, id := range r.Required.Sorted() {
		if blocked.Has(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
