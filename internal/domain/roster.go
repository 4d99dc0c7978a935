package domain

import (
	"sort"
	"strings"
)

// Unassigned is the group key for stores missing from the roster.
const Unassigned = "UNASSIGNED"

// StoreAssignment maps a store to its sales manager and regional manager.
type StoreAssignment struct {
	StoreID   string `json:"store_id" db:"store_id"`
	StoreName string `json:"store_name" db:"store_name"`
	Manager   string `json:"manager" db:"manager"`
	Region    string `json:"region" db:"region"`
}

// Roster is the injected store -> manager/region table.
type Roster map[string]StoreAssignment

func NewRoster(assignments []StoreAssignment) Roster {
	r := make(Roster, len(assignments))
	for _, a := range assignments {
		id := strings.TrimSpace(a.StoreID)
		if id == "" {
			continue
		}
		a.StoreID = id
		r[id] = a
	}
	return r
}

// GroupKey returns the manager or region of a store, or Unassigned.
func (r Roster) GroupKey(storeID string, kind RollupKind) string {
	a, ok := r[storeID]
	if !ok {
		return Unassigned
	}
	var key string
	switch kind {
	case RollupByManager:
		key = a.Manager
	case RollupByRegion:
		key = a.Region
	}
	if strings.TrimSpace(key) == "" {
		return Unassigned
	}
	return key
}

// StoresFor lists the stores assigned to key, sorted.
func (r Roster) StoresFor(kind RollupKind, key string) []string {
	var ids []string
	for id := range r {
		if r.GroupKey(id, kind) == key {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Assignments returns the roster as a slice sorted by store id.
func (r Roster) Assignments() []StoreAssignment {
	out := make([]StoreAssignment, 0, len(r))
	for _, a := range r {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StoreID < out[j].StoreID })
	return out
}
