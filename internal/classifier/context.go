package classifier

import (
	"sort"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

// ContextInput is the optional data a store's classification can draw on.
// Every field may be empty.
type ContextInput struct {
	// History holds earlier periods of the same store, newest first.
	// History[0] is the immediately preceding period.
	History [][]domain.InventoryLine
	// Cancellations are till-level voids, used only for rationale text.
	Cancellations []domain.CancellationEvent
	Decoys        domain.ProductSet
}

// StoreContext is what a single line cannot know about itself. Lookups are
// indexed once per store.
type StoreContext struct {
	Thresholds Thresholds

	history       []map[string]domain.InventoryLine
	cancellations map[string][]domain.CancellationEvent
	decoys        domain.ProductSet
}

func NewStoreContext(th Thresholds, in ContextInput) *StoreContext {
	sc := &StoreContext{
		Thresholds:    th,
		history:       make([]map[string]domain.InventoryLine, 0, len(in.History)),
		cancellations: make(map[string][]domain.CancellationEvent),
		decoys:        in.Decoys,
	}
	for _, period := range in.History {
		idx := make(map[string]domain.InventoryLine, len(period))
		for _, l := range period {
			idx[l.ProductID] = l
		}
		sc.history = append(sc.history, idx)
	}
	for _, ev := range in.Cancellations {
		sc.cancellations[ev.ProductID] = append(sc.cancellations[ev.ProductID], ev)
	}
	for id := range sc.cancellations {
		events := sc.cancellations[id]
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].OccurredAt.Before(events[j].OccurredAt)
		})
	}
	return sc
}

func (c *StoreContext) thresholds() Thresholds {
	if c == nil {
		return DefaultThresholds()
	}
	return c.Thresholds
}

// Prior returns the product's line from the preceding period.
func (c *StoreContext) Prior(productID string) (domain.InventoryLine, bool) {
	return c.lookup(0, productID)
}

func (c *StoreContext) lookup(age int, productID string) (domain.InventoryLine, bool) {
	if c == nil || age >= len(c.history) {
		return domain.InventoryLine{}, false
	}
	l, ok := c.history[age][productID]
	return l, ok
}

// Cancellations returns the product's void events in time order.
func (c *StoreContext) Cancellations(productID string) []domain.CancellationEvent {
	if c == nil {
		return nil
	}
	return c.cancellations[productID]
}

func (c *StoreContext) IsDecoy(productID string) bool {
	if c == nil {
		return false
	}
	return c.decoys.Has(productID)
}
