package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
	"github.com/senirlioglu/envanter-risk-analizi/internal/repository/postgres"
)

// CancellationRepository reads the till line-void log.
type CancellationRepository interface {
	SaveEvents(ctx context.Context, events []domain.CancellationEvent) error
	EventsForStore(ctx context.Context, storeID, period string) ([]domain.CancellationEvent, error)
}

type cancellationRepository struct {
	db *postgres.DB
}

func NewCancellationRepository(db *postgres.DB) CancellationRepository {
	return &cancellationRepository{db: db}
}

func (r *cancellationRepository) SaveEvents(ctx context.Context, events []domain.CancellationEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO cancellation_events (store_id, product_id, till_id, qty, occurred_at)
			VALUES (:store_id, :product_id, :till_id, :qty, :occurred_at)
		`, events)
		if err != nil {
			return fmt.Errorf("failed to save cancellation events: %w", err)
		}
		return nil
	})
}

// EventsForStore returns the store's voids inside period ("2006-01"). An
// empty or unparsable period returns every event of the store.
func (r *cancellationRepository) EventsForStore(ctx context.Context, storeID, period string) ([]domain.CancellationEvent, error) {
	query := `
		SELECT store_id, product_id, till_id, qty, occurred_at
		FROM cancellation_events
		WHERE store_id = ?
	`
	args := []interface{}{storeID}
	if from, to, ok := periodBounds(period); ok {
		query += " AND occurred_at >= ? AND occurred_at < ?"
		args = append(args, from, to)
	}
	query += " ORDER BY occurred_at, product_id"

	var events []domain.CancellationEvent
	if err := r.db.SelectContext(ctx, &events, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("error getting cancellation events: %w", err)
	}
	return events, nil
}

// periodBounds parses a monthly period into a half-open UTC range.
func periodBounds(period string) (time.Time, time.Time, bool) {
	start, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, start.AddDate(0, 1, 0), true
}
