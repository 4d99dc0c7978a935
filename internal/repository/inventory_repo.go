package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
	"github.com/senirlioglu/envanter-risk-analizi/internal/repository/postgres"
)

// PriorPeriodRepository stores normalized lines so later runs can look back
// at earlier periods of the same store.
type PriorPeriodRepository interface {
	SaveLines(ctx context.Context, lines []domain.InventoryLine) error
	PreviousPeriod(ctx context.Context, storeID, period string) (string, error)
	LinesForPeriod(ctx context.Context, storeID, period string) ([]domain.InventoryLine, error)
	Periods(ctx context.Context, storeID string) ([]string, error)
}

type priorPeriodRepository struct {
	db *postgres.DB
}

func NewPriorPeriodRepository(db *postgres.DB) PriorPeriodRepository {
	return &priorPeriodRepository{db: db}
}

const inventoryColumns = `store_id, period, product_id, store_name, product_name, product_group, brand,
	storage_category, variance_qty, variance_amount, partial_count_qty, partial_count_amount,
	prior_variance_qty, prior_variance_amount, cancelled_line_qty, cancelled_line_amount,
	waste_qty, waste_amount, sales_qty, sales_amount, counted_qty, unit_price`

const lineUpsertQuery = `
	INSERT INTO inventory_lines (` + inventoryColumns + `)
	VALUES (:store_id, :period, :product_id, :store_name, :product_name, :product_group, :brand,
		:storage_category, :variance_qty, :variance_amount, :partial_count_qty, :partial_count_amount,
		:prior_variance_qty, :prior_variance_amount, :cancelled_line_qty, :cancelled_line_amount,
		:waste_qty, :waste_amount, :sales_qty, :sales_amount, :counted_qty, :unit_price)
	ON CONFLICT (store_id, period, product_id) DO UPDATE SET
		store_name = excluded.store_name,
		product_name = excluded.product_name,
		product_group = excluded.product_group,
		brand = excluded.brand,
		storage_category = excluded.storage_category,
		variance_qty = excluded.variance_qty,
		variance_amount = excluded.variance_amount,
		partial_count_qty = excluded.partial_count_qty,
		partial_count_amount = excluded.partial_count_amount,
		prior_variance_qty = excluded.prior_variance_qty,
		prior_variance_amount = excluded.prior_variance_amount,
		cancelled_line_qty = excluded.cancelled_line_qty,
		cancelled_line_amount = excluded.cancelled_line_amount,
		waste_qty = excluded.waste_qty,
		waste_amount = excluded.waste_amount,
		sales_qty = excluded.sales_qty,
		sales_amount = excluded.sales_amount,
		counted_qty = excluded.counted_qty,
		unit_price = excluded.unit_price
`

// SaveLines upserts lines keyed by (store, period, product). Re-importing
// a period replaces its rows.
func (r *priorPeriodRepository) SaveLines(ctx context.Context, lines []domain.InventoryLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return upsertLines(ctx, tx, lines)
	})
}

func upsertLines(ctx context.Context, tx *sqlx.Tx, lines []domain.InventoryLine) error {
	if len(lines) == 0 {
		return nil
	}
	stmt, err := tx.PrepareNamedContext(ctx, lineUpsertQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare line upsert: %w", err)
	}
	defer stmt.Close()

	for _, l := range lines {
		if l.Period == "" {
			return fmt.Errorf("line %s/%s has no period", l.StoreID, l.ProductID)
		}
		if _, err := stmt.ExecContext(ctx, l); err != nil {
			return fmt.Errorf("failed to save line %s/%s: %w", l.StoreID, l.ProductID, err)
		}
	}
	return nil
}

// PreviousPeriod returns the latest stored period before period, or
// domain.ErrNotFound.
func (r *priorPeriodRepository) PreviousPeriod(ctx context.Context, storeID, period string) (string, error) {
	query := r.db.Rebind(`
		SELECT MAX(period)
		FROM inventory_lines
		WHERE store_id = ? AND period < ?
	`)

	var prev sql.NullString
	if err := r.db.GetContext(ctx, &prev, query, storeID, period); err != nil {
		return "", fmt.Errorf("error getting previous period: %w", err)
	}
	if !prev.Valid || prev.String == "" {
		return "", domain.ErrNotFound
	}
	return prev.String, nil
}

func (r *priorPeriodRepository) LinesForPeriod(ctx context.Context, storeID, period string) ([]domain.InventoryLine, error) {
	query := r.db.Rebind(`
		SELECT ` + inventoryColumns + `
		FROM inventory_lines
		WHERE store_id = ? AND period = ?
		ORDER BY product_id
	`)

	var lines []domain.InventoryLine
	if err := r.db.SelectContext(ctx, &lines, query, storeID, period); err != nil {
		return nil, fmt.Errorf("error getting lines for %s/%s: %w", storeID, period, err)
	}
	return lines, nil
}

func (r *priorPeriodRepository) Periods(ctx context.Context, storeID string) ([]string, error) {
	query := r.db.Rebind(`
		SELECT DISTINCT period
		FROM inventory_lines
		WHERE store_id = ?
		ORDER BY period DESC
	`)

	var periods []string
	if err := r.db.SelectContext(ctx, &periods, query, storeID); err != nil {
		return nil, fmt.Errorf("error getting periods: %w", err)
	}
	return periods, nil
}
