package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
	"github.com/senirlioglu/envanter-risk-analizi/internal/repository/postgres"
)

// RosterRepository persists the store -> manager/region table.
type RosterRepository interface {
	GetRoster(ctx context.Context) (domain.Roster, error)
	UpsertAssignments(ctx context.Context, assignments []domain.StoreAssignment) error
}

type rosterRepository struct {
	db *postgres.DB
}

func NewRosterRepository(db *postgres.DB) RosterRepository {
	return &rosterRepository{db: db}
}

func (r *rosterRepository) GetRoster(ctx context.Context) (domain.Roster, error) {
	var rows []domain.StoreAssignment
	err := r.db.SelectContext(ctx, &rows, `
		SELECT store_id, store_name, manager, region
		FROM store_roster
		ORDER BY store_id
	`)
	if err != nil {
		return nil, fmt.Errorf("error getting roster: %w", err)
	}
	return domain.NewRoster(rows), nil
}

func (r *rosterRepository) UpsertAssignments(ctx context.Context, assignments []domain.StoreAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, a := range assignments {
			if a.StoreID == "" {
				continue
			}
			_, err := tx.NamedExecContext(ctx, `
				INSERT INTO store_roster (store_id, store_name, manager, region)
				VALUES (:store_id, :store_name, :manager, :region)
				ON CONFLICT (store_id) DO UPDATE SET
					store_name = excluded.store_name,
					manager = excluded.manager,
					region = excluded.region
			`, a)
			if err != nil {
				return fmt.Errorf("failed to upsert store %s: %w", a.StoreID, err)
			}
		}
		return nil
	})
}
