package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
	"github.com/senirlioglu/envanter-risk-analizi/internal/repository/postgres"
)

// ResultRepository persists analysis runs, store summaries and records.
type ResultRepository interface {
	SaveRun(ctx context.Context, report *domain.RegionReport, source string) (*domain.AnalysisRun, error)
	SaveRunWithLines(ctx context.Context, report *domain.RegionReport, lines []domain.InventoryLine, source string) (*domain.AnalysisRun, error)
	GetRun(ctx context.Context, runID string) (*domain.AnalysisRun, error)
	ListRuns(ctx context.Context, period string, limit int) ([]domain.AnalysisRun, error)
	GetStoreSummaries(ctx context.Context, filter domain.ReportFilter) ([]domain.StoreRiskSummary, error)
	GetRecords(ctx context.Context, runID, storeID string) ([]domain.ClassificationRecord, error)
}

type resultRepository struct {
	db  *postgres.DB
	now func() time.Time
}

func NewResultRepository(db *postgres.DB) ResultRepository {
	return &resultRepository{db: db, now: time.Now}
}

// summaryRow is the flat storage shape of a StoreRiskSummary.
type summaryRow struct {
	RunID              string  `db:"run_id"`
	StoreID            string  `db:"store_id"`
	StoreName          string  `db:"store_name"`
	Period             string  `db:"period"`
	LineCount          int     `db:"line_count"`
	TotalSales         float64 `db:"total_sales"`
	TotalVariance      float64 `db:"total_variance"`
	TotalShortage      float64 `db:"total_shortage"`
	TotalWaste         float64 `db:"total_waste"`
	NetEffect          float64 `db:"net_effect"`
	LossRatio          float64 `db:"loss_ratio"`
	InternalTheftCount int     `db:"internal_theft_count"`
	RiskLevel          string  `db:"risk_level"`
	Score              float64 `db:"score"`
	CauseCounts        string  `db:"cause_counts"`
}

func (s summaryRow) toDomain() (domain.StoreRiskSummary, error) {
	out := domain.StoreRiskSummary{
		StoreID:            s.StoreID,
		StoreName:          s.StoreName,
		Period:             s.Period,
		LineCount:          s.LineCount,
		TotalSales:         s.TotalSales,
		TotalVariance:      s.TotalVariance,
		TotalShortage:      s.TotalShortage,
		TotalWaste:         s.TotalWaste,
		NetEffect:          s.NetEffect,
		LossRatio:          s.LossRatio,
		InternalTheftCount: s.InternalTheftCount,
		Score:              s.Score,
		CauseCounts:        make(map[domain.Cause]int),
	}
	if err := out.RiskLevel.UnmarshalText([]byte(s.RiskLevel)); err != nil {
		return out, err
	}
	if s.CauseCounts != "" {
		if err := json.Unmarshal([]byte(s.CauseCounts), &out.CauseCounts); err != nil {
			return out, fmt.Errorf("invalid cause counts for %s: %w", s.StoreID, err)
		}
	}
	return out, nil
}

type recordRow struct {
	RunID             string  `db:"run_id"`
	StoreID           string  `db:"store_id"`
	ProductID         string  `db:"product_id"`
	ProductName       string  `db:"product_name"`
	Cause             string  `db:"cause"`
	Severity          string  `db:"severity"`
	Rationale         string  `db:"rationale"`
	RecommendedAction string  `db:"recommended_action"`
	NetPosition       float64 `db:"net_position"`
	NetEffectAmount   float64 `db:"net_effect_amount"`
}

// SaveRun stores the run header, one summary per store and every record
// in a single transaction.
func (r *resultRepository) SaveRun(ctx context.Context, report *domain.RegionReport, source string) (*domain.AnalysisRun, error) {
	run := r.newRun(report, source)
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return insertRun(ctx, tx, run, report)
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// SaveRunWithLines stores the counted lines as history together with the
// run. Either both are committed or neither is.
func (r *resultRepository) SaveRunWithLines(ctx context.Context, report *domain.RegionReport, lines []domain.InventoryLine, source string) (*domain.AnalysisRun, error) {
	run := r.newRun(report, source)
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := upsertLines(ctx, tx, lines); err != nil {
			return err
		}
		return insertRun(ctx, tx, run, report)
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *resultRepository) newRun(report *domain.RegionReport, source string) *domain.AnalysisRun {
	run := &domain.AnalysisRun{
		ID:         report.RunID,
		Period:     report.Period,
		Source:     source,
		StoreCount: len(report.Stores),
		CreatedAt:  r.now().UTC(),
	}
	for _, s := range report.Stores {
		run.LineCount += s.Summary.LineCount
	}
	return run
}

func insertRun(ctx context.Context, tx *sqlx.Tx, run *domain.AnalysisRun, report *domain.RegionReport) error {
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO analysis_runs (id, period, source, store_count, line_count, created_at)
		VALUES (:id, :period, :source, :store_count, :line_count, :created_at)
	`, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	for _, s := range report.Stores {
		counts, err := json.Marshal(s.Summary.CauseCounts)
		if err != nil {
			return err
		}
		row := summaryRow{
			RunID:              run.ID,
			StoreID:            s.Summary.StoreID,
			StoreName:          s.Summary.StoreName,
			Period:             s.Summary.Period,
			LineCount:          s.Summary.LineCount,
			TotalSales:         s.Summary.TotalSales,
			TotalVariance:      s.Summary.TotalVariance,
			TotalShortage:      s.Summary.TotalShortage,
			TotalWaste:         s.Summary.TotalWaste,
			NetEffect:          s.Summary.NetEffect,
			LossRatio:          s.Summary.LossRatio,
			InternalTheftCount: s.Summary.InternalTheftCount,
			RiskLevel:          s.Summary.RiskLevel.String(),
			Score:              s.Score.Total,
			CauseCounts:        string(counts),
		}
		if row.Period == "" {
			row.Period = run.Period
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO store_summaries (run_id, store_id, store_name, period, line_count, total_sales,
				total_variance, total_shortage, total_waste, net_effect, loss_ratio,
				internal_theft_count, risk_level, score, cause_counts)
			VALUES (:run_id, :store_id, :store_name, :period, :line_count, :total_sales,
				:total_variance, :total_shortage, :total_waste, :net_effect, :loss_ratio,
				:internal_theft_count, :risk_level, :score, :cause_counts)
		`, row); err != nil {
			return fmt.Errorf("failed to save summary for %s: %w", row.StoreID, err)
		}

		for _, rec := range s.Records {
			rr := recordRow{
				RunID:             run.ID,
				StoreID:           rec.StoreID,
				ProductID:         rec.ProductID,
				ProductName:       rec.ProductName,
				Cause:             string(rec.Cause),
				Severity:          rec.Severity.String(),
				Rationale:         rec.Rationale,
				RecommendedAction: rec.RecommendedAction,
				NetPosition:       rec.NetPosition,
				NetEffectAmount:   rec.NetEffectAmount,
			}
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO classification_records (run_id, store_id, product_id, product_name, cause,
					severity, rationale, recommended_action, net_position, net_effect_amount)
				VALUES (:run_id, :store_id, :product_id, :product_name, :cause,
					:severity, :rationale, :recommended_action, :net_position, :net_effect_amount)
			`, rr); err != nil {
				return fmt.Errorf("failed to save record %s/%s: %w", rr.StoreID, rr.ProductID, err)
			}
		}
	}
	return nil
}

func (r *resultRepository) GetRun(ctx context.Context, runID string) (*domain.AnalysisRun, error) {
	var run domain.AnalysisRun
	err := r.db.GetContext(ctx, &run, r.db.Rebind(`
		SELECT id, period, source, store_count, line_count, created_at
		FROM analysis_runs
		WHERE id = ?
	`), runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting run %s: %w", runID, err)
	}
	return &run, nil
}

func (r *resultRepository) ListRuns(ctx context.Context, period string, limit int) ([]domain.AnalysisRun, error) {
	if limit <= 0 {
		limit = 30
	}
	query := `
		SELECT id, period, source, store_count, line_count, created_at
		FROM analysis_runs
		WHERE 1=1
	`
	var args []interface{}
	if period != "" {
		query += " AND period = ?"
		args = append(args, period)
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	var runs []domain.AnalysisRun
	if err := r.db.SelectContext(ctx, &runs, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("error listing runs: %w", err)
	}
	return runs, nil
}

// GetStoreSummaries filters by run, period, stores and level. Without a
// run id the latest run of the period wins.
func (r *resultRepository) GetStoreSummaries(ctx context.Context, filter domain.ReportFilter) ([]domain.StoreRiskSummary, error) {
	query := `
		SELECT run_id, store_id, store_name, period, line_count, total_sales, total_variance,
			total_shortage, total_waste, net_effect, loss_ratio, internal_theft_count,
			risk_level, score, cause_counts
		FROM store_summaries
		WHERE 1=1
	`
	var args []interface{}
	var conditions []string

	switch {
	case filter.RunID != "":
		conditions = append(conditions, "run_id = ?")
		args = append(args, filter.RunID)
	case filter.Period != "":
		conditions = append(conditions, `run_id = (
			SELECT id FROM analysis_runs WHERE period = ? ORDER BY created_at DESC, id DESC LIMIT 1
		)`)
		args = append(args, filter.Period)
	}

	if len(filter.StoreIDs) > 0 {
		in, inArgs, err := sqlx.In("store_id IN (?)", filter.StoreIDs)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, in)
		args = append(args, inArgs...)
	}

	if filter.Level != "" {
		conditions = append(conditions, "risk_level = ?")
		args = append(args, strings.ToLower(filter.Level))
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY store_id"

	var rows []summaryRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("error getting store summaries: %w", err)
	}

	out := make([]domain.StoreRiskSummary, 0, len(rows))
	for _, row := range rows {
		s, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *resultRepository) GetRecords(ctx context.Context, runID, storeID string) ([]domain.ClassificationRecord, error) {
	query := `
		SELECT run_id, store_id, product_id, product_name, cause, severity, rationale,
			recommended_action, net_position, net_effect_amount
		FROM classification_records
		WHERE run_id = ?
	`
	args := []interface{}{runID}
	if storeID != "" {
		query += " AND store_id = ?"
		args = append(args, storeID)
	}
	query += " ORDER BY store_id, product_id, cause"

	var rows []recordRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("error getting records: %w", err)
	}

	out := make([]domain.ClassificationRecord, 0, len(rows))
	for _, row := range rows {
		rec := domain.ClassificationRecord{
			StoreID:           row.StoreID,
			ProductID:         row.ProductID,
			ProductName:       row.ProductName,
			Cause:             domain.Cause(row.Cause),
			Rationale:         row.Rationale,
			RecommendedAction: row.RecommendedAction,
			NetPosition:       row.NetPosition,
			NetEffectAmount:   row.NetEffectAmount,
		}
		if err := rec.Severity.UnmarshalText([]byte(row.Severity)); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
