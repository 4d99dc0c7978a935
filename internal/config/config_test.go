package config

import (
	"testing"

	"github.com/spf13/viper"

	"github.com/senirlioglu/envanter-risk-analizi/internal/normalizer"
)

func TestLoadDefaults(t *testing.T) {
	cfg := load(viper.New())

	if cfg.Database.Driver != "postgres" {
		t.Fatalf("driver = %q, want postgres", cfg.Database.Driver)
	}
	pc, err := cfg.Analysis.Pipeline()
	if err != nil {
		t.Fatalf("default analysis config must be valid: %v", err)
	}
	if pc.TopN != 20 || pc.WorkerCount != 4 {
		t.Fatalf("unexpected pipeline config %+v", pc)
	}
	if pc.Normalize.WasteLossSign != normalizer.WasteLossNegative {
		t.Fatalf("waste sign = %q, want negative", pc.Normalize.WasteLossSign)
	}
	if pc.Thresholds.InternalTheftMinUnitPrice != 100 || pc.Risk.CriticalLossRatio != 0.02 {
		t.Fatalf("threshold defaults lost in conversion: %+v %+v", pc.Thresholds, pc.Risk)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ANALYSIS_WASTE_LOSS_SIGN", "positive")
	t.Setenv("ANALYSIS_TOP_N", "50")
	t.Setenv("ANALYSIS_IT_MIN_UNIT_PRICE", "250")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_PATH", "/tmp/x.db")

	cfg := load(viper.New())
	pc, err := cfg.Analysis.Pipeline()
	if err != nil {
		t.Fatalf("Pipeline: %v", err)
	}
	if pc.Normalize.WasteLossSign != normalizer.WasteLossPositive {
		t.Fatalf("waste sign = %q, want positive", pc.Normalize.WasteLossSign)
	}
	if pc.TopN != 50 || pc.Thresholds.InternalTheftMinUnitPrice != 250 {
		t.Fatalf("env overrides not applied: %+v", pc)
	}
	if got := cfg.Database.DSN(); got != "file:/tmp/x.db?_foreign_keys=on&_busy_timeout=5000" {
		t.Fatalf("sqlite dsn = %q", got)
	}
}

func TestPipelineRejectsBadWeights(t *testing.T) {
	t.Setenv("ANALYSIS_WEIGHT_CHRONIC", "40")
	cfg := load(viper.New())
	if _, err := cfg.Analysis.Pipeline(); err == nil {
		t.Fatal("weights summing to 125 must be rejected")
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Driver: "pgx", Host: "db", Port: "5432", User: "u", Password: "p", DBName: "envanter", SSLMode: "disable"}
	if got := c.DSN(); got != "postgres://u:p@db:5432/envanter?sslmode=disable" {
		t.Fatalf("pgx dsn = %q", got)
	}
	c.Driver = "postgres"
	if got := c.DSN(); got != "host=db port=5432 user=u password=p dbname=envanter sslmode=disable" {
		t.Fatalf("pq dsn = %q", got)
	}
}
