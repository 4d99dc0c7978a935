package cache

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/senirlioglu/envanter-risk-analizi/internal/config"
	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

func TestFilterHashIsStable(t *testing.T) {
	a := domain.ReportFilter{Period: "2025-03", StoreIDs: []string{"7946", "1339"}, Level: "Critical"}
	b := domain.ReportFilter{Period: "2025-03", StoreIDs: []string{"1339", " 7946"}, Level: "critical"}
	if SummaryKey(a) != SummaryKey(b) {
		t.Fatalf("equivalent filters must share a key: %s vs %s", SummaryKey(a), SummaryKey(b))
	}

	c := domain.ReportFilter{Period: "2025-04"}
	if SummaryKey(a) == SummaryKey(c) {
		t.Fatal("different periods must not share a key")
	}
	if !strings.HasPrefix(RollupKey(c), rollupKeyPrefix+":") {
		t.Fatalf("unexpected rollup key %s", RollupKey(c))
	}
	if got := SummaryKey(domain.ReportFilter{}); got != summaryKeyPrefix+":default" {
		t.Fatalf("empty filter key = %s", got)
	}
}

func TestDisabledCacheIsNoop(t *testing.T) {
	c, err := NewReportCache(config.CacheConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewReportCache: %v", err)
	}
	ctx := context.Background()
	if err := c.SetSummaries(ctx, domain.ReportFilter{}, []domain.StoreRiskSummary{{StoreID: "1"}}); err != nil {
		t.Fatalf("SetSummaries: %v", err)
	}
	if _, ok, err := c.GetSummaries(ctx, domain.ReportFilter{}); ok || err != nil {
		t.Fatalf("noop cache must always miss, got ok=%v err=%v", ok, err)
	}
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	if err != nil {
		t.Fatalf("buildRedisOptions: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 2 {
		t.Fatalf("unexpected options %+v", opts)
	}
	if _, err := buildRedisOptions(config.CacheConfig{RedisURL: "::bad"}); err == nil {
		t.Fatal("expected an error for an invalid url")
	}
}

func TestLocalRunLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalRunLocker()

	release, err := l.Obtain(ctx, "2025-03")
	if err != nil {
		t.Fatalf("Obtain: %v", err)
	}
	if _, err := l.Obtain(ctx, "2025-03"); !errors.Is(err, domain.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if _, err := l.Obtain(ctx, "2025-04"); err != nil {
		t.Fatalf("other periods must not be blocked: %v", err)
	}
	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := l.Obtain(ctx, "2025-03"); err != nil {
		t.Fatalf("lock must be free after release: %v", err)
	}
}

func TestNewBackendsDisabled(t *testing.T) {
	b, err := NewBackends(config.CacheConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewBackends: %v", err)
	}
	defer b.Close()

	if _, ok := b.Reports.(*noopReportCache); !ok {
		t.Fatalf("expected noop cache, got %T", b.Reports)
	}
	release, err := b.Locker.Obtain(context.Background(), "2025-03")
	if err != nil {
		t.Fatalf("Obtain: %v", err)
	}
	release(context.Background())
}
