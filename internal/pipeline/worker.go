package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
	"github.com/senirlioglu/envanter-risk-analizi/internal/ingest"
	"github.com/senirlioglu/envanter-risk-analizi/internal/normalizer"
)

// fileResult keeps the lines of one export together with its position so
// the merged output does not depend on worker scheduling.
type fileResult struct {
	index int
	lines []domain.InventoryLine
}

// LoadFiles reads and normalizes export files using a pool of workers.
// Lines are returned in the order of paths. The first failing file aborts
// the load.
func LoadFiles(ctx context.Context, paths []string, opts normalizer.Options, workerCount int) ([]domain.InventoryLine, error) {
	if len(paths) == 0 {
		return nil, domain.ErrNoRows
	}
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(paths) {
		workerCount = len(paths)
	}

	type job struct {
		index int
		path  string
	}

	jobChan := make(chan job, len(paths))
	resChan := make(chan fileResult, len(paths))
	errChan := make(chan error, workerCount)
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobChan {
				lines, err := loadFile(ctx, j.path, opts)
				if err != nil {
					log.Error().Err(err).Int("worker", workerID).Str("file", j.path).Msg("Failed to load export")
					select {
					case errChan <- err:
					default:
					}
					continue
				}
				resChan <- fileResult{index: j.index, lines: lines}
			}
		}(i)
	}

	for i, p := range paths {
		select {
		case <-ctx.Done():
			close(jobChan)
			wg.Wait()
			return nil, ctx.Err()
		case jobChan <- job{index: i, path: p}:
		}
	}
	close(jobChan)

	wg.Wait()
	close(errChan)
	close(resChan)

	if err := <-errChan; err != nil {
		return nil, err
	}

	results := make([]fileResult, 0, len(paths))
	for r := range resChan {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })

	var lines []domain.InventoryLine
	for _, r := range results {
		lines = append(lines, r.lines...)
	}
	if len(lines) == 0 {
		return nil, domain.ErrNoRows
	}
	return lines, nil
}

func loadFile(ctx context.Context, path string, opts normalizer.Options) ([]domain.InventoryLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	table, err := ingest.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	lines := normalizer.NormalizeTable(table, opts)

	log.Debug().
		Str("file", path).
		Int("rows", len(table.Rows)).
		Int("lines", len(lines)).
		Dur("took", time.Since(start)).
		Msg("Loaded export")
	return lines, nil
}
