package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/senirlioglu/envanter-risk-analizi/internal/app"
	"github.com/senirlioglu/envanter-risk-analizi/internal/config"
	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
	"github.com/senirlioglu/envanter-risk-analizi/internal/drive"
	"github.com/senirlioglu/envanter-risk-analizi/internal/reference"
	"github.com/senirlioglu/envanter-risk-analizi/internal/report"
	"github.com/senirlioglu/envanter-risk-analizi/internal/service"
	"github.com/senirlioglu/envanter-risk-analizi/internal/storage"
)

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Analyze inventory export files and write the report",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Inventory export file (CSV or XLSX); repeatable",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "period",
				Usage: "Count period as YYYY-MM (defaults to the current month)",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Store code for exports without a store column",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Write the report workbook to this .xlsx path",
			},
			&cli.StringFlag{
				Name:  "csv-dir",
				Usage: "Also write one CSV per report table into this directory",
			},
			&cli.BoolFlag{
				Name:  "no-db",
				Usage: "Analyze without history or persistence",
			},
		},
		Action: runAnalyze,
	}
}

func runAnalyze(c *cli.Context) error {
	cfg := config.Load()
	ctx := c.Context
	if cfg.Analysis.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Analysis.Timeout)
		defer cancel()
	}

	svc, closeFn, err := analysisService(ctx, cfg, c.Bool("no-db"))
	if err != nil {
		return err
	}
	defer closeFn()

	rep, err := svc.AnalyzeFiles(ctx, service.AnalyzeRequest{
		Paths:   c.StringSlice("input"),
		Period:  c.String("period"),
		StoreID: c.String("store"),
		Source:  "cli",
	})
	if err != nil {
		return err
	}
	logStores(rep)

	tables := report.BuildTables(rep)
	if out := c.String("out"); out != "" {
		if err := report.SaveWorkbook(out, tables); err != nil {
			return err
		}
		log.Info().Str("path", out).Msg("Report workbook written")
	}
	if dir := c.String("csv-dir"); dir != "" {
		paths, err := report.WriteCSV(dir, tables)
		if err != nil {
			return err
		}
		log.Info().Strs("paths", paths).Msg("Report tables written")
	}
	return nil
}

// analysisService returns a database-backed service, or an in-memory one
// when offline is set.
func analysisService(ctx context.Context, cfg *config.Config, offline bool) (*service.AnalysisService, func(), error) {
	if offline {
		pipelineCfg, err := cfg.Analysis.Pipeline()
		if err != nil {
			return nil, nil, err
		}
		svc := service.NewAnalysisService(pipelineCfg, service.Repositories{}, nil, nil, reference.Files{
			Roster:   cfg.Analysis.RosterFile,
			Decoys:   cfg.Analysis.DecoyFile,
			Required: cfg.Analysis.RequiredFile,
		})
		return svc, func() {}, nil
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return a.Analysis, a.Close, nil
}

func logStores(rep *domain.RegionReport) {
	stores := append([]domain.StoreReport(nil), rep.Stores...)
	sort.Slice(stores, func(i, j int) bool { return stores[i].Score.Total > stores[j].Score.Total })
	for _, s := range stores {
		log.Info().
			Str("store", s.Summary.StoreID).
			Str("name", s.Summary.StoreName).
			Str("risk", s.Summary.RiskLevel.String()).
			Float64("score", s.Score.Total).
			Float64("loss_ratio", s.Summary.LossRatio).
			Int("internal_theft", s.Summary.InternalTheftCount).
			Msg("Store analyzed")
	}
	log.Info().
		Str("run_id", rep.RunID).
		Str("period", rep.Period).
		Int("stores", len(rep.Stores)).
		Msg("Analysis complete")
}

func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Download inventory exports from object storage or Google Drive",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "source",
				Usage: "Export source: minio or drive",
				Value: "minio",
			},
			&cli.StringFlag{
				Name:    "prefix",
				Usage:   "Object key prefix (minio) or folder id (drive)",
				EnvVars: []string{"STORAGE_PREFIX"},
			},
			&cli.StringFlag{
				Name:  "dest",
				Usage: "Local download directory",
				Value: "./data/exports",
			},
		},
		Action: runFetch,
	}
}

func runFetch(c *cli.Context) error {
	cfg := config.Load()
	dest := c.String("dest")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	var (
		paths []string
		err   error
	)
	switch c.String("source") {
	case "minio":
		var store storage.ObjectStorage
		if store, err = app.NewObjectStorage(cfg); err != nil {
			return err
		}
		prefix := c.String("prefix")
		if prefix == "" {
			prefix = cfg.Storage.Prefix
		}
		paths, err = storage.FetchExports(c.Context, store, prefix, dest)
	case "drive":
		downloader, folderID, derr := app.NewDriveDownloader(c.Context, cfg)
		if derr != nil {
			return derr
		}
		if c.IsSet("prefix") {
			folderID = c.String("prefix")
		}
		paths, err = downloader.DownloadExports(c.Context, drive.DownloadOptions{FolderID: folderID, DownloadDir: dest})
	default:
		return fmt.Errorf("unknown source %q (want minio or drive)", c.String("source"))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}

	for _, p := range paths {
		fmt.Println(p)
	}
	log.Info().Int("files", len(paths)).Str("dest", dest).Msg("Exports fetched")
	return nil
}

func rosterCommand() *cli.Command {
	return &cli.Command{
		Name:  "roster",
		Usage: "Manage the store to manager/region roster",
		Subcommands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import a roster CSV or XLSX file into the database",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Roster file",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					a, err := app.New(c.Context, config.Load())
					if err != nil {
						return err
					}
					defer a.Close()

					n, err := a.Analysis.ImportRoster(c.Context, filepath.Clean(c.String("file")))
					if err != nil {
						return err
					}
					log.Info().Int("stores", n).Msg("Roster imported")
					return nil
				},
			},
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the database schema",
		Action: func(c *cli.Context) error {
			// app.New applies the schema.
			a, err := app.New(c.Context, config.Load())
			if err != nil {
				return err
			}
			defer a.Close()
			log.Info().Str("driver", a.Config.Database.Driver).Msg("Schema applied")
			return nil
		},
	}
}
