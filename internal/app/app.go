// Package app wires configuration, storage and services for the binaries.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/senirlioglu/envanter-risk-analizi/internal/cache"
	"github.com/senirlioglu/envanter-risk-analizi/internal/config"
	"github.com/senirlioglu/envanter-risk-analizi/internal/drive"
	"github.com/senirlioglu/envanter-risk-analizi/internal/reference"
	"github.com/senirlioglu/envanter-risk-analizi/internal/repository"
	"github.com/senirlioglu/envanter-risk-analizi/internal/repository/postgres"
	"github.com/senirlioglu/envanter-risk-analizi/internal/service"
	"github.com/senirlioglu/envanter-risk-analizi/internal/storage"
)

type App struct {
	Config   *config.Config
	DB       *postgres.DB
	Backends *cache.Backends
	Analysis *service.AnalysisService
}

// New opens the database, applies the schema and builds the analysis
// service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pipelineCfg, err := cfg.Analysis.Pipeline()
	if err != nil {
		return nil, fmt.Errorf("invalid analysis configuration: %w", err)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	backends, err := cache.NewBackends(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, continuing without report cache")
		backends, _ = cache.NewBackends(config.CacheConfig{})
	}

	repos := service.Repositories{
		Inventory:     repository.NewPriorPeriodRepository(db),
		Cancellations: repository.NewCancellationRepository(db),
		Roster:        repository.NewRosterRepository(db),
		Results:       repository.NewResultRepository(db),
	}
	refFiles := reference.Files{
		Roster:   cfg.Analysis.RosterFile,
		Decoys:   cfg.Analysis.DecoyFile,
		Required: cfg.Analysis.RequiredFile,
	}

	return &App{
		Config:   cfg,
		DB:       db,
		Backends: backends,
		Analysis: service.NewAnalysisService(pipelineCfg, repos, backends.Reports, backends.Locker, refFiles),
	}, nil
}

func (a *App) Close() {
	if err := a.Backends.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close redis client")
	}
	if err := a.DB.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}
}

// NewObjectStorage returns the configured bucket client, or a directory
// store when no endpoint is set.
func NewObjectStorage(cfg *config.Config) (storage.ObjectStorage, error) {
	if cfg.Storage.Endpoint == "" {
		return storage.NewLocalStorage(cfg.App.DataDir), nil
	}
	return storage.NewMinioClient(cfg.Storage)
}

// NewDriveDownloader builds a Drive downloader from the service account
// credentials file and resolves the configured folder.
func NewDriveDownloader(ctx context.Context, cfg *config.Config) (*drive.Downloader, string, error) {
	if cfg.Drive.CredentialsFile == "" {
		return nil, "", fmt.Errorf("DRIVE_CREDENTIALS_FILE must be set")
	}
	creds, err := os.ReadFile(cfg.Drive.CredentialsFile)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read drive credentials: %w", err)
	}
	svc, err := drive.NewService(ctx, creds)
	if err != nil {
		return nil, "", err
	}

	folderID := cfg.Drive.FolderID
	if folderID == "" && cfg.Drive.FolderPath != "" {
		if folderID, err = svc.FindFolderByPath(ctx, cfg.Drive.FolderPath); err != nil {
			return nil, "", err
		}
	}
	return drive.NewDownloader(svc), folderID, nil
}
