package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino-ext/components/model/openai"

	"github.com/caratlabs/storepulse/internal/domain/etl/normalizer"
	etlrepo "github.com/caratlabs/storepulse/internal/domain/etl/repository"
	etlservice "github.com/caratlabs/storepulse/internal/domain/etl/service"
	"github.com/caratlabs/storepulse/internal/domain/forecast"
	"github.com/caratlabs/storepulse/internal/domain/kpi"
	"github.com/caratlabs/storepulse/internal/domain/narrative"
	"github.com/caratlabs/storepulse/internal/domain/report"
	"github.com/caratlabs/storepulse/pkg/config"
	"github.com/caratlabs/storepulse/pkg/cron"
	"github.com/caratlabs/storepulse/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	MetricsRepo etlrepo.MetricsRepository
	KPIRepo     kpi.KPIRepository

	// Services
	ETLService       *etlservice.ETLService
	KPIService       *kpi.Service
	Forecaster       *forecast.Forecaster
	NarrativeService *narrative.Service
	ReportService    *report.Service

	// Background jobs
	Scheduler *cron.Scheduler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := deps.initServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the SQLite database and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(d.Config.Database.Path, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes the repository layer
func (d *Dependencies) initRepositories() error {
	d.MetricsRepo = etlrepo.NewSQLiteRepository(d.DB.SQL)
	d.KPIRepo = kpi.NewRepository(d.DB.SQL)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes the service layer
func (d *Dependencies) initServices(ctx context.Context) error {
	norm, err := normalizer.LoadMasterFile(d.Config.ETL.StoreMasterPath)
	if err != nil {
		return fmt.Errorf("failed to load store master: %w", err)
	}

	d.ETLService = etlservice.NewETLService(d.MetricsRepo, norm, d.Logger)
	d.KPIService = kpi.NewService(d.KPIRepo, d.Config.Cache.TTL, d.Logger)
	d.Forecaster = forecast.New()

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  d.Config.OpenAI.APIKey,
		BaseURL: d.Config.OpenAI.BaseURL,
		Model:   d.Config.OpenAI.Model,
	})
	if err != nil {
		return fmt.Errorf("failed to init chat model: %w", err)
	}
	d.NarrativeService = narrative.NewService(chatModel, d.Logger)

	d.ReportService = report.NewService(d.KPIService, d.Forecaster, d.NarrativeService, d.Logger)

	d.Scheduler = cron.NewScheduler(d.ETLService, d.Config.ETL.DropDir, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// Cleanup releases held resources in reverse initialization order
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
