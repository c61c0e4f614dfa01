// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	etlservice "github.com/caratlabs/storepulse/internal/domain/etl/service"
)

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	etl     *etlservice.ETLService
	dropDir string
	logger  *slog.Logger
}

// NewScheduler creates a new job scheduler. dropDir may be empty, in which
// case no ingestion job is registered.
func NewScheduler(etl *etlservice.ETLService, dropDir string, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:    c,
		etl:     etl,
		dropDir: dropDir,
		logger:  logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if s.dropDir == "" {
		s.logger.Info("no drop directory configured, scheduled ingestion disabled")
		return nil
	}

	// Drop directory sweep: runs daily at 2:00 AM, after the POS export lands.
	_, err := s.cron.AddFunc("0 2 * * *", s.sweepDropDir)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the drop directory sweep (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.sweepDropDir()
}

// sweepDropDir imports every export file currently in the drop directory.
func (s *Scheduler) sweepDropDir() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	s.logger.Info("starting drop directory sweep", slog.String("dir", s.dropDir))

	processed, err := s.etl.ImportDirectory(ctx, s.dropDir)
	if err != nil {
		s.logger.Error("drop directory sweep failed", slog.Any("error", err))
		return
	}

	s.logger.Info("drop directory sweep completed", slog.Int("files", processed))
}
