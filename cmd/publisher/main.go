package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pressbriefs/campaign-pilot/internal/config"
	"github.com/pressbriefs/campaign-pilot/internal/content"
	"github.com/pressbriefs/campaign-pilot/internal/domain"
	"github.com/pressbriefs/campaign-pilot/internal/observability"
	"github.com/pressbriefs/campaign-pilot/internal/platform"
	"github.com/pressbriefs/campaign-pilot/internal/report"
	"github.com/pressbriefs/campaign-pilot/internal/schedule"
	"github.com/pressbriefs/campaign-pilot/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Println("failed to load config:", err)
		os.Exit(domain.ExitConfig)
	}

	if err := cfg.ValidateWorkDir(); err != nil {
		log.Println("work directory check failed:", err)
		os.Exit(domain.ExitWorkDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.CronSchedule == "" {
		os.Exit(executeRun(ctx, cfg, domain.ModeManual))
	}

	os.Exit(runResident(ctx, cfg))
}

// runResident keeps the process up and executes one publish run per cron
// trigger. Runs never overlap; a trigger firing mid-run is skipped.
func runResident(ctx context.Context, cfg *config.Config) int {
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Println("failed to initialize logger:", err)
		return domain.ExitConfig
	}
	defer logger.Sync() //nolint:errcheck

	var running atomic.Bool
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.CronSchedule, func() {
		if !running.CompareAndSwap(false, true) {
			logger.Warn("previous run still in progress, skipping trigger")
			return
		}
		defer running.Store(false)

		exitCode := executeRun(ctx, cfg, domain.ModeCron)
		logger.Info("cron run finished", zap.Int("exitCode", exitCode))
	})
	if err != nil {
		logger.Error("invalid cron schedule", zap.String("schedule", cfg.CronSchedule), zap.Error(err))
		return domain.ExitConfig
	}

	logger.Info("resident mode started", zap.String("schedule", cfg.CronSchedule))
	scheduler.Start()

	<-ctx.Done()
	<-scheduler.Stop().Done()
	logger.Info("resident mode stopped")

	return domain.ExitOK
}

// executeRun performs one full publish run and returns its exit code.
func executeRun(ctx context.Context, cfg *config.Config, mode domain.RunMode) int {
	runID := uuid.NewString()
	started := time.Now().UTC()
	logFile := filepath.Join(cfg.WorkDir, fmt.Sprintf("run-%s-%s.log", started.Format("20060102-150405"), runID[:8]))

	logger, err := observability.NewRunLogger(cfg.LogLevel, logFile)
	if err != nil {
		log.Println("failed to initialize logger:", err)
		return domain.ExitConfig
	}
	defer logger.Sync() //nolint:errcheck

	ctx = observability.WithRunID(ctx, runID)
	logger = observability.WithContextLogger(logger, ctx)

	runCtx := domain.RunContext{
		RunID:         runID,
		Name:          cfg.CampaignName,
		Mode:          mode,
		Debug:         cfg.Debug,
		ContentSource: cfg.ContentURL,
		LogFile:       logFile,
		StartedAt:     started,
	}

	reporter, err := buildReporter(cfg, logger)
	if err != nil {
		logger.Error("failed to build reporter", zap.Error(err))
		return domain.ExitConfig
	}

	logger.Info("publish run started",
		zap.String("mode", mode.String()),
		zap.Bool("debug", cfg.Debug),
		zap.String("contentSource", cfg.ContentURL),
	)

	outcome := runPipeline(ctx, cfg, logger)

	// Finalization must survive a canceled run context.
	if err := reporter.Finalize(context.WithoutCancel(ctx), runCtx, outcome); err != nil {
		logger.Error("failed to record run outcome", zap.Error(err))
	}

	logger.Info("publish run finished",
		zap.String("status", outcome.Status.String()),
		zap.Int("exitCode", outcome.ExitCode),
		zap.Duration("elapsed", outcome.Elapsed),
		zap.String("message", outcome.Message),
	)

	return outcome.ExitCode
}

func buildReporter(cfg *config.Config, logger *zap.Logger) (*report.Reporter, error) {
	var notifier report.Notifier
	if cfg.SlackWebhookURL != "" {
		slack, err := report.NewSlackNotifier(cfg.SlackWebhookURL)
		if err != nil {
			return nil, fmt.Errorf("slack notifier: %w", err)
		}
		notifier = slack
	}

	var uploader report.Uploader
	if cfg.S3Bucket != "" {
		s3up, err := report.NewS3Uploader(report.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
			Prefix:    cfg.S3Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 uploader: %w", err)
		}
		uploader = s3up
	}

	return report.NewReporter(filepath.Join(cfg.WorkDir, cfg.HistoryFile), notifier, uploader, logger)
}

// runPipeline executes refresh, fetch, and the publish workflow, mapping
// every failure class to its exit code.
func runPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) domain.RunOutcome {
	start := time.Now()

	if cfg.RefreshURL != "" {
		refresher, err := content.NewHTTPRefresher(cfg.RefreshURL, cfg.RefreshToken)
		if err != nil {
			return domain.Failure(domain.ExitConfig, fmt.Sprintf("refresh setup: %v", err), time.Since(start))
		}

		logger.Info("refreshing content source cache", zap.String("endpoint", cfg.RefreshURL))
		if err := refresher.Refresh(ctx); err != nil {
			exitCode := domain.ExitPlatform
			if errors.Is(err, content.ErrAuth) {
				exitCode = domain.ExitAuth
			}
			return domain.Failure(exitCode, err.Error(), time.Since(start))
		}
	}

	fetcher, err := content.NewFetcher(cfg.ContentURL, cfg.CacheBust)
	if err != nil {
		return domain.Failure(domain.ExitConfig, fmt.Sprintf("fetcher setup: %v", err), time.Since(start))
	}

	html, err := fetcher.Fetch(ctx)
	if err != nil {
		return domain.Failure(domain.ExitPlatform, err.Error(), time.Since(start))
	}
	logger.Info("content fetched", zap.Int("bytes", len(html)))

	client, err := platform.NewMailchimpClient(cfg.ServerPrefix, cfg.APIKey)
	if err != nil {
		return domain.Failure(domain.ExitConfig, fmt.Sprintf("platform client setup: %v", err), time.Since(start))
	}

	wf, err := workflow.New(client, schedule.NewCalculator(), logger)
	if err != nil {
		return domain.Failure(domain.ExitConfig, fmt.Sprintf("workflow setup: %v", err), time.Since(start))
	}

	return wf.Run(ctx, html, cfg.CampaignConfig())
}
