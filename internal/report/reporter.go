package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pressbriefs/campaign-pilot/internal/domain"
)

// Reporter owns everything that happens after a run reaches its outcome:
// the history line, the failure alert, and log retention. Alerting and
// retention are best-effort; the history append is the only part whose
// failure is surfaced.
type Reporter struct {
	historyPath string
	notifier    Notifier
	uploader    Uploader
	logger      *zap.Logger
	now         func() time.Time
}

func NewReporter(historyPath string, notifier Notifier, uploader Uploader, logger *zap.Logger) (*Reporter, error) {
	if historyPath == "" {
		return nil, fmt.Errorf("history path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reporter{
		historyPath: historyPath,
		notifier:    notifier,
		uploader:    uploader,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// Finalize records the run's single outcome. Called exactly once per run,
// success or failure.
func (r *Reporter) Finalize(ctx context.Context, runCtx domain.RunContext, outcome domain.RunOutcome) error {
	rec := HistoryRecord{
		Timestamp: r.now(),
		Status:    outcome.Status,
		Mode:      runCtx.Mode,
		Debug:     runCtx.Debug,
		RunName:   runCtx.Name,
		ExitCode:  outcome.ExitCode,
		LogFile:   runCtx.LogFile,
	}

	historyErr := AppendHistory(r.historyPath, rec)
	if historyErr != nil {
		r.logger.Error("failed to append history record", zap.Error(historyErr))
	}

	// Alert and upload never touch the platform; running them in parallel
	// does not violate the one-mutation-at-a-time rule.
	g, groupCtx := errgroup.WithContext(ctx)

	if outcome.Failed() && r.notifier != nil {
		g.Go(func() error {
			subject := fmt.Sprintf("%s run failed (exit code %d)", runCtx.Name, outcome.ExitCode)
			if err := r.notifier.Alert(groupCtx, subject, outcome.Message); err != nil {
				// Never escalate: the run's exit code stands on its own.
				r.logger.Warn("alert dispatch failed", zap.Error(err))
			}
			return nil
		})
	}

	if r.uploader != nil && runCtx.LogFile != "" {
		g.Go(func() error {
			if err := r.uploader.UploadLog(groupCtx, runCtx.LogFile); err != nil {
				r.logger.Warn("log retention upload failed", zap.Error(err))
			}
			return nil
		})
	}

	_ = g.Wait()

	return historyErr
}
