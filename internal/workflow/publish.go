// Package workflow sequences template creation, campaign creation, and
// scheduling against the platform, with compensating deletions when a
// later step fails.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pressbriefs/campaign-pilot/internal/domain"
	"github.com/pressbriefs/campaign-pilot/internal/platform"
	"github.com/pressbriefs/campaign-pilot/internal/schedule"
)

// Workflow drives one publish run through its states:
// Idle -> TemplateCreated -> CampaignCreated -> Scheduled -> Done,
// with Failed reachable from every non-terminal state.
type Workflow struct {
	client platform.Client
	calc   *schedule.Calculator
	logger *zap.Logger
	now    func() time.Time
}

func New(client platform.Client, calc *schedule.Calculator, logger *zap.Logger) (*Workflow, error) {
	if client == nil {
		return nil, fmt.Errorf("platform client is required")
	}
	if calc == nil {
		calc = schedule.NewCalculator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Workflow{
		client: client,
		calc:   calc,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Run executes the state machine for one piece of content. It always
// returns exactly one outcome; remote state is never left half-built
// except for templates deliberately kept for inspection.
func (w *Workflow) Run(ctx context.Context, html string, cfg domain.CampaignConfig) (outcome domain.RunOutcome) {
	start := w.now()
	state := domain.StateIdle

	var tmpl domain.Template
	var camp domain.Campaign

	// Guaranteed teardown: if the run unwinds without reaching a terminal
	// state (panic, signal cancellation mid-step), delete whatever was
	// created so no unscheduled campaign lingers on the platform.
	defer func() {
		if state.Terminal() {
			return
		}
		w.logger.Warn("run interrupted before terminal state", zap.String("state", state.String()))
		cleanupCtx := context.WithoutCancel(ctx)
		if camp.ID != "" {
			w.deleteCampaign(cleanupCtx, camp.ID)
		}
		if tmpl.ID != "" {
			w.deleteTemplate(cleanupCtx, tmpl.ID)
		}
	}()

	fail := func(exitCode int, err error) domain.RunOutcome {
		state = domain.StateFailed
		w.logger.Error("publish run failed", zap.Int("exitCode", exitCode), zap.Error(err))
		return domain.Failure(exitCode, err.Error(), w.now().Sub(start))
	}

	if err := cfg.Validate(); err != nil {
		return fail(domain.ExitConfig, err)
	}

	templateName := fmt.Sprintf("%s %s", cfg.Name, start.UTC().Format("2006-01-02"))
	templateID, err := w.client.CreateTemplate(ctx, templateName, html)
	if err != nil {
		// Nothing created yet; no compensation.
		return fail(exitCodeFor(err), fmt.Errorf("create template: %w", err))
	}
	tmpl = domain.Template{ID: templateID, Name: templateName}
	state = domain.StateTemplateCreated
	w.logger.Info("template created", zap.String("templateId", templateID.String()))

	if cfg.AudienceID == "" {
		// Template-only variant: no audience configured means the run
		// stops here by design, keeping the template as its product.
		state = domain.StateDone
		w.logger.Info("no audience configured, skipping campaign creation",
			zap.String("templateId", templateID.String()),
		)
		return domain.Success(
			fmt.Sprintf("template %s created, no audience configured", templateID),
			w.now().Sub(start),
		)
	}

	campaignID, err := w.client.CreateCampaign(ctx, platform.CampaignSpec{
		TemplateID:  templateID,
		AudienceID:  cfg.AudienceID,
		Title:       templateName,
		SubjectLine: cfg.SubjectLine,
		FromName:    cfg.FromName,
		ReplyTo:     cfg.ReplyTo,
	})
	if err != nil {
		w.deleteTemplate(context.WithoutCancel(ctx), templateID)
		return fail(exitCodeFor(err), fmt.Errorf("create campaign: %w", err))
	}
	camp = domain.Campaign{ID: campaignID, TemplateID: templateID}
	state = domain.StateCampaignCreated
	w.logger.Info("campaign created",
		zap.String("campaignId", campaignID.String()),
		zap.String("templateId", templateID.String()),
	)

	if cfg.Debug {
		// Dry run: never schedule test content for delivery.
		state = domain.StateDone
		w.logger.Info("debug mode, campaign left unscheduled", zap.String("campaignId", campaignID.String()))
		w.cleanupTemplate(context.WithoutCancel(ctx), cfg, tmpl)
		return domain.Success(
			fmt.Sprintf("debug run, campaign %s created but not scheduled", campaignID),
			w.now().Sub(start),
		)
	}

	sendAt, err := w.calc.NextSendTime(cfg.SendTime, cfg.Timezone)
	if err != nil {
		w.deleteCampaign(context.WithoutCancel(ctx), campaignID)
		return fail(domain.ExitInvalidDate, fmt.Errorf("compute send time: %w", err))
	}

	// Sanity check before committing: the wire timestamp must parse back
	// and still be in the future.
	if wire := schedule.FormatISO8601(sendAt); !schedule.IsISO8601(wire) || schedule.HasPassed(sendAt, w.now()) {
		w.deleteCampaign(context.WithoutCancel(ctx), campaignID)
		return fail(domain.ExitInvalidDate, fmt.Errorf("computed send time %s is not schedulable", wire))
	}

	if err := w.client.Schedule(ctx, campaignID, sendAt); err != nil {
		// The template is intentionally kept for inspection.
		w.deleteCampaign(context.WithoutCancel(ctx), campaignID)
		return fail(exitCodeFor(err), fmt.Errorf("schedule campaign: %w", err))
	}
	state = domain.StateScheduled
	w.logger.Info("campaign scheduled",
		zap.String("campaignId", campaignID.String()),
		zap.Time("sendAt", sendAt),
	)

	w.cleanupTemplate(ctx, cfg, tmpl)

	state = domain.StateDone
	return domain.Success(
		fmt.Sprintf("campaign %s scheduled for %s", campaignID, schedule.FormatISO8601(sendAt)),
		w.now().Sub(start),
	)
}

// cleanupTemplate applies the configured cleanup policy once the campaign
// no longer depends on the template. The platform copies template HTML
// into the campaign at creation time, so deletion here cannot break a
// scheduled send.
func (w *Workflow) cleanupTemplate(ctx context.Context, cfg domain.CampaignConfig, tmpl domain.Template) {
	if cfg.Cleanup != domain.CleanupAlways || tmpl.ID == "" {
		return
	}
	w.deleteTemplate(ctx, tmpl.ID)
}

// deleteTemplate is a best-effort compensation; its failure is logged and
// never masks the error that triggered it.
func (w *Workflow) deleteTemplate(ctx context.Context, id domain.TemplateID) {
	if err := w.client.DeleteTemplate(ctx, id); err != nil {
		w.logger.Warn("template cleanup failed",
			zap.String("templateId", id.String()),
			zap.Error(err),
		)
		return
	}
	w.logger.Info("template deleted", zap.String("templateId", id.String()))
}

func (w *Workflow) deleteCampaign(ctx context.Context, id domain.CampaignID) {
	if err := w.client.DeleteCampaign(ctx, id); err != nil {
		w.logger.Warn("campaign cleanup failed",
			zap.String("campaignId", id.String()),
			zap.Error(err),
		)
		return
	}
	w.logger.Info("campaign deleted", zap.String("campaignId", id.String()))
}

// exitCodeFor maps error classes to process exit codes. Date and timezone
// failures are mapped at their call sites; everything else coming out of
// a remote call is a platform failure.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrConfig):
		return domain.ExitConfig
	default:
		return domain.ExitPlatform
	}
}
