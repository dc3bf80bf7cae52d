package platform

import (
	"context"
	"time"

	"github.com/pressbriefs/campaign-pilot/internal/domain"
)

// Client is the outbound port to the email-marketing platform. Every
// method performs exactly one synchronous remote call; the core never
// retries on its own.
type Client interface {
	CreateTemplate(ctx context.Context, name, html string) (domain.TemplateID, error)
	CreateCampaign(ctx context.Context, spec CampaignSpec) (domain.CampaignID, error)
	Schedule(ctx context.Context, campaignID domain.CampaignID, at time.Time) error
	DeleteCampaign(ctx context.Context, campaignID domain.CampaignID) error
	DeleteTemplate(ctx context.Context, templateID domain.TemplateID) error
}

// CampaignSpec carries the platform-facing fields of a campaign creation
// call.
type CampaignSpec struct {
	TemplateID  domain.TemplateID
	AudienceID  string
	Title       string
	SubjectLine string
	FromName    string
	ReplyTo     string
}
