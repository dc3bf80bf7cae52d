package config

import (
	"fmt"
	"os"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"

	"github.com/pressbriefs/campaign-pilot/internal/domain"
)

type Config struct {
	// Email platform.
	ServerPrefix string `env:"MAILCHIMP_SERVER_PREFIX,required=true"`
	APIKey       string `env:"MAILCHIMP_API_KEY,required=true"`
	AudienceID   string `env:"MAILCHIMP_AUDIENCE_ID"`

	// Campaign content and identity.
	CampaignName string `env:"CAMPAIGN_NAME,required=true"`
	SubjectLine  string `env:"CAMPAIGN_SUBJECT,required=true"`
	FromName     string `env:"CAMPAIGN_FROM_NAME,required=true"`
	ReplyTo      string `env:"CAMPAIGN_REPLY_TO,required=true"`
	ContentURL   string `env:"CONTENT_URL,required=true"`
	CacheBust    bool   `env:"CONTENT_CACHE_BUST,default=true"`
	RefreshURL   string `env:"CONTENT_REFRESH_URL"`
	RefreshToken string `env:"CONTENT_REFRESH_TOKEN"`

	// Scheduling.
	SendTime     string `env:"SEND_TIME,default=09:00"`
	Timezone     string `env:"SEND_TIMEZONE,default=UTC"`
	CronSchedule string `env:"CRON_SCHEDULE"`

	// Run behavior.
	Debug           bool   `env:"DEBUG,default=false"`
	TemplateCleanup string `env:"TEMPLATE_CLEANUP,default=on-failure"`
	WorkDir         string `env:"WORK_DIR,default=."`
	HistoryFile     string `env:"HISTORY_FILE,default=history.log"`
	LogLevel        string `env:"LOG_LEVEL,default=info"`

	// Alerting and log retention, both optional.
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`
	S3Bucket        string `env:"LOG_S3_BUCKET"`
	S3Region        string `env:"LOG_S3_REGION,default=us-east-1"`
	S3AccessKey     string `env:"LOG_S3_ACCESS_KEY"`
	S3SecretKey     string `env:"LOG_S3_SECRET_KEY"`
	S3Endpoint      string `env:"LOG_S3_ENDPOINT"`
	S3PathStyle     bool   `env:"LOG_S3_PATH_STYLE,default=false"`
	S3Prefix        string `env:"LOG_S3_PREFIX"`
}

func Load() (*Config, error) {
	// A local .env is a convenience, not a requirement.
	_ = godotenv.Load()

	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}

	if _, err := domain.ParseCleanupPolicyFromString(cfg.TemplateCleanup); err != nil {
		return nil, fmt.Errorf("%w: TEMPLATE_CLEANUP: %v", domain.ErrConfig, err)
	}

	return &cfg, nil
}

// CampaignConfig projects the environment into the workflow's immutable
// campaign settings.
func (c *Config) CampaignConfig() domain.CampaignConfig {
	cleanup, _ := domain.ParseCleanupPolicyFromString(c.TemplateCleanup)

	return domain.CampaignConfig{
		Name:        c.CampaignName,
		AudienceID:  c.AudienceID,
		SubjectLine: c.SubjectLine,
		FromName:    c.FromName,
		ReplyTo:     c.ReplyTo,
		SendTime:    c.SendTime,
		Timezone:    c.Timezone,
		Debug:       c.Debug,
		Cleanup:     cleanup,
	}
}

// ValidateWorkDir checks the working directory exists and is writable
// before the first remote call.
func (c *Config) ValidateWorkDir() error {
	info, err := os.Stat(c.WorkDir)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrWorkDir, c.WorkDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrWorkDir, c.WorkDir)
	}

	probe, err := os.CreateTemp(c.WorkDir, ".campaign-pilot-*")
	if err != nil {
		return fmt.Errorf("%w: %s is not writable: %v", domain.ErrWorkDir, c.WorkDir, err)
	}
	probe.Close()
	_ = os.Remove(probe.Name())

	return nil
}
