package domain

import (
	"fmt"
	"strings"
)

// TemplateID identifies a template on the remote platform. Opaque; the
// platform assigns it.
type TemplateID string

func (id TemplateID) String() string { return string(id) }

// CampaignID identifies a campaign on the remote platform.
type CampaignID string

func (id CampaignID) String() string { return string(id) }

// Template is the remote content object created from the fetched HTML.
// Exactly one is created per run.
type Template struct {
	ID   TemplateID
	Name string
}

// Campaign is the schedulable send unit referencing a Template.
type Campaign struct {
	ID         CampaignID
	TemplateID TemplateID
}

// CleanupPolicy controls when the run's template is deleted from the
// platform.
type CleanupPolicy string

const (
	// CleanupOnFailure keeps the template after a successful run for
	// manual inspection and deletes it only as failure compensation.
	CleanupOnFailure CleanupPolicy = "on-failure"
	// CleanupAlways also deletes the template once the campaign has been
	// scheduled. The platform copies template HTML into the campaign at
	// creation time, so a scheduled campaign does not depend on it.
	CleanupAlways CleanupPolicy = "always"
)

func (p CleanupPolicy) String() string { return string(p) }

func (p CleanupPolicy) IsValid() bool {
	switch p {
	case CleanupOnFailure, CleanupAlways:
		return true
	}
	return false
}

func ParseCleanupPolicyFromString(s string) (CleanupPolicy, error) {
	p := CleanupPolicy(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: invalid cleanup policy %q", ErrValidation, s)
	}
	return p, nil
}

// CampaignConfig carries everything the publish workflow needs to create
// and schedule one campaign. Built once at startup, read-only afterwards.
type CampaignConfig struct {
	Name        string
	AudienceID  string
	SubjectLine string
	FromName    string
	ReplyTo     string
	SendTime    string
	Timezone    string
	Debug       bool
	Cleanup     CleanupPolicy
}

func (c *CampaignConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: campaign name is required", ErrValidation)
	}
	if strings.TrimSpace(c.SubjectLine) == "" {
		return fmt.Errorf("%w: subject line is required", ErrValidation)
	}
	if strings.TrimSpace(c.FromName) == "" {
		return fmt.Errorf("%w: from name is required", ErrValidation)
	}
	if strings.TrimSpace(c.ReplyTo) == "" {
		return fmt.Errorf("%w: reply-to address is required", ErrValidation)
	}
	if strings.TrimSpace(c.SendTime) == "" {
		return fmt.Errorf("%w: send time is required", ErrValidation)
	}
	if strings.TrimSpace(c.Timezone) == "" {
		return fmt.Errorf("%w: timezone is required", ErrValidation)
	}
	if !c.Cleanup.IsValid() {
		return fmt.Errorf("%w: invalid cleanup policy %q", ErrValidation, c.Cleanup)
	}
	return nil
}
