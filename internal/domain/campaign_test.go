package domain

import (
	"errors"
	"testing"
	"time"
)

func validCampaignConfig() CampaignConfig {
	return CampaignConfig{
		Name:        "Daily Briefing",
		AudienceID:  "a1b2c3",
		SubjectLine: "Your briefing for today",
		FromName:    "The Newsroom",
		ReplyTo:     "desk@example.com",
		SendTime:    "09:00",
		Timezone:    "UTC",
		Cleanup:     CleanupOnFailure,
	}
}

func TestParseCleanupPolicyFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    CleanupPolicy
		wantErr bool
	}{
		{name: "on-failure", input: "on-failure", want: CleanupOnFailure},
		{name: "always with spaces", input: " Always ", want: CleanupAlways},
		{name: "invalid", input: "never", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseCleanupPolicyFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseCleanupPolicyFromString() error = %v, want ErrValidation", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseCleanupPolicyFromString() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseCleanupPolicyFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseRunModeFromString(t *testing.T) {
	t.Parallel()

	got, err := ParseRunModeFromString(" cron ")
	if err != nil {
		t.Fatalf("ParseRunModeFromString() unexpected error = %v", err)
	}
	if got != ModeCron {
		t.Fatalf("ParseRunModeFromString() = %s, want %s", got, ModeCron)
	}

	_, err = ParseRunModeFromString("interactive")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseRunModeFromString() error = %v, want ErrValidation", err)
	}
}

func TestCampaignConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := validCampaignConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *CampaignConfig)
	}{
		{name: "missing name", mutate: func(c *CampaignConfig) { c.Name = " " }},
		{name: "missing subject", mutate: func(c *CampaignConfig) { c.SubjectLine = "" }},
		{name: "missing from name", mutate: func(c *CampaignConfig) { c.FromName = "" }},
		{name: "missing reply-to", mutate: func(c *CampaignConfig) { c.ReplyTo = "" }},
		{name: "missing send time", mutate: func(c *CampaignConfig) { c.SendTime = "" }},
		{name: "missing timezone", mutate: func(c *CampaignConfig) { c.Timezone = "" }},
		{name: "invalid cleanup policy", mutate: func(c *CampaignConfig) { c.Cleanup = "never" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validCampaignConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrValidation) {
				t.Fatalf("Validate() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRunStateTerminal(t *testing.T) {
	t.Parallel()

	for _, state := range []RunState{StateIdle, StateTemplateCreated, StateCampaignCreated, StateScheduled} {
		if state.Terminal() {
			t.Fatalf("state %s should not be terminal", state)
		}
	}
	if !StateDone.Terminal() {
		t.Fatal("StateDone should be terminal")
	}
	if !StateFailed.Terminal() {
		t.Fatal("StateFailed should be terminal")
	}
}

func TestOutcomeConstructors(t *testing.T) {
	t.Parallel()

	success := Success("scheduled", 2*time.Second)
	if success.Failed() {
		t.Fatal("Success() outcome should not be failed")
	}
	if success.ExitCode != ExitOK {
		t.Fatalf("ExitCode = %d, want %d", success.ExitCode, ExitOK)
	}

	failure := Failure(ExitInvalidDate, "bad date", time.Second)
	if !failure.Failed() {
		t.Fatal("Failure() outcome should be failed")
	}
	if failure.ExitCode != ExitInvalidDate {
		t.Fatalf("ExitCode = %d, want %d", failure.ExitCode, ExitInvalidDate)
	}

	// A failed outcome must never carry the success code.
	coerced := Failure(ExitOK, "unclassified", 0)
	if coerced.ExitCode != ExitPlatform {
		t.Fatalf("ExitCode = %d, want %d", coerced.ExitCode, ExitPlatform)
	}
}
