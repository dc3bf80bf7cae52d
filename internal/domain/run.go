package domain

import (
	"fmt"
	"strings"
	"time"
)

// RunMode records how the run was triggered; it is stamped on history
// lines.
type RunMode string

const (
	ModeManual RunMode = "MANUAL"
	ModeCron   RunMode = "CRON"
)

func (m RunMode) String() string { return string(m) }

func (m RunMode) IsValid() bool {
	switch m {
	case ModeManual, ModeCron:
		return true
	}
	return false
}

func ParseRunModeFromString(s string) (RunMode, error) {
	m := RunMode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: invalid run mode %q", ErrValidation, s)
	}
	return m, nil
}

// RunState is the workflow position. Each state is a precondition for the
// next; Failed is reachable from every non-terminal state.
type RunState string

const (
	StateIdle            RunState = "IDLE"
	StateTemplateCreated RunState = "TEMPLATE_CREATED"
	StateCampaignCreated RunState = "CAMPAIGN_CREATED"
	StateScheduled       RunState = "SCHEDULED"
	StateDone            RunState = "DONE"
	StateFailed          RunState = "FAILED"
)

func (s RunState) String() string { return string(s) }

// Terminal reports whether the workflow has finished, one way or the other.
func (s RunState) Terminal() bool { return s == StateDone || s == StateFailed }

// RunStatus is the terminal verdict of a run.
type RunStatus string

const (
	StatusSuccess RunStatus = "SUCCESS"
	StatusFailed  RunStatus = "FAILED"
)

func (s RunStatus) String() string { return string(s) }

// Process exit codes. Each failure class gets its own code so wrapping
// cron jobs can tell them apart.
const (
	ExitOK          = 0
	ExitConfig      = 2
	ExitWorkDir     = 3
	ExitInvalidDate = 4
	ExitPlatform    = 5
	ExitAuth        = 6
)

// RunContext is the immutable per-execution record, created at process
// start and passed by reference to every component.
type RunContext struct {
	RunID         string
	Name          string
	Mode          RunMode
	Debug         bool
	ContentSource string
	LogFile       string
	StartedAt     time.Time
}

// RunOutcome is produced exactly once per run and drives the history log,
// the process exit code, and failure alerting.
type RunOutcome struct {
	Status   RunStatus
	ExitCode int
	Message  string
	Elapsed  time.Duration
}

func (o RunOutcome) Failed() bool { return o.Status == StatusFailed }

// Success builds the single success outcome of a run.
func Success(message string, elapsed time.Duration) RunOutcome {
	return RunOutcome{
		Status:   StatusSuccess,
		ExitCode: ExitOK,
		Message:  message,
		Elapsed:  elapsed,
	}
}

// Failure builds a failed outcome with the given exit code.
func Failure(exitCode int, message string, elapsed time.Duration) RunOutcome {
	if exitCode == ExitOK {
		exitCode = ExitPlatform
	}
	return RunOutcome{
		Status:   StatusFailed,
		ExitCode: exitCode,
		Message:  message,
		Elapsed:  elapsed,
	}
}
