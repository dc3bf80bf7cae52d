// Package report turns a run's outcome into its durable traces: the
// append-only history log, failure alerts, and log retention.
package report

import (
	"fmt"
	"os"
	"time"

	"github.com/pressbriefs/campaign-pilot/internal/domain"
)

const historyFileMode = 0o644

// historyTimeLayout matches the ISO-8601 UTC stamp of history lines.
const historyTimeLayout = "2006-01-02T15:04:05Z"

// HistoryRecord is one line of the run history.
type HistoryRecord struct {
	Timestamp time.Time
	Status    domain.RunStatus
	Mode      domain.RunMode
	Debug     bool
	RunName   string
	ExitCode  int
	LogFile   string
}

// FormatHistoryLine renders the record in the fixed single-line format,
// without the trailing newline.
func FormatHistoryLine(rec HistoryRecord) string {
	tags := fmt.Sprintf("[%s]", rec.Mode)
	if rec.Debug {
		tags += " [DEBUG]"
	}

	return fmt.Sprintf("%s - [%s] - %s %s, exit code: %d. See %s for more details.",
		rec.Timestamp.UTC().Format(historyTimeLayout),
		rec.Status,
		tags,
		rec.RunName,
		rec.ExitCode,
		rec.LogFile,
	)
}

// AppendHistory writes one record to the history file. The file is opened
// in append mode so overlapping runs interleave lines instead of
// truncating each other.
func AppendHistory(path string, rec HistoryRecord) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, historyFileMode)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, FormatHistoryLine(rec)); err != nil {
		return fmt.Errorf("failed to append history line: %w", err)
	}

	return nil
}
