package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/pressbriefs/campaign-pilot/internal/domain"
)

func TestFormatHistoryLine(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 8, 16, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		rec  HistoryRecord
		want string
	}{
		{
			name: "manual success",
			rec: HistoryRecord{
				Timestamp: ts,
				Status:    domain.StatusSuccess,
				Mode:      domain.ModeManual,
				RunName:   "daily-briefing",
				ExitCode:  0,
				LogFile:   "/var/log/campaign/run-1.log",
			},
			want: "2024-08-16T09:30:00Z - [SUCCESS] - [MANUAL] daily-briefing, exit code: 0. See /var/log/campaign/run-1.log for more details.",
		},
		{
			name: "cron failure",
			rec: HistoryRecord{
				Timestamp: ts,
				Status:    domain.StatusFailed,
				Mode:      domain.ModeCron,
				RunName:   "daily-briefing",
				ExitCode:  5,
				LogFile:   "/var/log/campaign/run-2.log",
			},
			want: "2024-08-16T09:30:00Z - [FAILED] - [CRON] daily-briefing, exit code: 5. See /var/log/campaign/run-2.log for more details.",
		},
		{
			name: "debug run",
			rec: HistoryRecord{
				Timestamp: ts,
				Status:    domain.StatusSuccess,
				Mode:      domain.ModeManual,
				Debug:     true,
				RunName:   "daily-briefing",
				ExitCode:  0,
				LogFile:   "run-3.log",
			},
			want: "2024-08-16T09:30:00Z - [SUCCESS] - [MANUAL] [DEBUG] daily-briefing, exit code: 0. See run-3.log for more details.",
		},
		{
			name: "non-utc timestamp is normalized",
			rec: HistoryRecord{
				Timestamp: ts.In(time.FixedZone("X", 2*3600)),
				Status:    domain.StatusSuccess,
				Mode:      domain.ModeManual,
				RunName:   "daily-briefing",
				ExitCode:  0,
				LogFile:   "run-4.log",
			},
			want: "2024-08-16T09:30:00Z - [SUCCESS] - [MANUAL] daily-briefing, exit code: 0. See run-4.log for more details.",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := FormatHistoryLine(tt.rec); got != tt.want {
				t.Fatalf("FormatHistoryLine() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestAppendHistoryAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.log")
	ts := time.Date(2024, 8, 16, 9, 30, 0, 0, time.UTC)

	first := HistoryRecord{Timestamp: ts, Status: domain.StatusSuccess, Mode: domain.ModeManual, RunName: "r1", LogFile: "a.log"}
	second := HistoryRecord{Timestamp: ts.Add(time.Minute), Status: domain.StatusFailed, Mode: domain.ModeCron, RunName: "r2", ExitCode: 5, LogFile: "b.log"}

	if err := AppendHistory(path, first); err != nil {
		t.Fatalf("AppendHistory() error = %v", err)
	}
	if err := AppendHistory(path, second); err != nil {
		t.Fatalf("AppendHistory() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read history: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("history lines = %d, want 2", len(lines))
	}
	if lines[0] != FormatHistoryLine(first) {
		t.Fatalf("first line = %q", lines[0])
	}
	if lines[1] != FormatHistoryLine(second) {
		t.Fatalf("second line = %q", lines[1])
	}
}

func TestSlackNotifierPostsText(t *testing.T) {
	t.Parallel()

	var gotBody slackMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	notifier, err := NewSlackNotifierWithClient(server.URL, resty.New())
	if err != nil {
		t.Fatalf("NewSlackNotifierWithClient() error = %v", err)
	}

	if err := notifier.Alert(context.Background(), "run failed", "create campaign: status=400"); err != nil {
		t.Fatalf("Alert() unexpected error = %v", err)
	}

	if gotBody.Text != "run failed\ncreate campaign: status=400" {
		t.Fatalf("text = %q", gotBody.Text)
	}
}

func TestSlackNotifierRejection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	notifier, err := NewSlackNotifierWithClient(server.URL, resty.New())
	if err != nil {
		t.Fatalf("NewSlackNotifierWithClient() error = %v", err)
	}

	if err := notifier.Alert(context.Background(), "x", "y"); err == nil {
		t.Fatal("expected error for non-2xx webhook response")
	}
}

type fakeNotifier struct {
	alertFn func(ctx context.Context, subject, message string) error
	calls   int
}

func (f *fakeNotifier) Alert(ctx context.Context, subject, message string) error {
	f.calls++
	if f.alertFn != nil {
		return f.alertFn(ctx, subject, message)
	}
	return nil
}

type fakeUploader struct {
	uploadFn func(ctx context.Context, logFile string) error
	calls    int
}

func (f *fakeUploader) UploadLog(ctx context.Context, logFile string) error {
	f.calls++
	if f.uploadFn != nil {
		return f.uploadFn(ctx, logFile)
	}
	return nil
}

func testRunContext() domain.RunContext {
	return domain.RunContext{
		RunID:   "run-1",
		Name:    "daily-briefing",
		Mode:    domain.ModeManual,
		LogFile: "run-1.log",
	}
}

func TestReporterFinalizeWritesHistory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.log")
	reporter, err := NewReporter(path, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewReporter() error = %v", err)
	}

	outcome := domain.Success("scheduled", time.Second)
	if err := reporter.Finalize(context.Background(), testRunContext(), outcome); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	if !strings.Contains(string(data), "[SUCCESS] - [MANUAL] daily-briefing, exit code: 0.") {
		t.Fatalf("history content = %q", string(data))
	}
}

func TestReporterAlertsOnlyOnFailure(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.log")
	notifier := &fakeNotifier{}
	reporter, err := NewReporter(path, notifier, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewReporter() error = %v", err)
	}

	if err := reporter.Finalize(context.Background(), testRunContext(), domain.Success("ok", 0)); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if notifier.calls != 0 {
		t.Fatalf("alert calls = %d, want 0 on success", notifier.calls)
	}

	if err := reporter.Finalize(context.Background(), testRunContext(), domain.Failure(domain.ExitPlatform, "boom", 0)); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if notifier.calls != 1 {
		t.Fatalf("alert calls = %d, want 1 on failure", notifier.calls)
	}
}

func TestReporterAlertFailureIsNotEscalated(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.log")
	notifier := &fakeNotifier{
		alertFn: func(ctx context.Context, subject, message string) error {
			return errors.New("webhook down")
		},
	}
	uploader := &fakeUploader{
		uploadFn: func(ctx context.Context, logFile string) error {
			return errors.New("bucket gone")
		},
	}
	reporter, err := NewReporter(path, notifier, uploader, zap.NewNop())
	if err != nil {
		t.Fatalf("NewReporter() error = %v", err)
	}

	err = reporter.Finalize(context.Background(), testRunContext(), domain.Failure(domain.ExitPlatform, "boom", 0))
	if err != nil {
		t.Fatalf("Finalize() error = %v, best-effort steps must not escalate", err)
	}
	if notifier.calls != 1 || uploader.calls != 1 {
		t.Fatalf("calls = (%d, %d), want both attempted", notifier.calls, uploader.calls)
	}
}

func TestReporterUploadsLogOnSuccessToo(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.log")
	uploader := &fakeUploader{}
	reporter, err := NewReporter(path, nil, uploader, zap.NewNop())
	if err != nil {
		t.Fatalf("NewReporter() error = %v", err)
	}

	if err := reporter.Finalize(context.Background(), testRunContext(), domain.Success("ok", 0)); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if uploader.calls != 1 {
		t.Fatalf("upload calls = %d, want 1", uploader.calls)
	}
}
