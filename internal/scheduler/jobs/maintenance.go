package jobs

import (
	"context"
	"time"

	"github.com/wonny/aegis-rotation/internal/backtest"
	"github.com/wonny/aegis-rotation/pkg/logger"
)

// ReportPruneJob drops stored reports older than a retention window
type ReportPruneJob struct {
	reports   *backtest.ReportStore
	retention time.Duration
	logger    *logger.Logger

	now func() time.Time
}

// NewReportPruneJob creates a new prune job
func NewReportPruneJob(reports *backtest.ReportStore, retention time.Duration, log *logger.Logger) *ReportPruneJob {
	return &ReportPruneJob{
		reports:   reports,
		retention: retention,
		logger:    log,
		now:       time.Now,
	}
}

// Name returns the job name
func (j *ReportPruneJob) Name() string {
	return "report_prune"
}

// Schedule returns the cron schedule (매일 새벽 3시)
func (j *ReportPruneJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run executes the job
func (j *ReportPruneJob) Run(_ context.Context) error {
	cutoff := j.now().Add(-j.retention)
	removed := j.reports.Prune(cutoff)

	j.logger.WithFields(map[string]interface{}{
		"removed":   removed,
		"remaining": j.reports.Len(),
		"cutoff":    cutoff.Format(time.RFC3339),
	}).Info("Report prune completed")

	return nil
}
