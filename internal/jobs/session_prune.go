// File: internal/jobs/session_prune.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"prepwise_auth/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SessionPruner removes expired session records.
type SessionPruner interface {
	PruneExpired(ctx context.Context) (int64, error)
}

// SessionPruneJob periodically drops expired session records.
type SessionPruneJob struct {
	pruner        SessionPruner
	logger        *zap.Logger
	schedule      string
	cronScheduler *cron.Cron
}

// NewSessionPruneJob creates a new SessionPruneJob.
func NewSessionPruneJob(pruner SessionPruner, logger *zap.Logger, cfg *config.Config) *SessionPruneJob {
	cronLog := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.SkipIfStillRunning(cronLog)),
	)

	return &SessionPruneJob{
		pruner:        pruner,
		logger:        logger.Named("SessionPruneJob"),
		schedule:      cfg.SessionPruneJobSchedule,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job. An empty schedule
// disables the job.
func (j *SessionPruneJob) SetupAndStart() error {
	if j.schedule == "" {
		j.logger.Warn("Session prune job schedule not defined (SESSION_PRUNE_JOB_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(j.schedule, j.Run)
	if err != nil {
		j.logger.Error("Failed to schedule session prune job", zap.String("spec", j.schedule), zap.Error(err))
		return err
	}

	j.logger.Info("Session prune job scheduled", zap.String("spec", j.schedule), zap.Int("jobID", int(jobID)))
	j.cronScheduler.Start()
	return nil
}

// Run performs one prune pass.
func (j *SessionPruneJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := j.pruner.PruneExpired(ctx)
	if err != nil {
		j.logger.Error("Session prune run failed", zap.Error(err))
		return
	}
	j.logger.Info("Session prune run completed", zap.Int64("sessions_removed", removed))
}

// Stop gracefully stops the cron scheduler.
func (j *SessionPruneJob) Stop() {
	j.logger.Info("Stopping session prune job scheduler...")
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Session prune job scheduler stopped gracefully.")
	case <-time.After(10 * time.Second):
		j.logger.Warn("Session prune job scheduler stop timed out.")
	}
}

// cronLogger adapts zap.Logger to the cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a cron.Logger backed by zl.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info logs routine messages from cron at debug level; cron is chatty.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, fields(keysAndValues)...)
}

// Error logs error messages from cron.
func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	cl.zl.Error(msg, append(fields(keysAndValues), zap.Error(err))...)
}

func fields(keysAndValues []interface{}) []zap.Field {
	out := make([]zap.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		if i+1 < len(keysAndValues) {
			out = append(out, zap.Any(key, keysAndValues[i+1]))
		} else {
			out = append(out, zap.Any(key, "MISSING_VALUE"))
		}
	}
	return out
}
