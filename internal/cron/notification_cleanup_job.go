package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

const (
	defaultNotificationRetention = 30 * 24 * time.Hour
	notificationCleanupEvery     = 6 * time.Hour
	notificationPurgeBatch       = 500
	maxPurgeBatchesPerRun        = 40
)

type notificationPurger interface {
	PurgeSeen(ctx context.Context, cutoff time.Time, batch int) (int64, error)
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository notificationPurger
	// RetentionDays is how long a seen notification is kept. Zero means 30.
	RetentionDays int
}

// NewNotificationCleanupJob purges notifications seen longer ago than the
// retention period, in bounded batches so a backlog never holds one long
// delete. Unseen notifications are never removed.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	retention := defaultNotificationRetention
	if params.RetentionDays > 0 {
		retention = time.Duration(params.RetentionDays) * 24 * time.Hour
	}
	return &notificationCleanupJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		batch:     notificationPurgeBatch,
		now:       time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	repo      notificationPurger
	retention time.Duration
	batch     int
	now       func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Every() time.Duration { return notificationCleanupEvery }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	batches := 0
	for batches < maxPurgeBatchesPerRun {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := j.repo.PurgeSeen(ctx, cutoff, j.batch)
		if err != nil {
			return fmt.Errorf("notification cleanup after %d rows: %w", deleted, err)
		}
		batches++
		deleted += rows
		if rows < int64(j.batch) {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"batches":      batches,
		"rows_deleted": deleted,
	})
	if batches == maxPurgeBatchesPerRun {
		j.logg.Warn(logCtx, "notification cleanup hit its batch cap; the rest waits for the next run")
		return nil
	}
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
