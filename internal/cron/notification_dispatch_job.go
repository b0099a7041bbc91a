package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tradeflow-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

type dispatchPoller interface {
	Poll(ctx context.Context) (notifications.PollResult, error)
}

type NotificationDispatchJobParams struct {
	Logger     *logger.Logger
	Dispatcher dispatchPoller
}

// NewNotificationDispatchJob runs one dispatcher poll per service tick.
func NewNotificationDispatchJob(params NotificationDispatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	return &notificationDispatchJob{logg: params.Logger, dispatcher: params.Dispatcher}, nil
}

type notificationDispatchJob struct {
	logg       *logger.Logger
	dispatcher dispatchPoller
}

func (j *notificationDispatchJob) Name() string { return "notification-dispatch" }

func (j *notificationDispatchJob) Run(ctx context.Context) error {
	result, err := j.dispatcher.Poll(ctx)
	if err != nil {
		if !pkgerrors.IsRetryable(err) {
			j.logg.Error(ctx, "order backend rejected the worker; check its service credentials", err)
		}
		return fmt.Errorf("notification dispatch: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"subscribers":   result.Subscribers,
		"emitted":       result.Emitted,
		"head_revision": result.HeadRevision,
	})
	switch {
	case result.Skipped:
		j.logg.Warn(logCtx, "order backend unavailable; poll skipped")
	case result.Emitted > 0:
		j.logg.Info(logCtx, "notifications emitted")
	default:
		j.logg.Debug(logCtx, "no order changes")
	}
	return nil
}
