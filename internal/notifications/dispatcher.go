package notifications

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/metrics"
	"github.com/angelmondragon/tradeflow-backend/pkg/types"
	"github.com/angelmondragon/tradeflow-backend/pkg/visibility"
)

// ChangeSource yields orders changed after a revision, oldest first.
type ChangeSource interface {
	ChangesSince(ctx context.Context, revision int64, limit int) (*types.OrderChanges, error)
}

// Publisher fans a stored notification out to live listeners.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// DispatcherParams wires the dispatcher.
type DispatcherParams struct {
	Repo      Repository
	Source    ChangeSource
	Marks     MarkStore
	Publisher Publisher
	Channel   string
	Policy    visibility.Policy
	BatchSize int
	Metrics   *metrics.DispatchMetrics
	Logger    *logger.Logger
}

// Dispatcher turns order changes into per-subscriber notifications.
type Dispatcher struct {
	repo      Repository
	source    ChangeSource
	marks     MarkStore
	publisher Publisher
	channel   string
	policy    visibility.Policy
	batch     int
	metrics   *metrics.DispatchMetrics
	logg      *logger.Logger
}

// PollResult summarizes one dispatch cycle.
type PollResult struct {
	Subscribers  int
	Emitted      int
	HeadRevision int64
	Skipped      bool
}

// NewDispatcher validates dependencies and builds a Dispatcher.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Source == nil {
		return nil, fmt.Errorf("change source required")
	}
	if params.Marks == nil {
		return nil, fmt.Errorf("mark store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Publisher != nil && params.Channel == "" {
		return nil, fmt.Errorf("publish channel required")
	}
	return &Dispatcher{
		repo:      params.Repo,
		source:    params.Source,
		marks:     params.Marks,
		publisher: params.Publisher,
		channel:   params.Channel,
		policy:    params.Policy,
		batch:     params.BatchSize,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

type pendingSubscriber struct {
	sub  models.NotificationSubscription
	mark int64
}

// Poll runs one dispatch cycle. Changes are fetched once for all subscribers
// from the lowest mark. A failed fetch is logged and leaves every mark where
// it was. Per-subscriber storage failures skip that subscriber's mark and are
// returned together once every subscriber has been processed.
func (d *Dispatcher) Poll(ctx context.Context) (PollResult, error) {
	var result PollResult

	subs, err := d.repo.ListSubscriptions(ctx)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	result.Subscribers = len(subs)
	d.metrics.SetSubscribers(len(subs))
	if len(subs) == 0 {
		return result, nil
	}

	var errs error
	pending := make([]pendingSubscriber, 0, len(subs))
	for _, sub := range subs {
		mark, ok, err := d.marks.Get(ctx, sub.Key)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if !ok || mark < sub.StartRevision {
			mark = sub.StartRevision
		}
		pending = append(pending, pendingSubscriber{sub: sub, mark: mark})
	}
	if len(pending) == 0 {
		return result, errs
	}

	lowest := pending[0].mark
	for _, p := range pending[1:] {
		if p.mark < lowest {
			lowest = p.mark
		}
	}

	changes, err := d.source.ChangesSince(ctx, lowest, d.batch)
	if err != nil {
		if isTransportFailure(err) {
			d.metrics.IncFetchFailure()
			logCtx := d.logg.WithField(ctx, "since_revision", lowest)
			d.logg.Warn(logCtx, fmt.Sprintf("order change fetch failed; marks unchanged: %v", err))
			result.Skipped = true
			return result, errs
		}
		return result, multierr.Append(errs, err)
	}
	result.HeadRevision = changes.HeadRevision
	d.metrics.SetHeadRevision(changes.HeadRevision)

	for _, p := range pending {
		if p.mark >= changes.HeadRevision {
			continue
		}
		emitted, err := d.deliver(ctx, p, changes)
		result.Emitted += emitted
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if err := d.marks.Set(ctx, p.sub.Key, changes.HeadRevision); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	logCtx := d.logg.WithFields(ctx, map[string]any{
		"subscribers":   result.Subscribers,
		"emitted":       result.Emitted,
		"head_revision": result.HeadRevision,
	})
	d.logg.Debug(logCtx, "notification dispatch cycle complete")
	return result, errs
}

func (d *Dispatcher) deliver(ctx context.Context, p pendingSubscriber, changes *types.OrderChanges) (int, error) {
	caller := visibility.Caller{ID: p.sub.SubscriberID, Role: p.sub.Role}
	class := SubscriberClass(p.sub.Role, p.sub.View)
	emitted := 0

	for idx := range changes.Orders {
		order := &changes.Orders[idx]
		if order.Revision <= p.mark || order.Revision > changes.HeadRevision {
			continue
		}
		if !visibility.Visible(order, caller, p.sub.View, d.policy) {
			continue
		}

		notification := buildNotification(p.sub, order, p.mark)
		created, err := d.repo.Create(ctx, notification)
		if err != nil {
			return emitted, fmt.Errorf("store notification for %s: %w", p.sub.Key, err)
		}
		if !created {
			continue
		}
		emitted++
		d.metrics.IncEmitted(class, string(notification.Kind))
		d.publish(ctx, notification)
	}
	return emitted, nil
}

// publish is best effort: the notification is already stored and will be
// returned by the next list call.
func (d *Dispatcher) publish(ctx context.Context, notification *models.Notification) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(ctx, d.channel, notification); err != nil {
		logCtx := d.logg.WithSubscriber(ctx, notification.SubscriberKey)
		d.logg.Warn(logCtx, fmt.Sprintf("publish notification failed: %v", err))
	}
}

// buildNotification reports an order created after the subscriber's mark as
// new, even when it already changed again before this cycle.
func buildNotification(sub models.NotificationSubscription, order *models.Order, mark int64) *models.Notification {
	kind := enums.NotificationKindStatusChanged
	if order.CreatedRevision > mark {
		kind = enums.NotificationKindNewOrder
	}
	return &models.Notification{
		SubscriberKey: sub.Key,
		SubscriberID:  sub.SubscriberID,
		Role:          sub.Role,
		View:          sub.View,
		OrderID:       order.ID,
		Revision:      order.Revision,
		Kind:          kind,
		OrderStatus:   order.Status,
		Order:         order.Snapshot(),
	}
}

// isTransportFailure reports whether err means the order source could not be
// reached, as opposed to rejecting the request.
func isTransportFailure(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return true
	}
	return typed.Code() == pkgerrors.CodeDependency
}
