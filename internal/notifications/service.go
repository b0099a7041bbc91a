package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/pagination"
	"github.com/angelmondragon/tradeflow-backend/pkg/visibility"
)

// Service defines subscription, list and dismissal operations.
type Service interface {
	Subscribe(ctx context.Context, caller visibility.Caller) ([]models.NotificationSubscription, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkSeen(ctx context.Context, subscriberID, notificationID uuid.UUID) error
	MarkAllSeen(ctx context.Context, subscriberID uuid.UUID) (int64, error)
}

// HeadReader reports the current global order revision.
type HeadReader interface {
	HeadRevision(ctx context.Context) (int64, error)
}

type service struct {
	repo  Repository
	heads HeadReader
	now   func() time.Time
}

// ListParams configures pagination for notifications.
type ListParams struct {
	SubscriberID uuid.UUID
	Limit        int
	Cursor       string
	UnseenOnly   bool
}

// ListResult wraps returned notifications and the cursor for the next page.
// Unseen counts every unseen notification of the subscriber, not just the page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
	Unseen int64                 `json:"unseen"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository, heads HeadReader) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if heads == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "head revision reader required")
	}
	return &service{repo: repo, heads: heads, now: time.Now}, nil
}

// SubscriberClass groups subscribers that share a role and view.
func SubscriberClass(role enums.Role, view enums.OrderView) string {
	return fmt.Sprintf("%s:%s", role, view)
}

// SubscriberKey identifies one subscriber within its class.
func SubscriberKey(role enums.Role, view enums.OrderView, subscriberID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", SubscriberClass(role, view), subscriberID)
}

// Subscribe registers the caller for every view of its role. Changes at or
// before the current head are never delivered; repeating the call keeps the
// original registration.
func (s *service) Subscribe(ctx context.Context, caller visibility.Caller) ([]models.NotificationSubscription, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}
	views := enums.ViewsFor(caller.Role)
	if len(views) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role has no order views")
	}

	head, err := s.heads.HeadRevision(ctx)
	if err != nil {
		return nil, transportError(err, "read head revision")
	}

	subs := make([]models.NotificationSubscription, 0, len(views))
	for _, view := range views {
		stored, err := s.repo.EnsureSubscription(ctx, &models.NotificationSubscription{
			Key:           SubscriberKey(caller.Role, view, caller.ID),
			SubscriberID:  caller.ID,
			Role:          caller.Role,
			View:          view,
			StartRevision: head,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register subscription")
		}
		subs = append(subs, *stored)
	}
	return subs, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.SubscriberID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscriber id required")
	}

	query := listNotificationsParams{
		SubscriberID: params.SubscriberID,
		Limit:        params.Limit,
		UnseenOnly:   params.UnseenOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	unseen, err := s.repo.CountUnseen(ctx, params.SubscriberID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unseen notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
		Unseen: unseen,
	}, nil
}

// MarkSeen dismisses one notification. It never touches the subscriber's
// high-water mark.
func (s *service) MarkSeen(ctx context.Context, subscriberID, notificationID uuid.UUID) error {
	if subscriberID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscriber id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkSeen(ctx, subscriberID, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification seen")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllSeen(ctx context.Context, subscriberID uuid.UUID) (int64, error) {
	if subscriberID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "subscriber id required")
	}

	count, err := s.repo.MarkAllSeen(ctx, subscriberID, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications seen")
	}
	return count, nil
}

// transportError keeps typed errors intact and classifies anything else as a
// dependency failure.
func transportError(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
