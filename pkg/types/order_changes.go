package types

import "github.com/angelmondragon/tradeflow-backend/pkg/db/models"

// OrderChanges is a batch of orders whose revision moved past a caller's mark,
// ordered by revision. HeadRevision is the highest revision the batch covers:
// when the batch was truncated it is the revision of its last order, otherwise
// the store head at read time.
type OrderChanges struct {
	Orders       []models.Order `json:"orders"`
	HeadRevision int64          `json:"head_revision"`
}

