package db

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
)

// Models lists every table the services touch.
var Models = []any{
	&models.Order{},
	&models.OrderItem{},
	&models.OrderAssignment{},
	&models.Fulfiller{},
	&models.Notification{},
	&models.NotificationSubscription{},
	&models.Counter{},
}

// AutoMigrate builds the schema from the models and seeds the revision
// counter. Postgres deployments use the goose migrations instead; this path
// serves SQLite, which has none of the Postgres enum types.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	seed := models.Counter{Name: models.CounterOrderRevision}
	if err := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return fmt.Errorf("seed revision counter: %w", err)
	}
	return nil
}
