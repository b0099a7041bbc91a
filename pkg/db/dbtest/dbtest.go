// Package dbtest opens throwaway SQLite databases carrying the full schema.
package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/pkg/db"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

// Open returns a client over an isolated in-memory database with the schema
// migrated and the revision counter seeded.
func Open(t testing.TB) *db.Client {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true, NowFunc: utcNow})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db.Wrap(conn)
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// SeedFulfiller inserts an active truck owner with the given id.
func SeedFulfiller(t testing.TB, client *db.Client, id uuid.UUID, name string) models.Fulfiller {
	t.Helper()

	f := models.Fulfiller{ID: id, Type: enums.FulfillerTypeTruckOwner, DisplayName: name, Active: true}
	if err := client.DB().Create(&f).Error; err != nil {
		t.Fatalf("seed fulfiller: %v", err)
	}
	return f
}
