package migrate

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

func TestMaybeRunDevBuildsSQLiteSchema(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := &config.Config{DB: config.DBConfig{Driver: config.DriverSQLite}, App: config.AppConfig{Env: "prod"}}
	logg := logger.New(logger.Options{ServiceName: "migrate-test"})
	client := db.Wrap(conn)

	require.NoError(t, MaybeRunDev(context.Background(), cfg, logg, client))
	require.NoError(t, MaybeRunDev(context.Background(), cfg, logg, client))

	head, err := db.CurrentSequence(conn, models.CounterOrderRevision)
	require.NoError(t, err)
	require.Zero(t, head)
	require.True(t, conn.Migrator().HasTable(&models.Notification{}))
}

func TestMaybeRunDevSkipsPostgresOutsideDev(t *testing.T) {
	cfg := &config.Config{DB: config.DBConfig{Driver: config.DriverPostgres}, App: config.AppConfig{Env: "prod"}}
	require.NoError(t, MaybeRunDev(context.Background(), cfg, logger.New(logger.Options{ServiceName: "migrate-test"}), nil))
}
