package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

// Client owns the pooled GORM connection shared by the order, assignment
// and notification repositories.
type Client struct {
	conn *gorm.DB
}

// New opens the configured driver and applies pool limits. Postgres runs
// with the simple protocol so the pool works behind pgbouncer.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	case config.DriverPostgres, "":
		dialector = postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newQueryLogger(logg, cfg.SlowQuery),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	client := &Client{conn: conn}
	err = client.withSQL(func(sqlDB *sql.DB) error {
		applyPool(sqlDB, cfg)
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return fmt.Errorf("pinging %s: %w", cfg.Driver, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logg.Info(logg.WithField(ctx, "driver", cfg.Driver), "database connection established")
	return client, nil
}

// applyPool leaves database/sql defaults in place for unset limits.
func applyPool(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// Wrap adopts an already opened connection, mostly for tests.
func Wrap(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Ping(ctx context.Context) error {
	return c.withSQL(func(sqlDB *sql.DB) error { return sqlDB.PingContext(ctx) })
}

func (c *Client) Close() error {
	return c.withSQL((*sql.DB).Close)
}

func (c *Client) withSQL(fn func(*sql.DB) error) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return fmt.Errorf("sql db handle: %w", err)
	}
	return fn(sqlDB)
}

// WithTx runs fn in a transaction. Any error or panic from fn rolls it back.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}

// RegisterPoolMetrics exports database/sql pool statistics as
// go_sql_* series labelled db_name=name.
func (c *Client) RegisterPoolMetrics(reg prometheus.Registerer, name string) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return reg.Register(collectors.NewDBStatsCollector(sqlDB, name))
}
