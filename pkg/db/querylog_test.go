package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

func newBufferedQueryLogger(slow time.Duration) (gormlogger.Interface, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Format: logger.FormatJSON, Output: buf})
	return newQueryLogger(logg, slow), buf
}

func statement() (string, int64) { return "SELECT * FROM orders", 3 }

func TestQueryLoggerReportsFailures(t *testing.T) {
	ql, buf := newBufferedQueryLogger(time.Second)
	ql.Trace(context.Background(), time.Now(), statement, errors.New("relation does not exist"))
	require.Contains(t, buf.String(), "db.query_failed")
	require.Contains(t, buf.String(), "SELECT * FROM orders")
}

func TestQueryLoggerIgnoresNotFoundAndFastQueries(t *testing.T) {
	ql, buf := newBufferedQueryLogger(time.Second)
	ql.Trace(context.Background(), time.Now(), statement, gorm.ErrRecordNotFound)
	ql.Trace(context.Background(), time.Now(), statement, nil)
	require.Empty(t, buf.String())
}

func TestQueryLoggerReportsSlowQueries(t *testing.T) {
	ql, buf := newBufferedQueryLogger(time.Millisecond)
	ql.Trace(context.Background(), time.Now().Add(-time.Second), statement, nil)
	require.Contains(t, buf.String(), "db.slow_query")
	require.Contains(t, buf.String(), `"rows":3`)
}

func TestQueryLoggerSilentMode(t *testing.T) {
	ql, buf := newBufferedQueryLogger(time.Millisecond)
	ql.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now().Add(-time.Second), statement, errors.New("boom"))
	require.Empty(t, buf.String())
}

func TestQueryLoggerWithoutLoggerDiscards(t *testing.T) {
	require.Equal(t, gormlogger.Discard, newQueryLogger(nil, time.Second))
}
