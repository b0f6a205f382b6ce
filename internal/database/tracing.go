package database

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5"
	zaplogrus "github.com/pixelbuilders001/whydesigns-backend-server/internal/logging/zaplogrus"
	"github.com/redis/go-redis/v9"
)

const defaultSlowQueryThreshold = 500 * time.Millisecond

type queryStartKey struct{}

type queryStart struct {
	sql   string
	start time.Time
}

// PostgresSentryTracer reports failed statements to Sentry and logs slow ones.
type PostgresSentryTracer struct {
	SlowQueryThreshold time.Duration
}

func (t *PostgresSentryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, start: time.Now()})
}

func (t *PostgresSentryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qs, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := time.Since(qs.start)
	operation, table := parseSQL(qs.sql)

	if data.Err != nil && !errors.Is(data.Err, pgx.ErrNoRows) && !errors.Is(data.Err, context.Canceled) {
		hub := sentry.GetHubFromContext(ctx)
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("db.system", "postgresql")
			scope.SetTag("db.operation", operation)
			scope.SetTag("db.table", table)
			scope.SetExtra("db.statement", truncateSQL(qs.sql, 1000))
			hub.CaptureException(data.Err)
		})
	}

	threshold := t.SlowQueryThreshold
	if threshold <= 0 {
		threshold = defaultSlowQueryThreshold
	}
	if elapsed >= threshold {
		zaplogrus.WithFields(zaplogrus.Fields{
			"operation":     operation,
			"table":         table,
			"duration_ms":   elapsed.Milliseconds(),
			"rows_affected": data.CommandTag.RowsAffected(),
			"query":         truncateSQL(qs.sql, 500),
		}).Warn("Slow query")
	}
}

// RedisSentryHook reports Redis command failures other than cache misses.
type RedisSentryHook struct{}

var _ redis.Hook = (*RedisSentryHook)(nil)

func (RedisSentryHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			captureRedisError(ctx, "dial", err)
		}
		return conn, err
	}
}

func (RedisSentryHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			captureRedisError(ctx, cmd.Name(), err)
		}
		return err
	}
}

func (RedisSentryHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			captureRedisError(ctx, "pipeline", err)
		}
		return err
	}
}

func captureRedisError(ctx context.Context, command string, err error) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("db.system", "redis")
		scope.SetTag("db.operation", command)
		hub.CaptureException(err)
	})
}

// parseSQL extracts the statement verb and the first table it touches.
func parseSQL(query string) (operation, table string) {
	fields := strings.Fields(strings.ToLower(query))
	if len(fields) == 0 {
		return "unknown", ""
	}
	operation = fields[0]

	var marker string
	switch operation {
	case "select", "delete":
		marker = "from"
	case "insert":
		marker = "into"
	case "update":
		if len(fields) > 1 {
			return operation, strings.Trim(fields[1], `"`)
		}
		return operation, ""
	default:
		return operation, ""
	}

	for i, f := range fields {
		if f == marker && i+1 < len(fields) {
			return operation, strings.Trim(strings.TrimSuffix(fields[i+1], "("), `"`)
		}
	}
	return operation, ""
}

func truncateSQL(query string, max int) string {
	query = strings.Join(strings.Fields(query), " ")
	if len(query) <= max {
		return query
	}
	return query[:max] + "..."
}
