// Package redis holds the Redis-backed dispatch log.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"course_followup_service/internal/domain/notification"
)

const (
	dispatchPrefix = "dispatch:"
	// Entries only need to outlive the scheduling day they belong to.
	defaultEntryTTL = 72 * time.Hour
)

// releaseScript deletes the key only while it still holds the pending marker,
// so a settled entry is never dropped by a late release.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Options struct {
	Addr     string
	Password string
	DB       int
}

// DispatchLog implements notification.LogRepository with SETNX claims.
type DispatchLog struct {
	rdb    *goredis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

// NewDispatchLog connects and pings Redis.
func NewDispatchLog(opts Options, logger *logrus.Entry) (*DispatchLog, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.WithField("addr", opts.Addr).Info("Redis dispatch log connected")
	return &DispatchLog{rdb: rdb, ttl: defaultEntryTTL, logger: logger.WithField("component", "redis_dispatch_log")}, nil
}

func entryKey(e notification.LogEntry) string {
	return fmt.Sprintf("%s%s:%s:%s", dispatchPrefix, e.CourseID, e.Checkpoint, e.Date)
}

type settled struct {
	Status     notification.Status `json:"status"`
	Recipients int                 `json:"recipients"`
}

func (d *DispatchLog) Claim(ctx context.Context, e notification.LogEntry) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, entryKey(e), string(notification.StatusPending), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis claim failed: %w", err)
	}
	return ok, nil
}

func (d *DispatchLog) Complete(ctx context.Context, e notification.LogEntry) error {
	payload, err := json.Marshal(settled{Status: e.Status, Recipients: e.Recipients})
	if err != nil {
		return fmt.Errorf("failed to encode dispatch log entry: %w", err)
	}
	if err := d.rdb.Set(ctx, entryKey(e), payload, d.ttl).Err(); err != nil {
		return fmt.Errorf("redis complete failed: %w", err)
	}
	return nil
}

func (d *DispatchLog) Release(ctx context.Context, e notification.LogEntry) error {
	if err := releaseScript.Run(ctx, d.rdb, []string{entryKey(e)}, string(notification.StatusPending)).Err(); err != nil && err != goredis.Nil {
		return fmt.Errorf("redis release failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (d *DispatchLog) Close() error {
	return d.rdb.Close()
}
