package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/krishkalaria12/echo-interview/internal/pkg/envutil"
	"github.com/krishkalaria12/echo-interview/internal/pkg/logger"
)

// DeadLetter is one terminally failed workflow run, pushed to a Redis list so
// an operator can replay or inspect it.
type DeadLetter struct {
	WorkflowID  string    `json:"workflow_id"`
	Workflow    string    `json:"workflow"`
	InterviewID string    `json:"interview_id"`
	Error       string    `json:"error"`
	At          time.Time `json:"at"`
}

// Guard deduplicates one-shot event emission and records dead letters.
type Guard interface {
	// Once returns true exactly once per key within the guard TTL. Duplicate
	// webhook deliveries for the same key see false and skip emission.
	Once(ctx context.Context, key string) (bool, error)

	// RecordDeadLetter appends a failed run to the dead-letter list.
	RecordDeadLetter(ctx context.Context, dl DeadLetter) error

	Close() error
}

type guard struct {
	log      *logger.Logger
	rdb      *goredis.Client
	ttl      time.Duration
	deadList string
}

func NewGuard(log *logger.Logger) (Guard, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	ttl := envutil.Seconds("WEBHOOK_DEDUPE_TTL_SECONDS", 24*time.Hour)
	deadList := envutil.String("WORKFLOW_DEAD_LETTER_LIST", "workflows:dead")

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &guard{
		log:      log.With("service", "RedisGuard"),
		rdb:      rdb,
		ttl:      ttl,
		deadList: deadList,
	}, nil
}

func (g *guard) Once(ctx context.Context, key string) (bool, error) {
	if g == nil || g.rdb == nil {
		return false, fmt.Errorf("redis guard not initialized")
	}
	if strings.TrimSpace(key) == "" {
		return false, fmt.Errorf("key required")
	}
	ok, err := g.rdb.SetNX(ctx, "dedupe:"+key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (g *guard) RecordDeadLetter(ctx context.Context, dl DeadLetter) error {
	if g == nil || g.rdb == nil {
		return fmt.Errorf("redis guard not initialized")
	}
	if dl.At.IsZero() {
		dl.At = time.Now().UTC()
	}
	raw, err := json.Marshal(dl)
	if err != nil {
		return err
	}
	if err := g.rdb.RPush(ctx, g.deadList, raw).Err(); err != nil {
		return fmt.Errorf("redis rpush: %w", err)
	}
	g.log.Warn("workflow dead-lettered",
		"workflow", dl.Workflow,
		"workflow_id", dl.WorkflowID,
		"interview_id", dl.InterviewID,
		"error", dl.Error,
	)
	return nil
}

func (g *guard) Close() error {
	if g == nil || g.rdb == nil {
		return nil
	}
	return g.rdb.Close()
}
