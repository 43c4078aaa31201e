package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edumark/cbt-server/internal/exam"
)

// BankCache caches question-bank selection queries. Invalidation bumps a
// namespace version counter instead of scanning for keys, so a question
// create makes every cached page stale at once.
type BankCache interface {
	Get(ctx context.Context, opts exam.BankListOpts) ([]exam.Question, bool)
	Set(ctx context.Context, opts exam.BankListOpts, qs []exam.Question)
	Invalidate(ctx context.Context)
}

type bankCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBankCache(client *redis.Client) BankCache {
	return &bankCache{client: client, ttl: 5 * time.Minute}
}

func (c *bankCache) key(ctx context.Context, opts exam.BankListOpts) string {
	ver, err := c.client.Get(ctx, "bank:ver").Result()
	if err != nil {
		ver = "0"
	}
	return fmt.Sprintf("bank:v%s:%s:%s:%s:%s:%d:%d",
		ver, opts.Subject, opts.Class, opts.Type, opts.Search, opts.Limit, opts.Offset)
}

func (c *bankCache) Get(ctx context.Context, opts exam.BankListOpts) ([]exam.Question, bool) {
	data, err := c.client.Get(ctx, c.key(ctx, opts)).Result()
	if err != nil {
		return nil, false
	}
	var qs []exam.Question
	if err := json.Unmarshal([]byte(data), &qs); err != nil {
		return nil, false
	}
	return qs, true
}

func (c *bankCache) Set(ctx context.Context, opts exam.BankListOpts, qs []exam.Question) {
	data, err := json.Marshal(qs)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(ctx, opts), data, c.ttl).Err()
}

func (c *bankCache) Invalidate(ctx context.Context) {
	_ = c.client.Incr(ctx, "bank:ver").Err()
}
