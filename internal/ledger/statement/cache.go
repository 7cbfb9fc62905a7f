package statement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores built statements in redis for a short TTL. Statements are
// pure reads, so a stale hit only delays visibility of fresh postings by
// the TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(q Query) string {
	return fmt.Sprintf("statement:%d:%s:%d:%s:%s",
		q.CompanyID, q.Kind, q.SubjectID, q.From.Format("2006-01-02"), q.To.Format("2006-01-02"))
}

// Get returns the cached statement and whether it was present.
func (c *Cache) Get(ctx context.Context, q Query) (Statement, bool) {
	if c == nil || c.client == nil {
		return Statement{}, false
	}
	raw, err := c.client.Get(ctx, cacheKey(q)).Bytes()
	if err != nil {
		return Statement{}, false
	}
	var st Statement
	if err := json.Unmarshal(raw, &st); err != nil {
		return Statement{}, false
	}
	return st, true
}

// Set stores the statement, ignoring cache errors.
func (c *Cache) Set(ctx context.Context, q Query, st Statement) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, cacheKey(q), raw, c.ttl).Err()
}
