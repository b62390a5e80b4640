package cache

import (
	"context"
	"encoding/json"
	"time"
)

// GetOrLoadJSON 值以 JSON 存储；缓存里的值解不开（结构变更后的旧数据）就删掉并回源
func GetOrLoadJSON[T any](
	c *Cache,
	ctx context.Context,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	var fresh *T
	b, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, e := load(ctx)
		if e != nil {
			return nil, e
		}
		fresh = &v
		return json.Marshal(v)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if fresh != nil {
		return *fresh, nil
	}
	var out T
	if json.Unmarshal(b, &out) == nil {
		return out, nil
	}
	c.Invalidate(ctx, key)
	return load(ctx)
}
