package loadersdemo

import (
	"context"
	"time"

	"github.com/bytedance/gopkg/util/gopool"

	"github.com/everyday-items/loadq/infra/db/redis"
	"github.com/everyday-items/loadq/loader"
	"github.com/everyday-items/loadq/util/config"
)

const cacheHandlerClass loader.HandlerClass = "redis_cache"

// LoadCacheValue is a pending fetch of one key in a given Redis
// namespace. Futures that share a namespace share one MGET.
type LoadCacheValue struct {
	loader.Base
	Namespace string
	Key       string
}

func (f *LoadCacheValue) HandlerClass() loader.HandlerClass { return cacheHandlerClass }
func (f *LoadCacheValue) BatchingKey() loader.BatchingKey   { return loader.BatchingKey(f.Namespace) }
func (f *LoadCacheValue) InstanceKey() loader.InstanceKey   { return loader.InstanceKey(f.Key) }

// NewLoadCacheValue injects a LoadCacheValue(namespace, key) future
// into q, returning the live (possibly coalesced) instance.
func NewLoadCacheValue(q *loader.Queue, namespace, key string) *LoadCacheValue {
	return loader.Inject(q, &LoadCacheValue{Namespace: namespace, Key: key})
}

// RedisHandler resolves LoadCacheValue futures with one MGET per
// namespace (batching key).
type RedisHandler struct {
	Client *redis.Client
	ctx    context.Context
}

// NewRedisHandler builds a handler bound to client.
func NewRedisHandler(ctx context.Context, client *redis.Client) *RedisHandler {
	return &RedisHandler{Client: client, ctx: ctx}
}

func (h *RedisHandler) SatisfyMulti(group map[loader.InstanceKey]loader.Queueable, namespace loader.BatchingKey) error {
	keys := make([]string, 0, len(group))
	order := make([]loader.InstanceKey, 0, len(group))
	for ik := range group {
		keys = append(keys, string(namespace)+":"+string(ik))
		order = append(order, ik)
	}

	values, err := h.Client.MGetValues(h.ctx, keys...)
	if err != nil {
		return err
	}

	for i, ik := range order {
		f := group[ik].(*LoadCacheValue)
		var v any
		if i < len(values) {
			v = values[i]
		}
		if err := f.Satisfy(v); err != nil {
			return err
		}
	}
	return nil
}

// WarmAfterLoad schedules a fire-and-forget write-back of value under
// namespace:key once a batch resolves a value some other handler
// (e.g. MySQLUserHandler) originated, so the next Drain's MGET finds
// it already cached. It returns immediately; the write happens on the
// shared gopool worker pool rather than blocking the caller or the
// drain pass that triggered it. A ttl of zero or less falls back to
// the configured default warm TTL.
func (h *RedisHandler) WarmAfterLoad(namespace, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = config.Global().GetDurationDefault("loadersdemo.redis_warm_ttl", 5*time.Minute)
	}
	gopool.Go(func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.Client.SetWithExpire(writeCtx, namespace+":"+key, value, ttl)
	})
}
