package cache

import (
	"context"
	"time"

	"github.com/cschleiden/go-dialogflow/backend/metrics"
	"github.com/cschleiden/go-dialogflow/core"
	"github.com/cschleiden/go-dialogflow/internal/metrickeys"
	"github.com/jellydator/ttlcache/v3"
)

// StateCache holds recently saved conversation states to avoid a backend read at the start of a turn.
// Implementations hand out copies, callers are free to mutate what they get.
type StateCache interface {
	Get(ctx context.Context, conversationID string) (*core.ConversationState, bool, error)
	Store(ctx context.Context, state *core.ConversationState) error
	Evict(ctx context.Context, conversationID string) error
	StartEviction(ctx context.Context)
}

type lruCache struct {
	mc metrics.Client
	c  *ttlcache.Cache[string, *core.ConversationState]
}

var _ StateCache = (*lruCache)(nil)

func NewStateLRUCache(mc metrics.Client, size int, expiration time.Duration) *lruCache {
	c := ttlcache.New(
		ttlcache.WithCapacity[string, *core.ConversationState](uint64(size)),
		ttlcache.WithTTL[string, *core.ConversationState](expiration),
	)

	c.OnEviction(func(ctx context.Context, er ttlcache.EvictionReason, i *ttlcache.Item[string, *core.ConversationState]) {
		reason := ""
		switch er {
		case ttlcache.EvictionReasonExpired:
			reason = "expired"
		case ttlcache.EvictionReasonCapacityReached:
			reason = "capacity"
		case ttlcache.EvictionReasonDeleted:
			return
		}

		mc.Counter(metrickeys.StateCacheEviction, metrics.Tags{metrickeys.EvictionReason: reason}, 1)
	})

	return &lruCache{
		mc: mc,
		c:  c,
	}
}

func (lc *lruCache) Get(ctx context.Context, conversationID string) (*core.ConversationState, bool, error) {
	e := lc.c.Get(conversationID)
	if e != nil {
		return e.Value().Clone(), true, nil
	}

	return nil, false, nil
}

func (lc *lruCache) Store(ctx context.Context, state *core.ConversationState) error {
	lc.c.Set(state.ConversationID, state.Clone(), ttlcache.DefaultTTL)

	lc.mc.Gauge(metrickeys.StateCacheSize, metrics.Tags{}, int64(lc.c.Len()))

	return nil
}

func (lc *lruCache) Evict(ctx context.Context, conversationID string) error {
	lc.c.Delete(conversationID)

	lc.mc.Gauge(metrickeys.StateCacheSize, metrics.Tags{}, int64(lc.c.Len()))

	return nil
}

func (lc *lruCache) StartEviction(ctx context.Context) {
	go lc.c.Start()

	<-ctx.Done()

	lc.c.Stop()
}
