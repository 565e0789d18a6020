package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"gorental/internal/domain"
)

// FailoverIdempotencyStore prefers the primary (Redis) store and falls
// back to the in-memory one when it errors, retrying the primary after a
// cooldown. Best-effort: after a failover the dedup window is local to
// this process, which the webhook path tolerates because the storage
// layer's forward-only update is the second line of defense.
type FailoverIdempotencyStore struct {
	primary   domain.IdempotencyStore
	fallback  domain.IdempotencyStore
	log       zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverIdempotencyStore(primary, fallback domain.IdempotencyStore, logger *zerolog.Logger) *FailoverIdempotencyStore {
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "idempotency").Logger()
	}
	return &FailoverIdempotencyStore{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

func (f *FailoverIdempotencyStore) Seen(ctx context.Context, eventID string) (bool, error) {
	return f.run(ctx, eventID, domain.IdempotencyStore.Seen)
}

func (f *FailoverIdempotencyStore) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	return f.run(ctx, eventID, domain.IdempotencyStore.FirstDelivery)
}

func (f *FailoverIdempotencyStore) run(ctx context.Context, eventID string, op func(domain.IdempotencyStore, context.Context, string) (bool, error)) (bool, error) {
	if !f.isDown.Load() {
		result, err := op(f.primary, ctx, eventID)
		if err == nil {
			return result, nil
		}
		f.log.Error().Err(err).Msg("primary idempotency store failed, falling back to memory")
		f.isDown.Store(true)
		f.lastCheck.Store(time.Now().UnixNano())
	}

	// Probe the primary again after a minute.
	if f.isDown.Load() && time.Since(time.Unix(0, f.lastCheck.Load())) > time.Minute {
		result, err := op(f.primary, ctx, eventID)
		if err == nil {
			f.isDown.Store(false)
			return result, nil
		}
		f.lastCheck.Store(time.Now().UnixNano())
	}

	return op(f.fallback, ctx, eventID)
}
