package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"gorental/internal/domain"
	"gorental/internal/models"
)

// LedgerWorker drains paid reservations into the back-office ledger.
// Entries go through Redis when it is up so a restart cannot lose them;
// otherwise a bounded in-memory channel carries them best-effort.
type LedgerWorker struct {
	sink          domain.LedgerSink
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan *models.Booking
	redisQueueKey string
	deadLetterKey string
	log           zerolog.Logger
}

func NewLedgerWorker(sink domain.LedgerSink, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *LedgerWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "ledger_worker").Logger()
	}

	return &LedgerWorker{
		sink:          sink,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan *models.Booking, models.LedgerQueueSize),
		redisQueueKey: "ledger:queue",
		deadLetterKey: "ledger:deadletter",
		log:           log,
	}
}

// EnqueueReservation schedules a reservation for the ledger. Never
// blocks the caller.
func (w *LedgerWorker) EnqueueReservation(ctx context.Context, b *models.Booking) error {
	if b == nil || b.ID == 0 {
		return errors.New("reservation id is required")
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, b); err != nil {
			w.log.Warn().Err(err).Int64("booking_id", b.ID).Msg("redis push failed, falling back to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- b:
		return nil
	default:
		return errors.New("ledger queue is full")
	}
}

// Start launches the main loop; stops when ctx is done.
func (w *LedgerWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ledger worker started")
	defer w.log.Info().Msg("ledger worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case b := <-w.queue:
			w.process(ctx, b)
		default:
			if b, ok := w.tryRedis(ctx); ok {
				w.process(ctx, b)
				continue
			}
			select {
			case <-ctx.Done():
				return
			case b := <-w.queue:
				w.process(ctx, b)
			case <-time.After(time.Second):
			}
		}
	}
}

func (w *LedgerWorker) tryRedis(ctx context.Context) (*models.Booking, bool) {
	if w.redis == nil {
		return nil, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, false
		}
		w.log.Warn().Err(err).Msg("redis BRPOP error")
		return nil, false
	}
	if len(res) != 2 {
		return nil, false
	}
	var b models.Booking
	if err := json.Unmarshal([]byte(res[1]), &b); err != nil {
		w.log.Error().Err(err).Msg("decode queued reservation")
		return nil, false
	}
	return &b, true
}

func (w *LedgerWorker) process(ctx context.Context, b *models.Booking) {
	var lastErr error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		if lastErr = w.sink.AppendReservation(ctx, b); lastErr == nil {
			w.log.Info().Int64("booking_id", b.ID).Msg("reservation appended to ledger")
			return
		}
		w.log.Warn().Err(lastErr).Int64("booking_id", b.ID).Int("attempt", attempt).Msg("ledger append failed")

		select {
		case <-ctx.Done():
			w.pushDeadLetter(context.WithoutCancel(ctx), b)
			return
		case <-time.After(w.retryPolicy.NextDelay(attempt)):
		}
	}

	w.log.Error().Err(lastErr).Int64("booking_id", b.ID).Msg("ledger append exhausted retries")
	w.pushDeadLetter(ctx, b)
}

func (w *LedgerWorker) pushRedis(ctx context.Context, b *models.Booking) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *LedgerWorker) pushDeadLetter(ctx context.Context, b *models.Booking) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(b)
	if err != nil {
		w.log.Error().Err(err).Int64("booking_id", b.ID).Msg("encode deadletter entry")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.log.Error().Err(err).Int64("booking_id", b.ID).Msg("deadletter push failed")
	}
}
