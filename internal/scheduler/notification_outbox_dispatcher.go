package scheduler

import (
	"context"
	"fmt"
	"time"

	"printstudio_backend/internal/notification/outbox"
	"printstudio_backend/platform/config"
	"printstudio_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// enqueueConcurrency bounds how many claimed records are handed to asynq in
// parallel per poll cycle.
const enqueueConcurrency = 5

// NotificationOutboxDispatcher polls the outbox for pending records and
// hands them to asynq for delivery at their run_at time.
type NotificationOutboxDispatcher struct {
	client       *asynq.Client
	queue        string
	repo         *outbox.Repository
	pollInterval time.Duration
	batchSize    int
	log          *logger.Logger
}

func NewNotificationOutboxDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*NotificationOutboxDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	pollInterval := cfg.GetOutboxPollInterval()
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	batchSize := cfg.GetOutboxBatchSize()
	if batchSize < 1 {
		batchSize = 50
	}

	return &NotificationOutboxDispatcher{
		client:       asynq.NewClient(opt),
		queue:        queue,
		repo:         outbox.New(pool),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		log:          log,
	}, nil
}

func (d *NotificationOutboxDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		records, err := d.repo.ClaimPending(ctx, d.batchSize)
		if err != nil {
			d.log.Warn("outbox claim failed", "error", err)
			continue
		}
		if len(records) == 0 {
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(enqueueConcurrency)
		for _, rec := range records {
			rec := rec
			g.Go(func() error {
				d.enqueue(gctx, rec)
				return nil
			})
		}
		_ = g.Wait()
	}
}

// enqueue hands one claimed record to asynq. On failure the record is moved
// back to pending with the error recorded so the next poll retries it.
func (d *NotificationOutboxDispatcher) enqueue(ctx context.Context, rec outbox.Record) {
	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{
		OutboxID: rec.ID.String(),
	})
	if err != nil {
		msg := err.Error()
		_ = d.repo.MarkPending(ctx, rec.ID, &msg)
		return
	}

	if _, err := d.client.EnqueueContext(ctx, task, asynq.ProcessAt(rec.RunAt), asynq.Queue(d.queue)); err != nil {
		msg := err.Error()
		_ = d.repo.MarkPending(ctx, rec.ID, &msg)
	}
}
