package scheduler

import (
	"context"
	"fmt"
	"time"

	"printstudio_backend/internal/events"
	"printstudio_backend/internal/inquiries/domain"
	inquiriesrepo "printstudio_backend/internal/inquiries/repository"
	"printstudio_backend/platform/apperr"
	"printstudio_backend/platform/config"
	"printstudio_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	inquiries inquiriesrepo.Repository
	bus       events.Bus
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		inquiries: inquiriesrepo.New(pool),
		bus:       bus,
		log:       log,
	}

	mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)
	mux.HandleFunc(TaskQuoteExpiryReminder, w.handleQuoteExpiryReminder)

	return w, nil
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return err
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	return w.bus.PublishSync(ctx, events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  outboxID,
	})
}

// handleQuoteExpiryReminder re-checks the inquiry before notifying: the
// customer may have responded, or the quote may have been revised since the
// reminder was scheduled. Either way the reminder is silently dropped.
func (w *Worker) handleQuoteExpiryReminder(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseQuoteExpiryReminderPayload(task)
	if err != nil {
		return err
	}

	groupID, err := uuid.Parse(payload.InquiryGroupID)
	if err != nil {
		return err
	}
	quotedAt, err := time.Parse(time.RFC3339Nano, payload.QuotedAt)
	if err != nil {
		return err
	}

	group, err := w.inquiries.GetByID(ctx, groupID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}

	if group.Status != domain.StatusQuoted {
		return nil
	}
	if group.QuotedAt == nil || !group.QuotedAt.Equal(quotedAt) {
		return nil
	}
	if group.QuoteValidUntil == nil || group.QuoteValidUntil.Before(time.Now()) {
		return nil
	}
	if group.TotalQuotedPrice == nil {
		return nil
	}

	return w.bus.PublishSync(ctx, events.QuoteExpiryReminderDue{
		BaseEvent:        events.NewBaseEvent(),
		InquiryGroupID:   group.ID,
		UserID:           group.UserID,
		TotalQuotedPrice: *group.TotalQuotedPrice,
		QuoteValidUntil:  group.QuoteValidUntil.Format(time.RFC3339),
	})
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
