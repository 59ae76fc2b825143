package adapters

import (
	"context"
	"time"

	"github.com/google/uuid"

	inquiriesservice "printstudio_backend/internal/inquiries/service"
	"printstudio_backend/internal/scheduler"
)

// QuoteReminderAdapter adapts the scheduler client so the inquiries module
// can schedule quote expiry reminders without knowing about asynq payloads.
type QuoteReminderAdapter struct {
	client *scheduler.Client
}

// NewQuoteReminderAdapter creates a new quote reminder adapter.
func NewQuoteReminderAdapter(client *scheduler.Client) *QuoteReminderAdapter {
	return &QuoteReminderAdapter{client: client}
}

func (a *QuoteReminderAdapter) ScheduleQuoteExpiryReminder(ctx context.Context, inquiryGroupID uuid.UUID, quotedAt, runAt time.Time) error {
	return a.client.ScheduleQuoteExpiryReminder(ctx, scheduler.QuoteExpiryReminderPayload{
		InquiryGroupID: inquiryGroupID.String(),
		QuotedAt:       quotedAt.Format(time.RFC3339Nano),
	}, runAt)
}

var _ inquiriesservice.ReminderScheduler = (*QuoteReminderAdapter)(nil)
