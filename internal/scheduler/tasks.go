// Package scheduler provides the asynq task queue integration: the client
// that schedules delayed work, the dispatcher that drains the notification
// outbox, and the worker that executes due tasks.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskNotificationOutboxDue = "notification.outbox.due"

const TaskQuoteExpiryReminder = "inquiries.quote.expiry_reminder"

type NotificationOutboxDuePayload struct {
	OutboxID string `json:"outboxId"`
}

// QuoteExpiryReminderPayload carries enough state to detect a stale
// reminder: if the quote was revised after scheduling, QuotedAt no longer
// matches and the reminder is dropped.
type QuoteExpiryReminderPayload struct {
	InquiryGroupID string `json:"inquiryGroupId"`
	QuotedAt       string `json:"quotedAt"`
}

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxDue, data), nil
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxDuePayload{}, err
	}
	return payload, nil
}

func NewQuoteExpiryReminderTask(payload QuoteExpiryReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuoteExpiryReminder, data), nil
}

func ParseQuoteExpiryReminderPayload(task *asynq.Task) (QuoteExpiryReminderPayload, error) {
	var payload QuoteExpiryReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return QuoteExpiryReminderPayload{}, err
	}
	return payload, nil
}
