package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type staticSchedulerConfig struct {
	redisURL string
	queue    string
}

func (c staticSchedulerConfig) GetRedisURL() string                  { return c.redisURL }
func (c staticSchedulerConfig) GetRedisTLSInsecure() bool            { return false }
func (c staticSchedulerConfig) GetAsynqQueueName() string            { return c.queue }
func (c staticSchedulerConfig) GetAsynqConcurrency() int             { return 1 }
func (c staticSchedulerConfig) GetOutboxPollInterval() time.Duration { return time.Second }
func (c staticSchedulerConfig) GetOutboxBatchSize() int              { return 10 }

func TestNewClient_RequiresRedisURL(t *testing.T) {
	if _, err := NewClient(staticSchedulerConfig{}); err == nil {
		t.Fatal("expected error for missing redis url")
	}
}

func TestScheduleQuoteExpiryReminder_EnqueuesScheduledTask(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := staticSchedulerConfig{redisURL: "redis://" + mr.Addr(), queue: "reminders"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	payload := QuoteExpiryReminderPayload{
		InquiryGroupID: "0b9a3c92-5a57-4f43-9f2e-8a4f2f5cb1aa",
		QuotedAt:       time.Now().UTC().Format(time.RFC3339Nano),
	}
	runAt := time.Now().Add(24 * time.Hour)
	if err := client.ScheduleQuoteExpiryReminder(context.Background(), payload, runAt); err != nil {
		t.Fatalf("ScheduleQuoteExpiryReminder: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	tasks, err := inspector.ListScheduledTasks("reminders")
	if err != nil {
		t.Fatalf("ListScheduledTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 scheduled task, got %d", len(tasks))
	}
	if tasks[0].Type != TaskQuoteExpiryReminder {
		t.Fatalf("unexpected task type %q", tasks[0].Type)
	}

	parsed, err := ParseQuoteExpiryReminderPayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if parsed.InquiryGroupID != payload.InquiryGroupID {
		t.Fatalf("payload inquiry group = %q, want %q", parsed.InquiryGroupID, payload.InquiryGroupID)
	}
	if parsed.QuotedAt != payload.QuotedAt {
		t.Fatalf("payload quoted at = %q, want %q", parsed.QuotedAt, payload.QuotedAt)
	}
}

func TestRedisClientOpt_ParsesURL(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@localhost:6380/2", false)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.Addr != "localhost:6380" {
		t.Fatalf("addr = %q", opt.Addr)
	}
	if opt.Password != "secret" {
		t.Fatalf("password = %q", opt.Password)
	}
	if opt.DB != 2 {
		t.Fatalf("db = %d", opt.DB)
	}
	if opt.TLSConfig != nil {
		t.Fatal("expected nil TLS config for redis scheme")
	}

	insecure, err := redisClientOpt("rediss://localhost:6380", true)
	if err != nil {
		t.Fatalf("redisClientOpt tls: %v", err)
	}
	if insecure.TLSConfig == nil || !insecure.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected insecure TLS config")
	}
}
