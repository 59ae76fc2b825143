package repository

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"printstudio_backend/internal/inquiries/domain"
	"printstudio_backend/platform/apperr"
)

func quotedGroup(quotedAt time.Time, validUntil time.Time) InquiryGroup {
	price := decimal.NewFromInt(1200)
	return InquiryGroup{
		Status:           domain.StatusQuoted,
		QuotedAt:         &quotedAt,
		QuoteValidUntil:  &validUntil,
		TotalQuotedPrice: &price,
	}
}

func TestAcceptGate_ValidQuotePasses(t *testing.T) {
	now := time.Now()
	g := quotedGroup(now.Add(-time.Hour), now.Add(24*time.Hour))

	already, err := acceptGate(g, *g.QuotedAt, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if already {
		t.Fatal("fresh quote must not report already accepted")
	}
}

func TestAcceptGate_ExpiredQuoteIsGone(t *testing.T) {
	now := time.Now()
	g := quotedGroup(now.Add(-48*time.Hour), now.Add(-time.Hour))

	if _, err := acceptGate(g, *g.QuotedAt, now); !apperr.Is(err, apperr.KindGone) {
		t.Fatalf("expected gone error for expired quote, got %v", err)
	}
}

func TestAcceptGate_StaleQuotedAtConflicts(t *testing.T) {
	now := time.Now()
	g := quotedGroup(now.Add(-time.Hour), now.Add(24*time.Hour))

	// The customer answers an earlier quote that was since re-issued.
	stale := g.QuotedAt.Add(-time.Minute)
	if _, err := acceptGate(g, stale, now); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for stale quotedAt, got %v", err)
	}
}

func TestAcceptGate_RepeatAcceptReportsExistingOrder(t *testing.T) {
	now := time.Now()
	g := quotedGroup(now.Add(-time.Hour), now.Add(24*time.Hour))
	g.Status = domain.StatusAccepted

	already, err := acceptGate(g, *g.QuotedAt, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !already {
		t.Fatal("accepted group must report already accepted")
	}
}

func TestAcceptGate_InvalidStatesConflict(t *testing.T) {
	now := time.Now()

	pending := InquiryGroup{Status: domain.StatusPending}
	if _, err := acceptGate(pending, now, now); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict accepting a pending inquiry, got %v", err)
	}

	rejected := quotedGroup(now.Add(-time.Hour), now.Add(24*time.Hour))
	rejected.Status = domain.StatusRejected
	if _, err := acceptGate(rejected, *rejected.QuotedAt, now); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict accepting a rejected inquiry, got %v", err)
	}

	unpriced := quotedGroup(now.Add(-time.Hour), now.Add(24*time.Hour))
	unpriced.TotalQuotedPrice = nil
	if _, err := acceptGate(unpriced, *unpriced.QuotedAt, now); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict accepting an unpriced quote, got %v", err)
	}
}

func TestRejectGate_TerminalStatusesAreImmutable(t *testing.T) {
	now := time.Now()

	accepted := quotedGroup(now.Add(-time.Hour), now.Add(24*time.Hour))
	accepted.Status = domain.StatusAccepted
	if err := rejectGate(accepted, *accepted.QuotedAt); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict rejecting an accepted inquiry, got %v", err)
	}

	rejected := quotedGroup(now.Add(-time.Hour), now.Add(24*time.Hour))
	rejected.Status = domain.StatusRejected
	if err := rejectGate(rejected, *rejected.QuotedAt); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict rejecting twice, got %v", err)
	}
}

func TestRejectGate_StaleQuotedAtConflicts(t *testing.T) {
	now := time.Now()
	g := quotedGroup(now.Add(-time.Hour), now.Add(24*time.Hour))

	if err := rejectGate(g, g.QuotedAt.Add(-time.Minute)); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for stale quotedAt, got %v", err)
	}
	if err := rejectGate(g, *g.QuotedAt); err != nil {
		t.Fatalf("unexpected error for matching quotedAt: %v", err)
	}
}

func TestRejectGate_ExpiredQuoteCanStillBeRejected(t *testing.T) {
	now := time.Now()
	g := quotedGroup(now.Add(-48*time.Hour), now.Add(-time.Hour))

	if err := rejectGate(g, *g.QuotedAt); err != nil {
		t.Fatalf("unexpected error rejecting an expired quote: %v", err)
	}
}
