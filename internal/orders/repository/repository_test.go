package repository

import (
	"testing"

	"github.com/shopspring/decimal"

	"printstudio_backend/platform/apperr"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestApplyPayment_RollsBalanceAndStatus(t *testing.T) {
	o := Order{TotalAmount: dec("1000"), AmountPaid: dec("0"), Status: StatusWaitingPayment}

	newPaid, newStatus, err := ApplyPayment(o, dec("400"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !newPaid.Equal(dec("400")) || newStatus != StatusPartiallyPaid {
		t.Fatalf("got paid=%s status=%s", newPaid, newStatus)
	}

	o.AmountPaid = newPaid
	newPaid, newStatus, err = ApplyPayment(o, dec("600"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !newPaid.Equal(dec("1000")) || newStatus != StatusPaid {
		t.Fatalf("got paid=%s status=%s", newPaid, newStatus)
	}
}

func TestApplyPayment_RejectsExcessAndNonPositive(t *testing.T) {
	o := Order{TotalAmount: dec("1000"), AmountPaid: dec("800"), Status: StatusPartiallyPaid}

	if _, _, err := ApplyPayment(o, dec("300")); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for excess, got %v", err)
	}
	if _, _, err := ApplyPayment(o, dec("0")); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
	if _, _, err := ApplyPayment(o, dec("-10")); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for negative amount, got %v", err)
	}
}

// Two payments for the full amount race: whichever acquires the row lock
// second sees the rolled balance and must fail instead of doubling it.
func TestApplyPayment_SecondFullPaymentFailsAgainstRolledBalance(t *testing.T) {
	o := Order{TotalAmount: dec("100"), AmountPaid: dec("0"), Status: StatusWaitingPayment}

	newPaid, newStatus, err := ApplyPayment(o, dec("100"))
	if err != nil {
		t.Fatalf("unexpected error on first payment: %v", err)
	}
	o.AmountPaid = newPaid
	o.Status = newStatus

	if _, _, err := ApplyPayment(o, dec("100")); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error on second payment, got %v", err)
	}
	if o.AmountPaid.GreaterThan(o.TotalAmount) {
		t.Fatalf("order overpaid: amount_paid=%s total=%s", o.AmountPaid, o.TotalAmount)
	}
}
