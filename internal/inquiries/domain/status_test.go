package domain

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := [][2]string{
		{StatusPending, StatusQuoted},
		{StatusQuoted, StatusQuoted},
		{StatusQuoted, StatusAccepted},
		{StatusQuoted, StatusRejected},
	}
	for _, tr := range allowed {
		if !CanTransition(tr[0], tr[1]) {
			t.Fatalf("expected %s -> %s to be allowed", tr[0], tr[1])
		}
	}

	forbidden := [][2]string{
		{StatusPending, StatusAccepted},
		{StatusPending, StatusRejected},
		{StatusPending, StatusPending},
		{StatusAccepted, StatusQuoted},
		{StatusAccepted, StatusRejected},
		{StatusRejected, StatusQuoted},
		{StatusRejected, StatusAccepted},
		{StatusQuoted, StatusPending},
	}
	for _, tr := range forbidden {
		if CanTransition(tr[0], tr[1]) {
			t.Fatalf("expected %s -> %s to be forbidden", tr[0], tr[1])
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if IsTerminal(StatusPending) || IsTerminal(StatusQuoted) {
		t.Fatal("pending and quoted must not be terminal")
	}
	if !IsTerminal(StatusAccepted) || !IsTerminal(StatusRejected) {
		t.Fatal("accepted and rejected must be terminal")
	}
}

func TestAllowsMessages(t *testing.T) {
	if !AllowsMessages(StatusPending) || !AllowsMessages(StatusQuoted) {
		t.Fatal("messaging must stay open before a decision")
	}
	if AllowsMessages(StatusAccepted) || AllowsMessages(StatusRejected) {
		t.Fatal("messaging must close after a decision")
	}
}

func TestAllowsCustomerDeletion(t *testing.T) {
	if !AllowsCustomerDeletion(StatusPending) {
		t.Fatal("customers must be able to withdraw pending inquiries")
	}
	for _, status := range []string{StatusQuoted, StatusAccepted, StatusRejected} {
		if AllowsCustomerDeletion(status) {
			t.Fatalf("customers must not delete %s inquiries", status)
		}
	}
}
