package migrations

import (
	"regexp"
	"testing"
)

// Deleting an inquiry must never touch its conversion records, so the order's
// link back to the inquiry has to stay a plain unique column. A foreign key
// here would make the admin inquiry delete fail once an order exists.
func TestOrdersTableKeepsWeakInquiryReference(t *testing.T) {
	ddl, err := FS.ReadFile("00004_orders.sql")
	if err != nil {
		t.Fatalf("read orders migration: %v", err)
	}

	if regexp.MustCompile(`inquiry_group_id[^,\n]*REFERENCES`).Match(ddl) {
		t.Fatal("orders.inquiry_group_id must not carry a foreign key to inquiry_groups")
	}
	if !regexp.MustCompile(`inquiry_group_id\s+UUID\s+NOT NULL\s+UNIQUE`).Match(ddl) {
		t.Fatal("orders.inquiry_group_id must stay NOT NULL UNIQUE")
	}
}
