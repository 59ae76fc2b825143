// Package domain provides core business rules for the inquiries bounded context.
package domain

// Inquiry group lifecycle statuses.
const (
	StatusPending  = "PENDING"
	StatusQuoted   = "QUOTED"
	StatusAccepted = "ACCEPTED"
	StatusRejected = "REJECTED"
)

// allowedTransitions maps each status to the statuses it may move to.
// QUOTED->QUOTED is a re-quote; ACCEPTED and REJECTED are terminal.
var allowedTransitions = map[string]map[string]bool{
	StatusPending: {StatusQuoted: true},
	StatusQuoted:  {StatusQuoted: true, StatusAccepted: true, StatusRejected: true},
}

// knownStatuses lists every valid inquiry group status.
var knownStatuses = map[string]bool{
	StatusPending:  true,
	StatusQuoted:   true,
	StatusAccepted: true,
	StatusRejected: true,
}

// IsKnownStatus returns true for a recognized inquiry group status.
func IsKnownStatus(status string) bool {
	return knownStatuses[status]
}

// CanTransition returns true when moving from one status to another is allowed.
func CanTransition(from, to string) bool {
	return allowedTransitions[from][to]
}

// IsTerminal returns true once no further lifecycle changes are possible.
func IsTerminal(status string) bool {
	return status == StatusAccepted || status == StatusRejected
}

// AllowsMessages returns true while the conversation thread is still open.
// Messaging stops once the group reaches a terminal status.
func AllowsMessages(status string) bool {
	return status == StatusPending || status == StatusQuoted
}

// AllowsCustomerDeletion returns true while the customer may still withdraw
// the inquiry. Once quoted, only an admin can remove it.
func AllowsCustomerDeletion(status string) bool {
	return status == StatusPending
}
