// Package audit records admission-control decisions as structured events.
package audit

import "time"

// Action names for admission events.
const (
	ActionWhitelistAdded   = "whitelist.added"
	ActionWhitelistRemoved = "whitelist.removed"
	ActionAdminPromoted    = "admin.promoted"
	ActionAccessDenied     = "access.denied"
)

// Event is a single admission-control audit record. Subject is the account
// the operation targeted; Actor is the caller (zero when the operation was
// not caller-gated).
type Event struct {
	Subject   int64     `json:"subject"`
	Actor     int64     `json:"actor,omitempty"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
