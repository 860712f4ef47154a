package domain

// AuditType enumerates the mutating actions recorded on the audit trail.
type AuditType string

const (
	AuditTicketCreated   AuditType = "ticket_created"
	AuditTicketClosed    AuditType = "ticket_closed"
	AuditTicketReopened  AuditType = "ticket_reopened"
	AuditTicketDeleted   AuditType = "ticket_deleted"
	AuditTicketClaimed   AuditType = "ticket_claimed"
	AuditTicketUnclaimed AuditType = "ticket_unclaimed"
	AuditPriorityChanged AuditType = "priority_changed"
	AuditTagAdded        AuditType = "tag_added"
	AuditTagRemoved      AuditType = "tag_removed"
	AuditRatingSubmitted AuditType = "rating_submitted"
)

// AuditEntry is one append-only record of a mutating lifecycle action. The
// engine owns the shape, not the sink's storage format.
type AuditEntry struct {
	ID        string         `json:"id"`
	Timestamp int64          `json:"timestamp"`
	Type      AuditType      `json:"type"`
	TicketID  string         `json:"ticketId,omitempty"`
	UserID    string         `json:"userId"`
	Username  string         `json:"username"`
	Details   string         `json:"details"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
