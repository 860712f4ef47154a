package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen    TicketStatus = "open"
	TicketStatusClaimed TicketStatus = "claimed"
	TicketStatusClosed  TicketStatus = "closed"
	TicketStatusDeleted TicketStatus = "deleted"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// ValidPriority reports whether p is one of the known priority levels.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Message is a single entry in a ticket conversation. Timestamps are
// millisecond epoch, matching the persisted layout.
type Message struct {
	AuthorID       string   `json:"authorId"`
	AuthorUsername string   `json:"authorUsername"`
	Content        string   `json:"content"`
	Timestamp      int64    `json:"timestamp"`
	Attachments    []string `json:"attachments,omitempty"`
}

// Ticket is the aggregate for one support conversation bound to a single
// chat-platform channel and requesting user.
type Ticket struct {
	TicketID          string         `json:"ticketId"`
	ChannelID         string         `json:"channelId"`
	GuildID           string         `json:"guildId"`
	UserID            string         `json:"userId"`
	Username          string         `json:"username"`
	Category          string         `json:"category"`
	PanelNumber       int            `json:"panelNumber"`
	CategoryIndex     int            `json:"categoryIndex"`
	CreatedAt         int64          `json:"createdAt"`
	ClaimedBy         string         `json:"claimedBy,omitempty"`
	ClaimedByUsername string         `json:"claimedByUsername,omitempty"`
	Priority          TicketPriority `json:"priority"`
	Tags              []string       `json:"tags"`
	Status            TicketStatus   `json:"status"`
	Messages          []Message      `json:"messages"`
	LastActivity      int64          `json:"lastActivity"`
	InactivityWarned  bool           `json:"inactivityWarned,omitempty"`
	// InactivityWarningTime is set when the warning fires and cleared by any
	// new message; zero means no warning is pending.
	InactivityWarningTime int64  `json:"inactivityWarningTime,omitempty"`
	Rating                int    `json:"rating,omitempty"`
	FeedbackText          string `json:"feedbackText,omitempty"`
}

// Active reports whether the ticket still counts against per-user limits and
// automation passes. Closed and deleted tickets are not active.
func (t *Ticket) Active() bool {
	return t.Status == TicketStatusOpen || t.Status == TicketStatusClaimed
}

// Claimed reports whether the ticket has a claim owner. The lifecycle keeps
// this in lockstep with TicketStatusClaimed.
func (t *Ticket) Claimed() bool {
	return t.ClaimedBy != ""
}

// HasTag reports whether tag is present.
func (t *Ticket) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// Millis converts a time to the millisecond epoch used across ticket records.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
