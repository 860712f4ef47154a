package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/domain"
)

// Notice is the structured payload handed to notification sinks. The engine
// never formats human-readable platform output; sinks do.
type Notice struct {
	Kind             NoticeKind `json:"kind"`
	TicketID         string     `json:"ticket_id"`
	ChannelID        string     `json:"channel_id"`
	GuildID          string     `json:"guild_id"`
	UserID           string     `json:"user_id"`
	RemainingMinutes int        `json:"remaining_minutes,omitempty"`
	WaitingMinutes   int        `json:"waiting_minutes,omitempty"`
	StaffRoles       []string   `json:"staff_roles,omitempty"`
	Timestamp        int64      `json:"timestamp"`
}

// NoticeKind enumerates automation notices.
type NoticeKind string

const (
	NoticeInactivityWarning NoticeKind = "inactivity_warning"
	NoticeAutoClosed        NoticeKind = "auto_closed"
	NoticeStaffReminder     NoticeKind = "staff_reminder"
)

// Notifier receives automation notices. Implementations must tolerate being
// called once per sweep for the same ticket (the staff reminder repeats).
type Notifier interface {
	InactivityWarning(ctx context.Context, ticket *domain.Ticket, remainingMinutes int) error
	AutoClosed(ctx context.Context, ticket *domain.Ticket) error
	StaffReminder(ctx context.Context, ticket *domain.Ticket, waitingMinutes int) error
}

// LogNotifier writes notices to the structured log. Fallback sink when no
// Redis publisher is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds a log-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) InactivityWarning(_ context.Context, ticket *domain.Ticket, remainingMinutes int) error {
	n.logger.Info("inactivity warning",
		zap.String("ticket_id", ticket.TicketID),
		zap.Int("remaining_minutes", remainingMinutes))
	return nil
}

func (n *LogNotifier) AutoClosed(_ context.Context, ticket *domain.Ticket) error {
	n.logger.Info("ticket auto-closed",
		zap.String("ticket_id", ticket.TicketID))
	return nil
}

func (n *LogNotifier) StaffReminder(_ context.Context, ticket *domain.Ticket, waitingMinutes int) error {
	n.logger.Info("staff reminder",
		zap.String("ticket_id", ticket.TicketID),
		zap.Int("waiting_minutes", waitingMinutes))
	return nil
}
