package audit

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/domain"
)

// Trail is the append-only record of every mutating lifecycle action. The
// lifecycle manager records an entry synchronously before a transition
// returns success.
type Trail interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}

// LogTrail writes audit entries to the structured log. It is the fallback
// sink when no durable trail is configured.
type LogTrail struct {
	logger *zap.Logger
}

// NewLogTrail builds a log-backed trail.
func NewLogTrail(logger *zap.Logger) *LogTrail {
	return &LogTrail{logger: logger}
}

// Record logs the entry.
func (t *LogTrail) Record(_ context.Context, entry domain.AuditEntry) error {
	t.logger.Info("audit",
		zap.String("audit_type", string(entry.Type)),
		zap.String("ticket_id", entry.TicketID),
		zap.String("user_id", entry.UserID),
		zap.String("username", entry.Username),
		zap.String("details", entry.Details),
		zap.Int64("timestamp", entry.Timestamp),
	)
	return nil
}

// MemoryTrail collects entries in memory. Used by tests and as a buffer for
// read-side queries when no database is configured.
type MemoryTrail struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

// NewMemoryTrail builds an empty in-memory trail.
func NewMemoryTrail() *MemoryTrail {
	return &MemoryTrail{}
}

// Record appends the entry.
func (t *MemoryTrail) Record(_ context.Context, entry domain.AuditEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
	return nil
}

// Entries returns a copy of everything recorded so far, oldest first.
func (t *MemoryTrail) Entries() []domain.AuditEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.AuditEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// ByTicket returns recorded entries for one ticket, oldest first.
func (t *MemoryTrail) ByTicket(ticketID string) []domain.AuditEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []domain.AuditEntry
	for _, entry := range t.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out
}
