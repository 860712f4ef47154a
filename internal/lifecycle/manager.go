package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/audit"
	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/store"
)

// Validation failures. Callers present these as user-facing conditions and
// keep running; they never indicate a broken engine.
var (
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrTicketLimit     = errors.New("user ticket limit reached")
	ErrChannelInUse    = errors.New("channel already has an open ticket")
	ErrAlreadyClaimed  = errors.New("ticket already claimed")
	ErrNotClaimed      = errors.New("ticket is not claimed")
	ErrAlreadyClosed   = errors.New("ticket already closed")
	ErrNotClosed       = errors.New("ticket is not closed")
	ErrDuplicateTag    = errors.New("tag already present")
	ErrTagNotFound     = errors.New("tag not present")
	ErrInvalidPriority = errors.New("unknown priority level")
)

// Actor identifies who performed a mutating operation.
type Actor struct {
	UserID   string
	Username string
}

// CreateInput carries everything needed to open a ticket. The channel is
// created by the platform adapter; the engine only records its identifier.
type CreateInput struct {
	GuildID       string
	ChannelID     string
	UserID        string
	Username      string
	Category      string
	PanelNumber   int
	CategoryIndex int
	Answers       []string
}

// Dependencies bundles collaborators for the manager.
type Dependencies struct {
	Store             store.TicketStore
	Trail             audit.Trail
	Logger            *zap.Logger
	MaxTicketsPerUser int
	Now               func() time.Time
}

// Manager is the ticket state machine. It holds no ticket state of its own:
// every operation is a validated read-modify-write against the store, and
// every successful transition records one audit entry before returning.
type Manager struct {
	store  store.TicketStore
	trail  audit.Trail
	logger *zap.Logger
	maxPer int
	now    func() time.Time
}

// NewManager constructs the manager.
func NewManager(deps Dependencies) *Manager {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	maxPer := deps.MaxTicketsPerUser
	if maxPer <= 0 {
		maxPer = 1
	}
	return &Manager{
		store:  deps.Store,
		trail:  deps.Trail,
		logger: deps.Logger,
		maxPer: maxPer,
		now:    now,
	}
}

// Create opens a new ticket seeded with the intake answers. It fails with
// ErrTicketLimit when the user already has maxPer active tickets and with
// ErrChannelInUse when the channel is bound to a live ticket.
func (m *Manager) Create(ctx context.Context, input CreateInput) (*domain.Ticket, error) {
	tickets, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if err := m.checkCreatable(tickets, input); err != nil {
		return nil, err
	}

	seq, err := m.store.NextSequence()
	if err != nil {
		return nil, err
	}
	ticketID := fmt.Sprintf("ticket-%04d", seq)

	var created *domain.Ticket
	err = m.store.Update(func(tickets map[string]*domain.Ticket) error {
		// Re-check under the store lock; the pre-check above only exists to
		// avoid burning sequence numbers on the common rejection path.
		if err := m.checkCreatable(tickets, input); err != nil {
			return err
		}
		now := domain.Millis(m.now())
		messages := make([]domain.Message, 0, len(input.Answers))
		for i, answer := range input.Answers {
			messages = append(messages, domain.Message{
				AuthorID:       input.UserID,
				AuthorUsername: input.Username,
				Content:        answer,
				Timestamp:      now + int64(i),
			})
		}
		ticket := &domain.Ticket{
			TicketID:      ticketID,
			ChannelID:     input.ChannelID,
			GuildID:       input.GuildID,
			UserID:        input.UserID,
			Username:      input.Username,
			Category:      input.Category,
			PanelNumber:   input.PanelNumber,
			CategoryIndex: input.CategoryIndex,
			CreatedAt:     now,
			Priority:      domain.TicketPriorityMedium,
			Tags:          []string{},
			Status:        domain.TicketStatusOpen,
			Messages:      messages,
			LastActivity:  now,
		}
		tickets[ticketID] = ticket
		created = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.record(ctx, domain.AuditEntry{
		Type:     domain.AuditTicketCreated,
		TicketID: ticketID,
		UserID:   input.UserID,
		Username: input.Username,
		Details:  fmt.Sprintf("Created ticket %s in category: %s", ticketID, input.Category),
	})
	return created, nil
}

func (m *Manager) checkCreatable(tickets map[string]*domain.Ticket, input CreateInput) error {
	active := 0
	for _, t := range tickets {
		if t.UserID == input.UserID && t.Active() {
			active++
		}
		if t.ChannelID == input.ChannelID && t.Status != domain.TicketStatusDeleted {
			return ErrChannelInUse
		}
	}
	if active >= m.maxPer {
		return ErrTicketLimit
	}
	return nil
}

// Claim gives actor exclusive ownership of the ticket.
func (m *Manager) Claim(ctx context.Context, ticketID string, actor Actor) error {
	err := m.store.Update(func(tickets map[string]*domain.Ticket) error {
		t, ok := tickets[ticketID]
		if !ok {
			return ErrTicketNotFound
		}
		if t.Status == domain.TicketStatusClosed {
			return ErrAlreadyClosed
		}
		if t.Claimed() {
			return ErrAlreadyClaimed
		}
		t.ClaimedBy = actor.UserID
		t.ClaimedByUsername = actor.Username
		t.Status = domain.TicketStatusClaimed
		return nil
	})
	if err != nil {
		return err
	}
	m.record(ctx, domain.AuditEntry{
		Type:     domain.AuditTicketClaimed,
		TicketID: ticketID,
		UserID:   actor.UserID,
		Username: actor.Username,
		Details:  fmt.Sprintf("Claimed ticket %s", ticketID),
	})
	return nil
}

// Unclaim releases a claimed ticket back to open.
func (m *Manager) Unclaim(ctx context.Context, ticketID string) error {
	var owner Actor
	err := m.store.Update(func(tickets map[string]*domain.Ticket) error {
		t, ok := tickets[ticketID]
		if !ok {
			return ErrTicketNotFound
		}
		if !t.Claimed() {
			return ErrNotClaimed
		}
		owner = Actor{UserID: t.UserID, Username: t.Username}
		t.ClaimedBy = ""
		t.ClaimedByUsername = ""
		t.Status = domain.TicketStatusOpen
		return nil
	})
	if err != nil {
		return err
	}
	m.record(ctx, domain.AuditEntry{
		Type:     domain.AuditTicketUnclaimed,
		TicketID: ticketID,
		UserID:   owner.UserID,
		Username: owner.Username,
		Details:  fmt.Sprintf("Unclaimed ticket %s", ticketID),
	})
	return nil
}

// SetPriority changes the ticket priority.
func (m *Manager) SetPriority(ctx context.Context, ticketID string, priority domain.TicketPriority, actor Actor) error {
	if !domain.ValidPriority(priority) {
		return ErrInvalidPriority
	}
	err := m.store.Update(func(tickets map[string]*domain.Ticket) error {
		t, ok := tickets[ticketID]
		if !ok {
			return ErrTicketNotFound
		}
		t.Priority = priority
		return nil
	})
	if err != nil {
		return err
	}
	m.record(ctx, domain.AuditEntry{
		Type:     domain.AuditPriorityChanged,
		TicketID: ticketID,
		UserID:   actor.UserID,
		Username: actor.Username,
		Details:  fmt.Sprintf("Changed priority to %s", priority),
	})
	return nil
}

// AddTag appends a tag; duplicates are rejected.
func (m *Manager) AddTag(ctx context.Context, ticketID, tag string, actor Actor) error {
	err := m.store.Update(func(tickets map[string]*domain.Ticket) error {
		t, ok := tickets[ticketID]
		if !ok {
			return ErrTicketNotFound
		}
		if t.HasTag(tag) {
			return ErrDuplicateTag
		}
		t.Tags = append(t.Tags, tag)
		return nil
	})
	if err != nil {
		return err
	}
	m.record(ctx, domain.AuditEntry{
		Type:     domain.AuditTagAdded,
		TicketID: ticketID,
		UserID:   actor.UserID,
		Username: actor.Username,
		Details:  fmt.Sprintf("Added tag: %s", tag),
	})
	return nil
}

// RemoveTag removes a tag that must be present.
func (m *Manager) RemoveTag(ctx context.Context, ticketID, tag string, actor Actor) error {
	err := m.store.Update(func(tickets map[string]*domain.Ticket) error {
		t, ok := tickets[ticketID]
		if !ok {
			return ErrTicketNotFound
		}
		if !t.HasTag(tag) {
			return ErrTagNotFound
		}
		kept := t.Tags[:0]
		for _, existing := range t.Tags {
			if existing != tag {
				kept = append(kept, existing)
			}
		}
		t.Tags = kept
		return nil
	})
	if err != nil {
		return err
	}
	m.record(ctx, domain.AuditEntry{
		Type:     domain.AuditTagRemoved,
		TicketID: ticketID,
		UserID:   actor.UserID,
		Username: actor.Username,
		Details:  fmt.Sprintf("Removed tag: %s", tag),
	})
	return nil
}

// AddMessage appends to the conversation, refreshes lastActivity, and clears
// any pending inactivity warning so a warned ticket is no longer a candidate
// for auto-close. A missing ticket is a silent no-op.
func (m *Manager) AddMessage(ctx context.Context, ticketID string, msg domain.Message) error {
	return m.store.Update(func(tickets map[string]*domain.Ticket) error {
		t, ok := tickets[ticketID]
		if !ok {
			return nil
		}
		if msg.Timestamp == 0 {
			msg.Timestamp = domain.Millis(m.now())
		}
		t.Messages = append(t.Messages, msg)
		t.LastActivity = domain.Millis(m.now())
		t.InactivityWarned = false
		t.InactivityWarningTime = 0
		return nil
	})
}

// Close transitions the ticket to closed.
func (m *Manager) Close(ctx context.Context, ticketID string, actor Actor) error {
	err := m.store.Update(func(tickets map[string]*domain.Ticket) error {
		t, ok := tickets[ticketID]
		if !ok {
			return ErrTicketNotFound
		}
		if t.Status == domain.TicketStatusClosed {
			return ErrAlreadyClosed
		}
		t.Status = domain.TicketStatusClosed
		t.LastActivity = domain.Millis(m.now())
		return nil
	})
	if err != nil {
		return err
	}
	m.record(ctx, domain.AuditEntry{
		Type:     domain.AuditTicketClosed,
		TicketID: ticketID,
		UserID:   actor.UserID,
		Username: actor.Username,
		Details:  fmt.Sprintf("Closed ticket %s", ticketID),
	})
	return nil
}

// Reopen returns a closed ticket to open.
func (m *Manager) Reopen(ctx context.Context, ticketID string, actor Actor) error {
	err := m.store.Update(func(tickets map[string]*domain.Ticket) error {
		t, ok := tickets[ticketID]
		if !ok {
			return ErrTicketNotFound
		}
		if t.Status != domain.TicketStatusClosed {
			return ErrNotClosed
		}
		t.Status = domain.TicketStatusOpen
		t.LastActivity = domain.Millis(m.now())
		return nil
	})
	if err != nil {
		return err
	}
	m.record(ctx, domain.AuditEntry{
		Type:     domain.AuditTicketReopened,
		TicketID: ticketID,
		UserID:   actor.UserID,
		Username: actor.Username,
		Details:  fmt.Sprintf("Reopened ticket %s", ticketID),
	})
	return nil
}

// Delete marks the ticket deleted. The record is kept for the audit trail
// and excluded from active queries; there is no way back.
func (m *Manager) Delete(ctx context.Context, ticketID string, actor Actor) error {
	err := m.store.Update(func(tickets map[string]*domain.Ticket) error {
		t, ok := tickets[ticketID]
		if !ok {
			return ErrTicketNotFound
		}
		t.Status = domain.TicketStatusDeleted
		return nil
	})
	if err != nil {
		return err
	}
	m.record(ctx, domain.AuditEntry{
		Type:     domain.AuditTicketDeleted,
		TicketID: ticketID,
		UserID:   actor.UserID,
		Username: actor.Username,
		Details:  fmt.Sprintf("Deleted ticket %s", ticketID),
	})
	return nil
}

// SetRating records the post-closure rating and optional feedback text.
func (m *Manager) SetRating(ctx context.Context, ticketID string, rating int, feedback string) error {
	var owner Actor
	err := m.store.Update(func(tickets map[string]*domain.Ticket) error {
		t, ok := tickets[ticketID]
		if !ok {
			return ErrTicketNotFound
		}
		owner = Actor{UserID: t.UserID, Username: t.Username}
		t.Rating = rating
		t.FeedbackText = feedback
		return nil
	})
	if err != nil {
		return err
	}
	m.record(ctx, domain.AuditEntry{
		Type:     domain.AuditRatingSubmitted,
		TicketID: ticketID,
		UserID:   owner.UserID,
		Username: owner.Username,
		Details:  fmt.Sprintf("Submitted rating: %d/5", rating),
		Metadata: map[string]any{"rating": rating, "feedback": feedback},
	})
	return nil
}

// SetInactivityWarned flags the ticket as warned, starting the grace period
// before auto-close. Called by the automation sweep, not by users.
func (m *Manager) SetInactivityWarned(ctx context.Context, ticketID string) error {
	return m.store.Update(func(tickets map[string]*domain.Ticket) error {
		t, ok := tickets[ticketID]
		if !ok {
			return ErrTicketNotFound
		}
		t.InactivityWarned = true
		t.InactivityWarningTime = domain.Millis(m.now())
		return nil
	})
}

func (m *Manager) record(ctx context.Context, entry domain.AuditEntry) {
	if m.trail == nil {
		return
	}
	entry.ID = uuid.NewString()
	entry.Timestamp = domain.Millis(m.now())
	if err := m.trail.Record(ctx, entry); err != nil && m.logger != nil {
		m.logger.Warn("audit record failed",
			zap.String("audit_type", string(entry.Type)),
			zap.String("ticket_id", entry.TicketID),
			zap.Error(err))
	}
}
