package lifecycle

import (
	"time"

	"github.com/spec-kit/ticket-engine/internal/domain"
)

// Snapshot queries. Each reads a fresh copy of the store, so callers can
// hold the returned records without racing later mutations.

// GetByID returns the ticket regardless of status.
func (m *Manager) GetByID(ticketID string) (*domain.Ticket, error) {
	tickets, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	t, ok := tickets[ticketID]
	if !ok {
		return nil, ErrTicketNotFound
	}
	return t, nil
}

// GetByChannel resolves the live ticket bound to a channel. Deleted tickets
// are skipped so a channel identifier can be reused after deletion.
func (m *Manager) GetByChannel(channelID string) (*domain.Ticket, error) {
	tickets, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	for _, t := range tickets {
		if t.ChannelID == channelID && t.Status != domain.TicketStatusDeleted {
			return t, nil
		}
	}
	return nil, ErrTicketNotFound
}

// All returns every stored ticket, deleted ones included.
func (m *Manager) All() ([]*domain.Ticket, error) {
	tickets, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	result := make([]*domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		result = append(result, t)
	}
	return result, nil
}

// Open returns tickets that are open or claimed.
func (m *Manager) Open() ([]*domain.Ticket, error) {
	tickets, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	var result []*domain.Ticket
	for _, t := range tickets {
		if t.Active() {
			result = append(result, t)
		}
	}
	return result, nil
}

// Inactive returns active tickets whose last activity is older than the
// given number of minutes. Closed and deleted tickets never appear here.
func (m *Manager) Inactive(minutes int) ([]*domain.Ticket, error) {
	open, err := m.Open()
	if err != nil {
		return nil, err
	}
	cutoff := domain.Millis(m.now().Add(-time.Duration(minutes) * time.Minute))
	var result []*domain.Ticket
	for _, t := range open {
		if t.LastActivity < cutoff {
			result = append(result, t)
		}
	}
	return result, nil
}

// Overloaded reports whether the open-ticket count has reached limit.
func (m *Manager) Overloaded(limit int) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	open, err := m.Open()
	if err != nil {
		return false, err
	}
	return len(open) >= limit, nil
}
