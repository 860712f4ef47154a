package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/audit"
	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestManager(t *testing.T) (*Manager, *audit.MemoryTrail, *fakeClock) {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	trail := audit.NewMemoryTrail()
	clock := newFakeClock()
	manager := NewManager(Dependencies{
		Store:             fs,
		Trail:             trail,
		Logger:            zap.NewNop(),
		MaxTicketsPerUser: 1,
		Now:               clock.Now,
	})
	return manager, trail, clock
}

func createInput(channel, user string) CreateInput {
	return CreateInput{
		GuildID:     "guild-1",
		ChannelID:   channel,
		UserID:      user,
		Username:    user,
		Category:    "support",
		PanelNumber: 1,
		Answers:     []string{"What happened?", "It broke."},
	}
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	manager, trail, clock := newTestManager(t)
	ctx := context.Background()

	first, err := manager.Create(ctx, createInput("chan-1", "alice"))
	require.NoError(t, err)
	require.Equal(t, "ticket-0001", first.TicketID)
	require.Equal(t, domain.TicketStatusOpen, first.Status)
	require.Equal(t, domain.TicketPriorityMedium, first.Priority)
	require.Equal(t, domain.Millis(clock.Now()), first.CreatedAt)
	require.Len(t, first.Messages, 2)
	require.Less(t, first.Messages[0].Timestamp, first.Messages[1].Timestamp)

	second, err := manager.Create(ctx, createInput("chan-2", "bob"))
	require.NoError(t, err)
	require.Equal(t, "ticket-0002", second.TicketID)

	entries := trail.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, domain.AuditTicketCreated, entries[0].Type)
	require.NotEmpty(t, entries[0].ID)
}

func TestCreateEnforcesUserLimit(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	ticket, err := manager.Create(ctx, createInput("chan-1", "alice"))
	require.NoError(t, err)

	_, err = manager.Create(ctx, createInput("chan-2", "alice"))
	require.ErrorIs(t, err, ErrTicketLimit)

	// Closing frees the slot.
	require.NoError(t, manager.Close(ctx, ticket.TicketID, Actor{UserID: "alice", Username: "alice"}))
	_, err = manager.Create(ctx, createInput("chan-2", "alice"))
	require.NoError(t, err)
}

func TestCreateRejectsChannelInUse(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	ticket, err := manager.Create(ctx, createInput("chan-1", "alice"))
	require.NoError(t, err)

	_, err = manager.Create(ctx, createInput("chan-1", "bob"))
	require.ErrorIs(t, err, ErrChannelInUse)

	// Even a closed ticket keeps the channel bound; only deletion frees it.
	require.NoError(t, manager.Close(ctx, ticket.TicketID, Actor{UserID: "alice"}))
	_, err = manager.Create(ctx, createInput("chan-1", "bob"))
	require.ErrorIs(t, err, ErrChannelInUse)

	require.NoError(t, manager.Delete(ctx, ticket.TicketID, Actor{UserID: "alice"}))
	_, err = manager.Create(ctx, createInput("chan-1", "bob"))
	require.NoError(t, err)
}

func TestClaimLifecycle(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()
	staff := Actor{UserID: "staff-1", Username: "sam"}

	ticket, err := manager.Create(ctx, createInput("chan-1", "alice"))
	require.NoError(t, err)

	require.NoError(t, manager.Claim(ctx, ticket.TicketID, staff))
	got, err := manager.GetByID(ticket.TicketID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusClaimed, got.Status)
	require.Equal(t, "staff-1", got.ClaimedBy)
	require.Equal(t, "sam", got.ClaimedByUsername)

	require.ErrorIs(t, manager.Claim(ctx, ticket.TicketID, staff), ErrAlreadyClaimed)

	require.NoError(t, manager.Unclaim(ctx, ticket.TicketID))
	got, err = manager.GetByID(ticket.TicketID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusOpen, got.Status)
	require.Empty(t, got.ClaimedBy)
	require.Empty(t, got.ClaimedByUsername)

	require.ErrorIs(t, manager.Unclaim(ctx, ticket.TicketID), ErrNotClaimed)

	require.NoError(t, manager.Close(ctx, ticket.TicketID, staff))
	require.ErrorIs(t, manager.Claim(ctx, ticket.TicketID, staff), ErrAlreadyClosed)
}

func TestCloseAndReopen(t *testing.T) {
	manager, _, clock := newTestManager(t)
	ctx := context.Background()
	actor := Actor{UserID: "alice", Username: "alice"}

	ticket, err := manager.Create(ctx, createInput("chan-1", "alice"))
	require.NoError(t, err)

	require.ErrorIs(t, manager.Reopen(ctx, ticket.TicketID, actor), ErrNotClosed)

	clock.Advance(time.Hour)
	require.NoError(t, manager.Close(ctx, ticket.TicketID, actor))
	got, err := manager.GetByID(ticket.TicketID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusClosed, got.Status)
	require.Equal(t, domain.Millis(clock.Now()), got.LastActivity)

	require.ErrorIs(t, manager.Close(ctx, ticket.TicketID, actor), ErrAlreadyClosed)

	require.NoError(t, manager.Reopen(ctx, ticket.TicketID, actor))
	got, err = manager.GetByID(ticket.TicketID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusOpen, got.Status)
}

func TestAddMessageRefreshesActivityAndClearsWarning(t *testing.T) {
	manager, _, clock := newTestManager(t)
	ctx := context.Background()

	ticket, err := manager.Create(ctx, createInput("chan-1", "alice"))
	require.NoError(t, err)

	require.NoError(t, manager.SetInactivityWarned(ctx, ticket.TicketID))
	got, err := manager.GetByID(ticket.TicketID)
	require.NoError(t, err)
	require.True(t, got.InactivityWarned)
	require.NotZero(t, got.InactivityWarningTime)

	clock.Advance(10 * time.Minute)
	require.NoError(t, manager.AddMessage(ctx, ticket.TicketID, domain.Message{
		AuthorID: "alice", AuthorUsername: "alice", Content: "still there?",
	}))

	got, err = manager.GetByID(ticket.TicketID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	require.Equal(t, domain.Millis(clock.Now()), got.LastActivity)
	require.False(t, got.InactivityWarned)
	require.Zero(t, got.InactivityWarningTime)
}

func TestAddMessageToMissingTicketIsANoOp(t *testing.T) {
	manager, _, _ := newTestManager(t)
	err := manager.AddMessage(context.Background(), "ticket-9999", domain.Message{
		AuthorID: "alice", Content: "hello",
	})
	require.NoError(t, err)
}

func TestTagOperations(t *testing.T) {
	manager, trail, _ := newTestManager(t)
	ctx := context.Background()
	actor := Actor{UserID: "staff-1", Username: "sam"}

	ticket, err := manager.Create(ctx, createInput("chan-1", "alice"))
	require.NoError(t, err)

	require.NoError(t, manager.AddTag(ctx, ticket.TicketID, "billing", actor))
	require.ErrorIs(t, manager.AddTag(ctx, ticket.TicketID, "billing", actor), ErrDuplicateTag)

	got, err := manager.GetByID(ticket.TicketID)
	require.NoError(t, err)
	require.Equal(t, []string{"billing"}, got.Tags)

	require.NoError(t, manager.RemoveTag(ctx, ticket.TicketID, "billing", actor))
	require.ErrorIs(t, manager.RemoveTag(ctx, ticket.TicketID, "billing", actor), ErrTagNotFound)

	types := make([]domain.AuditType, 0)
	for _, entry := range trail.ByTicket(ticket.TicketID) {
		types = append(types, entry.Type)
	}
	require.Contains(t, types, domain.AuditTagAdded)
	require.Contains(t, types, domain.AuditTagRemoved)
}

func TestSetPriorityValidation(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()
	actor := Actor{UserID: "staff-1", Username: "sam"}

	ticket, err := manager.Create(ctx, createInput("chan-1", "alice"))
	require.NoError(t, err)

	require.ErrorIs(t, manager.SetPriority(ctx, ticket.TicketID, "critical", actor), ErrInvalidPriority)

	require.NoError(t, manager.SetPriority(ctx, ticket.TicketID, domain.TicketPriorityUrgent, actor))
	got, err := manager.GetByID(ticket.TicketID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketPriorityUrgent, got.Priority)
}

func TestSetRatingRecordsOwnerAndMetadata(t *testing.T) {
	manager, trail, _ := newTestManager(t)
	ctx := context.Background()

	ticket, err := manager.Create(ctx, createInput("chan-1", "alice"))
	require.NoError(t, err)
	require.NoError(t, manager.Close(ctx, ticket.TicketID, Actor{UserID: "staff-1"}))

	require.NoError(t, manager.SetRating(ctx, ticket.TicketID, 4, "quick response"))
	got, err := manager.GetByID(ticket.TicketID)
	require.NoError(t, err)
	require.Equal(t, 4, got.Rating)
	require.Equal(t, "quick response", got.FeedbackText)

	entries := trail.ByTicket(ticket.TicketID)
	last := entries[len(entries)-1]
	require.Equal(t, domain.AuditRatingSubmitted, last.Type)
	require.Equal(t, "alice", last.UserID)
	require.Equal(t, 4, last.Metadata["rating"])
}

func TestInactiveExcludesClosedAndRecent(t *testing.T) {
	manager, _, clock := newTestManager(t)
	ctx := context.Background()

	stale, err := manager.Create(ctx, createInput("chan-1", "alice"))
	require.NoError(t, err)
	closed, err := manager.Create(ctx, createInput("chan-2", "bob"))
	require.NoError(t, err)
	require.NoError(t, manager.Close(ctx, closed.TicketID, Actor{UserID: "bob"}))

	clock.Advance(2 * time.Hour)
	fresh, err := manager.Create(ctx, createInput("chan-3", "carol"))
	require.NoError(t, err)

	inactive, err := manager.Inactive(60)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	require.Equal(t, stale.TicketID, inactive[0].TicketID)

	open, err := manager.Open()
	require.NoError(t, err)
	ids := make([]string, 0)
	for _, ticket := range open {
		ids = append(ids, ticket.TicketID)
	}
	require.ElementsMatch(t, []string{stale.TicketID, fresh.TicketID}, ids)
}

func TestGetByChannelSkipsDeleted(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	ticket, err := manager.Create(ctx, createInput("chan-1", "alice"))
	require.NoError(t, err)

	got, err := manager.GetByChannel("chan-1")
	require.NoError(t, err)
	require.Equal(t, ticket.TicketID, got.TicketID)

	require.NoError(t, manager.Delete(ctx, ticket.TicketID, Actor{UserID: "alice"}))
	_, err = manager.GetByChannel("chan-1")
	require.ErrorIs(t, err, ErrTicketNotFound)

	// The record itself survives deletion for the audit trail.
	got, err = manager.GetByID(ticket.TicketID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusDeleted, got.Status)
}

func TestOperationsOnMissingTicket(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()
	actor := Actor{UserID: "staff-1"}

	require.ErrorIs(t, manager.Claim(ctx, "ticket-9999", actor), ErrTicketNotFound)
	require.ErrorIs(t, manager.Close(ctx, "ticket-9999", actor), ErrTicketNotFound)
	require.ErrorIs(t, manager.Delete(ctx, "ticket-9999", actor), ErrTicketNotFound)
	require.ErrorIs(t, manager.SetRating(ctx, "ticket-9999", 5, ""), ErrTicketNotFound)
	_, err := manager.GetByID("ticket-9999")
	require.ErrorIs(t, err, ErrTicketNotFound)
}
