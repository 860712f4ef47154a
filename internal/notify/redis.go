package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-engine/internal/domain"
)

// RedisNotifier publishes notices as JSON payloads on per-kind channels, so
// the platform adapter can subscribe and render them however it likes.
type RedisNotifier struct {
	client     *redis.Client
	channel    string
	staffRoles []string
}

// NewRedisNotifier builds a publisher. channelPrefix defaults to "tickets";
// staffRoles are attached to reminder notices so the adapter can mention
// them.
func NewRedisNotifier(client *redis.Client, channelPrefix string, staffRoles []string) *RedisNotifier {
	if channelPrefix == "" {
		channelPrefix = "tickets"
	}
	return &RedisNotifier{client: client, channel: channelPrefix, staffRoles: staffRoles}
}

func (n *RedisNotifier) InactivityWarning(ctx context.Context, ticket *domain.Ticket, remainingMinutes int) error {
	return n.publish(ctx, Notice{
		Kind:             NoticeInactivityWarning,
		TicketID:         ticket.TicketID,
		ChannelID:        ticket.ChannelID,
		GuildID:          ticket.GuildID,
		UserID:           ticket.UserID,
		RemainingMinutes: remainingMinutes,
	})
}

func (n *RedisNotifier) AutoClosed(ctx context.Context, ticket *domain.Ticket) error {
	return n.publish(ctx, Notice{
		Kind:      NoticeAutoClosed,
		TicketID:  ticket.TicketID,
		ChannelID: ticket.ChannelID,
		GuildID:   ticket.GuildID,
		UserID:    ticket.UserID,
	})
}

func (n *RedisNotifier) StaffReminder(ctx context.Context, ticket *domain.Ticket, waitingMinutes int) error {
	return n.publish(ctx, Notice{
		Kind:           NoticeStaffReminder,
		TicketID:       ticket.TicketID,
		ChannelID:      ticket.ChannelID,
		GuildID:        ticket.GuildID,
		UserID:         ticket.UserID,
		WaitingMinutes: waitingMinutes,
		StaffRoles:     n.staffRoles,
	})
}

func (n *RedisNotifier) publish(ctx context.Context, notice Notice) error {
	notice.Timestamp = time.Now().UnixMilli()
	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}
	channel := fmt.Sprintf("%s.%s", n.channel, notice.Kind)
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}
