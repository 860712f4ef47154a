// Package stats computes aggregate metrics over a ticket snapshot.
package stats

import (
	"math"

	"github.com/spec-kit/ticket-engine/internal/domain"
)

// Snapshot is a point-in-time aggregation of the ticket store.
type Snapshot struct {
	TotalTickets       int            `json:"total_tickets"`
	OpenTickets        int            `json:"open_tickets"`
	ClosedTickets      int            `json:"closed_tickets"`
	AvgResponseMinutes int64          `json:"avg_response_minutes"`
	AvgResolutionHours int64          `json:"avg_resolution_hours"`
	AvgRating          float64        `json:"avg_rating"`
	TicketsByCategory  map[string]int `json:"tickets_by_category"`
	TicketsByStaff     map[string]int `json:"tickets_by_staff"`
	RatingDistribution map[int]int    `json:"rating_distribution"`
}

// Compute aggregates the given tickets. Response time is the gap between the
// first user message and the first staff message; resolution time spans
// creation to the closing activity.
func Compute(tickets []*domain.Ticket) Snapshot {
	snap := Snapshot{
		TicketsByCategory:  make(map[string]int),
		TicketsByStaff:     make(map[string]int),
		RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}

	var (
		responseTotal   int64
		responseCount   int64
		resolutionTotal int64
		resolutionCount int64
		ratingTotal     int
		ratingCount     int
	)

	for _, t := range tickets {
		snap.TotalTickets++
		if t.Active() {
			snap.OpenTickets++
		}
		snap.TicketsByCategory[t.Category]++
		if t.ClaimedByUsername != "" {
			snap.TicketsByStaff[t.ClaimedByUsername]++
		}

		if t.Status != domain.TicketStatusClosed {
			continue
		}
		snap.ClosedTickets++

		if len(t.Messages) >= 2 {
			first := t.Messages[0]
			for _, msg := range t.Messages {
				if msg.AuthorID != t.UserID {
					responseTotal += msg.Timestamp - first.Timestamp
					responseCount++
					break
				}
			}
		}
		if t.CreatedAt > 0 && t.LastActivity >= t.CreatedAt {
			resolutionTotal += t.LastActivity - t.CreatedAt
			resolutionCount++
		}
		if t.Rating >= 1 && t.Rating <= 5 {
			snap.RatingDistribution[t.Rating]++
			ratingTotal += t.Rating
			ratingCount++
		}
	}

	if responseCount > 0 {
		snap.AvgResponseMinutes = responseTotal / responseCount / 60_000
	}
	if resolutionCount > 0 {
		snap.AvgResolutionHours = resolutionTotal / resolutionCount / 3_600_000
	}
	if ratingCount > 0 {
		snap.AvgRating = math.Round(float64(ratingTotal)/float64(ratingCount)*10) / 10
	}
	return snap
}

// TopStaff returns the staff member with the most claimed tickets.
func (s Snapshot) TopStaff() (string, int, bool) {
	return maxEntry(s.TicketsByStaff)
}

// BusiestCategory returns the category with the most tickets.
func (s Snapshot) BusiestCategory() (string, int, bool) {
	return maxEntry(s.TicketsByCategory)
}

func maxEntry(counts map[string]int) (string, int, bool) {
	var (
		bestKey   string
		bestCount int
		found     bool
	)
	for key, count := range counts {
		if !found || count > bestCount || (count == bestCount && key < bestKey) {
			bestKey, bestCount, found = key, count, true
		}
	}
	return bestKey, bestCount, found
}
