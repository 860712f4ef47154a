// Package automation runs the periodic sweep that drives time-initiated
// ticket transitions: inactivity warnings, auto-close after the grace period,
// and staff-response reminders.
package automation

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/lifecycle"
	"github.com/spec-kit/ticket-engine/internal/notify"
	"github.com/spec-kit/ticket-engine/internal/observability"
)

// automationActor is recorded on transitions the sweep performs itself.
var automationActor = lifecycle.Actor{UserID: "automation", Username: "Automation"}

// Config controls the sweep cadence and thresholds. All durations are
// minutes, matching the configuration provider contract.
type Config struct {
	Interval             time.Duration
	AutoCloseEnabled     bool
	WarningMinutes       int
	GraceMinutes         int
	StaffReminderMinutes int
	OverloadLimit        int
}

// Sweeper owns the recurring sweep. Start and Stop are idempotent; a stop
// only prevents future sweeps and never interrupts one in flight.
type Sweeper struct {
	manager  *lifecycle.Manager
	notifier notify.Notifier
	logger   *zap.Logger
	metrics  *observability.Metrics
	cfg      Config
	now      func() time.Time

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
}

// NewSweeper constructs the sweeper. metrics may be nil.
func NewSweeper(manager *lifecycle.Manager, notifier notify.Notifier, logger *zap.Logger, metrics *observability.Metrics, cfg Config) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	return &Sweeper{
		manager:  manager,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Start launches the sweep loop. Calling it while running is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})

	go s.loop(ctx, s.stopCh)
	s.logger.Info("automation monitoring started", zap.Duration("interval", s.cfg.Interval))
}

// Stop halts future sweeps. Safe to call repeatedly.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	s.logger.Info("automation monitoring stopped")
}

func (s *Sweeper) loop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one full pass. It is exported so the adapter layer can trigger
// an out-of-band pass, and it is idempotent: re-running it against an
// unchanged store performs no duplicate transitions.
func (s *Sweeper) Sweep(ctx context.Context) {
	closed := s.checkInactivity(ctx)
	s.checkStaffResponse(ctx)
	s.checkOverload(ctx)
	s.metrics.RecordSweep(closed)
}

func (s *Sweeper) checkInactivity(ctx context.Context) (closed int) {
	if !s.cfg.AutoCloseEnabled {
		return 0
	}

	inactive, err := s.manager.Inactive(s.cfg.WarningMinutes)
	if err != nil {
		s.logger.Error("inactivity pass: load failed", zap.Error(err))
		return
	}

	for _, ticket := range inactive {
		if ticket.InactivityWarned {
			continue
		}
		// Flag only after the notice goes out; a failed notify retries on
		// the next sweep instead of silently starting the grace clock.
		if err := s.notifier.InactivityWarning(ctx, ticket, s.cfg.GraceMinutes); err != nil {
			s.logger.Error("inactivity warning failed",
				zap.String("ticket_id", ticket.TicketID), zap.Error(err))
			continue
		}
		if err := s.manager.SetInactivityWarned(ctx, ticket.TicketID); err != nil {
			s.logger.Error("set inactivity warned failed",
				zap.String("ticket_id", ticket.TicketID), zap.Error(err))
		}
	}

	open, err := s.manager.Open()
	if err != nil {
		s.logger.Error("auto-close pass: load failed", zap.Error(err))
		return
	}
	graceCutoff := domain.Millis(s.now().Add(-time.Duration(s.cfg.GraceMinutes) * time.Minute))
	for _, ticket := range open {
		if !ticket.InactivityWarned || ticket.InactivityWarningTime == 0 {
			continue
		}
		if ticket.InactivityWarningTime >= graceCutoff {
			continue
		}
		if err := s.notifier.AutoClosed(ctx, ticket); err != nil {
			s.logger.Error("auto-close notice failed",
				zap.String("ticket_id", ticket.TicketID), zap.Error(err))
		}
		if err := s.manager.Close(ctx, ticket.TicketID, automationActor); err != nil {
			if errors.Is(err, lifecycle.ErrAlreadyClosed) {
				continue
			}
			s.logger.Error("auto-close failed",
				zap.String("ticket_id", ticket.TicketID), zap.Error(err))
			continue
		}
		closed++
		s.logger.Info("auto-closed inactive ticket", zap.String("ticket_id", ticket.TicketID))
	}
	return closed
}

func (s *Sweeper) checkStaffResponse(ctx context.Context) {
	unanswered, err := s.manager.Inactive(s.cfg.StaffReminderMinutes)
	if err != nil {
		s.logger.Error("staff-response pass: load failed", zap.Error(err))
		return
	}
	for _, ticket := range unanswered {
		if len(ticket.Messages) != 1 || ticket.Messages[0].AuthorID != ticket.UserID {
			continue
		}
		waiting := int((domain.Millis(s.now()) - ticket.LastActivity) / 60_000)
		if err := s.notifier.StaffReminder(ctx, ticket, waiting); err != nil {
			s.logger.Error("staff reminder failed",
				zap.String("ticket_id", ticket.TicketID), zap.Error(err))
		}
	}
}

func (s *Sweeper) checkOverload(ctx context.Context) {
	overloaded, err := s.manager.Overloaded(s.cfg.OverloadLimit)
	if err != nil {
		s.logger.Error("overload check: load failed", zap.Error(err))
		return
	}
	if overloaded {
		s.logger.Warn("open ticket count at overload limit", zap.Int("limit", s.cfg.OverloadLimit))
	}
}
