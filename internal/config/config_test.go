package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-engine/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "ticket-engine", cfg.App.Name)
	require.Equal(t, "data", cfg.Store.Dir)
	require.Equal(t, 5, cfg.Automation.SweepIntervalMinutes)
	require.True(t, cfg.Automation.AutoClose)
	require.Equal(t, 60, cfg.Automation.InactivityWarningMinutes)
	require.Equal(t, 30, cfg.Automation.InactivityGraceMinutes)
	require.Equal(t, 1, cfg.Automation.MaxTicketsPerUser)
	require.Equal(t, 5*time.Minute, cfg.Automation.SweepInterval())
	require.Equal(t, "tickets", cfg.Redis.ChannelPrefix)
	require.Equal(t, "#F1C40F", cfg.Panels.PriorityColors[domain.TicketPriorityMedium])
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTOMATION_SWEEP_INTERVAL_MINUTES", "10")
	t.Setenv("AUTOMATION_AUTO_CLOSE", "false")
	t.Setenv("STORE_DIR", "/var/lib/tickets")
	t.Setenv("STAFF_ROLES", "role-a, role-b,")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 10*time.Minute, cfg.Automation.SweepInterval())
	require.False(t, cfg.Automation.AutoClose)
	require.Equal(t, "/var/lib/tickets", cfg.Store.Dir)
	require.Equal(t, []string{"role-a", "role-b"}, cfg.Panels.StaffRoles)
}

func TestLoadParsesWorkingHours(t *testing.T) {
	t.Setenv("PANEL_WORKING_HOURS", `{
		"1": {
			"enabled": true,
			"timezone": "Europe/Berlin",
			"notice": "Back tomorrow.",
			"schedule": {
				"monday": {"enabled": true, "start": "09:00", "end": "17:00"}
			}
		}
	}`)

	cfg, err := Load()
	require.NoError(t, err)

	schedule, ok := cfg.Panels.WorkingHours[1]
	require.True(t, ok)
	require.True(t, schedule.Enabled)
	require.Equal(t, "Europe/Berlin", schedule.Timezone)
	require.Equal(t, "09:00", schedule.Days["monday"].Start)
}

func TestLoadRejectsMalformedWorkingHours(t *testing.T) {
	t.Setenv("PANEL_WORKING_HOURS", "{broken")
	_, err := Load()
	require.Error(t, err)
}
