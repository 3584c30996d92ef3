package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "59 23 * * 0", cfg.Rollover.Schedule)
	assert.Equal(t, 10*time.Second, cfg.Rollover.PersistenceTimeout)

	day, err := cfg.WeekStart()
	require.NoError(t, err)
	assert.Equal(t, time.Monday, day)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  dsn: "file::memory:"
rollover:
  schedule: "59 23 * * 6"
  timezone: "Europe/Moscow"
  week_start_day: "sunday"
  persistence_timeout_seconds: 3
`)
	t.Setenv("ROLLOVER_TIMEZONE", "Asia/Shanghai")
	t.Setenv("HTTP_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "file::memory:", cfg.Database.DSN)
	assert.Equal(t, "59 23 * * 6", cfg.Rollover.Schedule)
	assert.Equal(t, "Asia/Shanghai", cfg.Rollover.Timezone)
	assert.Equal(t, 3*time.Second, cfg.Rollover.PersistenceTimeout)

	calc, err := cfg.Calculator()
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, calc.WeekStart())
	assert.Equal(t, "Asia/Shanghai", calc.Location().String())
}

func TestLoad_Invalid(t *testing.T) {
	testCases := map[string]string{
		"timezone": "rollover:\n  timezone: Mars/Olympus\n",
		"week day": "rollover:\n  week_start_day: someday\n",
		"schedule": "rollover:\n  schedule: \"every week\"\n",
		"yaml":     "server: [\n",
	}

	for name, body := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestValidate_ScheduleMustCloseWeek(t *testing.T) {
	testCases := []struct {
		name      string
		weekStart string
		schedule  string
		wantErr   bool
	}{
		{name: "sunday night closes monday week", weekStart: "monday", schedule: "59 23 * * 0"},
		{name: "saturday night closes sunday week", weekStart: "sunday", schedule: "59 23 * * 6"},
		{name: "sunday night opens sunday week", weekStart: "sunday", schedule: "59 23 * * 0", wantErr: true},
		{name: "monday midnight opens monday week", weekStart: "monday", schedule: "0 0 * * 1", wantErr: true},
		{name: "daily run", weekStart: "monday", schedule: "0 3 * * *", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Rollover.WeekStartDay = tc.weekStart
			cfg.Rollover.Schedule = tc.schedule

			err := cfg.Validate()
			if tc.wantErr {
				assert.ErrorContains(t, err, "before the end of the week")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckScheduleAlignment_ArchivedWindowHasElapsed(t *testing.T) {
	cfg := Default()
	cfg.Rollover.WeekStartDay = "sunday"

	calc, err := cfg.Calculator()
	require.NoError(t, err)
	schedule, err := cron.ParseStandard(cfg.Rollover.Schedule)
	require.NoError(t, err)

	// воскресенье 23:59 - первые сутки недели с воскресенья
	from := time.Date(2024, 1, 7, 12, 0, 0, 0, time.UTC)
	err = cfg.checkScheduleAlignment(schedule, calc, from)
	assert.ErrorContains(t, err, "2024-01-07T23:59:00Z")
	assert.ErrorContains(t, err, "week starting 2024-01-07")
}
