package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"lab-hours/pkg/weekwindow"
)

// Config - вся конфигурация приложения
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Rollover RolloverConfig `yaml:"rollover"`
	Telegram TelegramConfig `yaml:"telegram"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	Debug                  bool   `yaml:"debug"`
}

// RolloverConfig - расписание недельного архивирования и конвенция недели.
// WeekStartDay и Timezone используются всеми, кто вычисляет "текущую неделю".
type RolloverConfig struct {
	Enabled                   bool          `yaml:"enabled"`
	Schedule                  string        `yaml:"schedule"`
	Timezone                  string        `yaml:"timezone"`
	WeekStartDay              string        `yaml:"week_start_day"`
	PersistenceTimeoutSeconds int           `yaml:"persistence_timeout_seconds"`
	PersistenceTimeout        time.Duration `yaml:"-"`
}

type TelegramConfig struct {
	Token           string `yaml:"token"`
	BaseAdminChatID int64  `yaml:"base_admin_chat_id"`
	Debug           bool   `yaml:"debug"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultPath - путь к YAML конфигу по умолчанию
const DefaultPath = "./config/config.yaml"

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			RateLimitPerSec: 10,
			RateLimitBurst:  5,
			CacheTTLSeconds: 30,
		},
		Database: DatabaseConfig{
			DSN:                    "labhours.db",
			MaxOpenConns:           10,
			MaxIdleConns:           5,
			ConnMaxLifetimeMinutes: 30,
		},
		Rollover: RolloverConfig{
			Enabled:                   true,
			Schedule:                  "59 23 * * 0",
			Timezone:                  "UTC",
			WeekStartDay:              "monday",
			PersistenceTimeoutSeconds: 10,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load читает YAML файл (если он есть), затем .env и переменные окружения
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Warnf("failed to load .env file: %s", err.Error())
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = int(getEnvAsInt("HTTP_PORT", int64(cfg.Server.Port)))

	cfg.Database.DSN = getEnv("DATABASE_URL", cfg.Database.DSN)
	cfg.Database.Debug = getEnvAsBool("DATABASE_DEBUG", cfg.Database.Debug)

	cfg.Rollover.Enabled = getEnvAsBool("ROLLOVER_ENABLED", cfg.Rollover.Enabled)
	cfg.Rollover.Schedule = getEnv("ROLLOVER_SCHEDULE", cfg.Rollover.Schedule)
	cfg.Rollover.Timezone = getEnv("ROLLOVER_TIMEZONE", cfg.Rollover.Timezone)
	cfg.Rollover.WeekStartDay = getEnv("WEEK_START_DAY", cfg.Rollover.WeekStartDay)

	cfg.Telegram.Token = getEnv("TELEGRAM_BOT_TOKEN", cfg.Telegram.Token)
	cfg.Telegram.BaseAdminChatID = getEnvAsInt("BASE_ADMIN_CHAT_ID", cfg.Telegram.BaseAdminChatID)
	cfg.Telegram.Debug = getEnvAsBool("TELEGRAM_DEBUG", cfg.Telegram.Debug)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Rollover.PersistenceTimeoutSeconds <= 0 {
		cfg.Rollover.PersistenceTimeoutSeconds = 10
	}
	cfg.Rollover.PersistenceTimeout = time.Duration(cfg.Rollover.PersistenceTimeoutSeconds) * time.Second
}

// Validate проверяет часовой пояс, день начала недели и cron-выражение
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database dsn is empty")
	}
	calc, err := c.Calculator()
	if err != nil {
		return err
	}
	schedule, err := cron.ParseStandard(c.Rollover.Schedule)
	if err != nil {
		return fmt.Errorf("invalid rollover schedule %q: %w", c.Rollover.Schedule, err)
	}
	return c.checkScheduleAlignment(schedule, calc, time.Now())
}

// проверяемых срабатываний cron вперед
const alignmentChecks = 8

// checkScheduleAlignment требует, чтобы каждый запуск по расписанию приходился
// на последние сутки недели: архивируется неделя, содержащая момент запуска.
func (c *Config) checkScheduleAlignment(schedule cron.Schedule, calc *weekwindow.Calculator, from time.Time) error {
	next := from.In(calc.Location())
	for i := 0; i < alignmentChecks; i++ {
		next = schedule.Next(next)
		window := calc.WindowFor(next)
		if window.End.Sub(next) > 24*time.Hour {
			return fmt.Errorf("rollover schedule %q fires at %s, more than 24h before the end of the week starting %s (week_start_day=%s)",
				c.Rollover.Schedule, next.Format(time.RFC3339), window.Start.Format("2006-01-02"), calc.WeekStart())
		}
	}
	return nil
}

// Location возвращает часовой пояс учета
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Rollover.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid rollover timezone %q: %w", c.Rollover.Timezone, err)
	}
	return loc, nil
}

// WeekStart возвращает настроенный день начала недели
func (c *Config) WeekStart() (time.Weekday, error) {
	return weekwindow.ParseWeekday(c.Rollover.WeekStartDay)
}

// Calculator строит единственный калькулятор недель приложения
func (c *Config) Calculator() (*weekwindow.Calculator, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	day, err := c.WeekStart()
	if err != nil {
		return nil, err
	}
	return weekwindow.NewCalculator(day, loc), nil
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseInt(valStr, 10, 64); err == nil {
		return val
	}

	return defaultVal
}
