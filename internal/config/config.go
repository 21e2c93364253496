// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver    string `yaml:"driver"`
	Filename  string `yaml:"filename"`
	URL       string `yaml:"url,omitempty"`
	AuthToken string `yaml:"-"` // Loaded from environment
}

type BookingConfig struct {
	// CancellationCutoff is how long before start a member may still cancel.
	CancellationCutoff time.Duration `yaml:"cancellation_cutoff"`
	// LateRefundPercent applies to staff cancellations that opt into the member policy
	// after the cutoff has passed.
	LateRefundPercent   int64         `yaml:"late_refund_percent"`
	FullVenueCourtTypes []string      `yaml:"full_venue_court_types"`
	Holidays            []string      `yaml:"holidays"`
	LeaseTTL            time.Duration `yaml:"lease_ttl"`
}

type SyncConfig struct {
	Enabled       bool          `yaml:"enabled"`
	TodayCron     string        `yaml:"today_cron"`
	MonthCron     string        `yaml:"month_cron"`
	RunLeaseTTL   time.Duration `yaml:"run_lease_ttl"`
	RunTimeout    time.Duration `yaml:"run_timeout"`
	LockBackend   string        `yaml:"lock_backend"` // "local" or "redis"
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"-"` // Loaded from environment
}

type CalendarConfig struct {
	Provider          string `yaml:"provider"` // "google", "memory" or "none"
	PublicCalendarID  string `yaml:"public_calendar_id"`
	PrivateCalendarID string `yaml:"private_calendar_id"`
	CredentialsFile   string `yaml:"-"` // Loaded from environment
}

type NotifyConfig struct {
	EmailEnabled bool   `yaml:"email_enabled"`
	SESRegion    string `yaml:"ses_region"`
	SESSender    string `yaml:"ses_sender"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPURL      string `yaml:"-"` // Loaded from environment
	AWSAccessKey string `yaml:"-"`
	AWSSecretKey string `yaml:"-"`
}

type AccessConfig struct {
	LeadTime time.Duration `yaml:"lead_time"`
	QRSize   int           `yaml:"qr_size"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		Timezone    string `yaml:"timezone"`
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`
	Booking  BookingConfig  `yaml:"booking"`
	Sync     SyncConfig     `yaml:"sync"`
	Calendar CalendarConfig `yaml:"calendar"`
	Notify   NotifyConfig   `yaml:"notify"`
	Access   AccessConfig   `yaml:"access"`

	Features struct {
		EnableMetrics bool `yaml:"enable_metrics"`
		EnableDebug   bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.Database.AuthToken = os.Getenv("DATABASE_AUTH_TOKEN")
	cfg.Sync.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.Calendar.CredentialsFile = os.Getenv("GOOGLE_CREDENTIALS_FILE")
	cfg.Notify.AMQPURL = os.Getenv("AMQP_URL")
	cfg.Notify.AWSAccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
	cfg.Notify.AWSSecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration and fills defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Timezone == "" {
		c.App.Timezone = "UTC"
	}
	if c.Booking.CancellationCutoff == 0 {
		c.Booking.CancellationCutoff = 24 * time.Hour
	}
	if len(c.Booking.FullVenueCourtTypes) == 0 {
		c.Booking.FullVenueCourtTypes = []string{"solo", "training", "competition"}
	}
	if c.Booking.LeaseTTL == 0 {
		c.Booking.LeaseTTL = 10 * time.Second
	}
	if c.Sync.TodayCron == "" {
		c.Sync.TodayCron = "*/5 * * * *"
	}
	if c.Sync.MonthCron == "" {
		c.Sync.MonthCron = "0 3 * * *"
	}
	if c.Sync.RunLeaseTTL == 0 {
		c.Sync.RunLeaseTTL = 10 * time.Minute
	}
	if c.Sync.RunTimeout == 0 {
		c.Sync.RunTimeout = 5 * time.Minute
	}
	if c.Sync.LockBackend == "" {
		c.Sync.LockBackend = "local"
	}
	if c.Calendar.Provider == "" {
		c.Calendar.Provider = "none"
	}
	if c.Notify.AMQPExchange == "" {
		c.Notify.AMQPExchange = "courtsync.events"
	}
	if c.Access.LeadTime == 0 {
		c.Access.LeadTime = 15 * time.Minute
	}
	if c.Access.QRSize == 0 {
		c.Access.QRSize = 256
	}
}

// Location returns the facility time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.App.Timezone)
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.App.Timezone, err)
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	case "turso":
		if c.Database.URL == "" {
			return fmt.Errorf("database URL is required for turso")
		}
		if c.Database.AuthToken == "" {
			return fmt.Errorf("database auth token is required for turso")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Booking.LateRefundPercent < 0 || c.Booking.LateRefundPercent > 100 {
		return fmt.Errorf("booking late_refund_percent must be between 0 and 100")
	}
	for _, day := range c.Booking.Holidays {
		if _, err := time.Parse(time.DateOnly, strings.TrimSpace(day)); err != nil {
			return fmt.Errorf("invalid holiday %q: %w", day, err)
		}
	}

	for name, expr := range map[string]string{
		"sync today_cron": c.Sync.TodayCron,
		"sync month_cron": c.Sync.MonthCron,
	} {
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, expr, err)
		}
	}

	if c.Sync.RunTimeout >= c.Sync.RunLeaseTTL {
		return fmt.Errorf("sync run_timeout (%s) must be shorter than run_lease_ttl (%s)", c.Sync.RunTimeout, c.Sync.RunLeaseTTL)
	}

	switch c.Sync.LockBackend {
	case "local":
	case "redis":
		if c.Sync.RedisAddr == "" {
			return fmt.Errorf("sync redis_addr is required for redis lock backend")
		}
	default:
		return fmt.Errorf("unsupported sync lock backend: %s", c.Sync.LockBackend)
	}

	switch c.Calendar.Provider {
	case "none", "memory":
	case "google":
		if c.Calendar.PublicCalendarID == "" || c.Calendar.PrivateCalendarID == "" {
			return fmt.Errorf("calendar public and private calendar ids are required for google")
		}
	default:
		return fmt.Errorf("unsupported calendar provider: %s", c.Calendar.Provider)
	}

	if c.Notify.EmailEnabled && (c.Notify.SESRegion == "" || c.Notify.SESSender == "") {
		return fmt.Errorf("notify ses_region and ses_sender are required when email is enabled")
	}

	return nil
}
