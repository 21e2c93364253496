// Package app builds the long-lived services from configuration. The HTTP
// server and the operator CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/codr1/courtsync/internal/access"
	"github.com/codr1/courtsync/internal/booking"
	"github.com/codr1/courtsync/internal/calendar"
	"github.com/codr1/courtsync/internal/calsync"
	"github.com/codr1/courtsync/internal/config"
	"github.com/codr1/courtsync/internal/db"
	"github.com/codr1/courtsync/internal/ledger"
	"github.com/codr1/courtsync/internal/lock"
	"github.com/codr1/courtsync/internal/metrics"
	"github.com/codr1/courtsync/internal/notify"
	"github.com/codr1/courtsync/internal/pricing"
)

const startupTimeout = 15 * time.Second

type App struct {
	Config   *config.Config
	DB       *db.DB
	Metrics  metrics.Metrics
	Registry *prometheus.Registry // nil unless metrics are enabled
	Ledger   *ledger.Service
	Bookings *booking.Manager
	Access   *access.Issuer
	Engine   *calsync.Engine
	// Calendar is set only for the memory provider.
	Calendar *calendar.Memory

	closers []func() error
}

// New opens storage and connects every configured collaborator. On error,
// whatever was already opened is closed again.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := log.Ctx(ctx)

	a := &App{Config: cfg, Metrics: metrics.Nop{}}
	ready := false
	defer func() {
		if !ready {
			_ = a.Close()
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.DB = database
	a.closers = append(a.closers, database.Close)

	if cfg.Features.EnableMetrics {
		a.Registry = prometheus.NewRegistry()
		a.Metrics = metrics.NewService(a.Registry)
	}

	locker, err := a.newLocker(startCtx)
	if err != nil {
		return nil, err
	}

	notifier, err := a.newNotifier(startCtx)
	if err != nil {
		return nil, err
	}

	a.Ledger = ledger.NewService(a.DB)
	a.Bookings = booking.NewManager(a.DB, pricing.NewCalculator(pricing.NewCalendarPolicy(cfg.Booking.Holidays...)), booking.Config{
		Location:            loc,
		CancellationCutoff:  cfg.Booking.CancellationCutoff,
		LateRefundPercent:   cfg.Booking.LateRefundPercent,
		FullVenueCourtTypes: cfg.Booking.FullVenueCourtTypes,
		LeaseTTL:            cfg.Booking.LeaseTTL,
	},
		booking.WithLocker(locker),
		booking.WithNotifier(notifier),
		booking.WithMetrics(a.Metrics),
	)
	a.Access = access.NewIssuer(a.DB, access.Config{
		Location: loc,
		LeadTime: cfg.Access.LeadTime,
		QRSize:   cfg.Access.QRSize,
	}, nil)

	mirror, err := a.newMirror(startCtx)
	if err != nil {
		return nil, err
	}
	a.Engine = calsync.NewEngine(a.DB, mirror,
		calsync.WithLocker(locker),
		calsync.WithMetrics(a.Metrics),
		calsync.WithLocation(loc),
		calsync.WithRunLeaseTTL(cfg.Sync.RunLeaseTTL),
	)

	logger.Info().
		Str("database", cfg.Database.Driver).
		Str("lock_backend", cfg.Sync.LockBackend).
		Str("calendar", cfg.Calendar.Provider).
		Bool("metrics", cfg.Features.EnableMetrics).
		Msg("Services initialized")
	ready = true
	return a, nil
}

// CalendarEnabled reports whether a calendar provider is configured.
func (a *App) CalendarEnabled() bool {
	return a.Config.Calendar.Provider != "none"
}

// Close releases every connection opened by New, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) newLocker(ctx context.Context) (lock.Locker, error) {
	if a.Config.Sync.LockBackend != "redis" {
		return lock.NewLocalLocker(nil), nil
	}
	client, err := lock.NewRedisClient(ctx, a.Config.Sync.RedisAddr, a.Config.Sync.RedisPassword)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	return lock.NewRedisLocker(client), nil
}

func (a *App) newNotifier(ctx context.Context) (notify.Notifier, error) {
	cfg := a.Config.Notify
	var notifiers notify.Multi

	if cfg.EmailEnabled {
		ses, err := notify.NewSESClient(ctx, cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.SESRegion, cfg.SESSender)
		if err != nil {
			return nil, fmt.Errorf("create ses client: %w", err)
		}
		notifiers = append(notifiers, notify.NewEmailNotifier(ses, a.DB.Queries))
	}
	if cfg.AMQPURL != "" {
		publisher, err := notify.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("connect amqp: %w", err)
		}
		a.closers = append(a.closers, publisher.Close)
		notifiers = append(notifiers, notify.NewEventNotifier(publisher))
	}

	if len(notifiers) == 0 {
		return notify.Nop{}, nil
	}
	return notifiers, nil
}

func (a *App) newMirror(ctx context.Context) (*calendar.Mirror, error) {
	cfg := a.Config.Calendar
	switch cfg.Provider {
	case "google":
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		// The client outlives startup, so it must not inherit the startup deadline.
		google, err := calendar.NewGoogleCalendar(context.WithoutCancel(ctx), cfg.PublicCalendarID, cfg.PrivateCalendarID, opts...)
		if err != nil {
			return nil, fmt.Errorf("create google calendar: %w", err)
		}
		return calendar.NewMirror(google), nil
	case "memory":
		a.Calendar = calendar.NewMemory()
		return calendar.NewMirror(a.Calendar), nil
	default:
		return nil, nil
	}
}
