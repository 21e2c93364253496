// Package access issues door credentials for a reservation's visitors: a
// QR code and a PIN, valid from shortly before the slot until it ends.
package access

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/codr1/courtsync/internal/db"
	dbgen "github.com/codr1/courtsync/internal/db/generated"
	"github.com/codr1/courtsync/internal/timeslot"
)

var (
	ErrNotFound       = errors.New("reservation not found")
	ErrNotConfirmed   = errors.New("reservation is not confirmed")
	ErrExpired        = errors.New("reservation has already ended")
	ErrVisitorMissing = errors.New("visitor name is required")
	ErrInvalidCode    = errors.New("access code is not valid")
)

const (
	defaultLeadTime = 15 * time.Minute
	defaultQRSize   = 256
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Config struct {
	Location *time.Location
	LeadTime time.Duration
	QRSize   int
}

// Grant is an issued credential. PIN is only available at issue time.
type Grant struct {
	ID            int64     `json:"id"`
	ReservationID int64     `json:"reservation_id"`
	VisitorName   string    `json:"visitor_name"`
	PIN           string    `json:"pin"`
	QRPNG         []byte    `json:"qr_png"`
	ValidFrom     time.Time `json:"valid_from"`
	ValidUntil    time.Time `json:"valid_until"`
}

type Issuer struct {
	db    *db.DB
	cfg   Config
	clock Clock
}

func NewIssuer(database *db.DB, cfg Config, clock Clock) *Issuer {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LeadTime <= 0 {
		cfg.LeadTime = defaultLeadTime
	}
	if cfg.QRSize <= 0 {
		cfg.QRSize = defaultQRSize
	}
	if clock == nil {
		clock = realClock{}
	}
	return &Issuer{db: database, cfg: cfg, clock: clock}
}

// Issue creates a credential for visitor on a confirmed reservation.
func (i *Issuer) Issue(ctx context.Context, reservationID int64, visitor string) (Grant, error) {
	visitor = strings.TrimSpace(visitor)
	if visitor == "" {
		return Grant{}, ErrVisitorMissing
	}

	res, err := i.db.Queries.GetReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Grant{}, ErrNotFound
		}
		return Grant{}, fmt.Errorf("load reservation %d: %w", reservationID, err)
	}
	if res.Status != "confirmed" {
		return Grant{}, ErrNotConfirmed
	}

	from, until, err := i.window(res)
	if err != nil {
		return Grant{}, err
	}
	now := i.clock.Now()
	if !now.Before(until) {
		return Grant{}, ErrExpired
	}

	pin, err := newPIN()
	if err != nil {
		return Grant{}, err
	}
	hash, err := hashPIN(pin)
	if err != nil {
		return Grant{}, fmt.Errorf("hash pin: %w", err)
	}

	row, err := i.db.Queries.CreateAccessGrant(ctx, dbgen.CreateAccessGrantParams{
		ReservationID: res.ID,
		VisitorName:   visitor,
		CodeHash:      hash,
		ValidFrom:     from.UTC(),
		ValidUntil:    until.UTC(),
		CreatedAt:     now.UTC(),
	})
	if err != nil {
		return Grant{}, fmt.Errorf("store access grant: %w", err)
	}

	qr, err := qrPNG(qrPayload(res.ID, row.ID, pin), i.cfg.QRSize)
	if err != nil {
		return Grant{}, err
	}

	logger := log.Ctx(ctx)
	logger.Info().
		Str("component", "access").
		Int64("reservation_id", res.ID).
		Int64("grant_id", row.ID).
		Time("valid_from", from).
		Time("valid_until", until).
		Msg("Access granted")

	return Grant{
		ID:            row.ID,
		ReservationID: res.ID,
		VisitorName:   visitor,
		PIN:           pin,
		QRPNG:         qr,
		ValidFrom:     from,
		ValidUntil:    until,
	}, nil
}

// Verify checks pin against the grants of a reservation at the given time.
func (i *Issuer) Verify(ctx context.Context, reservationID int64, pin string, at time.Time) (dbgen.AccessGrant, error) {
	grants, err := i.db.Queries.ListAccessGrantsForReservation(ctx, reservationID)
	if err != nil {
		return dbgen.AccessGrant{}, fmt.Errorf("load access grants: %w", err)
	}
	for _, grant := range grants {
		if at.Before(grant.ValidFrom) || !at.Before(grant.ValidUntil) {
			continue
		}
		if verifyPIN(grant.CodeHash, pin) {
			return grant, nil
		}
	}
	return dbgen.AccessGrant{}, ErrInvalidCode
}

// window is [start - lead time, end) of res in the facility time zone.
func (i *Issuer) window(res dbgen.Reservation) (time.Time, time.Time, error) {
	day, err := timeslot.ParseDate(res.Date, i.cfg.Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse reservation date %q: %w", res.Date, err)
	}
	start, end := timeslot.Interval{Start: int(res.StartMinute), End: int(res.EndMinute)}.On(day, i.cfg.Location)
	return start.Add(-i.cfg.LeadTime), end, nil
}

func qrPayload(reservationID, grantID int64, pin string) string {
	return fmt.Sprintf("courtsync:access:%d:%d:%s", reservationID, grantID, pin)
}

func qrPNG(content string, size int) ([]byte, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, qr.Image(size)); err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return buf.Bytes(), nil
}
