// internal/api/reservations/handlers.go
package reservations

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtsync/internal/access"
	"github.com/codr1/courtsync/internal/api/apiutil"
	"github.com/codr1/courtsync/internal/api/authz"
	"github.com/codr1/courtsync/internal/booking"
	dbgen "github.com/codr1/courtsync/internal/db/generated"
	"github.com/codr1/courtsync/internal/ratelimit"
	"github.com/codr1/courtsync/internal/timeslot"
)

var (
	manager  *booking.Manager
	issuer   *access.Issuer
	limiter  *ratelimit.Limiter
	initOnce sync.Once

	now = time.Now
)

const reservationRequestTimeout = 10 * time.Second

// InitHandlers must be called during server startup before handling requests.
// A nil limiter gets the default PIN attempt limits.
func InitHandlers(m *booking.Manager, i *access.Issuer, l *ratelimit.Limiter) {
	if m == nil || i == nil {
		return
	}
	if l == nil {
		l = ratelimit.New(nil)
	}
	initOnce.Do(func() {
		manager = m
		issuer = i
		limiter = l
	})
}

// Register mounts the reservation routes on mux.
func Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/reservations", HandleReservationCreate)
	mux.HandleFunc("POST /api/v1/reservations/full-venue", HandleFullVenueCreate)
	mux.HandleFunc("GET /api/v1/reservations/{id}", HandleReservationGet)
	mux.HandleFunc("POST /api/v1/reservations/{id}/cancel", HandleReservationCancel)
	mux.HandleFunc("POST /api/v1/reservations/{id}/complete", HandleReservationComplete)
	mux.HandleFunc("POST /api/v1/reservations/{id}/no-show", HandleReservationNoShow)
	mux.HandleFunc("POST /api/v1/reservations/{id}/access", HandleAccessIssue)
	mux.HandleFunc("POST /api/v1/reservations/{id}/access/verify", HandleAccessVerify)
}

type slotRequest struct {
	// UserID lets an admin book on behalf of a member.
	UserID       int64  `json:"user_id" validate:"gte=0"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Start        string `json:"start" validate:"required,clock"`
	End          string `json:"end" validate:"required,clock"`
	Participants int    `json:"participants" validate:"gte=1"`
}

type singleRequest struct {
	slotRequest
	CourtID int64 `json:"court_id" validate:"gt=0"`
}

type fullVenueRequest struct {
	slotRequest
	CourtTypes []string `json:"court_types" validate:"omitempty,dive,required"`
}

type cancelRequest struct {
	ApplyPolicy bool `json:"apply_policy"`
}

type accessRequest struct {
	VisitorName string `json:"visitor_name" validate:"required,max=120"`
}

type verifyRequest struct {
	PIN string `json:"pin" validate:"required,len=6,numeric"`
}

type reservationView struct {
	ID             int64  `json:"id"`
	CourtID        int64  `json:"court_id"`
	UserID         int64  `json:"user_id"`
	GroupID        string `json:"group_id,omitempty"`
	Date           string `json:"date"`
	Start          string `json:"start"`
	End            string `json:"end"`
	Participants   int64  `json:"participants"`
	Status         string `json:"status"`
	BasePrice      int64  `json:"base_price"`
	Discount       int64  `json:"discount"`
	FinalPrice     int64  `json:"final_price"`
	PointsDeducted int64  `json:"points_deducted"`
	RefundedPoints int64  `json:"refunded_points"`
	SyncStatus     string `json:"sync_status"`
}

type receiptResponse struct {
	GroupID      string            `json:"group_id,omitempty"`
	Charged      int64             `json:"charged"`
	Balance      int64             `json:"balance"`
	Reservations []reservationView `json:"reservations"`
}

type cancellationResponse struct {
	RefundPercent int64             `json:"refund_percent"`
	Refunded      int64             `json:"refunded"`
	Balance       int64             `json:"balance"`
	Reservations  []reservationView `json:"reservations"`
}

type verifyResponse struct {
	GrantID     int64     `json:"grant_id"`
	VisitorName string    `json:"visitor_name"`
	ValidUntil  time.Time `json:"valid_until"`
}

// POST /api/v1/reservations
func HandleReservationCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}
	m, _, ok := loadDeps(w, r)
	if !ok {
		return
	}

	var req singleRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	userID, interval, err := resolveSlot(user, req.slotRequest)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationRequestTimeout)
	defer cancel()

	receipt, err := m.ReserveSingle(ctx, booking.SingleRequest{
		CourtID:      req.CourtID,
		UserID:       userID,
		Date:         req.Date,
		Interval:     interval,
		Participants: req.Participants,
	})
	if err != nil {
		apiutil.WriteError(w, r, mapError(err))
		return
	}
	writeJSON(w, r, http.StatusCreated, newReceiptResponse(receipt))
}

// POST /api/v1/reservations/full-venue
func HandleFullVenueCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}
	m, _, ok := loadDeps(w, r)
	if !ok {
		return
	}

	var req fullVenueRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	userID, interval, err := resolveSlot(user, req.slotRequest)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationRequestTimeout)
	defer cancel()

	receipt, err := m.ReserveFullVenue(ctx, booking.FullVenueRequest{
		UserID:       userID,
		Date:         req.Date,
		Interval:     interval,
		Participants: req.Participants,
		CourtTypes:   req.CourtTypes,
	})
	if err != nil {
		apiutil.WriteError(w, r, mapError(err))
		return
	}
	writeJSON(w, r, http.StatusCreated, newReceiptResponse(receipt))
}

// GET /api/v1/reservations/{id}
func HandleReservationGet(w http.ResponseWriter, r *http.Request) {
	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}
	m, _, ok := loadDeps(w, r)
	if !ok {
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	res, err := loadOwned(r.Context(), m, user, id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newReservationView(res))
}

// POST /api/v1/reservations/{id}/cancel
func HandleReservationCancel(w http.ResponseWriter, r *http.Request) {
	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}
	m, _, ok := loadDeps(w, r)
	if !ok {
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	// The body is optional.
	var req cancelRequest
	if r.ContentLength > 0 {
		if err := apiutil.DecodeAndValidate(r, &req); err != nil {
			apiutil.WriteError(w, r, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationRequestTimeout)
	defer cancel()

	result, err := m.Cancel(ctx, booking.CancelRequest{
		ReservationID: id,
		Actor:         actorFor(user),
		ApplyPolicy:   req.ApplyPolicy,
	})
	if err != nil {
		apiutil.WriteError(w, r, mapError(err))
		return
	}

	views := make([]reservationView, 0, len(result.Reservations))
	for _, res := range result.Reservations {
		views = append(views, newReservationView(res))
	}
	writeJSON(w, r, http.StatusOK, cancellationResponse{
		RefundPercent: result.RefundPercent,
		Refunded:      result.Refunded,
		Balance:       result.Balance,
		Reservations:  views,
	})
}

// POST /api/v1/reservations/{id}/complete
func HandleReservationComplete(w http.ResponseWriter, r *http.Request) {
	handleClose(w, r, (*booking.Manager).Complete)
}

// POST /api/v1/reservations/{id}/no-show
func HandleReservationNoShow(w http.ResponseWriter, r *http.Request) {
	handleClose(w, r, (*booking.Manager).MarkNoShow)
}

func handleClose(w http.ResponseWriter, r *http.Request, closeFn func(*booking.Manager, context.Context, int64) ([]dbgen.Reservation, error)) {
	if _, ok := apiutil.RequireAdmin(w, r); !ok {
		return
	}
	m, _, ok := loadDeps(w, r)
	if !ok {
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	lines, err := closeFn(m, r.Context(), id)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err))
		return
	}
	views := make([]reservationView, 0, len(lines))
	for _, res := range lines {
		views = append(views, newReservationView(res))
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"reservations": views})
}

// POST /api/v1/reservations/{id}/access
func HandleAccessIssue(w http.ResponseWriter, r *http.Request) {
	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}
	m, i, ok := loadDeps(w, r)
	if !ok {
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	var req accessRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if _, err := loadOwned(r.Context(), m, user, id); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	grant, err := i.Issue(r.Context(), id, req.VisitorName)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err))
		return
	}
	writeJSON(w, r, http.StatusCreated, grant)
}

// POST /api/v1/reservations/{id}/access/verify
func HandleAccessVerify(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiutil.RequireAdmin(w, r); !ok {
		return
	}
	_, i, ok := loadDeps(w, r)
	if !ok {
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	var req verifyRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	key := "reservation:" + strconv.FormatInt(id, 10)
	ip := ratelimit.ClientIP(r, false)
	if limiter != nil {
		if result := limiter.Check(key, ip); !result.Allowed {
			ratelimit.LogExceeded(r.Context(), key, ip, result)
			w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusTooManyRequests, Message: "Too many attempts"})
			return
		}
	}

	grant, err := i.Verify(r.Context(), id, req.PIN, now())
	if err != nil {
		if limiter != nil && errors.Is(err, access.ErrInvalidCode) {
			if limiter.RecordFailure(key, ip) {
				log.Ctx(r.Context()).Warn().Int64("reservation_id", id).Msg("Access PIN locked out")
			}
		}
		apiutil.WriteError(w, r, mapError(err))
		return
	}
	if limiter != nil {
		limiter.Reset(key)
	}
	writeJSON(w, r, http.StatusOK, verifyResponse{
		GrantID:     grant.ID,
		VisitorName: grant.VisitorName,
		ValidUntil:  grant.ValidUntil,
	})
}

func loadDeps(w http.ResponseWriter, r *http.Request) (*booking.Manager, *access.Issuer, bool) {
	if manager == nil || issuer == nil {
		log.Ctx(r.Context()).Error().Msg("Reservation handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, nil, false
	}
	return manager, issuer, true
}

// resolveSlot picks the booking user and parses the requested clock range.
// Members always book for themselves.
func resolveSlot(user *authz.AuthUser, req slotRequest) (int64, timeslot.Interval, error) {
	userID := user.ID
	if req.UserID != 0 && req.UserID != user.ID {
		if !authz.IsAdmin(user) {
			return 0, timeslot.Interval{}, apiutil.HandlerError{
				Status:  http.StatusForbidden,
				Message: "Cannot book for another user",
				Err:     authz.ErrForbidden,
			}
		}
		userID = req.UserID
	}

	// Both values already passed the clock validator.
	start, _ := timeslot.ParseClock(req.Start)
	end, _ := timeslot.ParseClock(req.End)
	interval, err := timeslot.New(start, end)
	if err != nil {
		return 0, timeslot.Interval{}, apiutil.HandlerError{
			Status:  http.StatusBadRequest,
			Message: "Invalid time range",
			Err:     err,
			Fields:  []apiutil.FieldError{{Field: "end", Reason: "must be after start"}},
		}
	}
	return userID, interval, nil
}

func loadOwned(ctx context.Context, m *booking.Manager, user *authz.AuthUser, id int64) (dbgen.Reservation, error) {
	res, err := m.Get(ctx, id)
	if err != nil {
		return dbgen.Reservation{}, mapError(err)
	}
	if _, err := authz.RequireSelfOrAdmin(ctx, res.UserID); err != nil {
		return dbgen.Reservation{}, apiutil.HandlerError{Status: http.StatusForbidden, Message: "Forbidden", Err: err}
	}
	if user.ID != res.UserID {
		log.Ctx(ctx).Debug().Int64("reservation_id", id).Msg("Admin reading another user's reservation")
	}
	return res, nil
}

func actorFor(user *authz.AuthUser) booking.Actor {
	role := booking.RoleMember
	if authz.IsAdmin(user) {
		role = booking.RoleAdmin
	}
	return booking.Actor{UserID: user.ID, Role: role}
}

func mapError(err error) error {
	var fieldErr booking.FieldError
	var conflictErr *booking.ConflictError
	switch {
	case errors.As(err, &fieldErr):
		return apiutil.HandlerError{
			Status:  http.StatusBadRequest,
			Message: "Invalid request",
			Err:     err,
			Fields:  []apiutil.FieldError{{Field: fieldErr.Field, Reason: fieldErr.Reason}},
		}
	case errors.As(err, &conflictErr):
		return apiutil.HandlerError{Status: http.StatusConflict, Message: conflictErr.Error(), Err: err}
	case errors.Is(err, booking.ErrCutoffPassed),
		errors.Is(err, booking.ErrInvalidState),
		errors.Is(err, access.ErrNotConfirmed),
		errors.Is(err, access.ErrExpired):
		return apiutil.HandlerError{Status: http.StatusConflict, Message: err.Error(), Err: err}
	case errors.Is(err, booking.ErrInsufficientBalance):
		return apiutil.HandlerError{Status: http.StatusPaymentRequired, Message: err.Error(), Err: err}
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, access.ErrNotFound):
		return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Reservation not found", Err: err}
	case errors.Is(err, booking.ErrForbidden):
		return apiutil.HandlerError{Status: http.StatusForbidden, Message: "Forbidden", Err: err}
	case errors.Is(err, access.ErrVisitorMissing):
		return apiutil.HandlerError{
			Status:  http.StatusBadRequest,
			Message: "Invalid request",
			Err:     err,
			Fields:  []apiutil.FieldError{{Field: "visitor_name", Reason: "is required"}},
		}
	case errors.Is(err, access.ErrInvalidCode):
		return apiutil.HandlerError{Status: http.StatusForbidden, Message: err.Error(), Err: err}
	case errors.Is(err, booking.ErrCourtBusy):
		return apiutil.HandlerError{Status: http.StatusServiceUnavailable, Message: "Court is busy, retry shortly", Err: err}
	default:
		return err
	}
}

func newReservationView(res dbgen.Reservation) reservationView {
	return reservationView{
		ID:             res.ID,
		CourtID:        res.CourtID,
		UserID:         res.UserID,
		GroupID:        res.GroupID.String,
		Date:           res.Date,
		Start:          timeslot.FormatClock(int(res.StartMinute)),
		End:            timeslot.FormatClock(int(res.EndMinute)),
		Participants:   res.Participants,
		Status:         res.Status,
		BasePrice:      res.BasePrice,
		Discount:       res.Discount,
		FinalPrice:     res.FinalPrice,
		PointsDeducted: res.PointsDeducted,
		RefundedPoints: res.RefundedPoints,
		SyncStatus:     res.SyncStatus,
	}
}

func newReceiptResponse(receipt booking.Receipt) receiptResponse {
	views := make([]reservationView, 0, len(receipt.Reservations))
	for _, res := range receipt.Reservations {
		views = append(views, newReservationView(res))
	}
	return receiptResponse{
		GroupID:      receipt.GroupID,
		Charged:      receipt.Charged,
		Balance:      receipt.Balance,
		Reservations: views,
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := apiutil.WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write reservation response")
	}
}
