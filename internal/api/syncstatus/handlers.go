// internal/api/syncstatus/handlers.go
package syncstatus

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtsync/internal/api/apiutil"
	"github.com/codr1/courtsync/internal/calsync"
)

// Reconciler is the part of calsync.Engine the handlers drive.
type Reconciler interface {
	Run(ctx context.Context, window calsync.Window) (calsync.RunReport, error)
	ForceResync(ctx context.Context) (calsync.RunReport, error)
	SyncOne(ctx context.Context, id int64) error
	Status(ctx context.Context) (calsync.Counts, error)
}

var (
	engine     Reconciler
	runTimeout = defaultRunTimeout
	initOnce   sync.Once
)

const (
	defaultRunTimeout = 5 * time.Minute
	// Extra write time after the run deadline for encoding the report.
	writeGrace = 10 * time.Second
)

// InitHandlers must be called during server startup before handling requests.
// timeout bounds runs started over HTTP; it should match sync.run_timeout so a
// run cannot outlive the run guard lease.
func InitHandlers(r Reconciler, timeout time.Duration) {
	if r == nil {
		return
	}
	initOnce.Do(func() {
		engine = r
		if timeout > 0 {
			runTimeout = timeout
		}
	})
}

func Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/sync/status", HandleStatus)
	mux.HandleFunc("POST /api/v1/sync/run", HandleRun)
	mux.HandleFunc("POST /api/v1/sync/reservations/{id}", HandleSyncOne)
}

type runRequest struct {
	// Window limits the pass; empty means a forced resync of everything.
	Window string `json:"window" validate:"omitempty,oneof=today month all"`
}

// GET /api/v1/sync/status
func HandleStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiutil.RequireAdmin(w, r); !ok {
		return
	}
	e, ok := loadEngine(w, r)
	if !ok {
		return
	}

	counts, err := e.Status(r.Context())
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, counts)
}

// POST /api/v1/sync/run
func HandleRun(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiutil.RequireAdmin(w, r); !ok {
		return
	}
	e, ok := loadEngine(w, r)
	if !ok {
		return
	}

	var req runRequest
	if r.ContentLength > 0 {
		if err := apiutil.DecodeAndValidate(r, &req); err != nil {
			apiutil.WriteError(w, r, err)
			return
		}
	}

	// The server's WriteTimeout is sized for ordinary requests; a pass may
	// take up to runTimeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Now().Add(runTimeout + writeGrace)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Ctx(r.Context()).Warn().Err(err).Msg("Failed to extend write deadline for sync run")
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), runTimeout)
	defer cancel()

	var (
		report calsync.RunReport
		err    error
	)
	if req.Window == "" {
		report, err = e.ForceResync(ctx)
	} else {
		// Already restricted by the oneof tag.
		window, _ := calsync.ParseWindow(req.Window)
		report, err = e.Run(ctx, window)
	}
	if err != nil {
		switch {
		case errors.Is(err, calsync.ErrRunInProgress):
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusConflict, Message: err.Error(), Err: err})
		case errors.Is(err, calsync.ErrNoCalendar):
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusServiceUnavailable, Message: err.Error(), Err: err})
		default:
			apiutil.WriteError(w, r, err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

// POST /api/v1/sync/reservations/{id}
func HandleSyncOne(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiutil.RequireAdmin(w, r); !ok {
		return
	}
	e, ok := loadEngine(w, r)
	if !ok {
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	if err := e.SyncOne(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusNotFound, Message: "Reservation not found", Err: err})
		case errors.Is(err, calsync.ErrRunInProgress):
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusConflict, Message: err.Error(), Err: err})
		case errors.Is(err, calsync.ErrNoCalendar):
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusServiceUnavailable, Message: err.Error(), Err: err})
		default:
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadGateway, Message: "Calendar sync failed", Err: err})
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func loadEngine(w http.ResponseWriter, r *http.Request) (Reconciler, bool) {
	if engine == nil {
		log.Ctx(r.Context()).Error().Msg("Sync handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	return engine, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := apiutil.WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write sync response")
	}
}
