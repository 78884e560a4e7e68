package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"bandprep/internal/auth"
	"bandprep/internal/submission"

	"github.com/go-chi/chi/v5"
)

// StatusReader is the read side of the job store, scoped by owner.
type StatusReader interface {
	WritingStatus(ctx context.Context, userID, id uint64) (*submission.StatusView, error)
	SpeakingStatus(ctx context.Context, userID, id uint64) (*submission.StatusView, error)
}

// StatusHandler serves the polling endpoints. Reads only; safe at any
// polling cadence.
type StatusHandler struct {
	Subs StatusReader
}

func (h *StatusHandler) Writing(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.Subs.WritingStatus)
}

func (h *StatusHandler) Speaking(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.Subs.SpeakingStatus)
}

func (h *StatusHandler) respond(w http.ResponseWriter, r *http.Request,
	fetch func(ctx context.Context, userID, id uint64) (*submission.StatusView, error)) {

	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "missing submission ID")
		return
	}

	view, err := fetch(r.Context(), uid, id)
	if err != nil {
		// Someone else's submission reads as nonexistent on purpose.
		if errors.Is(err, submission.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Submission not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"submission": view,
	})
}
