package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/spigell/matchmaker/internal/session"
	"github.com/spigell/matchmaker/internal/vehicle"
)

func sessionStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownSession), errors.Is(err, session.ErrUnknownVehicle),
		errors.Is(err, session.ErrNotInList):
		return http.StatusNotFound
	case errors.Is(err, session.ErrAlreadySwiped), errors.Is(err, session.ErrNothingToUndo),
		errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// withSession resolves the {session} path parameter or writes the error.
func (h *handlers) withSession(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	c, err := h.Sessions.Get(chi.URLParam(r, "session"))
	if err != nil {
		writeError(w, sessionStatus(err), err.Error())
		return nil, false
	}
	return c, true
}

func (h *handlers) createSession(w http.ResponseWriter, _ *http.Request) {
	c := h.Sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]string{"id": c.ID()})
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	c, ok := h.withSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (h *handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Delete(chi.URLParam(r, "session")); err != nil {
		writeError(w, sessionStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) setPreferences(w http.ResponseWriter, r *http.Request) {
	c, ok := h.withSession(w, r)
	if !ok {
		return
	}

	var prefs vehicle.Preferences
	if err := decode(w, r, &prefs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := h.rankContext(r)
	defer cancel()

	if _, err := c.SetPreferences(ctx, &prefs); err != nil {
		writeError(w, sessionStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (h *handlers) favorite(w http.ResponseWriter, r *http.Request) {
	h.swipe(w, r, (*session.Controller).Favorite)
}

func (h *handlers) pass(w http.ResponseWriter, r *http.Request) {
	h.swipe(w, r, (*session.Controller).Pass)
}

func (h *handlers) removeFavorite(w http.ResponseWriter, r *http.Request) {
	h.swipe(w, r, (*session.Controller).RemoveFavorite)
}

func (h *handlers) restorePass(w http.ResponseWriter, r *http.Request) {
	h.swipe(w, r, (*session.Controller).RestorePass)
}

func (h *handlers) swipe(w http.ResponseWriter, r *http.Request, record func(*session.Controller, string) error) {
	c, ok := h.withSession(w, r)
	if !ok {
		return
	}

	if err := record(c, chi.URLParam(r, "vehicle")); err != nil {
		writeError(w, sessionStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (h *handlers) undo(w http.ResponseWriter, r *http.Request) {
	c, ok := h.withSession(w, r)
	if !ok {
		return
	}

	last, err := c.Undo()
	if err != nil {
		writeError(w, sessionStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func (h *handlers) deck(w http.ResponseWriter, r *http.Request) {
	c, ok := h.withSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Deck())
}
