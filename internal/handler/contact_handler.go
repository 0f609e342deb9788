package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/cadrimiranda/rubia-sub000/internal/errors"
	"github.com/cadrimiranda/rubia-sub000/internal/service"
)

// ContactHandler serves contact-scoped routes (retry, exclude, reinclude,
// delete).
type ContactHandler struct {
	Contacts   *service.ContactService
	Dispatcher *service.Dispatcher
}

func (h *ContactHandler) Routes(r chi.Router) {
	r.Post("/contacts/{id}/retry", h.Retry)
	r.Post("/contacts/{id}/exclude", h.Exclude)
	r.Post("/contacts/{id}/reinclude", h.Reinclude)
	r.Delete("/contacts/{id}", h.Delete)
}

func (h *ContactHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		http.Error(w, "invalid contact id", http.StatusBadRequest)
		return
	}

	sent, err := h.Dispatcher.Retry(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"retried": sent})
}

func (h *ContactHandler) Exclude(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		http.Error(w, "invalid contact id", http.StatusBadRequest)
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := h.Contacts.Exclude(id, body.Reason); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ContactHandler) Reinclude(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		http.Error(w, "invalid contact id", http.StatusBadRequest)
		return
	}

	if err := h.Contacts.Reinclude(id); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		http.Error(w, "invalid contact id", http.StatusBadRequest)
		return
	}

	if err := h.Contacts.Delete(id); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ---- shared helpers ----

func urlID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError maps service errors to HTTP status codes.
func respondError(w http.ResponseWriter, err error) {
	var (
		campaignNotFound *appErrors.ErrCampaignNotFound
		contactNotFound  *appErrors.ErrContactNotFound
		duplicate        *appErrors.ErrDuplicateContact
		invalidState     *appErrors.ErrInvalidState
		validation       *appErrors.ValidationError
	)

	switch {
	case errors.As(err, &campaignNotFound), errors.As(err, &contactNotFound):
		respondJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	case errors.As(err, &duplicate):
		respondJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
	case errors.As(err, &invalidState):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
	case errors.As(err, &validation):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error(), "problems": validation.Problems})
	default:
		respondJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
}
