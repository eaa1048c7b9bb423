package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/application"
)

func (h *Handler) createProfile(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromContext(r.Context())
	if !ok {
		writeMissingSessionError(r.Context(), w, "create_profile")
		return
	}
	var req application.CreateProfileRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_profile", err)
		return
	}
	res, err := h.service.CreateProfile(r.Context(), sessionID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_profile", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetProfile(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_profile", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) listProfiles(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePageWindow(r, 20, 100)
	res, err := h.service.ListProfiles(r.Context(), application.ListProfilesQuery{
		Category: r.URL.Query().Get("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "list_profiles", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromContext(r.Context())
	if !ok {
		writeMissingSessionError(r.Context(), w, "update_profile")
		return
	}
	var req application.UpdateProfileRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_profile", err)
		return
	}
	res, err := h.service.UpdateProfile(r.Context(), sessionID, chi.URLParam(r, "slug"), req)
	if err != nil {
		writeMappedError(r.Context(), w, "update_profile", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetBalance(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_balance", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
