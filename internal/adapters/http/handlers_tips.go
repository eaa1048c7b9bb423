package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/application"
)

func (h *Handler) sendTip(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromContext(r.Context())
	if !ok {
		writeMissingSessionError(r.Context(), w, "send_tip")
		return
	}
	var req application.SendTipRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "send_tip", err)
		return
	}
	res, err := h.service.SendTip(r.Context(), sessionID, req, strings.TrimSpace(r.Header.Get("Idempotency-Key")))
	if err != nil {
		writeMappedError(r.Context(), w, "send_tip", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) listProfileTips(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePageWindow(r, 20, 100)
	res, err := h.service.ListTips(r.Context(), chi.URLParam(r, "slug"), limit, offset)
	if err != nil {
		writeMappedError(r.Context(), w, "list_profile_tips", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) getTip(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetTip(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_tip", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
