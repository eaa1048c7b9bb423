package http

import (
	"net/http"
	"strings"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/application"
)

func (h *Handler) authStart(w http.ResponseWriter, r *http.Request) {
	req := application.BeginAuthRequest{
		Provider:    r.URL.Query().Get("provider"),
		RedirectURI: r.URL.Query().Get("redirect_uri"),
	}
	res, err := h.service.BeginAuth(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "auth_start", err)
		return
	}
	if strings.EqualFold(r.URL.Query().Get("response_mode"), "json") {
		writeSuccess(w, http.StatusOK, res)
		return
	}
	http.Redirect(w, r, res.AuthorizeURL, http.StatusFound)
}

func (h *Handler) authCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	result, err := h.service.CompleteAuth(r.Context(), code, state)
	if err != nil {
		writeMappedError(r.Context(), w, "auth_callback", err)
		return
	}
	if strings.EqualFold(r.URL.Query().Get("response_mode"), "json") {
		writeSuccess(w, http.StatusOK, result)
		return
	}
	redirectURL := result.RedirectURL
	if strings.TrimSpace(redirectURL) == "" {
		redirectURL = "/"
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

func (h *Handler) sessionStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromContext(r.Context())
	if !ok {
		writeMissingSessionError(r.Context(), w, "session_status")
		return
	}
	res, err := h.service.SessionStatus(r.Context(), sessionID)
	if err != nil {
		writeMappedError(r.Context(), w, "session_status", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromContext(r.Context())
	if !ok {
		writeMissingSessionError(r.Context(), w, "logout")
		return
	}
	if err := h.service.Logout(r.Context(), sessionID); err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}
	writeMessage(w, http.StatusOK, "session discarded")
}
