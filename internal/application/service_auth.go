package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/ports"
)

// BeginAuth opens a sign-in round: it generates the ephemeral pair, persists
// the session envelope under the state value, and returns the provider
// authorize URL. The ephemeral nonce rides inside the id_token request so the
// returning token is bound to exactly this pair.
func (s *Service) BeginAuth(ctx context.Context, req BeginAuthRequest) (BeginAuthResponse, error) {
	if s.verifier == nil {
		return BeginAuthResponse{}, fmt.Errorf("%w: identity verifier is not configured", domain.ErrNotImplemented)
	}
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" {
		provider = s.cfg.DefaultProvider
	}
	redirectURI := strings.TrimSpace(req.RedirectURI)
	if redirectURI == "" {
		return BeginAuthResponse{}, fmt.Errorf("%w: redirect_uri is required", domain.ErrInvalidInput)
	}
	if _, err := url.ParseRequestURI(redirectURI); err != nil {
		return BeginAuthResponse{}, fmt.Errorf("%w: invalid redirect_uri", domain.ErrInvalidInput)
	}
	if !s.isAllowedRedirectURI(redirectURI) {
		return BeginAuthResponse{}, fmt.Errorf("%w: redirect_uri is not allowed", domain.ErrInvalidInput)
	}

	now := s.nowFn()
	pair, err := domain.NewEphemeralKeyPair(now, s.cfg.EphemeralKeyTTL)
	if err != nil {
		return BeginAuthResponse{}, err
	}

	sessionID := uuid.NewString()
	codeVerifier, codeChallenge := generatePKCEVerifierChallenge()
	if err := s.sessions.Put(ctx, ports.AuthSession{
		SessionID:    sessionID,
		Provider:     provider,
		RedirectURI:  redirectURI,
		CodeVerifier: codeVerifier,
		Ephemeral:    pair,
		CreatedAt:    now,
	}, s.cfg.EphemeralKeyTTL); err != nil {
		return BeginAuthResponse{}, err
	}

	authorizeURL, err := s.verifier.BuildAuthorizeURL(ctx, provider, redirectURI, sessionID, pair.Nonce, codeChallenge)
	if err != nil {
		return BeginAuthResponse{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return BeginAuthResponse{
		AuthorizeURL: authorizeURL,
		SessionID:    sessionID,
		ExpiresAt:    pair.ExpiresAt,
	}, nil
}

// CompleteAuth handles the provider redirect: the state value locates the
// session, the code is exchanged against the nonce stored with the pair, and
// the keyless address is derived and pinned to the session.
func (s *Service) CompleteAuth(ctx context.Context, code, state string) (CompleteAuthResponse, error) {
	if s.verifier == nil {
		return CompleteAuthResponse{}, fmt.Errorf("%w: identity verifier is not configured", domain.ErrNotImplemented)
	}
	if strings.TrimSpace(code) == "" || strings.TrimSpace(state) == "" {
		return CompleteAuthResponse{}, fmt.Errorf("%w: code and state are required", domain.ErrInvalidInput)
	}

	session, err := s.sessions.Get(ctx, state)
	if err != nil {
		return CompleteAuthResponse{}, err
	}
	if session == nil {
		slog.Default().WarnContext(ctx, "callback state does not match a live session",
			"service", "aptotip",
			"module", "application",
			"layer", "application",
			"operation", "complete_auth",
			"outcome", "failure",
			"state", state,
		)
		return CompleteAuthResponse{}, domain.ErrSessionNotFound
	}
	now := s.nowFn()
	if session.Ephemeral.Expired(now) {
		_ = s.sessions.Delete(ctx, session.SessionID)
		return CompleteAuthResponse{}, domain.ErrSessionExpired
	}

	claims, err := s.verifier.ExchangeCode(
		ctx,
		session.Provider,
		code,
		session.RedirectURI,
		session.Ephemeral.Nonce,
		session.CodeVerifier,
	)
	if err != nil {
		slog.Default().WarnContext(ctx, "identity token exchange or validation failed",
			"service", "aptotip",
			"module", "application",
			"layer", "application",
			"operation", "complete_auth",
			"outcome", "failure",
			"provider", session.Provider,
			"error", err,
		)
		return CompleteAuthResponse{}, err
	}

	account, err := s.deriver.DeriveAccount(session.Ephemeral, claims)
	if err != nil {
		return CompleteAuthResponse{}, err
	}

	session.Claims = &claims
	session.Address = account.Address
	remaining := session.Ephemeral.ExpiresAt.Sub(now)
	if err := s.sessions.Put(ctx, *session, remaining); err != nil {
		return CompleteAuthResponse{}, err
	}

	slog.Default().InfoContext(ctx, "keyless account derived",
		"service", "aptotip",
		"module", "application",
		"layer", "application",
		"operation", "complete_auth",
		"outcome", "success",
		"session_id", session.SessionID,
		"address", account.Address,
	)
	return CompleteAuthResponse{
		SessionID: session.SessionID,
		Address:   account.Address,
		Email:     claims.Email,
		Name:      claims.Name,
		ExpiresAt: session.Ephemeral.ExpiresAt,
		RedirectURL: buildRedirectWithFragment(
			session.RedirectURI,
			"session_id="+url.QueryEscape(session.SessionID)+"&address="+url.QueryEscape(account.Address),
		),
	}, nil
}

// SessionStatus reports what the session can still do. A session past its
// ephemeral expiry reads as gone, not as merely incapable.
func (s *Service) SessionStatus(ctx context.Context, sessionID string) (SessionStatusResponse, error) {
	session, err := s.authenticatedSession(ctx, sessionID)
	if err != nil {
		return SessionStatusResponse{}, err
	}
	now := s.nowFn()
	resp := SessionStatusResponse{
		SessionID:      session.SessionID,
		Authenticated:  session.Claims != nil && session.Address != "",
		SigningCapable: !session.Ephemeral.Expired(now),
		Address:        session.Address,
		ExpiresAt:      session.Ephemeral.ExpiresAt,
	}
	if session.Claims != nil {
		resp.Email = session.Claims.Email
		resp.Name = session.Claims.Name
	}
	return resp, nil
}

// Logout discards the session and with it the only copy of the ephemeral
// private key.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	return s.sessions.Delete(ctx, sessionID)
}

// authenticatedSession loads a session by id, distinguishing absent from
// expired. Redis TTL usually collects expired entries first, so the explicit
// expiry check only fires in the narrow window before eviction.
func (s *Service) authenticatedSession(ctx context.Context, sessionID string) (*ports.AuthSession, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	if session.Ephemeral.Expired(s.nowFn()) {
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

// signingAccount re-derives the keyless account from the stored pair and
// claims for a submission path. Expiry here maps to the authentication-expired
// case: the caller must sign in again before money can move.
func (s *Service) signingAccount(ctx context.Context, sessionID string) (domain.KeylessAccount, error) {
	if strings.TrimSpace(sessionID) == "" {
		return domain.KeylessAccount{}, fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.KeylessAccount{}, err
	}
	if session == nil {
		return domain.KeylessAccount{}, domain.ErrSessionNotFound
	}
	if session.Claims == nil || session.Address == "" {
		return domain.KeylessAccount{}, domain.ErrUnauthorized
	}
	if session.Ephemeral.Expired(s.nowFn()) {
		return domain.KeylessAccount{}, domain.ErrAuthenticationExpired
	}
	account, err := s.deriver.DeriveAccount(session.Ephemeral, *session.Claims)
	if err != nil {
		return domain.KeylessAccount{}, err
	}
	return account, nil
}

func (s *Service) isAllowedRedirectURI(redirectURI string) bool {
	if len(s.cfg.AllowedRedirectURIs) == 0 {
		return true
	}
	target := strings.TrimSpace(redirectURI)
	for _, candidate := range s.cfg.AllowedRedirectURIs {
		if strings.TrimSpace(candidate) == target {
			return true
		}
	}
	return false
}
