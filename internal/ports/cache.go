package ports

import (
	"context"
	"time"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
)

// AuthSession is the durable handoff record bridging the OAuth redirect: it
// holds the ephemeral pair before the hop and the verified claims after it.
// The state value carried through the redirect is the lookup key, which keeps
// the nonce-to-session binding intact even with several tabs mid-flow.
type AuthSession struct {
	SessionID    string                  `json:"session_id"`
	Provider     string                  `json:"provider"`
	RedirectURI  string                  `json:"redirect_uri"`
	CodeVerifier string                  `json:"code_verifier"`
	Ephemeral    domain.EphemeralKeyPair `json:"ephemeral"`
	Claims       *domain.VerifiedClaims  `json:"claims,omitempty"`
	Address      string                  `json:"address,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
}

// AuthSessionStore persists sessions across the redirect round trip. Entries
// carry a TTL equal to the ephemeral pair's lifetime so abandoned flows are
// reclaimed without an explicit cancellation signal.
type AuthSessionStore interface {
	Put(ctx context.Context, session AuthSession, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*AuthSession, error)
	Delete(ctx context.Context, sessionID string) error
}
