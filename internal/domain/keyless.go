package domain

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// EphemeralKeyPair is the short-lived key material binding one authentication
// attempt to one derived account. The private key never leaves the session
// store and the expiry is fixed at creation.
type EphemeralKeyPair struct {
	PrivateKey ed25519.PrivateKey `json:"private_key"`
	PublicKey  ed25519.PublicKey  `json:"public_key"`
	Nonce      string             `json:"nonce"`
	CreatedAt  time.Time          `json:"created_at"`
	ExpiresAt  time.Time          `json:"expires_at"`
}

// NewEphemeralKeyPair generates the session-local key material for one
// authentication attempt. The expiry is fixed here and never extended.
func NewEphemeralKeyPair(now time.Time, ttl time.Duration) (EphemeralKeyPair, error) {
	if ttl <= 0 {
		return EphemeralKeyPair{}, fmt.Errorf("%w: ephemeral key ttl must be positive", ErrInvalidInput)
	}
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return EphemeralKeyPair{}, fmt.Errorf("generate ephemeral key: %w", err)
	}
	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return EphemeralKeyPair{}, fmt.Errorf("generate nonce: %w", err)
	}
	return EphemeralKeyPair{
		PrivateKey: priv,
		PublicKey:  pub,
		Nonce:      hex.EncodeToString(nonceBytes),
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}, nil
}

// Expired treats the boundary as already expired: a pair whose expiry equals
// now cannot derive a valid account.
func (p EphemeralKeyPair) Expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

// VerifiedClaims is the verifier output used as the derivation input.
// Subject is the stable per-user discriminator.
type VerifiedClaims struct {
	Issuer    string    `json:"issuer"`
	Subject   string    `json:"subject"`
	Audience  string    `json:"audience"`
	Nonce     string    `json:"nonce"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// KeylessAccount is a signing-capable account derived from an identity token
// plus an ephemeral key pair. No persistent private key exists anywhere; the
// signing capability dies with the ephemeral pair.
type KeylessAccount struct {
	Address   string
	Claims    VerifiedClaims
	Ephemeral EphemeralKeyPair
}

// Sign produces the keyless signature over message. Once the ephemeral pair
// has expired the capability is gone and a fresh authentication round is
// required.
func (a KeylessAccount) Sign(message []byte, now time.Time) ([]byte, error) {
	if a.Ephemeral.Expired(now) {
		return nil, ErrAuthenticationExpired
	}
	if len(a.Ephemeral.PrivateKey) != ed25519.PrivateKeySize {
		return nil, ErrAuthenticationExpired
	}
	return ed25519.Sign(a.Ephemeral.PrivateKey, message), nil
}

// SigningCapable reports whether the account can still sign at now.
func (a KeylessAccount) SigningCapable(now time.Time) bool {
	return !a.Ephemeral.Expired(now) && len(a.Ephemeral.PrivateKey) == ed25519.PrivateKeySize
}
