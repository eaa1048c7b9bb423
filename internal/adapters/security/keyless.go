package security

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
)

// keylessSchemeTag domain-separates keyless addresses from plain Ed25519
// authentication keys in the address preimage.
const keylessSchemeTag = 0x03

// KeylessDeriver computes keyless account addresses from verified identity
// claims. The address preimage contains only (issuer, subject, audience), so
// the same user recovers the same address with every fresh ephemeral pair.
type KeylessDeriver struct {
	allowedIssuers map[string]struct{}
}

func NewKeylessDeriver(allowedIssuers []string) *KeylessDeriver {
	issuers := make(map[string]struct{}, len(allowedIssuers))
	for _, issuer := range allowedIssuers {
		trimmed := strings.TrimRight(strings.TrimSpace(issuer), "/")
		if trimmed == "" {
			continue
		}
		issuers[trimmed] = struct{}{}
	}
	return &KeylessDeriver{allowedIssuers: issuers}
}

// DeriveAccount binds the verified claims to the ephemeral pair. The nonce
// equality check repeats the verifier's comparison on purpose: derivation
// must hold even if a caller wires a different verifier in front of it.
func (d *KeylessDeriver) DeriveAccount(pair domain.EphemeralKeyPair, claims domain.VerifiedClaims) (domain.KeylessAccount, error) {
	if strings.TrimSpace(claims.Nonce) == "" || claims.Nonce != pair.Nonce {
		return domain.KeylessAccount{}, fmt.Errorf("%w: claims nonce does not match ephemeral pair", domain.ErrDerivation)
	}
	address, err := d.DeriveAddress(claims)
	if err != nil {
		return domain.KeylessAccount{}, err
	}
	return domain.KeylessAccount{
		Address:   address,
		Claims:    claims,
		Ephemeral: pair,
	}, nil
}

// DeriveAddress is the deterministic (issuer, subject, audience) -> address
// mapping. It is also used on its own for read paths that only need the
// address of a signed-in identity.
func (d *KeylessDeriver) DeriveAddress(claims domain.VerifiedClaims) (string, error) {
	issuer := strings.TrimRight(strings.TrimSpace(claims.Issuer), "/")
	subject := strings.TrimSpace(claims.Subject)
	audience := strings.TrimSpace(claims.Audience)
	if issuer == "" || subject == "" || audience == "" {
		return "", fmt.Errorf("%w: issuer, subject and audience are required", domain.ErrDerivation)
	}
	if _, ok := d.allowedIssuers[issuer]; !ok {
		return "", fmt.Errorf("%w: unsupported issuer", domain.ErrDerivation)
	}

	h := sha3.New256()
	writeLengthPrefixed(h, []byte(issuer))
	writeLengthPrefixed(h, []byte(subject))
	writeLengthPrefixed(h, []byte(audience))
	h.Write([]byte{keylessSchemeTag})
	return "0x" + hex.EncodeToString(h.Sum(nil)), nil
}

// writeLengthPrefixed guards against preimage ambiguity between adjacent
// fields ("ab"+"c" vs "a"+"bc").
func writeLengthPrefixed(h interface{ Write([]byte) (int, error) }, b []byte) {
	n := len(b)
	_, _ = h.Write([]byte{byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)})
	_, _ = h.Write(b)
}
