package ports

import (
	"context"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
)

// IdentityVerifier drives the provider side of the redirect flow: it builds
// the outbound authorize URL and turns the returning code into verified
// claims. ExchangeCode must fail unless the token's embedded nonce equals
// expectedNonce; skipping that check would let a token minted for another
// session hijack this one.
type IdentityVerifier interface {
	BuildAuthorizeURL(
		ctx context.Context,
		provider string,
		redirectURI string,
		state string,
		nonce string,
		codeChallenge string,
	) (string, error)
	ExchangeCode(
		ctx context.Context,
		provider string,
		code string,
		redirectURI string,
		expectedNonce string,
		codeVerifier string,
	) (domain.VerifiedClaims, error)
}

// AccountDeriver turns (ephemeral pair, verified claims) into a keyless
// account. Identical inputs must always yield the identical address; that is
// what lets a returning user regain the same funds-holding account.
type AccountDeriver interface {
	DeriveAccount(pair domain.EphemeralKeyPair, claims domain.VerifiedClaims) (domain.KeylessAccount, error)
	DeriveAddress(claims domain.VerifiedClaims) (string, error)
}
