package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
)

const googleIssuer = "https://accounts.google.com"

func testClaims(nonce string) domain.VerifiedClaims {
	return domain.VerifiedClaims{
		Issuer:   googleIssuer,
		Subject:  "subject-1",
		Audience: "client-1",
		Nonce:    nonce,
	}
}

func TestDeriveAddressIsDeterministicAcrossPairs(t *testing.T) {
	t.Parallel()
	deriver := NewKeylessDeriver([]string{googleIssuer})
	now := time.Now()

	first, err := domain.NewEphemeralKeyPair(now, time.Hour)
	if err != nil {
		t.Fatalf("new pair: %v", err)
	}
	second, err := domain.NewEphemeralKeyPair(now, time.Hour)
	if err != nil {
		t.Fatalf("new pair: %v", err)
	}
	if first.Nonce == second.Nonce {
		t.Fatalf("fresh pairs must carry distinct nonces")
	}

	a1, err := deriver.DeriveAccount(first, testClaims(first.Nonce))
	if err != nil {
		t.Fatalf("derive with first pair: %v", err)
	}
	a2, err := deriver.DeriveAccount(second, testClaims(second.Nonce))
	if err != nil {
		t.Fatalf("derive with second pair: %v", err)
	}
	if a1.Address != a2.Address {
		t.Fatalf("address must not depend on the ephemeral pair: %s vs %s", a1.Address, a2.Address)
	}
	if !strings.HasPrefix(a1.Address, "0x") || len(a1.Address) != 66 {
		t.Fatalf("expected 0x-prefixed 32-byte hex address, got %q", a1.Address)
	}
}

func TestDeriveAddressSeparatesIdentities(t *testing.T) {
	t.Parallel()
	deriver := NewKeylessDeriver([]string{googleIssuer})

	base, err := deriver.DeriveAddress(testClaims("n"))
	if err != nil {
		t.Fatalf("derive base: %v", err)
	}

	otherSubject := testClaims("n")
	otherSubject.Subject = "subject-2"
	addr, err := deriver.DeriveAddress(otherSubject)
	if err != nil {
		t.Fatalf("derive other subject: %v", err)
	}
	if addr == base {
		t.Fatalf("different subjects must map to different addresses")
	}

	otherAudience := testClaims("n")
	otherAudience.Audience = "client-2"
	addr, err = deriver.DeriveAddress(otherAudience)
	if err != nil {
		t.Fatalf("derive other audience: %v", err)
	}
	if addr == base {
		t.Fatalf("different audiences must map to different addresses")
	}
}

func TestDeriveAddressGuardsFieldBoundaries(t *testing.T) {
	t.Parallel()
	deriver := NewKeylessDeriver([]string{googleIssuer})

	a := testClaims("n")
	a.Subject = "ab"
	a.Audience = "c"
	b := testClaims("n")
	b.Subject = "a"
	b.Audience = "bc"

	addrA, err := deriver.DeriveAddress(a)
	if err != nil {
		t.Fatalf("derive a: %v", err)
	}
	addrB, err := deriver.DeriveAddress(b)
	if err != nil {
		t.Fatalf("derive b: %v", err)
	}
	if addrA == addrB {
		t.Fatalf("shifting bytes across field boundaries must change the address")
	}
}

func TestDeriveAccountRejectsNonceMismatch(t *testing.T) {
	t.Parallel()
	deriver := NewKeylessDeriver([]string{googleIssuer})
	pair, err := domain.NewEphemeralKeyPair(time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("new pair: %v", err)
	}

	_, err = deriver.DeriveAccount(pair, testClaims("not-the-pair-nonce"))
	if !errors.Is(err, domain.ErrDerivation) {
		t.Fatalf("expected ErrDerivation, got %v", err)
	}

	_, err = deriver.DeriveAccount(pair, testClaims(""))
	if !errors.Is(err, domain.ErrDerivation) {
		t.Fatalf("empty nonce must not derive, got %v", err)
	}
}

func TestDeriveAddressRejectsUnknownIssuer(t *testing.T) {
	t.Parallel()
	deriver := NewKeylessDeriver([]string{googleIssuer})

	claims := testClaims("n")
	claims.Issuer = "https://evil.example.com"
	if _, err := deriver.DeriveAddress(claims); !errors.Is(err, domain.ErrDerivation) {
		t.Fatalf("expected ErrDerivation for unknown issuer, got %v", err)
	}
}

func TestDeriveAddressNormalizesTrailingSlash(t *testing.T) {
	t.Parallel()
	deriver := NewKeylessDeriver([]string{googleIssuer + "/"})

	plain, err := deriver.DeriveAddress(testClaims("n"))
	if err != nil {
		t.Fatalf("derive plain: %v", err)
	}

	slashed := testClaims("n")
	slashed.Issuer = googleIssuer + "/"
	withSlash, err := deriver.DeriveAddress(slashed)
	if err != nil {
		t.Fatalf("derive slashed: %v", err)
	}
	if plain != withSlash {
		t.Fatalf("issuer normalization must ignore a trailing slash")
	}
}

func TestDeriveAddressRequiresAllFields(t *testing.T) {
	t.Parallel()
	deriver := NewKeylessDeriver([]string{googleIssuer})

	missingSubject := testClaims("n")
	missingSubject.Subject = " "
	if _, err := deriver.DeriveAddress(missingSubject); !errors.Is(err, domain.ErrDerivation) {
		t.Fatalf("expected ErrDerivation for missing subject, got %v", err)
	}

	missingAudience := testClaims("n")
	missingAudience.Audience = ""
	if _, err := deriver.DeriveAddress(missingAudience); !errors.Is(err, domain.ErrDerivation) {
		t.Fatalf("expected ErrDerivation for missing audience, got %v", err)
	}
}
