package security

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
)

const (
	testClientID = "client-1"
	testKeyID    = "k1"
)

// fakeProvider is an httptest OIDC provider: discovery, token and JWKS
// endpoints backed by a real RSA key.
type fakeProvider struct {
	server  *httptest.Server
	key     *rsa.PrivateKey
	idToken string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	p := &fakeProvider{key: key}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"issuer":                 p.server.URL,
			"authorization_endpoint": p.server.URL + "/auth",
			"token_endpoint":         p.server.URL + "/token",
			"jwks_uri":               p.server.URL + "/jwks",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("grant_type") != "authorization_code" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.FormValue("code") == "bad-code" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id_token": p.idToken})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, r *http.Request) {
		pub := key.Public().(*rsa.PublicKey)
		json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": testKeyID,
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	})
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) issueToken(t *testing.T, mutate func(jwt.MapClaims)) {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   p.server.URL,
		"aud":   testClientID,
		"sub":   "subject-1",
		"nonce": "nonce-1",
		"email": "User@Example.com",
		"name":  "Test User",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	if mutate != nil {
		mutate(claims)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	signed, err := token.SignedString(p.key)
	if err != nil {
		t.Fatalf("sign id token: %v", err)
	}
	p.idToken = signed
}

func (p *fakeProvider) verifier() *OIDCVerifier {
	return NewOIDCVerifier(OIDCVerifierConfig{
		HTTPClient: p.server.Client(),
		Providers: map[string]OIDCProviderConfig{
			"google": {
				IssuerURL: p.server.URL,
				ClientID:  testClientID,
			},
		},
	})
}

func TestBuildAuthorizeURLCarriesBindingParameters(t *testing.T) {
	t.Parallel()
	provider := newFakeProvider(t)
	verifier := provider.verifier()

	raw, err := verifier.BuildAuthorizeURL(context.Background(), "google", "https://app.example.com/done", "state-1", "nonce-1", "challenge-1")
	if err != nil {
		t.Fatalf("build authorize url: %v", err)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse authorize url: %v", err)
	}
	if !strings.HasSuffix(parsed.Path, "/auth") {
		t.Fatalf("expected the discovered authorization endpoint, got %s", parsed.Path)
	}
	q := parsed.Query()
	if q.Get("state") != "state-1" || q.Get("nonce") != "nonce-1" {
		t.Fatalf("state and nonce must ride in the authorize url, got %v", q)
	}
	if q.Get("code_challenge") != "challenge-1" || q.Get("code_challenge_method") != "S256" {
		t.Fatalf("pkce challenge missing, got %v", q)
	}
	if q.Get("response_type") != "code" || q.Get("client_id") != testClientID {
		t.Fatalf("unexpected oauth parameters %v", q)
	}
}

func TestExchangeCodeValidatesSignedToken(t *testing.T) {
	t.Parallel()
	provider := newFakeProvider(t)
	provider.issueToken(t, nil)
	verifier := provider.verifier()

	claims, err := verifier.ExchangeCode(context.Background(), "google", "code-1", "https://app.example.com/done", "nonce-1", "verifier-1")
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	if claims.Subject != "subject-1" || claims.Audience != testClientID {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Email != "user@example.com" {
		t.Fatalf("email must be normalized, got %q", claims.Email)
	}
	if claims.Nonce != "nonce-1" {
		t.Fatalf("nonce must survive validation, got %q", claims.Nonce)
	}
}

func TestExchangeCodeRejectsNonceMismatch(t *testing.T) {
	t.Parallel()
	provider := newFakeProvider(t)
	provider.issueToken(t, func(claims jwt.MapClaims) {
		claims["nonce"] = "minted-for-someone-else"
	})
	verifier := provider.verifier()

	_, err := verifier.ExchangeCode(context.Background(), "google", "code-1", "https://app.example.com/done", "nonce-1", "verifier-1")
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for nonce mismatch, got %v", err)
	}
}

func TestExchangeCodeRejectsWrongAudience(t *testing.T) {
	t.Parallel()
	provider := newFakeProvider(t)
	provider.issueToken(t, func(claims jwt.MapClaims) {
		claims["aud"] = "another-client"
	})
	verifier := provider.verifier()

	_, err := verifier.ExchangeCode(context.Background(), "google", "code-1", "https://app.example.com/done", "nonce-1", "verifier-1")
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong audience, got %v", err)
	}
}

func TestExchangeCodeRejectsExpiredToken(t *testing.T) {
	t.Parallel()
	provider := newFakeProvider(t)
	provider.issueToken(t, func(claims jwt.MapClaims) {
		claims["iat"] = time.Now().Add(-2 * time.Hour).Unix()
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
	})
	verifier := provider.verifier()

	_, err := verifier.ExchangeCode(context.Background(), "google", "code-1", "https://app.example.com/done", "nonce-1", "verifier-1")
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestExchangeCodeMapsProviderRejection(t *testing.T) {
	t.Parallel()
	provider := newFakeProvider(t)
	provider.issueToken(t, nil)
	verifier := provider.verifier()

	_, err := verifier.ExchangeCode(context.Background(), "google", "bad-code", "https://app.example.com/done", "nonce-1", "verifier-1")
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for a rejected code, got %v", err)
	}
}

func TestExchangeCodeRejectsUnknownProvider(t *testing.T) {
	t.Parallel()
	provider := newFakeProvider(t)
	verifier := provider.verifier()

	_, err := verifier.ExchangeCode(context.Background(), "facebook", "code-1", "https://app.example.com/done", "nonce-1", "verifier-1")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown provider, got %v", err)
	}
}
