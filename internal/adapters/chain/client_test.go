package chain

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/ports"
)

const testSponsorSeed = "1111111111111111111111111111111111111111111111111111111111111111"

func testSponsor(t *testing.T) *SponsorAccount {
	t.Helper()
	sponsor, err := NewSponsorAccount(testSponsorSeed)
	if err != nil {
		t.Fatalf("new sponsor: %v", err)
	}
	return sponsor
}

func testAccount(t *testing.T, now time.Time, ttl time.Duration) domain.KeylessAccount {
	t.Helper()
	pair, err := domain.NewEphemeralKeyPair(now, ttl)
	if err != nil {
		t.Fatalf("new pair: %v", err)
	}
	return domain.KeylessAccount{
		Address: "0x" + strings.Repeat("ab", 32),
		Claims: domain.VerifiedClaims{
			Issuer:   "https://accounts.google.com",
			Subject:  "subject-1",
			Audience: "client-1",
			Nonce:    pair.Nonce,
		},
		Ephemeral: pair,
	}
}

func newTestClient(t *testing.T, handler http.Handler, mutate func(*ClientConfig)) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := ClientConfig{
		NodeURL:                  server.URL,
		HTTPClient:               server.Client(),
		Sponsor:                  testSponsor(t),
		ContractAddress:          "0xcafe",
		ConfirmationPollInterval: time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, server
}

func TestSubmitSponsoredSignsAndSubmits(t *testing.T) {
	t.Parallel()
	now := time.Now()
	account := testAccount(t, now, time.Hour)
	sponsor := testSponsor(t)

	var captured submitRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, account.Address) {
			t.Errorf("unexpected account path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(accountResponse{SequenceNumber: "5"})
	})
	mux.HandleFunc("/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode submit body: %v", err)
		}
		json.NewEncoder(w).Encode(submitResponse{Hash: "0xfeed"})
	})

	client, _ := newTestClient(t, mux, func(cfg *ClientConfig) { cfg.Sponsor = sponsor })
	hash, err := client.SubmitSponsored(context.Background(), account, ports.EntryFunctionCall{
		Function:  "0xcafe::tipping::send_tip",
		Arguments: []any{"0xdest", "1000", "hi"},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if hash != "0xfeed" {
		t.Fatalf("unexpected hash %q", hash)
	}

	if captured.SequenceNumber != "5" {
		t.Fatalf("expected on-chain sequence number, got %q", captured.SequenceNumber)
	}
	if captured.FeePayerAddress != sponsor.Address() {
		t.Fatalf("fee payer must be the sponsor, got %q", captured.FeePayerAddress)
	}
	if captured.SenderAuthenticator.Type != "keyless" || captured.SenderAuthenticator.Nonce != account.Ephemeral.Nonce {
		t.Fatalf("unexpected sender authenticator %+v", captured.SenderAuthenticator)
	}
	if captured.FeePayerAuthenticator.Type != "ed25519" {
		t.Fatalf("unexpected fee payer authenticator %+v", captured.FeePayerAuthenticator)
	}
	if captured.Payload == nil || captured.Payload.Function != "0xcafe::tipping::send_tip" {
		t.Fatalf("unexpected payload %+v", captured.Payload)
	}

	message, err := signingMessage(captured.rawTransaction)
	if err != nil {
		t.Fatalf("recompute signing message: %v", err)
	}
	senderSig := mustDecodeHex(t, captured.SenderAuthenticator.Signature)
	if !ed25519.Verify(account.Ephemeral.PublicKey, message, senderSig) {
		t.Fatalf("sender signature does not verify over the raw transaction digest")
	}
	sponsorSig := mustDecodeHex(t, captured.FeePayerAuthenticator.Signature)
	sponsorPub := mustDecodeHex(t, sponsor.PublicKeyHex())
	if !ed25519.Verify(ed25519.PublicKey(sponsorPub), message, sponsorSig) {
		t.Fatalf("sponsor signature does not verify over the raw transaction digest")
	}
}

func TestSubmitSponsoredTreatsUnknownAccountAsFresh(t *testing.T) {
	t.Parallel()
	account := testAccount(t, time.Now(), time.Hour)

	var captured submitRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(submitResponse{Hash: "0xfeed"})
	})

	client, _ := newTestClient(t, mux, nil)
	if _, err := client.SubmitSponsored(context.Background(), account, ports.EntryFunctionCall{Function: "0xcafe::tipping::send_tip"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if captured.SequenceNumber != "0" {
		t.Fatalf("an account the chain has never seen starts at sequence zero, got %q", captured.SequenceNumber)
	}
}

func TestSubmitSponsoredErrorMapping(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"client rejection", http.StatusBadRequest, `{"message":"invalid signature","error_code":"vm_error"}`, domain.ErrSubmissionRejected},
		{"node failure", http.StatusBadGateway, `{}`, domain.ErrNetworkUnavailable},
		{"accepted without hash", http.StatusAccepted, `{}`, domain.ErrTransactionStatusUnknown},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			mux := http.NewServeMux()
			mux.HandleFunc("/v1/accounts/", func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(accountResponse{SequenceNumber: "0"})
			})
			mux.HandleFunc("/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			client, _ := newTestClient(t, mux, nil)
			account := testAccount(t, time.Now(), time.Hour)
			_, err := client.SubmitSponsored(context.Background(), account, ports.EntryFunctionCall{Function: "0xcafe::tipping::send_tip"})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestSubmitSponsoredRejectsExpiredCapability(t *testing.T) {
	t.Parallel()
	var requests int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	})
	client, _ := newTestClient(t, handler, nil)

	account := testAccount(t, time.Now().Add(-2*time.Hour), time.Hour)
	_, err := client.SubmitSponsored(context.Background(), account, ports.EntryFunctionCall{Function: "0xcafe::tipping::send_tip"})
	if !errors.Is(err, domain.ErrAuthenticationExpired) {
		t.Fatalf("expected ErrAuthenticationExpired, got %v", err)
	}
	if requests != 0 {
		t.Fatalf("an expired capability must never reach the node")
	}
}

func TestWaitForTransactionCommits(t *testing.T) {
	t.Parallel()
	var polls int
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/transactions/by_hash/", func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls == 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(transactionResponse{
			Type:    "user_transaction",
			Hash:    "0xfeed",
			Success: true,
		})
	})

	client, _ := newTestClient(t, mux, nil)
	status, err := client.WaitForTransaction(context.Background(), "0xfeed")
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if !status.Committed || !status.Success {
		t.Fatalf("expected committed success, got %+v", status)
	}
	if polls < 2 {
		t.Fatalf("expected the pending poll to be retried")
	}
}

func TestWaitForTransactionSurfacesVMFailure(t *testing.T) {
	t.Parallel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transactionResponse{
			Type:     "user_transaction",
			Hash:     "0xfeed",
			Success:  false,
			VMStatus: "Move abort: insufficient balance",
		})
	})

	client, _ := newTestClient(t, handler, nil)
	status, err := client.WaitForTransaction(context.Background(), "0xfeed")
	if !errors.Is(err, domain.ErrSubmissionRejected) {
		t.Fatalf("expected ErrSubmissionRejected, got %v", err)
	}
	if !status.Committed || status.Success {
		t.Fatalf("a vm failure is still a committed transaction, got %+v", status)
	}
	if !strings.Contains(err.Error(), "insufficient balance") {
		t.Fatalf("expected vm status in error, got %v", err)
	}
}

func TestWaitForTransactionTimesOutWhilePending(t *testing.T) {
	t.Parallel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	clock := &fakeClock{now: time.Now(), step: 20 * time.Second}
	client, _ := newTestClient(t, handler, func(cfg *ClientConfig) {
		cfg.ConfirmationTimeout = 30 * time.Second
		cfg.NowFn = clock.Now
	})
	_, err := client.WaitForTransaction(context.Background(), "0xfeed")
	if !errors.Is(err, domain.ErrConfirmationTimeout) {
		t.Fatalf("expected ErrConfirmationTimeout, got %v", err)
	}
}

func TestWaitForTransactionUnknownWhenQueriesFailed(t *testing.T) {
	t.Parallel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	clock := &fakeClock{now: time.Now(), step: 20 * time.Second}
	client, _ := newTestClient(t, handler, func(cfg *ClientConfig) {
		cfg.ConfirmationTimeout = 30 * time.Second
		cfg.NowFn = clock.Now
	})
	_, err := client.WaitForTransaction(context.Background(), "0xfeed")
	if !errors.Is(err, domain.ErrTransactionStatusUnknown) {
		t.Fatalf("a deadline hit after failed queries is ambiguous, got %v", err)
	}
}

func TestAccountBalanceParsesStringAndNumber(t *testing.T) {
	t.Parallel()
	responses := []string{`["123456"]`, `[789]`}
	var call int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/view" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(responses[call]))
		call++
	})

	client, _ := newTestClient(t, handler, nil)
	balance, err := client.AccountBalance(context.Background(), "0xdead")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 123456 {
		t.Fatalf("unexpected balance %d", balance)
	}

	balance, err = client.AccountBalance(context.Background(), "0xdead")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 789 {
		t.Fatalf("unexpected balance %d", balance)
	}
}

func TestProfileExistsAddressesContract(t *testing.T) {
	t.Parallel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body payload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode view body: %v", err)
		}
		if body.Function != "0xcafe::tipping::profile_exists" {
			t.Errorf("unexpected function %q", body.Function)
		}
		w.Write([]byte(`[true]`))
	})

	client, _ := newTestClient(t, handler, nil)
	exists, err := client.ProfileExists(context.Background(), "0xdead")
	if err != nil {
		t.Fatalf("profile exists failed: %v", err)
	}
	if !exists {
		t.Fatalf("expected true")
	}
}

func TestViewMapsNodeFailure(t *testing.T) {
	t.Parallel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client, _ := newTestClient(t, handler, nil)
	_, err := client.View(context.Background(), ports.EntryFunctionCall{Function: "0x1::coin::balance"})
	if !errors.Is(err, domain.ErrNetworkUnavailable) {
		t.Fatalf("expected ErrNetworkUnavailable, got %v", err)
	}
}

type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.now
	c.now = c.now.Add(c.step)
	return current
}

func mustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()
	decoded, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		t.Fatalf("decode hex %q: %v", s, err)
	}
	return decoded
}
