package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/ports"
)

// signingDomainTag domain-separates transaction signing messages from any
// other payload signed with the same keys.
const signingDomainTag = "APTOTIP::RawTransactionWithFeePayer"

type ClientConfig struct {
	NodeURL                  string
	HTTPClient               *http.Client
	Sponsor                  *SponsorAccount
	ContractAddress          string
	MaxGasAmount             int64
	GasUnitPrice             int64
	TransactionTTL           time.Duration
	ConfirmationTimeout      time.Duration
	ConfirmationPollInterval time.Duration
	NowFn                    func() time.Time
}

// Client is the blockchain RPC adapter. It is constructed once per process
// and injected; it holds no state beyond connection config and the in-flight
// per-sender locks that serialize submissions per signing account.
type Client struct {
	nodeURL         string
	httpClient      *http.Client
	sponsor         *SponsorAccount
	contractAddress string
	maxGasAmount    int64
	gasUnitPrice    int64
	transactionTTL  time.Duration
	confirmTimeout  time.Duration
	confirmPoll     time.Duration
	nowFn           func() time.Time

	mu          sync.Mutex
	senderLocks map[string]*sync.Mutex
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.NodeURL) == "" {
		return nil, fmt.Errorf("node url is required")
	}
	if cfg.Sponsor == nil {
		return nil, fmt.Errorf("sponsor account is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.MaxGasAmount <= 0 {
		cfg.MaxGasAmount = 20000
	}
	if cfg.GasUnitPrice <= 0 {
		cfg.GasUnitPrice = 100
	}
	if cfg.TransactionTTL <= 0 {
		cfg.TransactionTTL = 2 * time.Minute
	}
	if cfg.ConfirmationTimeout <= 0 {
		cfg.ConfirmationTimeout = 30 * time.Second
	}
	if cfg.ConfirmationPollInterval <= 0 {
		cfg.ConfirmationPollInterval = 500 * time.Millisecond
	}
	nowFn := cfg.NowFn
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Client{
		nodeURL:         strings.TrimRight(strings.TrimSpace(cfg.NodeURL), "/"),
		httpClient:      httpClient,
		sponsor:         cfg.Sponsor,
		contractAddress: strings.TrimSpace(cfg.ContractAddress),
		maxGasAmount:    cfg.MaxGasAmount,
		gasUnitPrice:    cfg.GasUnitPrice,
		transactionTTL:  cfg.TransactionTTL,
		confirmTimeout:  cfg.ConfirmationTimeout,
		confirmPoll:     cfg.ConfirmationPollInterval,
		nowFn:           nowFn,
		senderLocks:     make(map[string]*sync.Mutex),
	}, nil
}

type rawTransaction struct {
	Sender                  string   `json:"sender"`
	SequenceNumber          string   `json:"sequence_number"`
	MaxGasAmount            string   `json:"max_gas_amount"`
	GasUnitPrice            string   `json:"gas_unit_price"`
	ExpirationTimestampSecs string   `json:"expiration_timestamp_secs"`
	FeePayerAddress         string   `json:"fee_payer_address"`
	Payload                 *payload `json:"payload"`
}

type payload struct {
	Type          string   `json:"type"`
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

type submitRequest struct {
	rawTransaction
	SenderAuthenticator   authenticator `json:"sender_authenticator"`
	FeePayerAuthenticator authenticator `json:"fee_payer_authenticator"`
}

type authenticator struct {
	Type      string `json:"type"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
	Address   string `json:"address,omitempty"`
	Nonce     string `json:"nonce,omitempty"`
}

type submitResponse struct {
	Hash string `json:"hash"`
}

type transactionResponse struct {
	Type     string `json:"type"`
	Hash     string `json:"hash"`
	Success  bool   `json:"success"`
	VMStatus string `json:"vm_status"`
}

type accountResponse struct {
	SequenceNumber string `json:"sequence_number"`
}

type nodeError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

// SubmitSponsored builds, signs and submits one fee-payer transaction. The
// per-sender lock is held across sequence fetch and POST so two submissions
// from the same keyless account can never race on a sequence number.
func (c *Client) SubmitSponsored(ctx context.Context, account domain.KeylessAccount, call ports.EntryFunctionCall) (string, error) {
	if !account.SigningCapable(c.nowFn()) {
		return "", domain.ErrAuthenticationExpired
	}

	lock := c.senderLock(account.Address)
	lock.Lock()
	defer lock.Unlock()

	sequence, err := c.accountSequenceNumber(ctx, account.Address)
	if err != nil {
		return "", err
	}

	raw := rawTransaction{
		Sender:                  account.Address,
		SequenceNumber:          strconv.FormatUint(sequence, 10),
		MaxGasAmount:            strconv.FormatInt(c.maxGasAmount, 10),
		GasUnitPrice:            strconv.FormatInt(c.gasUnitPrice, 10),
		ExpirationTimestampSecs: strconv.FormatInt(c.nowFn().Add(c.transactionTTL).Unix(), 10),
		FeePayerAddress:         c.sponsor.Address(),
		Payload: &payload{
			Type:          "entry_function_payload",
			Function:      call.Function,
			TypeArguments: typeArgsOrEmpty(call.TypeArguments),
			Arguments:     argsOrEmpty(call.Arguments),
		},
	}

	message, err := signingMessage(raw)
	if err != nil {
		return "", err
	}
	senderSig, err := account.Sign(message, c.nowFn())
	if err != nil {
		return "", err
	}
	sponsorSig := c.sponsor.Sign(message)

	body, err := json.Marshal(submitRequest{
		rawTransaction: raw,
		SenderAuthenticator: authenticator{
			Type:      "keyless",
			PublicKey: "0x" + hex.EncodeToString(account.Ephemeral.PublicKey),
			Signature: "0x" + hex.EncodeToString(senderSig),
			Nonce:     account.Ephemeral.Nonce,
		},
		FeePayerAuthenticator: authenticator{
			Type:      "ed25519",
			Address:   c.sponsor.Address(),
			PublicKey: c.sponsor.PublicKeyHex(),
			Signature: "0x" + hex.EncodeToString(sponsorSig),
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.nodeURL+"/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: submit transaction: %v", domain.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		var out submitResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			// The node accepted the transaction but the hash did not reach us.
			// This is the ambiguous state: the caller must not resubmit blindly.
			return "", fmt.Errorf("%w: decode submit response: %v", domain.ErrTransactionStatusUnknown, err)
		}
		if strings.TrimSpace(out.Hash) == "" {
			return "", fmt.Errorf("%w: submit response missing hash", domain.ErrTransactionStatusUnknown)
		}
		return out.Hash, nil
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: node returned status %d", domain.ErrNetworkUnavailable, resp.StatusCode)
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrSubmissionRejected, readNodeError(resp.Body))
	}
}

// WaitForTransaction polls until the transaction leaves the pending state or
// the confirmation window closes. Submission acceptance and finality are two
// different facts; this is the second one.
func (c *Client) WaitForTransaction(ctx context.Context, hash string) (ports.TransactionStatus, error) {
	deadline := c.nowFn().Add(c.confirmTimeout)
	sawNetworkError := false

	for {
		status, err := c.transactionByHash(ctx, hash)
		switch {
		case err != nil:
			sawNetworkError = true
		case status.Committed:
			if !status.Success {
				return status, fmt.Errorf("%w: %s", domain.ErrSubmissionRejected, status.VMStatus)
			}
			return status, nil
		}

		if !c.nowFn().Before(deadline) {
			if sawNetworkError {
				return ports.TransactionStatus{Hash: hash}, fmt.Errorf("%w: confirmation query failed for %s", domain.ErrTransactionStatusUnknown, hash)
			}
			return ports.TransactionStatus{Hash: hash}, fmt.Errorf("%w: %s still pending", domain.ErrConfirmationTimeout, hash)
		}
		select {
		case <-ctx.Done():
			return ports.TransactionStatus{Hash: hash}, fmt.Errorf("%w: %v", domain.ErrTransactionStatusUnknown, ctx.Err())
		case <-time.After(c.confirmPoll):
		}
	}
}

func (c *Client) View(ctx context.Context, call ports.EntryFunctionCall) ([]any, error) {
	body, err := json.Marshal(payload{
		Function:      call.Function,
		TypeArguments: typeArgsOrEmpty(call.TypeArguments),
		Arguments:     argsOrEmpty(call.Arguments),
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.nodeURL+"/v1/view", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: view call: %v", domain.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: view call returned status %d: %s", domain.ErrNetworkUnavailable, resp.StatusCode, readNodeError(resp.Body))
	}

	var out []any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode view response: %v", domain.ErrNetworkUnavailable, err)
	}
	return out, nil
}

func (c *Client) ProfileExists(ctx context.Context, address string) (bool, error) {
	values, err := c.View(ctx, ports.EntryFunctionCall{
		Function:  c.contractAddress + "::tipping::profile_exists",
		Arguments: []any{address},
	})
	if err != nil {
		return false, err
	}
	if len(values) == 0 {
		return false, nil
	}
	exists, _ := values[0].(bool)
	return exists, nil
}

func (c *Client) AccountBalance(ctx context.Context, address string) (int64, error) {
	values, err := c.View(ctx, ports.EntryFunctionCall{
		Function:      "0x1::coin::balance",
		TypeArguments: []string{"0x1::aptos_coin::AptosCoin"},
		Arguments:     []any{address},
	})
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}
	switch v := values[0].(type) {
	case string:
		n, convErr := strconv.ParseInt(v, 10, 64)
		if convErr != nil {
			return 0, fmt.Errorf("%w: parse balance %q", domain.ErrNetworkUnavailable, v)
		}
		return n, nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%w: unexpected balance type %T", domain.ErrNetworkUnavailable, values[0])
	}
}

func (c *Client) senderLock(address string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.senderLocks[address]
	if !ok {
		lock = &sync.Mutex{}
		c.senderLocks[address] = lock
	}
	return lock
}

// accountSequenceNumber treats an unknown account as sequence zero: a keyless
// account's first sponsored transaction is what creates it on chain.
func (c *Client) accountSequenceNumber(ctx context.Context, address string) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.nodeURL+"/v1/accounts/"+address, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: fetch account: %v", domain.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return 0, fmt.Errorf("%w: fetch account returned status %d", domain.ErrNetworkUnavailable, resp.StatusCode)
	}
	var out accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: decode account: %v", domain.ErrNetworkUnavailable, err)
	}
	n, err := strconv.ParseUint(out.SequenceNumber, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse sequence number %q", domain.ErrNetworkUnavailable, out.SequenceNumber)
	}
	return n, nil
}

func (c *Client) transactionByHash(ctx context.Context, hash string) (ports.TransactionStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.nodeURL+"/v1/transactions/by_hash/"+hash, nil)
	if err != nil {
		return ports.TransactionStatus{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.TransactionStatus{}, fmt.Errorf("%w: %v", domain.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		// Not yet indexed; still pending from the caller's point of view.
		return ports.TransactionStatus{Hash: hash}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ports.TransactionStatus{}, fmt.Errorf("%w: transaction query returned status %d", domain.ErrNetworkUnavailable, resp.StatusCode)
	}
	var out transactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ports.TransactionStatus{}, fmt.Errorf("%w: decode transaction: %v", domain.ErrNetworkUnavailable, err)
	}
	return ports.TransactionStatus{
		Hash:      hash,
		Committed: out.Type != "" && out.Type != "pending_transaction",
		Success:   out.Success,
		VMStatus:  out.VMStatus,
	}, nil
}

// signingMessage hashes the canonical raw-transaction encoding under a fixed
// domain tag. Both the sender and the fee payer sign this exact digest.
func signingMessage(raw rawTransaction) ([]byte, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	h := sha3.New256()
	h.Write([]byte(signingDomainTag))
	h.Write(encoded)
	return h.Sum(nil), nil
}

func readNodeError(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	var ne nodeError
	if err := json.Unmarshal(body, &ne); err == nil && strings.TrimSpace(ne.Message) != "" {
		if ne.ErrorCode != "" {
			return ne.ErrorCode + ": " + ne.Message
		}
		return ne.Message
	}
	return strings.TrimSpace(string(body))
}

func typeArgsOrEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func argsOrEmpty(in []any) []any {
	if in == nil {
		return []any{}
	}
	return in
}
