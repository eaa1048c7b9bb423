package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/ports"
)

const eventTypeTipConfirmed = "tip.confirmed"

// SendTip runs the full sponsored tip pipeline: re-derive the keyless account,
// submit the fee-payer transaction, wait for commitment, and only then record
// the tip off-chain. A database row never exists before the chain confirmed
// the transfer.
func (s *Service) SendTip(ctx context.Context, sessionID string, req SendTipRequest, idempotencyKey string) (SendTipResponse, error) {
	slug := strings.ToLower(strings.TrimSpace(req.ProfileSlug))
	if slug == "" {
		return SendTipResponse{}, fmt.Errorf("%w: profile_slug is required", domain.ErrInvalidInput)
	}
	if req.AmountCents <= 0 {
		return SendTipResponse{}, fmt.Errorf("%w: amount_cents must be positive", domain.ErrInvalidInput)
	}
	if len(req.Message) > domain.MaxTipMessageLength {
		return SendTipResponse{}, fmt.Errorf("%w: message exceeds %d characters", domain.ErrInvalidInput, domain.MaxTipMessageLength)
	}

	account, err := s.signingAccount(ctx, sessionID)
	if err != nil {
		return SendTipResponse{}, err
	}

	profile, err := s.profiles.GetBySlug(ctx, slug)
	if err != nil {
		return SendTipResponse{}, err
	}

	policy := domain.DenominationPolicy{OctasPerCent: s.cfg.OctasPerCent}
	amountOctas, err := policy.CentsToOctas(req.AmountCents)
	if err != nil {
		return SendTipResponse{}, err
	}

	reserved := false
	if idempotencyKey != "" {
		requestHash := hashRequest(req)
		if replay, done, err := s.replayIdempotent(ctx, idempotencyKey, requestHash); err != nil {
			return SendTipResponse{}, err
		} else if done {
			return replay, nil
		}
		if err := s.idempotency.Reserve(ctx, idempotencyKey, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL)); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return SendTipResponse{}, domain.ErrIdempotencyConflict
			}
			return SendTipResponse{}, err
		}
		reserved = true
	}

	hash, err := s.submitWithRetry(ctx, account, ports.EntryFunctionCall{
		Function: s.cfg.ContractAddress + "::tipping::send_tip",
		Arguments: []any{
			profile.WalletAddress,
			strconv.FormatInt(amountOctas, 10),
			req.Message,
		},
	})
	if err != nil {
		// Pre-acceptance failures definitively moved no money, so the key
		// must stay usable for a clean retry. Only the ambiguous 2xx-without-
		// hash outcome keeps the reservation: the node may have the tx.
		if reserved && !errors.Is(err, domain.ErrTransactionStatusUnknown) {
			_ = s.idempotency.Release(ctx, idempotencyKey)
		}
		return SendTipResponse{}, err
	}

	status, err := s.chain.WaitForTransaction(ctx, hash)
	if err != nil {
		// A committed vm failure is definite; timeouts and lost status
		// queries are not, and those reservations stay in place.
		if reserved && errors.Is(err, domain.ErrSubmissionRejected) {
			_ = s.idempotency.Release(ctx, idempotencyKey)
		}
		return SendTipResponse{}, err
	}
	if !status.Success {
		if reserved {
			_ = s.idempotency.Release(ctx, idempotencyKey)
		}
		return SendTipResponse{}, fmt.Errorf("%w: %s", domain.ErrSubmissionRejected, status.VMStatus)
	}

	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"profile_id":       profile.ProfileID,
		"profile_slug":     profile.Slug,
		"tipper_address":   account.Address,
		"amount_octas":     amountOctas,
		"transaction_hash": hash,
		"confirmed_at":     now,
	})
	tip, created, err := s.tips.RecordConfirmed(ctx, ports.RecordTipParams{
		ProfileID:       profile.ProfileID,
		ProfileSlug:     profile.Slug,
		TipperAddress:   account.Address,
		AmountOctas:     amountOctas,
		Message:         req.Message,
		TransactionHash: hash,
		CreatedAt:       now,
	}, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventTypeTipConfirmed,
		PartitionKey: profile.Slug,
		Payload:      payload,
		OccurredAt:   now,
	})
	if err != nil {
		return SendTipResponse{}, err
	}

	slog.Default().InfoContext(ctx, "tip confirmed",
		"service", "aptotip",
		"module", "application",
		"layer", "application",
		"operation", "send_tip",
		"outcome", "success",
		"profile_slug", profile.Slug,
		"amount_octas", amountOctas,
		"transaction_hash", hash,
		"newly_recorded", created,
	)

	resp := SendTipResponse{
		TipID:           tip.TipID,
		ProfileSlug:     tip.ProfileSlug,
		TipperAddress:   tip.TipperAddress,
		AmountOctas:     tip.AmountOctas,
		AmountCents:     policy.OctasToCents(tip.AmountOctas),
		Message:         tip.Message,
		TransactionHash: tip.TransactionHash,
		CreatedAt:       tip.CreatedAt,
	}
	if idempotencyKey != "" {
		responseBody, _ := json.Marshal(resp)
		_ = s.idempotency.Complete(ctx, idempotencyKey, 201, responseBody, s.nowFn())
	}
	return resp, nil
}

// ListTips returns the confirmed tips for a profile, newest first.
func (s *Service) ListTips(ctx context.Context, slug string, limit, offset int) ([]TipItem, error) {
	profile, err := s.profiles.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, err
	}
	tips, err := s.tips.ListByProfile(ctx, profile.ProfileID, limit, offset)
	if err != nil {
		return nil, err
	}
	result := make([]TipItem, 0, len(tips))
	for _, tip := range tips {
		result = append(result, toTipItem(tip))
	}
	return result, nil
}

// GetTip resolves a tip by its on-chain transaction hash.
func (s *Service) GetTip(ctx context.Context, transactionHash string) (TipItem, error) {
	if strings.TrimSpace(transactionHash) == "" {
		return TipItem{}, fmt.Errorf("%w: transaction hash is required", domain.ErrInvalidInput)
	}
	tip, err := s.tips.GetByTransactionHash(ctx, transactionHash)
	if err != nil {
		return TipItem{}, err
	}
	return toTipItem(tip), nil
}

// submitWithRetry retries only pre-acceptance transport failures. Once the
// node may have seen the transaction the attempt is never repeated: a
// duplicate submission is worse than a reported unknown.
func (s *Service) submitWithRetry(ctx context.Context, account domain.KeylessAccount, call ports.EntryFunctionCall) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.SubmitMaxAttempts; attempt++ {
		hash, err := s.chain.SubmitSponsored(ctx, account, call)
		if err == nil {
			return hash, nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrNetworkUnavailable) {
			return "", err
		}
		if attempt == s.cfg.SubmitMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.cfg.SubmitRetryBackoff * time.Duration(attempt)):
		}
	}
	return "", lastErr
}

// replayIdempotent returns the stored response when the same key arrives with
// the same request again. A reused key with a different body is a conflict.
// Records past their expiry are dropped and treated as absent: an expired
// COMPLETED response must not replay and an expired PENDING row must not block.
func (s *Service) replayIdempotent(ctx context.Context, key, requestHash string) (SendTipResponse, bool, error) {
	record, err := s.idempotency.Get(ctx, key)
	if err != nil {
		return SendTipResponse{}, false, err
	}
	if record == nil {
		return SendTipResponse{}, false, nil
	}
	if !record.ExpiresAt.IsZero() && !record.ExpiresAt.After(s.nowFn()) {
		// Reserve reclaims the expired row, so the key re-executes.
		return SendTipResponse{}, false, nil
	}
	if record.RequestHash != requestHash {
		return SendTipResponse{}, false, domain.ErrIdempotencyConflict
	}
	if record.Status != "COMPLETED" {
		return SendTipResponse{}, false, domain.ErrIdempotencyConflict
	}
	var resp SendTipResponse
	if err := json.Unmarshal(record.ResponseBody, &resp); err != nil {
		return SendTipResponse{}, false, domain.ErrIdempotencyConflict
	}
	return resp, true, nil
}
