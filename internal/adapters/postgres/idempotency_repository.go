package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/ports"
)

// idempotencyRepository backs the Idempotency-Key guard on POST /tips.
// A row is born PENDING when a tip submission starts, flips to COMPLETED
// with the stored response once the chain confirmed, and is deleted again
// when the submission definitively failed before the node accepted it.
// Rows past expires_at are invisible to readers and reclaimed lazily on
// the next Reserve for the same key.
type idempotencyRepository struct {
	db *gorm.DB
}

func (r *idempotencyRepository) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	var rec tipIdempotencyModel
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ? AND expires_at > ?", key, time.Now().UTC()).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := ports.IdempotencyRecord{
		Key:          rec.IdempotencyKey,
		RequestHash:  rec.RequestHash,
		Status:       rec.Status,
		ResponseCode: rec.ResponseCode,
		ExpiresAt:    rec.ExpiresAt,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
	if rec.ResponseBody != nil {
		out.ResponseBody = []byte(*rec.ResponseBody)
	}
	return &out, nil
}

func (r *idempotencyRepository) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// An expired row for this key is dead weight from an earlier
		// tip attempt; clear it so the key can be reserved again.
		if err := tx.
			Where("idempotency_key = ? AND expires_at <= ?", key, time.Now().UTC()).
			Delete(&tipIdempotencyModel{}).Error; err != nil {
			return err
		}
		rec := tipIdempotencyModel{
			IdempotencyKey: key,
			RequestHash:    requestHash,
			Status:         "PENDING",
			ExpiresAt:      expiresAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		return nil
	})
}

func (r *idempotencyRepository) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	var body *string
	if len(responseBody) > 0 {
		raw := string(responseBody)
		body = &raw
	}
	res := r.db.WithContext(ctx).
		Model(&tipIdempotencyModel{}).
		Where("idempotency_key = ? AND status = ?", key, "PENDING").
		Updates(map[string]any{
			"status":        "COMPLETED",
			"response_code": responseCode,
			"response_body": body,
			"updated_at":    at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Release drops a PENDING reservation after a failure that provably never
// reached the chain. Completed rows are left alone: their stored response
// is the record that money moved.
func (r *idempotencyRepository) Release(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).
		Where("idempotency_key = ? AND status = ?", key, "PENDING").
		Delete(&tipIdempotencyModel{}).Error
}
