package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/ports"
)

type tipRepository struct {
	db *gorm.DB
}

// RecordConfirmed writes the tip row, bumps the profile aggregates and
// enqueues the outbox event in a single transaction. The unique index on
// transaction_hash makes the call idempotent: replaying a success handler
// with the same hash returns the existing row and changes nothing.
func (r *tipRepository) RecordConfirmed(ctx context.Context, params ports.RecordTipParams, event ports.OutboxEvent) (domain.Tip, bool, error) {
	rec := tipModel{
		ProfileID:       params.ProfileID,
		ProfileSlug:     params.ProfileSlug,
		TipperAddress:   strings.ToLower(strings.TrimSpace(params.TipperAddress)),
		AmountOctas:     params.AmountOctas,
		Message:         params.Message,
		TransactionHash: strings.TrimSpace(params.TransactionHash),
		CreatedAt:       params.CreatedAt,
	}

	created := false
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return tx.Where("transaction_hash = ?", rec.TransactionHash).Take(&rec).Error
			}
			return err
		}
		created = true

		if err := tx.Model(&profileModel{}).
			Where("profile_id = ?", params.ProfileID).
			Updates(map[string]any{
				"total_tips":  gorm.Expr("total_tips + ?", params.AmountOctas),
				"tip_count":   gorm.Expr("tip_count + 1"),
				"average_tip": gorm.Expr("(total_tips + ?) / (tip_count + 1)", params.AmountOctas),
				"updated_at":  params.CreatedAt,
			}).Error; err != nil {
			return err
		}

		outboxRec := tipOutboxModel{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      string(event.Payload),
			CreatedAt:    event.OccurredAt,
			FirstSeenAt:  event.OccurredAt,
		}
		return tx.Create(&outboxRec).Error
	}); err != nil {
		return domain.Tip{}, false, err
	}
	return toDomainTip(rec), created, nil
}

func (r *tipRepository) GetByTransactionHash(ctx context.Context, hash string) (domain.Tip, error) {
	var rec tipModel
	if err := r.db.WithContext(ctx).Where("transaction_hash = ?", strings.TrimSpace(hash)).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Tip{}, domain.ErrNotFound
		}
		return domain.Tip{}, err
	}
	return toDomainTip(rec), nil
}

func (r *tipRepository) ListByProfile(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]domain.Tip, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []tipModel
	if err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Tip, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainTip(row))
	}
	return out, nil
}
