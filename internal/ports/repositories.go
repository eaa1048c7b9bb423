package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
)

type CreateProfileParams struct {
	Slug          string
	WalletAddress string
	Name          string
	Bio           string
	Category      domain.ProfileCategory
	ImageURL      string
	BannerURL     string
	Restaurant    *domain.RestaurantDetails
	Creator       *domain.CreatorDetails
	CreatedAt     time.Time
}

type UpdateProfileParams struct {
	Name       *string
	Bio        *string
	ImageURL   *string
	BannerURL  *string
	Restaurant *domain.RestaurantDetails
	Creator    *domain.CreatorDetails
	UpdatedAt  time.Time
}

type ListProfilesFilter struct {
	Category *domain.ProfileCategory
	Limit    int
	Offset   int
}

type ProfileRepository interface {
	Create(ctx context.Context, params CreateProfileParams) (domain.Profile, error)
	GetBySlug(ctx context.Context, slug string) (domain.Profile, error)
	GetByWalletAddress(ctx context.Context, address string) (domain.Profile, error)
	List(ctx context.Context, filter ListProfilesFilter) ([]domain.Profile, error)
	Update(ctx context.Context, slug string, params UpdateProfileParams) (domain.Profile, error)
}

type RecordTipParams struct {
	ProfileID       uuid.UUID
	ProfileSlug     string
	TipperAddress   string
	AmountOctas     int64
	Message         string
	TransactionHash string
	CreatedAt       time.Time
}

// TipRepository persists confirmed tips. RecordConfirmed must be idempotent
// on the transaction hash and must update the owning profile's aggregates and
// enqueue the outbox event in the same database transaction.
type TipRepository interface {
	RecordConfirmed(ctx context.Context, params RecordTipParams, event OutboxEvent) (domain.Tip, bool, error)
	GetByTransactionHash(ctx context.Context, hash string) (domain.Tip, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]domain.Tip, error)
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	Status       string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdempotencyRepository guards state-changing endpoints against client
// retries with the same Idempotency-Key. Release drops a reservation whose
// work definitively did not happen, so the key stays usable for a retry;
// reservations for ambiguous outcomes are never released.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
	Release(ctx context.Context, key string) error
}

type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	FirstSeenAt    time.Time
	ClaimToken     string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken string, reason string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken string, reason string, at time.Time) error
}
