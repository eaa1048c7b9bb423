package postgres

import (
	"time"

	"github.com/google/uuid"
)

type profileModel struct {
	ProfileID     uuid.UUID  `gorm:"column:profile_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug          string     `gorm:"column:slug"`
	WalletAddress string     `gorm:"column:wallet_address"`
	Name          string     `gorm:"column:name"`
	Bio           string     `gorm:"column:bio"`
	Category      string     `gorm:"column:category"`
	ImageURL      string     `gorm:"column:image_url"`
	BannerURL     string     `gorm:"column:banner_url"`
	Verified      bool       `gorm:"column:verified"`
	TotalTips     int64      `gorm:"column:total_tips"`
	TipCount      int64      `gorm:"column:tip_count"`
	AverageTip    int64      `gorm:"column:average_tip"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
	DeletedAt     *time.Time `gorm:"column:deleted_at"`
}

func (profileModel) TableName() string { return "profiles" }

type restaurantProfileModel struct {
	ProfileID uuid.UUID `gorm:"column:profile_id;type:uuid;primaryKey"`
	Address   string    `gorm:"column:address"`
	City      string    `gorm:"column:city"`
	State     string    `gorm:"column:state"`
	Phone     string    `gorm:"column:phone"`
}

func (restaurantProfileModel) TableName() string { return "restaurant_profiles" }

type creatorProfileModel struct {
	ProfileID       uuid.UUID `gorm:"column:profile_id;type:uuid;primaryKey"`
	Followers       int64     `gorm:"column:followers"`
	PortfolioImages string    `gorm:"column:portfolio_images;type:jsonb"`
	SocialLinks     string    `gorm:"column:social_links;type:jsonb"`
}

func (creatorProfileModel) TableName() string { return "creator_profiles" }

type tipModel struct {
	TipID           uuid.UUID `gorm:"column:tip_id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID       uuid.UUID `gorm:"column:profile_id"`
	ProfileSlug     string    `gorm:"column:profile_slug"`
	TipperAddress   string    `gorm:"column:tipper_address"`
	AmountOctas     int64     `gorm:"column:amount_octas"`
	Message         string    `gorm:"column:message"`
	TransactionHash string    `gorm:"column:transaction_hash"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (tipModel) TableName() string { return "tips" }

type tipOutboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	FirstSeenAt    time.Time  `gorm:"column:first_seen_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (tipOutboxModel) TableName() string { return "tip_outbox" }

type tipIdempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body;type:jsonb"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (tipIdempotencyModel) TableName() string { return "tip_idempotency" }
