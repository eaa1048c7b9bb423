package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
)

type BeginAuthRequest struct {
	Provider    string `json:"provider"`
	RedirectURI string `json:"redirect_uri"`
}

type BeginAuthResponse struct {
	AuthorizeURL string    `json:"authorize_url"`
	SessionID    string    `json:"session_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type CompleteAuthResponse struct {
	SessionID   string    `json:"session_id"`
	Address     string    `json:"address"`
	Email       string    `json:"email,omitempty"`
	Name        string    `json:"name,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	RedirectURL string    `json:"-"`
}

type SessionStatusResponse struct {
	SessionID      string    `json:"session_id"`
	Authenticated  bool      `json:"authenticated"`
	SigningCapable bool      `json:"signing_capable"`
	Address        string    `json:"address,omitempty"`
	Email          string    `json:"email,omitempty"`
	Name           string    `json:"name,omitempty"`
	ExpiresAt      time.Time `json:"expires_at"`
}

type SendTipRequest struct {
	ProfileSlug string `json:"profile_slug"`
	AmountCents int64  `json:"amount_cents"`
	Message     string `json:"message"`
}

type SendTipResponse struct {
	TipID           uuid.UUID `json:"tip_id"`
	ProfileSlug     string    `json:"profile_slug"`
	TipperAddress   string    `json:"tipper_address"`
	AmountOctas     int64     `json:"amount_octas"`
	AmountCents     int64     `json:"amount_cents"`
	Message         string    `json:"message,omitempty"`
	TransactionHash string    `json:"transaction_hash"`
	CreatedAt       time.Time `json:"created_at"`
}

type CreateProfileRequest struct {
	Name       string                    `json:"name"`
	Bio        string                    `json:"bio"`
	Category   string                    `json:"category"`
	ImageURL   string                    `json:"image_url"`
	BannerURL  string                    `json:"banner_url"`
	Restaurant *domain.RestaurantDetails `json:"restaurant,omitempty"`
	Creator    *domain.CreatorDetails    `json:"creator,omitempty"`
}

type UpdateProfileRequest struct {
	Name       *string                   `json:"name,omitempty"`
	Bio        *string                   `json:"bio,omitempty"`
	ImageURL   *string                   `json:"image_url,omitempty"`
	BannerURL  *string                   `json:"banner_url,omitempty"`
	Restaurant *domain.RestaurantDetails `json:"restaurant,omitempty"`
	Creator    *domain.CreatorDetails    `json:"creator,omitempty"`
}

type ProfileItem struct {
	ProfileID     uuid.UUID                 `json:"profile_id"`
	Slug          string                    `json:"slug"`
	WalletAddress string                    `json:"wallet_address"`
	Name          string                    `json:"name"`
	Bio           string                    `json:"bio,omitempty"`
	Category      string                    `json:"category"`
	ImageURL      string                    `json:"image_url,omitempty"`
	BannerURL     string                    `json:"banner_url,omitempty"`
	Verified      bool                      `json:"verified"`
	TotalTips     int64                     `json:"total_tips"`
	TipCount      int64                     `json:"tip_count"`
	AverageTip    int64                     `json:"average_tip"`
	Restaurant    *domain.RestaurantDetails `json:"restaurant,omitempty"`
	Creator       *domain.CreatorDetails    `json:"creator,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

type ListProfilesQuery struct {
	Category string
	Limit    int
	Offset   int
}

type TipItem struct {
	TipID           uuid.UUID `json:"tip_id"`
	ProfileSlug     string    `json:"profile_slug"`
	TipperAddress   string    `json:"tipper_address"`
	AmountOctas     int64     `json:"amount_octas"`
	Message         string    `json:"message,omitempty"`
	TransactionHash string    `json:"transaction_hash"`
	CreatedAt       time.Time `json:"created_at"`
}

type BalanceResponse struct {
	Address      string `json:"address"`
	BalanceOctas int64  `json:"balance_octas"`
}

// ProfileStatusResponse joins the off-chain profile row with the live
// on-chain view of the owning account.
type ProfileStatusResponse struct {
	Profile      ProfileItem `json:"profile"`
	OnChain      bool        `json:"on_chain"`
	BalanceOctas int64       `json:"balance_octas"`
}

func toProfileItem(p domain.Profile) ProfileItem {
	return ProfileItem{
		ProfileID:     p.ProfileID,
		Slug:          p.Slug,
		WalletAddress: p.WalletAddress,
		Name:          p.Name,
		Bio:           p.Bio,
		Category:      string(p.Category),
		ImageURL:      p.ImageURL,
		BannerURL:     p.BannerURL,
		Verified:      p.Verified,
		TotalTips:     p.TotalTips,
		TipCount:      p.TipCount,
		AverageTip:    p.AverageTip,
		Restaurant:    p.Restaurant,
		Creator:       p.Creator,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toTipItem(t domain.Tip) TipItem {
	return TipItem{
		TipID:           t.TipID,
		ProfileSlug:     t.ProfileSlug,
		TipperAddress:   t.TipperAddress,
		AmountOctas:     t.AmountOctas,
		Message:         t.Message,
		TransactionHash: t.TransactionHash,
		CreatedAt:       t.CreatedAt,
	}
}
