package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ProfileCategory string

const (
	CategoryRestaurant ProfileCategory = "restaurant"
	CategoryCreator    ProfileCategory = "creator"
)

// ParseProfileCategory rejects anything outside the closed category set so
// consumers can rely on exhaustive switches.
func ParseProfileCategory(raw string) (ProfileCategory, error) {
	switch ProfileCategory(strings.ToLower(strings.TrimSpace(raw))) {
	case CategoryRestaurant:
		return CategoryRestaurant, nil
	case CategoryCreator:
		return CategoryCreator, nil
	default:
		return "", fmt.Errorf("%w: unknown profile category %q", ErrInvalidInput, raw)
	}
}

// Profile is the off-chain record linked one-to-one with a keyless account
// address. Exactly one of Restaurant/Creator is set, discriminated by Category.
type Profile struct {
	ProfileID     uuid.UUID
	Slug          string
	WalletAddress string
	Name          string
	Bio           string
	Category      ProfileCategory
	ImageURL      string
	BannerURL     string
	Verified      bool
	TotalTips     int64
	TipCount      int64
	AverageTip    int64
	Restaurant    *RestaurantDetails
	Creator       *CreatorDetails
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type RestaurantDetails struct {
	Address string
	City    string
	State   string
	Phone   string
}

type CreatorDetails struct {
	Followers       int64
	PortfolioImages []string
	SocialLinks     map[string]string
}

// Validate enforces the tagged-union shape: category and extension must agree.
func (p Profile) Validate() error {
	switch p.Category {
	case CategoryRestaurant:
		if p.Restaurant == nil || p.Creator != nil {
			return fmt.Errorf("%w: restaurant profile requires restaurant details only", ErrInvalidInput)
		}
	case CategoryCreator:
		if p.Creator == nil || p.Restaurant != nil {
			return fmt.Errorf("%w: creator profile requires creator details only", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown profile category %q", ErrInvalidInput, p.Category)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(p.WalletAddress) == "" {
		return fmt.Errorf("%w: wallet address is required", ErrInvalidInput)
	}
	return nil
}

// Slugify derives a URL-safe slug from a display name.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
