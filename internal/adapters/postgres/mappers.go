package postgres

import (
	"encoding/json"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
)

func toDomainProfile(rec profileModel, restaurant *restaurantProfileModel, creator *creatorProfileModel) domain.Profile {
	out := domain.Profile{
		ProfileID:     rec.ProfileID,
		Slug:          rec.Slug,
		WalletAddress: rec.WalletAddress,
		Name:          rec.Name,
		Bio:           rec.Bio,
		Category:      domain.ProfileCategory(rec.Category),
		ImageURL:      rec.ImageURL,
		BannerURL:     rec.BannerURL,
		Verified:      rec.Verified,
		TotalTips:     rec.TotalTips,
		TipCount:      rec.TipCount,
		AverageTip:    rec.AverageTip,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
	if restaurant != nil {
		out.Restaurant = &domain.RestaurantDetails{
			Address: restaurant.Address,
			City:    restaurant.City,
			State:   restaurant.State,
			Phone:   restaurant.Phone,
		}
	}
	if creator != nil {
		details := &domain.CreatorDetails{Followers: creator.Followers}
		_ = json.Unmarshal([]byte(creator.PortfolioImages), &details.PortfolioImages)
		_ = json.Unmarshal([]byte(creator.SocialLinks), &details.SocialLinks)
		out.Creator = details
	}
	return out
}

func toDomainTip(rec tipModel) domain.Tip {
	return domain.Tip{
		TipID:           rec.TipID,
		ProfileID:       rec.ProfileID,
		ProfileSlug:     rec.ProfileSlug,
		TipperAddress:   rec.TipperAddress,
		AmountOctas:     rec.AmountOctas,
		Message:         rec.Message,
		TransactionHash: rec.TransactionHash,
		CreatedAt:       rec.CreatedAt,
	}
}

func marshalJSONOr(fallback string, v any) string {
	if v == nil {
		return fallback
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fallback
	}
	return string(raw)
}
