package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/ports"
)

type profileRepository struct {
	db *gorm.DB
}

// Create writes the base row and the category extension row in one
// transaction so a profile can never exist without its extension.
func (r *profileRepository) Create(ctx context.Context, params ports.CreateProfileParams) (domain.Profile, error) {
	rec := profileModel{
		Slug:          strings.ToLower(strings.TrimSpace(params.Slug)),
		WalletAddress: strings.ToLower(strings.TrimSpace(params.WalletAddress)),
		Name:          strings.TrimSpace(params.Name),
		Bio:           params.Bio,
		Category:      string(params.Category),
		ImageURL:      params.ImageURL,
		BannerURL:     params.BannerURL,
		CreatedAt:     params.CreatedAt,
		UpdatedAt:     params.CreatedAt,
	}

	var restaurant *restaurantProfileModel
	var creator *creatorProfileModel
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		switch params.Category {
		case domain.CategoryRestaurant:
			restaurant = &restaurantProfileModel{ProfileID: rec.ProfileID}
			if params.Restaurant != nil {
				restaurant.Address = params.Restaurant.Address
				restaurant.City = params.Restaurant.City
				restaurant.State = params.Restaurant.State
				restaurant.Phone = params.Restaurant.Phone
			}
			return tx.Create(restaurant).Error
		case domain.CategoryCreator:
			creator = &creatorProfileModel{
				ProfileID:       rec.ProfileID,
				PortfolioImages: "[]",
				SocialLinks:     "{}",
			}
			if params.Creator != nil {
				creator.Followers = params.Creator.Followers
				creator.PortfolioImages = marshalJSONOr("[]", params.Creator.PortfolioImages)
				creator.SocialLinks = marshalJSONOr("{}", params.Creator.SocialLinks)
			}
			return tx.Create(creator).Error
		default:
			return domain.ErrInvalidInput
		}
	}); err != nil {
		return domain.Profile{}, err
	}
	return toDomainProfile(rec, restaurant, creator), nil
}

func (r *profileRepository) GetBySlug(ctx context.Context, slug string) (domain.Profile, error) {
	var rec profileModel
	if err := r.db.WithContext(ctx).
		Where("slug = ?", strings.ToLower(strings.TrimSpace(slug))).
		Where("deleted_at IS NULL").
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Profile{}, domain.ErrNotFound
		}
		return domain.Profile{}, err
	}
	return r.withExtension(ctx, rec)
}

func (r *profileRepository) GetByWalletAddress(ctx context.Context, address string) (domain.Profile, error) {
	var rec profileModel
	if err := r.db.WithContext(ctx).
		Where("wallet_address = ?", strings.ToLower(strings.TrimSpace(address))).
		Where("deleted_at IS NULL").
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Profile{}, domain.ErrNotFound
		}
		return domain.Profile{}, err
	}
	return r.withExtension(ctx, rec)
}

func (r *profileRepository) List(ctx context.Context, filter ports.ListProfilesFilter) ([]domain.Profile, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	q := r.db.WithContext(ctx).
		Model(&profileModel{}).
		Where("deleted_at IS NULL").
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset)
	if filter.Category != nil {
		q = q.Where("category = ?", string(*filter.Category))
	}

	var rows []profileModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Profile, 0, len(rows))
	for _, row := range rows {
		profile, err := r.withExtension(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, profile)
	}
	return out, nil
}

func (r *profileRepository) Update(ctx context.Context, slug string, params ports.UpdateProfileParams) (domain.Profile, error) {
	updates := map[string]any{"updated_at": params.UpdatedAt}
	if params.Name != nil {
		updates["name"] = strings.TrimSpace(*params.Name)
	}
	if params.Bio != nil {
		updates["bio"] = *params.Bio
	}
	if params.ImageURL != nil {
		updates["image_url"] = *params.ImageURL
	}
	if params.BannerURL != nil {
		updates["banner_url"] = *params.BannerURL
	}

	var rec profileModel
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("slug = ?", strings.ToLower(strings.TrimSpace(slug))).
			Where("deleted_at IS NULL").
			Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if err := tx.Model(&profileModel{}).
			Where("profile_id = ?", rec.ProfileID).
			Updates(updates).Error; err != nil {
			return err
		}
		if params.Restaurant != nil {
			if err := tx.Model(&restaurantProfileModel{}).
				Where("profile_id = ?", rec.ProfileID).
				Updates(map[string]any{
					"address": params.Restaurant.Address,
					"city":    params.Restaurant.City,
					"state":   params.Restaurant.State,
					"phone":   params.Restaurant.Phone,
				}).Error; err != nil {
				return err
			}
		}
		if params.Creator != nil {
			if err := tx.Model(&creatorProfileModel{}).
				Where("profile_id = ?", rec.ProfileID).
				Updates(map[string]any{
					"followers":        params.Creator.Followers,
					"portfolio_images": marshalJSONOr("[]", params.Creator.PortfolioImages),
					"social_links":     marshalJSONOr("{}", params.Creator.SocialLinks),
				}).Error; err != nil {
				return err
			}
		}
		return tx.Where("profile_id = ?", rec.ProfileID).Take(&rec).Error
	}); err != nil {
		return domain.Profile{}, err
	}
	return r.withExtension(ctx, rec)
}

// withExtension loads the category-specific row; the tagged union shape
// guarantees exactly one exists.
func (r *profileRepository) withExtension(ctx context.Context, rec profileModel) (domain.Profile, error) {
	switch domain.ProfileCategory(rec.Category) {
	case domain.CategoryRestaurant:
		var ext restaurantProfileModel
		if err := r.db.WithContext(ctx).Where("profile_id = ?", rec.ProfileID).Take(&ext).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.Profile{}, err
			}
			ext = restaurantProfileModel{ProfileID: rec.ProfileID}
		}
		return toDomainProfile(rec, &ext, nil), nil
	case domain.CategoryCreator:
		var ext creatorProfileModel
		if err := r.db.WithContext(ctx).Where("profile_id = ?", rec.ProfileID).Take(&ext).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.Profile{}, err
			}
			ext = creatorProfileModel{ProfileID: rec.ProfileID, PortfolioImages: "[]", SocialLinks: "{}"}
		}
		return toDomainProfile(rec, nil, &ext), nil
	default:
		return toDomainProfile(rec, nil, nil), nil
	}
}
