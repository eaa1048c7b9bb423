package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/ports"
)

const (
	eventTypeProfileCreated = "profile.created"
	eventTypeProfileUpdated = "profile.updated"
)

// CreateProfile registers the profile on-chain under the session's keyless
// account and then writes the off-chain record. One keyless address owns at
// most one profile.
func (s *Service) CreateProfile(ctx context.Context, sessionID string, req CreateProfileRequest) (ProfileItem, error) {
	account, err := s.signingAccount(ctx, sessionID)
	if err != nil {
		return ProfileItem{}, err
	}

	category, err := domain.ParseProfileCategory(req.Category)
	if err != nil {
		return ProfileItem{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ProfileItem{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	switch category {
	case domain.CategoryRestaurant:
		if req.Creator != nil {
			return ProfileItem{}, fmt.Errorf("%w: restaurant profile cannot carry creator details", domain.ErrInvalidInput)
		}
	case domain.CategoryCreator:
		if req.Restaurant != nil {
			return ProfileItem{}, fmt.Errorf("%w: creator profile cannot carry restaurant details", domain.ErrInvalidInput)
		}
	}

	if _, err := s.profiles.GetByWalletAddress(ctx, account.Address); err == nil {
		return ProfileItem{}, fmt.Errorf("%w: account already owns a profile", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return ProfileItem{}, err
	}

	exists, err := s.chain.ProfileExists(ctx, account.Address)
	if err != nil {
		return ProfileItem{}, err
	}
	if !exists {
		hash, err := s.submitWithRetry(ctx, account, ports.EntryFunctionCall{
			Function:  s.cfg.ContractAddress + "::tipping::register_profile",
			Arguments: []any{name},
		})
		if err != nil {
			return ProfileItem{}, err
		}
		status, err := s.chain.WaitForTransaction(ctx, hash)
		if err != nil {
			return ProfileItem{}, err
		}
		if !status.Success {
			return ProfileItem{}, fmt.Errorf("%w: %s", domain.ErrSubmissionRejected, status.VMStatus)
		}
	}

	now := s.nowFn()
	params := ports.CreateProfileParams{
		Slug:          domain.Slugify(name),
		WalletAddress: account.Address,
		Name:          name,
		Bio:           req.Bio,
		Category:      category,
		ImageURL:      req.ImageURL,
		BannerURL:     req.BannerURL,
		Restaurant:    req.Restaurant,
		Creator:       req.Creator,
		CreatedAt:     now,
	}

	// The wallet uniqueness was checked above, so a conflict here is a slug
	// collision with another display name; a short random suffix resolves it.
	var profile domain.Profile
	for attempt := 0; attempt < 3; attempt++ {
		profile, err = s.profiles.Create(ctx, params)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) {
			return ProfileItem{}, err
		}
		params.Slug = domain.Slugify(name) + "-" + randomHex(2)
	}
	if err != nil {
		return ProfileItem{}, err
	}

	payload, _ := json.Marshal(map[string]any{
		"profile_id":     profile.ProfileID,
		"profile_slug":   profile.Slug,
		"wallet_address": profile.WalletAddress,
		"category":       string(profile.Category),
		"created_at":     now,
	})
	_ = s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventTypeProfileCreated,
		PartitionKey: profile.Slug,
		Payload:      payload,
		OccurredAt:   now,
	})

	slog.Default().InfoContext(ctx, "profile created",
		"service", "aptotip",
		"module", "application",
		"layer", "application",
		"operation", "create_profile",
		"outcome", "success",
		"profile_slug", profile.Slug,
		"wallet_address", profile.WalletAddress,
		"category", string(profile.Category),
	)
	return toProfileItem(profile), nil
}

func (s *Service) GetProfile(ctx context.Context, slug string) (ProfileItem, error) {
	profile, err := s.profiles.GetBySlug(ctx, slug)
	if err != nil {
		return ProfileItem{}, err
	}
	return toProfileItem(profile), nil
}

func (s *Service) ListProfiles(ctx context.Context, q ListProfilesQuery) ([]ProfileItem, error) {
	filter := ports.ListProfilesFilter{Limit: q.Limit, Offset: q.Offset}
	if strings.TrimSpace(q.Category) != "" {
		category, err := domain.ParseProfileCategory(q.Category)
		if err != nil {
			return nil, err
		}
		filter.Category = &category
	}
	profiles, err := s.profiles.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	result := make([]ProfileItem, 0, len(profiles))
	for _, profile := range profiles {
		result = append(result, toProfileItem(profile))
	}
	return result, nil
}

// UpdateProfile applies a partial update after verifying the session's derived
// address owns the profile.
func (s *Service) UpdateProfile(ctx context.Context, sessionID, slug string, req UpdateProfileRequest) (ProfileItem, error) {
	account, err := s.signingAccount(ctx, sessionID)
	if err != nil {
		return ProfileItem{}, err
	}
	existing, err := s.profiles.GetBySlug(ctx, slug)
	if err != nil {
		return ProfileItem{}, err
	}
	if !strings.EqualFold(existing.WalletAddress, account.Address) {
		return ProfileItem{}, domain.ErrUnauthorized
	}
	if req.Restaurant != nil && existing.Category != domain.CategoryRestaurant {
		return ProfileItem{}, fmt.Errorf("%w: profile is not a restaurant", domain.ErrInvalidInput)
	}
	if req.Creator != nil && existing.Category != domain.CategoryCreator {
		return ProfileItem{}, fmt.Errorf("%w: profile is not a creator", domain.ErrInvalidInput)
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return ProfileItem{}, fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidInput)
	}

	now := s.nowFn()
	updated, err := s.profiles.Update(ctx, existing.Slug, ports.UpdateProfileParams{
		Name:       req.Name,
		Bio:        req.Bio,
		ImageURL:   req.ImageURL,
		BannerURL:  req.BannerURL,
		Restaurant: req.Restaurant,
		Creator:    req.Creator,
		UpdatedAt:  now,
	})
	if err != nil {
		return ProfileItem{}, err
	}

	payload, _ := json.Marshal(map[string]any{
		"profile_id":   updated.ProfileID,
		"profile_slug": updated.Slug,
		"updated_at":   now,
	})
	_ = s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventTypeProfileUpdated,
		PartitionKey: updated.Slug,
		Payload:      payload,
		OccurredAt:   now,
	})
	return toProfileItem(updated), nil
}

// ProfileStatus resolves a profile for sibling services: the off-chain row
// plus whether the owning account is registered on-chain and its balance.
func (s *Service) ProfileStatus(ctx context.Context, slug string) (ProfileStatusResponse, error) {
	profile, err := s.profiles.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return ProfileStatusResponse{}, err
	}
	onChain, err := s.chain.ProfileExists(ctx, profile.WalletAddress)
	if err != nil {
		return ProfileStatusResponse{}, err
	}
	balance, err := s.chain.AccountBalance(ctx, profile.WalletAddress)
	if err != nil {
		return ProfileStatusResponse{}, err
	}
	return ProfileStatusResponse{
		Profile:      toProfileItem(profile),
		OnChain:      onChain,
		BalanceOctas: balance,
	}, nil
}

// GetBalance reads the live on-chain coin balance for an address.
func (s *Service) GetBalance(ctx context.Context, address string) (BalanceResponse, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" || !strings.HasPrefix(address, "0x") {
		return BalanceResponse{}, fmt.Errorf("%w: a 0x-prefixed address is required", domain.ErrInvalidInput)
	}
	balance, err := s.chain.AccountBalance(ctx, address)
	if err != nil {
		return BalanceResponse{}, err
	}
	return BalanceResponse{Address: address, BalanceOctas: balance}, nil
}
