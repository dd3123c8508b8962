package app

import (
	"context"
	"fmt"

	"ai-meal-coach/internal/apperror"
	"ai-meal-coach/internal/mealplan"
	"ai-meal-coach/internal/validation"
)

// RegisterRequest creates a user. An existing user with the same id is returned as is.
type RegisterRequest struct {
	Email   string           `json:"email" validate:"required,email"`
	Profile mealplan.Profile `json:"profile"`
}

func (s *Service) RegisterUser(ctx context.Context, userID string, req RegisterRequest) (*mealplan.User, error) {
	if userID == "" {
		return nil, apperror.BadRequest("user id is required")
	}
	if err := invalid(validation.Struct(req)); err != nil {
		return nil, err
	}
	existing, err := s.data.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	now := s.now().UTC()
	user := &mealplan.User{
		ID:                 userID,
		Email:              req.Email,
		Profile:            req.Profile,
		LearnedPreferences: emptyPreferences(),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.data.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, userID string) (*mealplan.User, error) {
	return s.requireUser(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, profile mealplan.Profile) (*mealplan.User, error) {
	if err := invalid(validation.Struct(profile)); err != nil {
		return nil, err
	}
	return s.updateUser(ctx, userID, func(u *mealplan.User) { u.Profile = profile })
}

func (s *Service) UpdateDietaryRestrictions(ctx context.Context, userID string, r mealplan.DietaryRestrictions) (*mealplan.User, error) {
	if err := invalid(validation.Struct(r)); err != nil {
		return nil, err
	}
	return s.updateUser(ctx, userID, func(u *mealplan.User) { u.DietaryRestrictions = &r })
}

// UpdateLearnedPreferences overwrites preferences explicitly. The next
// learning pass may overwrite them again.
func (s *Service) UpdateLearnedPreferences(ctx context.Context, userID string, prefs mealplan.LearnedPreferences) (*mealplan.User, error) {
	if err := invalid(validation.Struct(prefs)); err != nil {
		return nil, err
	}
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.data.UpdateLearnedPreferences(ctx, userID, prefs); err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	user.LearnedPreferences = prefs
	return user, nil
}

func (s *Service) updateUser(ctx context.Context, userID string, apply func(*mealplan.User)) (*mealplan.User, error) {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	apply(user)
	user.UpdatedAt = s.now().UTC()
	if err := s.data.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func emptyPreferences() mealplan.LearnedPreferences {
	return mealplan.LearnedPreferences{
		FavoriteCuisines:    []string{},
		DislikedCuisines:    []string{},
		FavoriteIngredients: []string{},
		DislikedIngredients: []string{},
		FavoriteMealTypes:   []string{},
		DislikedMealTypes:   []string{},
	}
}
