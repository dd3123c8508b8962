package app

import (
	"context"
	"fmt"
	"time"

	"ai-meal-coach/internal/apperror"
	"ai-meal-coach/internal/mealplan"
	"ai-meal-coach/internal/shopping"

	"go.uber.org/zap"
)

// GetSession returns a session owned by userID.
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (*mealplan.Session, error) {
	return s.requireSession(ctx, userID, sessionID)
}

// DeleteSession removes an active or confirmed session.
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if _, err := s.requireSession(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := s.data.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ExpireSessions marks stale active sessions as expired.
func (s *Service) ExpireSessions(ctx context.Context) (int64, error) {
	n, err := s.data.ExpireSessions(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired stale sessions", zap.Int64("count", n))
	}
	return n, nil
}

// RunSessionSweeper expires sessions every interval until ctx is done.
func (s *Service) RunSessionSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ExpireSessions(ctx); err != nil {
				s.logger.Warn("session sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *Service) ListMealPlans(ctx context.Context, userID string) ([]mealplan.StoredMealPlan, error) {
	plans, err := s.data.ListMealPlans(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans: %w", err)
	}
	return plans, nil
}

func (s *Service) GetMealPlan(ctx context.Context, userID, planID string) (*mealplan.StoredMealPlan, error) {
	return s.requireMealPlan(ctx, userID, planID)
}

func (s *Service) DeleteMealPlan(ctx context.Context, userID, planID string) error {
	if _, err := s.requireMealPlan(ctx, userID, planID); err != nil {
		return err
	}
	if err := s.data.DeleteMealPlan(ctx, planID); err != nil {
		return fmt.Errorf("failed to delete meal plan: %w", err)
	}
	return nil
}

// Calendar lists the user's scheduled plans touching [from, to].
func (s *Service) Calendar(ctx context.Context, userID, from, to string) ([]mealplan.StoredMealPlan, error) {
	start, err := mealplan.ParseDate(from)
	if err != nil {
		return nil, apperror.BadRequest(err.Error()).WithMetadata("from", from)
	}
	end, err := mealplan.ParseDate(to)
	if err != nil {
		return nil, apperror.BadRequest(err.Error()).WithMetadata("to", to)
	}
	if end.Before(start) {
		return nil, apperror.BadRequest("from must not be after to")
	}
	plans, err := s.data.FindMealPlansByDateRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar: %w", err)
	}
	return plans, nil
}

// ShoppingList aggregates the ingredients of a stored plan for the user's household.
func (s *Service) ShoppingList(ctx context.Context, userID, planID string) (*shopping.ShoppingList, error) {
	plan, err := s.requireMealPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	servings := user.Profile.HouseholdSize
	if servings <= 0 {
		servings = s.defaultHouseholdSize
	}
	list := shopping.Build(*plan, servings)
	return &list, nil
}
