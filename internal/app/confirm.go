package app

import (
	"context"
	"fmt"

	"ai-meal-coach/internal/apperror"
	"ai-meal-coach/internal/learning"
	"ai-meal-coach/internal/mealplan"

	"go.uber.org/zap"
)

// ConfirmRequest places the session's plan on the calendar.
type ConfirmRequest struct {
	StartDate          string `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ReplaceConflicting bool   `json:"replaceConflicting,omitempty"`
}

// ConfirmResult is the stored plan and whatever it replaced.
type ConfirmResult struct {
	MealPlan        *mealplan.StoredMealPlan
	Session         *mealplan.Session
	ReplacedPlanIDs []string
}

// ConfirmSession stores the session's plan and closes the session. A plan
// with a start date may not overlap another active plan unless the caller
// asks to replace the overlapping ones. Preference learning runs afterwards
// in the background and never affects the result.
func (s *Service) ConfirmSession(ctx context.Context, userID, sessionID string, req ConfirmRequest) (*ConfirmResult, error) {
	session, err := s.requireSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.CurrentMealPlan == nil {
		return nil, apperror.InvalidState("session has no meal plan to confirm")
	}
	if err := s.requireActive(session); err != nil {
		return nil, err
	}

	stored := &mealplan.StoredMealPlan{
		UserID: userID,
		Plan:   *session.CurrentMealPlan,
		Status: mealplan.PlanActive,
	}

	var replaced []string
	if req.StartDate != "" {
		start, err := mealplan.ParseDate(req.StartDate)
		if err != nil {
			return nil, apperror.BadRequest(err.Error()).WithMetadata("startDate", req.StartDate)
		}
		end := mealplan.EndDateFor(start, session.CurrentMealPlan.DayCount())
		stored.StartDate, stored.EndDate = &start, &end

		replaced, err = s.resolveConflicts(ctx, userID, start, end, req.ReplaceConflicting)
		if err != nil {
			return nil, err
		}
	}

	if err := s.data.ReplaceMealPlans(ctx, stored, replaced); err != nil {
		return nil, fmt.Errorf("failed to store meal plan: %w", err)
	}
	if err := s.data.UpdateSessionStatus(ctx, sessionID, mealplan.SessionConfirmed); err != nil {
		return nil, fmt.Errorf("failed to confirm session: %w", err)
	}
	session.Status = mealplan.SessionConfirmed

	s.logger.Info("session confirmed",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
		zap.String("meal_plan_id", stored.ID),
		zap.Strings("replaced", replaced),
	)

	s.background.Go(ctx, "learn-preferences", func(ctx context.Context) error {
		_, err := s.RunLearning(ctx, userID)
		return err
	})

	return &ConfirmResult{MealPlan: stored, Session: session, ReplacedPlanIDs: replaced}, nil
}

// resolveConflicts returns the ids of the overlapping plans to replace.
func (s *Service) resolveConflicts(ctx context.Context, userID string, start, end mealplan.Date, replace bool) ([]string, error) {
	overlap, err := s.data.HasOverlappingMealPlan(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to check for overlapping plans: %w", err)
	}
	if !overlap {
		return nil, nil
	}
	conflicts, err := s.data.FindMealPlansByDateRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load overlapping plans: %w", err)
	}
	ids := make([]string, 0, len(conflicts))
	for _, p := range conflicts {
		ids = append(ids, p.ID)
	}
	if !replace {
		return nil, apperror.Conflict("meal plan dates overlap an existing plan").
			WithMetadata("conflictingPlanIds", ids).
			WithMetadata("startDate", start.String()).
			WithMetadata("endDate", end.String())
	}
	return ids, nil
}

// RunLearning recomputes the user's learned preferences from their confirmed
// history and stores them when there is enough signal. Behavioral patterns
// are not learned and are kept as they are.
func (s *Service) RunLearning(ctx context.Context, userID string) (learning.Output, error) {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return learning.Output{}, err
	}
	stored, err := s.data.ListMealPlans(ctx, userID)
	if err != nil {
		return learning.Output{}, fmt.Errorf("failed to list meal plans: %w", err)
	}
	sessions, err := s.data.ListConfirmedSessions(ctx, userID)
	if err != nil {
		return learning.Output{}, fmt.Errorf("failed to list sessions: %w", err)
	}

	plans := make([]mealplan.MealPlan, 0, len(stored))
	for _, p := range stored {
		plans = append(plans, p.Plan)
	}
	out := learning.Compute(learning.Input{ConfirmedPlans: plans, ConfirmedSessions: sessions})
	if !out.ShouldUpdate {
		s.logger.Debug("not enough history to learn preferences",
			zap.String("user_id", userID),
			zap.Int("plans", len(plans)),
		)
		return out, nil
	}

	prefs := *out.Preferences
	prefs.BehavioralPatterns = user.LearnedPreferences.BehavioralPatterns
	if err := s.data.UpdateLearnedPreferences(ctx, userID, prefs); err != nil {
		return out, fmt.Errorf("failed to store learned preferences: %w", err)
	}
	s.logger.Info("learned preferences updated",
		zap.String("user_id", userID),
		zap.Strings("favorite_cuisines", prefs.FavoriteCuisines),
		zap.Strings("disliked_ingredients", prefs.DislikedIngredients),
	)
	return out, nil
}

// WaitForBackground blocks until detached work has finished.
func (s *Service) WaitForBackground() {
	s.background.Wait()
}
