package app

import (
	"context"
	"fmt"
	"time"

	"ai-meal-coach/internal/apperror"
	"ai-meal-coach/internal/llm"
	"ai-meal-coach/internal/mealplan"
	"ai-meal-coach/internal/planner"
	"ai-meal-coach/internal/prompt"
	"ai-meal-coach/internal/sanitize"
	"ai-meal-coach/internal/shared"
	"ai-meal-coach/internal/validation"

	"go.uber.org/zap"
)

// GenerationOptions are the per-request knobs a client may set.
type GenerationOptions struct {
	Days         int      `json:"days,omitempty" validate:"omitempty,min=1,max=14"`
	Provider     string   `json:"provider,omitempty" validate:"omitempty,oneof=openai anthropic gemini groq"`
	Temperature  *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=1"`
	Instructions string   `json:"instructions,omitempty" validate:"max=1000"`
}

func (o GenerationOptions) plannerOptions() planner.Options {
	return planner.Options{
		Provider:     llm.Provider(o.Provider),
		Temperature:  o.Temperature,
		Days:         o.Days,
		Instructions: o.Instructions,
	}
}

// GenerateRequest starts a new planning session.
type GenerateRequest struct {
	GenerationOptions
}

// RegenerateMealRequest rejects one meal of the current plan.
type RegenerateMealRequest struct {
	MealID string `json:"mealId" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
	GenerationOptions
}

// RegeneratePlanRequest rejects the whole current plan.
type RegeneratePlanRequest struct {
	Reason string `json:"reason" validate:"max=500"`
	GenerationOptions
}

// SessionResult is a session together with the cost of the generation that produced it.
type SessionResult struct {
	Session  *mealplan.Session
	Usage    shared.TokenUsage
	Provider llm.Provider
	Duration time.Duration
	Attempts int
}

func newSessionResult(session *mealplan.Session, res *planner.Result) *SessionResult {
	return &SessionResult{
		Session:  session,
		Usage:    res.Usage,
		Provider: res.Provider,
		Duration: res.Duration,
		Attempts: res.Attempts,
	}
}

// GenerateMealPlan creates a plan for the user and opens a session holding it.
func (s *Service) GenerateMealPlan(ctx context.Context, userID string, req GenerateRequest) (*SessionResult, error) {
	if err := invalid(validation.Struct(req)); err != nil {
		return nil, err
	}
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	res, err := s.gen.Generate(ctx, prompt.BuildFullContext(*user, nil), req.plannerOptions())
	if err != nil {
		return nil, err
	}
	s.recordUsage(res)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	session, err := s.data.CreateSession(ctx, userID, res.Plan)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Info("planning session created",
		zap.String("user_id", userID),
		zap.String("session_id", session.ID),
		zap.Int("days", res.Plan.DayCount()),
	)
	return newSessionResult(session, res), nil
}

// RegenerateMeal replaces one meal of the session's plan. Nothing is written
// unless generation succeeds.
func (s *Service) RegenerateMeal(ctx context.Context, userID, sessionID string, req RegenerateMealRequest) (*SessionResult, error) {
	if err := invalid(validation.Struct(req)); err != nil {
		return nil, err
	}
	id, err := mealplan.ParseMealID(req.MealID)
	if err != nil {
		return nil, apperror.BadRequest(err.Error())
	}
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	session, err := s.requireSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireActive(session); err != nil {
		return nil, err
	}
	if session.CurrentMealPlan == nil {
		return nil, apperror.InvalidState("session has no meal plan")
	}
	rejected, ok := session.CurrentMealPlan.Meal(id)
	if !ok {
		return nil, apperror.BadRequest(fmt.Sprintf("meal %s is not part of the current plan", id)).
			WithMetadata("mealId", id.String())
	}

	fc := prompt.BuildFullContext(*user, session)
	res, err := s.gen.RegenerateSingleMeal(ctx, fc, id.String(), req.Reason, req.plannerOptions())
	if err != nil {
		return nil, err
	}
	s.recordUsage(res)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mod := mealplan.Modification{
		Timestamp:    s.now().UTC(),
		Action:       mealplan.ActionRegenerateMeal,
		MealID:       id.String(),
		Reason:       sanitize.Text(req.Reason),
		RejectedMeal: &rejected,
	}
	return s.applyRegeneration(ctx, sessionID, mod, res)
}

// RegeneratePlan replaces the session's whole plan.
func (s *Service) RegeneratePlan(ctx context.Context, userID, sessionID string, req RegeneratePlanRequest) (*SessionResult, error) {
	if err := invalid(validation.Struct(req)); err != nil {
		return nil, err
	}
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	session, err := s.requireSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireActive(session); err != nil {
		return nil, err
	}

	fc := prompt.BuildFullContext(*user, session)
	res, err := s.gen.RegenerateFullPlan(ctx, fc, req.Reason, req.plannerOptions())
	if err != nil {
		return nil, err
	}
	s.recordUsage(res)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mod := mealplan.Modification{
		Timestamp: s.now().UTC(),
		Action:    mealplan.ActionRegenerateAll,
		Reason:    sanitize.Text(req.Reason),
	}
	return s.applyRegeneration(ctx, sessionID, mod, res)
}

func (s *Service) applyRegeneration(ctx context.Context, sessionID string, mod mealplan.Modification, res *planner.Result) (*SessionResult, error) {
	if err := s.data.AddSessionModification(ctx, sessionID, mod, res.Plan); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	session, err := s.data.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload session: %w", err)
	}
	if session == nil {
		return nil, apperror.NotFound("session", sessionID)
	}
	s.logger.Info("session plan regenerated",
		zap.String("session_id", sessionID),
		zap.String("action", string(mod.Action)),
		zap.String("meal_id", mod.MealID),
		zap.Int("modifications", len(session.Modifications)),
	)
	return newSessionResult(session, res), nil
}

// AddTemporaryConstraint records a constraint that only applies to this session.
func (s *Service) AddTemporaryConstraint(ctx context.Context, userID, sessionID, constraint string) (*mealplan.Session, error) {
	cleaned := sanitize.Clean(constraint, 200)
	if cleaned == "" {
		return nil, apperror.BadRequest("constraint must not be empty")
	}
	session, err := s.requireSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireActive(session); err != nil {
		return nil, err
	}
	if err := s.data.AddTemporaryConstraint(ctx, sessionID, cleaned); err != nil {
		return nil, fmt.Errorf("failed to add constraint: %w", err)
	}
	session.TemporaryConstraints = append(session.TemporaryConstraints, cleaned)
	return session, nil
}
