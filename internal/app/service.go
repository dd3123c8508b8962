// Package app coordinates users, planning sessions and stored plans. It is
// the only place that decides when generated plans are written.
package app

import (
	"context"
	"fmt"
	"time"

	"ai-meal-coach/internal/apperror"
	"ai-meal-coach/internal/mealplan"
	"ai-meal-coach/internal/planner"
	"ai-meal-coach/internal/prompt"
	"ai-meal-coach/internal/shared"
	"ai-meal-coach/internal/validation"

	"go.uber.org/zap"
)

// Generator produces plans. *planner.Planner implements it.
type Generator interface {
	Generate(ctx context.Context, fc prompt.FullContext, opts planner.Options) (*planner.Result, error)
	RegenerateSingleMeal(ctx context.Context, fc prompt.FullContext, mealID, reason string, opts planner.Options) (*planner.Result, error)
	RegenerateFullPlan(ctx context.Context, fc prompt.FullContext, reason string, opts planner.Options) (*planner.Result, error)
}

// UsageRecorder stores token usage. *metrics.Store implements it.
type UsageRecorder interface {
	RecordMeta(meta shared.AgentMeta) error
}

// Service is the lifecycle coordinator.
type Service struct {
	data                 DataAccess
	gen                  Generator
	usage                UsageRecorder
	background           *Background
	logger               *zap.Logger
	defaultHouseholdSize int
	now                  func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithUsageRecorder records the usage of every generation.
func WithUsageRecorder(u UsageRecorder) Option {
	return func(s *Service) { s.usage = u }
}

// WithDefaultHouseholdSize is used for shopping lists when a profile has none.
func WithDefaultHouseholdSize(n int) Option {
	return func(s *Service) { s.defaultHouseholdSize = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(data DataAccess, gen Generator, background *Background, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if background == nil {
		background = NewBackground(logger, DefaultTaskTimeout)
	}
	s := &Service{
		data:                 data,
		gen:                  gen,
		background:           background,
		logger:               logger,
		defaultHouseholdSize: 1,
		now:                  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) requireUser(ctx context.Context, userID string) (*mealplan.User, error) {
	user, err := s.data.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, apperror.NotFound("user", userID)
	}
	return user, nil
}

// requireSession loads a session and checks that userID owns it.
func (s *Service) requireSession(ctx context.Context, userID, sessionID string) (*mealplan.Session, error) {
	session, err := s.data.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, apperror.NotFound("session", sessionID)
	}
	if session.UserID != userID {
		return nil, apperror.Unauthorized("session belongs to another user")
	}
	return session, nil
}

// requireActive rejects sessions that can no longer be edited.
func (s *Service) requireActive(session *mealplan.Session) error {
	if session.Status != mealplan.SessionActive {
		return apperror.InvalidState(fmt.Sprintf("session is %s", session.Status)).
			WithMetadata("status", string(session.Status))
	}
	if !session.ExpiresAt.IsZero() && s.now().After(session.ExpiresAt) {
		return apperror.InvalidState("session has expired").
			WithMetadata("expiresAt", session.ExpiresAt)
	}
	return nil
}

// requireMealPlan loads a stored plan. Plans of other users are reported as missing.
func (s *Service) requireMealPlan(ctx context.Context, userID, planID string) (*mealplan.StoredMealPlan, error) {
	plan, err := s.data.GetMealPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to load meal plan: %w", err)
	}
	if plan == nil || plan.UserID != userID {
		return nil, apperror.NotFound("meal plan", planID)
	}
	return plan, nil
}

func (s *Service) recordUsage(res *planner.Result) {
	if s.usage == nil || res == nil {
		return
	}
	if err := s.usage.RecordMeta(res.Meta()); err != nil {
		s.logger.Warn("failed to record usage", zap.String("mode", string(res.Mode)), zap.Error(err))
	}
}

func invalid(vs []validation.Violation) error {
	if len(vs) == 0 {
		return nil
	}
	return apperror.BadRequest("validation failed").
		WithMetadata("violations", vs)
}
