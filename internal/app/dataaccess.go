package app

import (
	"context"
	"time"

	"ai-meal-coach/internal/mealplan"
)

// DataAccess is the persistence the service needs. Get methods return
// (nil, nil) when the record does not exist.
type DataAccess interface {
	CreateUser(ctx context.Context, user *mealplan.User) error
	GetUser(ctx context.Context, id string) (*mealplan.User, error)
	UpdateUser(ctx context.Context, user *mealplan.User) error
	UpdateLearnedPreferences(ctx context.Context, userID string, prefs mealplan.LearnedPreferences) error

	// CreateSession stores a new active session that expires after mealplan.SessionTTL.
	CreateSession(ctx context.Context, userID string, plan *mealplan.MealPlan) (*mealplan.Session, error)
	GetSession(ctx context.Context, id string) (*mealplan.Session, error)
	// AddSessionModification appends mod to the log and replaces the current plan.
	AddSessionModification(ctx context.Context, sessionID string, mod mealplan.Modification, plan *mealplan.MealPlan) error
	AddTemporaryConstraint(ctx context.Context, sessionID, constraint string) error
	UpdateSessionStatus(ctx context.Context, sessionID string, status mealplan.SessionStatus) error
	DeleteSession(ctx context.Context, id string) error
	ListConfirmedSessions(ctx context.Context, userID string) ([]mealplan.Session, error)
	// ExpireSessions marks active sessions past their expiry as expired.
	ExpireSessions(ctx context.Context, now time.Time) (int64, error)

	// CreateMealPlan assigns ID and CreatedAt.
	CreateMealPlan(ctx context.Context, plan *mealplan.StoredMealPlan) error
	// ReplaceMealPlans deletes replaceIDs and creates plan atomically.
	ReplaceMealPlans(ctx context.Context, plan *mealplan.StoredMealPlan, replaceIDs []string) error
	GetMealPlan(ctx context.Context, id string) (*mealplan.StoredMealPlan, error)
	ListMealPlans(ctx context.Context, userID string) ([]mealplan.StoredMealPlan, error)
	DeleteMealPlan(ctx context.Context, id string) error
	// FindMealPlansByDateRange returns the user's active plans whose dates
	// intersect the closed interval [from, to].
	FindMealPlansByDateRange(ctx context.Context, userID string, from, to mealplan.Date) ([]mealplan.StoredMealPlan, error)
	HasOverlappingMealPlan(ctx context.Context, userID string, start, end mealplan.Date) (bool, error)
}
