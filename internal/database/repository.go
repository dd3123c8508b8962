package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-meal-coach/internal/app"
	storedb "ai-meal-coach/internal/database/store_db"
	"ai-meal-coach/internal/mealplan"

	"github.com/google/uuid"
)

var _ app.DataAccess = (*Repository)(nil)

// ErrNotFound is returned by updates that match no row.
var ErrNotFound = errors.New("record not found")

// Repository stores users, sessions and confirmed plans in SQLite. Nested
// values are kept as JSON columns.
type Repository struct {
	queries *storedb.Queries
	db      *sql.DB
	now     func() time.Time
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{
		queries: storedb.New(d),
		db:      d,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repository) CreateUser(ctx context.Context, user *mealplan.User) error {
	row, err := userParams(user)
	if err != nil {
		return err
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.now()
		user.UpdatedAt = user.CreatedAt
	}
	err = r.queries.InsertUser(ctx, storedb.InsertUserParams{
		ID:                  user.ID,
		Email:               user.Email,
		Profile:             row.Profile,
		LearnedPreferences:  row.LearnedPreferences,
		DietaryRestrictions: row.DietaryRestrictions,
		CreatedAt:           user.CreatedAt.UTC(),
		UpdatedAt:           user.UpdatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to insert user %s: %w", user.ID, err)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (*mealplan.User, error) {
	row, err := r.queries.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return toUser(row)
}

func (r *Repository) UpdateUser(ctx context.Context, user *mealplan.User) error {
	row, err := userParams(user)
	if err != nil {
		return err
	}
	n, err := r.queries.UpdateUser(ctx, storedb.UpdateUserParams{
		Email:               user.Email,
		Profile:             row.Profile,
		LearnedPreferences:  row.LearnedPreferences,
		DietaryRestrictions: row.DietaryRestrictions,
		UpdatedAt:           r.now(),
		ID:                  user.ID,
	})
	return affected("user", user.ID, n, err)
}

func (r *Repository) UpdateLearnedPreferences(ctx context.Context, userID string, prefs mealplan.LearnedPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal learned preferences: %w", err)
	}
	n, err := r.queries.UpdateLearnedPreferences(ctx, storedb.UpdateLearnedPreferencesParams{
		LearnedPreferences: string(data),
		UpdatedAt:          r.now(),
		ID:                 userID,
	})
	return affected("user", userID, n, err)
}

func (r *Repository) CreateSession(ctx context.Context, userID string, plan *mealplan.MealPlan) (*mealplan.Session, error) {
	now := r.now()
	session := &mealplan.Session{
		ID:                   uuid.NewString(),
		UserID:               userID,
		CreatedAt:            now,
		UpdatedAt:            now,
		ExpiresAt:            now.Add(mealplan.SessionTTL),
		CurrentMealPlan:      plan,
		Modifications:        []mealplan.Modification{},
		TemporaryConstraints: []string{},
		Status:               mealplan.SessionActive,
	}
	planData, err := nullJSON(plan)
	if err != nil {
		return nil, err
	}
	err = r.queries.InsertSession(ctx, storedb.InsertSessionParams{
		ID:                   session.ID,
		UserID:               userID,
		CurrentMealPlan:      planData,
		Modifications:        "[]",
		TemporaryConstraints: "[]",
		Status:               string(session.Status),
		CreatedAt:            now,
		UpdatedAt:            now,
		ExpiresAt:            session.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	return session, nil
}

func (r *Repository) GetSession(ctx context.Context, id string) (*mealplan.Session, error) {
	row, err := r.queries.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return toSession(row)
}

// AddSessionModification appends to the log and swaps the plan in one
// transaction, so the two never disagree.
func (r *Repository) AddSessionModification(ctx context.Context, sessionID string, mod mealplan.Modification, plan *mealplan.MealPlan) error {
	return r.withTx(ctx, func(q *storedb.Queries) error {
		row, err := q.GetSession(ctx, sessionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
			}
			return fmt.Errorf("failed to get session %s: %w", sessionID, err)
		}
		var mods []mealplan.Modification
		if err := json.Unmarshal([]byte(row.Modifications), &mods); err != nil {
			return fmt.Errorf("failed to unmarshal modifications: %w", err)
		}
		modsData, err := json.Marshal(append(mods, mod))
		if err != nil {
			return fmt.Errorf("failed to marshal modifications: %w", err)
		}
		planData, err := nullJSON(plan)
		if err != nil {
			return err
		}
		n, err := q.UpdateSessionPlan(ctx, storedb.UpdateSessionPlanParams{
			CurrentMealPlan: planData,
			Modifications:   string(modsData),
			UpdatedAt:       r.now(),
			ID:              sessionID,
		})
		return affected("session", sessionID, n, err)
	})
}

func (r *Repository) AddTemporaryConstraint(ctx context.Context, sessionID, constraint string) error {
	return r.withTx(ctx, func(q *storedb.Queries) error {
		row, err := q.GetSession(ctx, sessionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
			}
			return fmt.Errorf("failed to get session %s: %w", sessionID, err)
		}
		var constraints []string
		if err := json.Unmarshal([]byte(row.TemporaryConstraints), &constraints); err != nil {
			return fmt.Errorf("failed to unmarshal constraints: %w", err)
		}
		data, err := json.Marshal(append(constraints, constraint))
		if err != nil {
			return fmt.Errorf("failed to marshal constraints: %w", err)
		}
		n, err := q.UpdateSessionConstraints(ctx, storedb.UpdateSessionConstraintsParams{
			TemporaryConstraints: string(data),
			UpdatedAt:            r.now(),
			ID:                   sessionID,
		})
		return affected("session", sessionID, n, err)
	})
}

func (r *Repository) UpdateSessionStatus(ctx context.Context, sessionID string, status mealplan.SessionStatus) error {
	n, err := r.queries.UpdateSessionStatus(ctx, storedb.UpdateSessionStatusParams{
		Status:    string(status),
		UpdatedAt: r.now(),
		ID:        sessionID,
	})
	return affected("session", sessionID, n, err)
}

func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	if err := r.queries.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

func (r *Repository) ListConfirmedSessions(ctx context.Context, userID string) ([]mealplan.Session, error) {
	rows, err := r.queries.ListSessionsByStatus(ctx, storedb.ListSessionsByStatusParams{
		UserID: userID,
		Status: string(mealplan.SessionConfirmed),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed sessions for user %s: %w", userID, err)
	}
	sessions := make([]mealplan.Session, 0, len(rows))
	for _, row := range rows {
		s, err := toSession(row)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, nil
}

func (r *Repository) ExpireSessions(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.queries.ExpireSessions(ctx, storedb.ExpireSessionsParams{
		UpdatedAt: r.now(),
		ExpiresAt: now.UTC(),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to expire sessions: %w", err)
	}
	return n, nil
}

func (r *Repository) CreateMealPlan(ctx context.Context, plan *mealplan.StoredMealPlan) error {
	return r.insertMealPlan(ctx, r.queries, plan)
}

// ReplaceMealPlans deletes the plans in replaceIDs and stores plan in one
// transaction. Nothing is deleted when the insert fails.
func (r *Repository) ReplaceMealPlans(ctx context.Context, plan *mealplan.StoredMealPlan, replaceIDs []string) error {
	return r.withTx(ctx, func(q *storedb.Queries) error {
		for _, id := range replaceIDs {
			if err := q.DeleteMealPlan(ctx, id); err != nil {
				return fmt.Errorf("failed to delete meal plan %s: %w", id, err)
			}
		}
		return r.insertMealPlan(ctx, q, plan)
	})
}

func (r *Repository) insertMealPlan(ctx context.Context, q *storedb.Queries, plan *mealplan.StoredMealPlan) error {
	data, err := json.Marshal(plan.Plan)
	if err != nil {
		return fmt.Errorf("failed to marshal meal plan: %w", err)
	}
	plan.ID = uuid.NewString()
	plan.CreatedAt = r.now()
	if plan.Status == "" {
		plan.Status = mealplan.PlanActive
	}
	err = q.InsertMealPlan(ctx, storedb.InsertMealPlanParams{
		ID:        plan.ID,
		UserID:    plan.UserID,
		PlanData:  string(data),
		Status:    string(plan.Status),
		StartDate: nullDate(plan.StartDate),
		EndDate:   nullDate(plan.EndDate),
		CreatedAt: plan.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to insert meal plan: %w", err)
	}
	return nil
}

func (r *Repository) GetMealPlan(ctx context.Context, id string) (*mealplan.StoredMealPlan, error) {
	row, err := r.queries.GetMealPlan(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get meal plan %s: %w", id, err)
	}
	return toMealPlan(row)
}

func (r *Repository) ListMealPlans(ctx context.Context, userID string) ([]mealplan.StoredMealPlan, error) {
	rows, err := r.queries.ListMealPlansByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans for user %s: %w", userID, err)
	}
	return toMealPlans(rows)
}

func (r *Repository) DeleteMealPlan(ctx context.Context, id string) error {
	if err := r.queries.DeleteMealPlan(ctx, id); err != nil {
		return fmt.Errorf("failed to delete meal plan %s: %w", id, err)
	}
	return nil
}

// FindMealPlansByDateRange matches plans with start <= to and end >= from.
// Dates are stored as YYYY-MM-DD so string comparison orders them.
func (r *Repository) FindMealPlansByDateRange(ctx context.Context, userID string, from, to mealplan.Date) ([]mealplan.StoredMealPlan, error) {
	rows, err := r.queries.FindMealPlansByDateRange(ctx, storedb.FindMealPlansByDateRangeParams{
		UserID:    userID,
		StartDate: nullDate(&to),
		EndDate:   nullDate(&from),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find meal plans for user %s: %w", userID, err)
	}
	return toMealPlans(rows)
}

func (r *Repository) HasOverlappingMealPlan(ctx context.Context, userID string, start, end mealplan.Date) (bool, error) {
	n, err := r.queries.CountOverlappingMealPlans(ctx, storedb.CountOverlappingMealPlansParams{
		UserID:    userID,
		StartDate: nullDate(&end),
		EndDate:   nullDate(&start),
	})
	if err != nil {
		return false, fmt.Errorf("failed to check overlapping meal plans for user %s: %w", userID, err)
	}
	return n > 0, nil
}

func (r *Repository) withTx(ctx context.Context, fn func(q *storedb.Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func affected(kind, id string, n int64, err error) error {
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
