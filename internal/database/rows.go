package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	storedb "ai-meal-coach/internal/database/store_db"
	"ai-meal-coach/internal/mealplan"
)

type userColumns struct {
	Profile             string
	LearnedPreferences  string
	DietaryRestrictions sql.NullString
}

func userParams(u *mealplan.User) (userColumns, error) {
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return userColumns{}, fmt.Errorf("failed to marshal profile: %w", err)
	}
	prefs, err := json.Marshal(u.LearnedPreferences)
	if err != nil {
		return userColumns{}, fmt.Errorf("failed to marshal learned preferences: %w", err)
	}
	restrictions, err := nullJSON(u.DietaryRestrictions)
	if err != nil {
		return userColumns{}, err
	}
	return userColumns{
		Profile:             string(profile),
		LearnedPreferences:  string(prefs),
		DietaryRestrictions: restrictions,
	}, nil
}

func toUser(row storedb.User) (*mealplan.User, error) {
	u := &mealplan.User{
		ID:        row.ID,
		Email:     row.Email,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(row.Profile), &u.Profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile of user %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.LearnedPreferences), &u.LearnedPreferences); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences of user %s: %w", row.ID, err)
	}
	if row.DietaryRestrictions.Valid {
		u.DietaryRestrictions = &mealplan.DietaryRestrictions{}
		if err := json.Unmarshal([]byte(row.DietaryRestrictions.String), u.DietaryRestrictions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal restrictions of user %s: %w", row.ID, err)
		}
	}
	return u, nil
}

func toSession(row storedb.Session) (*mealplan.Session, error) {
	s := &mealplan.Session{
		ID:        row.ID,
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		ExpiresAt: row.ExpiresAt,
		Status:    mealplan.SessionStatus(row.Status),
	}
	if row.CurrentMealPlan.Valid {
		s.CurrentMealPlan = &mealplan.MealPlan{}
		if err := json.Unmarshal([]byte(row.CurrentMealPlan.String), s.CurrentMealPlan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan of session %s: %w", row.ID, err)
		}
	}
	if err := json.Unmarshal([]byte(row.Modifications), &s.Modifications); err != nil {
		return nil, fmt.Errorf("failed to unmarshal modifications of session %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.TemporaryConstraints), &s.TemporaryConstraints); err != nil {
		return nil, fmt.Errorf("failed to unmarshal constraints of session %s: %w", row.ID, err)
	}
	if s.Modifications == nil {
		s.Modifications = []mealplan.Modification{}
	}
	if s.TemporaryConstraints == nil {
		s.TemporaryConstraints = []string{}
	}
	return s, nil
}

func toMealPlan(row storedb.MealPlan) (*mealplan.StoredMealPlan, error) {
	p := &mealplan.StoredMealPlan{
		ID:        row.ID,
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt,
		Status:    mealplan.PlanStatus(row.Status),
	}
	if err := json.Unmarshal([]byte(row.PlanData), &p.Plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal meal plan %s: %w", row.ID, err)
	}
	var err error
	if p.StartDate, err = parseNullDate(row.StartDate); err != nil {
		return nil, fmt.Errorf("meal plan %s: %w", row.ID, err)
	}
	if p.EndDate, err = parseNullDate(row.EndDate); err != nil {
		return nil, fmt.Errorf("meal plan %s: %w", row.ID, err)
	}
	return p, nil
}

func toMealPlans(rows []storedb.MealPlan) ([]mealplan.StoredMealPlan, error) {
	plans := make([]mealplan.StoredMealPlan, 0, len(rows))
	for _, row := range rows {
		p, err := toMealPlan(row)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, nil
}

// nullJSON stores nil pointers as SQL NULL.
func nullJSON[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullDate(d *mealplan.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(s sql.NullString) (*mealplan.Date, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := mealplan.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
