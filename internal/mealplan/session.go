package mealplan

import "time"

// SessionTTL is how long an unconfirmed session stays usable.
const SessionTTL = 7 * 24 * time.Hour

// SessionStatus is the lifecycle state of a planning session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionConfirmed SessionStatus = "confirmed"
	SessionExpired   SessionStatus = "expired"
)

// Action says what a Modification asked for.
type Action string

const (
	ActionRegenerateMeal Action = "regenerate-meal"
	ActionRegenerateAll  Action = "regenerate-all"
)

// Modification is an append-only record of one rejection.
type Modification struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       Action    `json:"action"`
	MealID       string    `json:"mealId,omitempty"`
	Reason       string    `json:"reason"`
	RejectedMeal *Meal     `json:"rejectedMeal,omitempty"`
}

// IsMealRejection reports whether the record targets a single meal.
func (m Modification) IsMealRejection() bool {
	return m.Action == ActionRegenerateMeal && m.MealID != ""
}

// Session is an in-progress planning conversation for one user.
type Session struct {
	ID                   string         `json:"id"`
	UserID               string         `json:"userId"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
	ExpiresAt            time.Time      `json:"expiresAt"`
	CurrentMealPlan      *MealPlan      `json:"currentMealPlan"`
	Modifications        []Modification `json:"modifications"`
	TemporaryConstraints []string       `json:"temporaryConstraints"`
	Status               SessionStatus  `json:"status"`
}
