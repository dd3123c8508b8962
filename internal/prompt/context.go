// Package prompt turns a user and their planning session into the messages
// sent to a model. Everything here is pure.
package prompt

import (
	"encoding/json"

	"ai-meal-coach/internal/mealplan"
)

// SessionContext is the part of a session that matters for generation.
type SessionContext struct {
	CurrentMealPlan      *mealplan.MealPlan      `json:"currentMealPlan"`
	Modifications        []mealplan.Modification `json:"modifications"`
	TemporaryConstraints []string                `json:"temporaryConstraints"`
}

// FullContext bundles everything the prompt builder needs.
type FullContext struct {
	User            mealplan.User   `json:"user"`
	Session         *SessionContext `json:"session"`
	EstimatedTokens int             `json:"estimatedTokens"`
}

// BuildSessionContext projects a session onto its generation-relevant fields.
func BuildSessionContext(s mealplan.Session) SessionContext {
	sc := SessionContext{
		CurrentMealPlan:      s.CurrentMealPlan,
		Modifications:        make([]mealplan.Modification, len(s.Modifications)),
		TemporaryConstraints: make([]string, len(s.TemporaryConstraints)),
	}
	copy(sc.Modifications, s.Modifications)
	copy(sc.TemporaryConstraints, s.TemporaryConstraints)
	return sc
}

// BuildFullContext assembles the context for user and an optional session.
func BuildFullContext(user mealplan.User, session *mealplan.Session) FullContext {
	fc := FullContext{User: user}
	if session != nil {
		sc := BuildSessionContext(*session)
		fc.Session = &sc
	}
	fc.EstimatedTokens = estimateTokens(fc.User, fc.Session)
	return fc
}

// HasSession reports whether the context carries session state.
func (fc FullContext) HasSession() bool {
	return fc.Session != nil
}

// CurrentPlan returns the session's plan, or nil.
func (fc FullContext) CurrentPlan() *mealplan.MealPlan {
	if fc.Session == nil {
		return nil
	}
	return fc.Session.CurrentMealPlan
}

// estimateTokens is a rough four-bytes-per-token count of the serialized
// inputs, used for budgeting only.
func estimateTokens(user mealplan.User, session *SessionContext) int {
	b, err := json.Marshal(struct {
		User    mealplan.User   `json:"user"`
		Session *SessionContext `json:"session"`
	}{user, session})
	if err != nil {
		return 0
	}
	return (len(b) + 3) / 4
}
