package planner

import (
	"errors"
	"fmt"

	"ai-meal-coach/internal/llm"
	"ai-meal-coach/internal/validation"
)

// ErrNoCurrentPlan is returned when a single meal is regenerated without a plan to edit.
var ErrNoCurrentPlan = errors.New("session has no current meal plan")

// GenerationValidationError means the model answered with something that is
// not a valid meal plan. It is never retried here.
type GenerationValidationError struct {
	Violations []validation.Violation
}

func (e *GenerationValidationError) Error() string {
	return "generated meal plan failed validation: " + validation.Join(e.Violations)
}

// RegenerationStalledError means the model kept returning the rejected meal.
type RegenerationStalledError struct {
	MealID   string
	Attempts int
}

func (e *RegenerationStalledError) Error() string {
	return fmt.Sprintf("regeneration of %s returned an identical meal after %d attempts", e.MealID, e.Attempts)
}

// ProviderError wraps a failed call to the model vendor.
type ProviderError struct {
	Provider llm.Provider
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("failed to generate meal plan with %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the caller may simply resubmit the request.
func IsRetryable(err error) bool {
	var verr *GenerationValidationError
	var serr *RegenerationStalledError
	var perr *ProviderError
	return errors.As(err, &verr) || errors.As(err, &serr) || errors.As(err, &perr)
}
