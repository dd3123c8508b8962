package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ai-meal-coach/internal/mealplan"
	"ai-meal-coach/internal/validation"
)

// ParsePlan decodes and validates a model response. wantDays of zero skips
// the day count check. The nutrition summary is recomputed from the meals.
func ParsePlan(content string, wantDays int) (*mealplan.MealPlan, error) {
	var plan mealplan.MealPlan
	if err := json.Unmarshal([]byte(extractJSON(content)), &plan); err != nil {
		return nil, &GenerationValidationError{Violations: []validation.Violation{decodeViolation(err)}}
	}

	violations := validation.Struct(plan)
	if wantDays > 0 && len(plan.Days) > 0 && len(plan.Days) != wantDays {
		violations = append(violations, validation.Violation{
			Path:    "days",
			Message: fmt.Sprintf("expected %d days, got %d", wantDays, len(plan.Days)),
		})
	}
	for i, d := range plan.Days {
		if d.DayNumber >= 1 && d.DayNumber != i+1 {
			violations = append(violations, validation.Violation{
				Path:    fmt.Sprintf("days[%d].dayNumber", i),
				Message: fmt.Sprintf("expected %d, got %d", i+1, d.DayNumber),
			})
		}
	}
	if len(violations) > 0 {
		return nil, &GenerationValidationError{Violations: violations}
	}

	plan.NutritionSummary = plan.Summarize()
	return &plan, nil
}

// extractJSON strips markdown code fences and any prose around the object.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return strings.TrimSpace(s)
}

func decodeViolation(err error) validation.Violation {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return validation.Violation{
			Path:    typeErr.Field,
			Message: fmt.Sprintf("must be %s, got %s", typeErr.Type, typeErr.Value),
		}
	}
	return validation.Violation{Message: "response is not valid JSON: " + err.Error()}
}
