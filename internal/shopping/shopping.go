// Package shopping turns a confirmed meal plan into a shopping list.
package shopping

import (
	"math"
	"sort"
	"strings"
	"time"

	"ai-meal-coach/internal/mealplan"
)

// Item is one aggregated line of a shopping list.
type Item struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit,omitempty"`
	Meals  int     `json:"meals"`
}

// ShoppingList represents a shopping list for a meal plan.
type ShoppingList struct {
	MealPlanID string    `json:"mealPlanId"`
	UserID     string    `json:"userId"`
	Servings   int       `json:"servings"`
	Items      []Item    `json:"items"`
	CreatedAt  time.Time `json:"createdAt"`
}

type itemKey struct {
	name string
	unit string
}

// Build aggregates every ingredient of the plan by name and unit and scales
// amounts by servings. Names are compared case-insensitively; the first
// spelling seen is kept.
func Build(plan mealplan.StoredMealPlan, servings int) ShoppingList {
	if servings < 1 {
		servings = 1
	}
	items := make(map[itemKey]*Item)
	for _, meal := range plan.Plan.AllMeals() {
		for _, ing := range meal.Ingredients {
			name := strings.TrimSpace(ing.Name)
			if name == "" {
				continue
			}
			unit := strings.ToLower(strings.TrimSpace(ing.Unit))
			key := itemKey{name: strings.ToLower(name), unit: unit}
			it, ok := items[key]
			if !ok {
				it = &Item{Name: name, Unit: unit}
				items[key] = it
			}
			it.Amount += ing.Amount * float64(servings)
			it.Meals++
		}
	}

	out := make([]Item, 0, len(items))
	for _, it := range items {
		it.Amount = math.Round(it.Amount*100) / 100
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].Unit < out[j].Unit
	})

	return ShoppingList{
		MealPlanID: plan.ID,
		UserID:     plan.UserID,
		Servings:   servings,
		Items:      out,
		CreatedAt:  time.Now().UTC(),
	}
}
