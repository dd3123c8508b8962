// Package learning derives preferences from what a user has confirmed and
// what they have rejected.
package learning

import (
	"sort"
	"strings"

	"ai-meal-coach/internal/mealplan"
)

const (
	MinPlans = 3
	MinMeals = 21

	FavoriteCuisineShare    = 0.40
	FavoriteIngredientShare = 0.35
	MinRejections           = 2
)

// fillers are cooking staples that say nothing about taste.
var fillers = map[string]struct{}{
	"salt": {}, "sea salt": {}, "kosher salt": {},
	"pepper": {}, "black pepper": {}, "salt and pepper": {},
	"water": {},
	"oil": {}, "olive oil": {}, "extra virgin olive oil": {}, "vegetable oil": {},
	"canola oil": {}, "sunflower oil": {}, "coconut oil": {}, "cooking oil": {},
	"butter": {},
	"sugar": {}, "brown sugar": {},
	"flour": {}, "all-purpose flour": {},
	"baking powder": {}, "baking soda": {}, "yeast": {},
	"cooking spray": {},
}

// IsFiller reports whether an ingredient is excluded from preference mining.
func IsFiller(name string) bool {
	_, ok := fillers[normalize(name)]
	return ok
}

type Input struct {
	ConfirmedPlans    []mealplan.MealPlan
	ConfirmedSessions []mealplan.Session
}

type Output struct {
	ShouldUpdate bool
	Preferences  *mealplan.LearnedPreferences
}

// Compute is deterministic: list fields are sorted. BehavioralPatterns are
// not learned and are left zero.
func Compute(in Input) Output {
	var meals []mealplan.Meal
	for i := range in.ConfirmedPlans {
		meals = append(meals, in.ConfirmedPlans[i].AllMeals()...)
	}
	if len(in.ConfirmedPlans) < MinPlans && len(meals) < MinMeals {
		return Output{ShouldUpdate: false}
	}

	total := float64(len(meals))
	cuisines := counter{}
	ingredients := counter{}
	spice := counter{}
	complexity := counter{}
	for _, m := range meals {
		cuisines.add(normalize(m.Cuisine))
		for name := range ingredientSet(m) {
			ingredients.add(name)
		}
		spice.add(normalize(m.SpiceLevel))
		complexity.add(normalize(m.Complexity))
	}

	rejectedCuisines := counter{}
	rejectedIngredients := counter{}
	for _, s := range in.ConfirmedSessions {
		for _, mod := range s.Modifications {
			if mod.Action != mealplan.ActionRegenerateMeal || mod.RejectedMeal == nil {
				continue
			}
			rejectedCuisines.add(normalize(mod.RejectedMeal.Cuisine))
			for name := range ingredientSet(*mod.RejectedMeal) {
				rejectedIngredients.add(name)
			}
		}
	}

	return Output{
		ShouldUpdate: true,
		Preferences: &mealplan.LearnedPreferences{
			FavoriteCuisines:    cuisines.atLeastShare(FavoriteCuisineShare, total),
			FavoriteIngredients: ingredients.atLeastShare(FavoriteIngredientShare, total),
			DislikedCuisines:    rejectedCuisines.atLeastCount(MinRejections),
			DislikedIngredients: rejectedIngredients.atLeastCount(MinRejections),
			FavoriteMealTypes:   []string{},
			DislikedMealTypes:   []string{},
			SpiceLevel:          spice.majority(len(meals)),
			PreferredComplexity: complexity.plurality(),
		},
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ingredientSet is the meal's distinct, non-filler ingredient names.
func ingredientSet(m mealplan.Meal) map[string]struct{} {
	set := make(map[string]struct{}, len(m.Ingredients))
	for _, ing := range m.Ingredients {
		name := normalize(ing.Name)
		if name == "" || IsFiller(name) {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

type counter map[string]int

func (c counter) add(key string) {
	if key != "" {
		c[key]++
	}
}

func (c counter) atLeastShare(share, total float64) []string {
	out := []string{}
	if total == 0 {
		return out
	}
	for k, n := range c {
		if float64(n)/total >= share {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (c counter) atLeastCount(min int) []string {
	out := []string{}
	for k, n := range c {
		if n >= min {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// majority returns the key held by more than half of total, if any.
func (c counter) majority(total int) string {
	for k, n := range c {
		if n*2 > total {
			return k
		}
	}
	return ""
}

// plurality returns the single most frequent key; ties return "".
func (c counter) plurality() string {
	best, bestN, tied := "", 0, false
	for k, n := range c {
		switch {
		case n > bestN:
			best, bestN, tied = k, n, false
		case n == bestN:
			tied = true
		}
	}
	if tied || bestN == 0 {
		return ""
	}
	return best
}
