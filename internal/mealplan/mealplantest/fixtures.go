// Package mealplantest builds meal plans for tests.
package mealplantest

import (
	"fmt"

	"ai-meal-coach/internal/mealplan"
)

// Meal returns a valid meal whose fields are derived from name.
func Meal(name, cuisine string, ingredients ...string) mealplan.Meal {
	if len(ingredients) == 0 {
		ingredients = []string{name + " base"}
	}
	ing := make([]mealplan.Ingredient, 0, len(ingredients))
	for _, n := range ingredients {
		ing = append(ing, mealplan.Ingredient{Name: n, Amount: 100, Unit: "g"})
	}
	return mealplan.Meal{
		Name:         name,
		Cuisine:      cuisine,
		Ingredients:  ing,
		Nutrition:    mealplan.Nutrition{Calories: 500, Protein: 25, Carbs: 60, Fat: 15},
		Instructions: []string{"Prepare " + name + "."},
		PrepTime:     20,
		SpiceLevel:   "mild",
		Complexity:   "simple",
	}
}

// Plan returns a valid plan of n days with distinct meal names.
func Plan(days int) *mealplan.MealPlan {
	p := &mealplan.MealPlan{}
	for d := 1; d <= days; d++ {
		p.Days = append(p.Days, mealplan.Day{
			DayNumber: d,
			Meals: mealplan.Meals{
				Breakfast: Meal(fmt.Sprintf("Oatmeal %d", d), "American", "oats", "milk"),
				Lunch:     Meal(fmt.Sprintf("Lentil Salad %d", d), "Mediterranean", "lentils", "tomato"),
				Dinner:    Meal(fmt.Sprintf("Veggie Curry %d", d), "Indian", "chickpeas", "rice"),
			},
		})
	}
	p.NutritionSummary = p.Summarize()
	return p
}

// PlanWith returns a plan of len(meals)/3 days filled with the given meals in order.
func PlanWith(meals ...mealplan.Meal) mealplan.MealPlan {
	p := mealplan.MealPlan{}
	for i := 0; i+2 < len(meals); i += 3 {
		p.Days = append(p.Days, mealplan.Day{
			DayNumber: i/3 + 1,
			Meals:     mealplan.Meals{Breakfast: meals[i], Lunch: meals[i+1], Dinner: meals[i+2]},
		})
	}
	p.NutritionSummary = p.Summarize()
	return p
}
