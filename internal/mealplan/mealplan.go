package mealplan

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// MealType names one of the three daily meal slots.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
)

// MealTypes lists the slots in the order they are served.
var MealTypes = []MealType{Breakfast, Lunch, Dinner}

// MealsPerDay is fixed by the Meals slot layout.
const MealsPerDay = 3

// Ingredient is a single line of a meal's ingredient list.
type Ingredient struct {
	Name   string  `json:"name" validate:"required"`
	Amount float64 `json:"amount" validate:"gte=0"`
	Unit   string  `json:"unit"`
}

// Nutrition holds per-serving macro values.
type Nutrition struct {
	Calories float64 `json:"calories" validate:"gt=0"`
	Protein  float64 `json:"protein" validate:"gte=0"`
	Carbs    float64 `json:"carbs" validate:"gte=0"`
	Fat      float64 `json:"fat" validate:"gte=0"`
}

// Meal is a value type; two meals are the same meal when Equal reports true.
type Meal struct {
	Name         string       `json:"name" validate:"required"`
	Cuisine      string       `json:"cuisine" validate:"required"`
	Ingredients  []Ingredient `json:"ingredients" validate:"required,min=1,dive"`
	Nutrition    Nutrition    `json:"nutrition"`
	Instructions []string     `json:"instructions" validate:"required,min=1,dive,required"`
	PrepTime     int          `json:"prepTime" validate:"gte=0"`
	SpiceLevel   string       `json:"spiceLevel" validate:"required,oneof=mild medium spicy"`
	Complexity   string       `json:"complexity" validate:"required,oneof=simple moderate complex"`
}

var mealCmpOpts = []cmp.Option{cmpopts.EquateEmpty()}

// mealFields has Meal's layout without its methods; cmp would otherwise call
// Meal.Equal from inside Meal.Equal.
type mealFields Meal

// Equal is a deep structural comparison. Nil and empty slices compare equal.
func (m Meal) Equal(other Meal) bool {
	return cmp.Equal(mealFields(m), mealFields(other), mealCmpOpts...)
}

// Diff returns a human readable difference between two meals, empty when equal.
func (m Meal) Diff(other Meal) string {
	return cmp.Diff(mealFields(m), mealFields(other), mealCmpOpts...)
}

// Meals holds the three slots of one day.
type Meals struct {
	Breakfast Meal `json:"breakfast"`
	Lunch     Meal `json:"lunch"`
	Dinner    Meal `json:"dinner"`
}

// Slot returns a pointer to the meal stored under t, or nil for an unknown type.
func (m *Meals) Slot(t MealType) *Meal {
	switch t {
	case Breakfast:
		return &m.Breakfast
	case Lunch:
		return &m.Lunch
	case Dinner:
		return &m.Dinner
	}
	return nil
}

// Day is one day of a plan.
type Day struct {
	DayNumber int   `json:"dayNumber" validate:"gte=1"`
	Meals     Meals `json:"meals"`
}

// NutritionSummary holds plan-wide daily averages.
type NutritionSummary struct {
	AvgDailyCalories float64 `json:"avgDailyCalories" validate:"gte=0"`
	AvgProtein       float64 `json:"avgProtein" validate:"gte=0"`
}

// MealPlan is produced whole by generation and never edited in place.
type MealPlan struct {
	Days             []Day            `json:"days" validate:"required,min=1,dive"`
	NutritionSummary NutritionSummary `json:"nutritionSummary"`
}

// MealID identifies a meal slot within a plan, e.g. "breakfast-day1".
type MealID struct {
	Type MealType
	Day  int
}

var mealIDPattern = regexp.MustCompile(`^(breakfast|lunch|dinner)-day([1-9][0-9]*)$`)

// ParseMealID parses the "{type}-day{n}" form.
func ParseMealID(s string) (MealID, error) {
	m := mealIDPattern.FindStringSubmatch(s)
	if m == nil {
		return MealID{}, fmt.Errorf("invalid meal id %q: expected {breakfast|lunch|dinner}-day{n}", s)
	}
	day, err := strconv.Atoi(m[2])
	if err != nil {
		return MealID{}, fmt.Errorf("invalid meal id %q: %w", s, err)
	}
	return MealID{Type: MealType(m[1]), Day: day}, nil
}

func (id MealID) String() string {
	return fmt.Sprintf("%s-day%d", id.Type, id.Day)
}

// DayCount returns the number of days in the plan; nil plans have none.
func (p *MealPlan) DayCount() int {
	if p == nil {
		return 0
	}
	return len(p.Days)
}

func (p *MealPlan) dayIndex(n int) int {
	for i := range p.Days {
		if p.Days[i].DayNumber == n {
			return i
		}
	}
	return -1
}

// Meal looks up the meal at id.
func (p *MealPlan) Meal(id MealID) (Meal, bool) {
	if p == nil {
		return Meal{}, false
	}
	i := p.dayIndex(id.Day)
	if i < 0 {
		return Meal{}, false
	}
	slot := p.Days[i].Meals.Slot(id.Type)
	if slot == nil {
		return Meal{}, false
	}
	return *slot, true
}

// WithMeal returns a copy of the plan with the meal at id replaced and the
// nutrition summary recomputed. The receiver is left untouched.
func (p *MealPlan) WithMeal(id MealID, meal Meal) (*MealPlan, error) {
	i := p.dayIndex(id.Day)
	if i < 0 {
		return nil, fmt.Errorf("plan has no day %d", id.Day)
	}
	out := &MealPlan{
		Days:             make([]Day, len(p.Days)),
		NutritionSummary: p.NutritionSummary,
	}
	copy(out.Days, p.Days)
	slot := out.Days[i].Meals.Slot(id.Type)
	if slot == nil {
		return nil, fmt.Errorf("unknown meal type %q", id.Type)
	}
	*slot = meal
	out.NutritionSummary = out.Summarize()
	return out, nil
}

// AllMeals flattens the plan in day order, breakfast to dinner.
func (p *MealPlan) AllMeals() []Meal {
	if p == nil {
		return nil
	}
	meals := make([]Meal, 0, len(p.Days)*MealsPerDay)
	for i := range p.Days {
		for _, t := range MealTypes {
			meals = append(meals, *p.Days[i].Meals.Slot(t))
		}
	}
	return meals
}

// Summarize computes daily calorie and protein averages from the meals.
func (p *MealPlan) Summarize() NutritionSummary {
	if p.DayCount() == 0 {
		return NutritionSummary{}
	}
	var calories, protein float64
	for _, m := range p.AllMeals() {
		calories += m.Nutrition.Calories
		protein += m.Nutrition.Protein
	}
	days := float64(len(p.Days))
	return NutritionSummary{
		AvgDailyCalories: round1(calories / days),
		AvgProtein:       round1(protein / days),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
