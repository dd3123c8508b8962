package mealplan

import "time"

// SubPreferences are optional fine-grained profile settings.
type SubPreferences struct {
	MealStylePreferences []string `json:"mealStylePreferences,omitempty"`
	MaxPrepTime          int      `json:"maxPrepTime,omitempty" validate:"gte=0"`
	MaxCookTime          int      `json:"maxCookTime,omitempty" validate:"gte=0"`
	BudgetPerMeal        float64  `json:"budgetPerMeal,omitempty" validate:"gte=0"`
	SourcingPreferences  []string `json:"sourcingPreferences,omitempty"`
}

// Profile is what the user tells us about themselves.
type Profile struct {
	Name              string         `json:"name,omitempty" validate:"max=100"`
	DietType          string         `json:"dietType,omitempty" validate:"max=50"`
	CalorieTarget     int            `json:"calorieTarget,omitempty" validate:"gte=0,lte=10000"`
	CookingSkill      string         `json:"cookingSkill,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
	HouseholdSize     int            `json:"householdSize,omitempty" validate:"gte=0,lte=20"`
	MeasurementSystem string         `json:"measurementSystem,omitempty" validate:"omitempty,oneof=metric imperial"`
	Goals             []string       `json:"goals,omitempty" validate:"max=10,dive,max=50"`
	SubPreferences    SubPreferences `json:"subPreferences"`
}

// BehavioralPatterns are soft signals about how the user likes to cook.
type BehavioralPatterns struct {
	ProteinPreferences       []string `json:"proteinPreferences,omitempty"`
	CookingMethodPreferences []string `json:"cookingMethodPreferences,omitempty"`
	PrefersLeftovers         bool     `json:"prefersLeftovers,omitempty"`
	BatchCooking             bool     `json:"batchCooking,omitempty"`
	MealPrep                 bool     `json:"mealPrep,omitempty"`
}

// LearnedPreferences are derived from history or set explicitly by the user.
type LearnedPreferences struct {
	FavoriteCuisines    []string           `json:"favoriteCuisines"`
	DislikedCuisines    []string           `json:"dislikedCuisines"`
	FavoriteIngredients []string           `json:"favoriteIngredients"`
	DislikedIngredients []string           `json:"dislikedIngredients"`
	FavoriteMealTypes   []string           `json:"favoriteMealTypes"`
	DislikedMealTypes   []string           `json:"dislikedMealTypes"`
	SpiceLevel          string             `json:"spiceLevel,omitempty" validate:"omitempty,oneof=mild medium spicy"`
	PreferredComplexity string             `json:"preferredComplexity,omitempty" validate:"omitempty,oneof=simple moderate complex"`
	BehavioralPatterns  BehavioralPatterns `json:"behavioralPatterns"`
}

// Allergy pairs an allergen with how bad exposure is.
type Allergy struct {
	Allergen string `json:"allergen" validate:"required,max=50"`
	Severity string `json:"severity,omitempty" validate:"omitempty,oneof=mild moderate severe"`
}

// MedicalCondition may carry a free-form dietary note.
type MedicalCondition struct {
	Condition    string `json:"condition" validate:"required,max=100"`
	DietaryNotes string `json:"dietaryNotes,omitempty" validate:"max=300"`
}

// TexturePreferences lists textures to avoid and to favor.
type TexturePreferences struct {
	Avoid  []string `json:"avoid,omitempty"`
	Prefer []string `json:"prefer,omitempty"`
}

// DietaryRestrictions are hard limits a plan must respect.
type DietaryRestrictions struct {
	Allergies             []Allergy          `json:"allergies,omitempty" validate:"dive"`
	Intolerances          []string           `json:"intolerances,omitempty"`
	ReligiousRestrictions []string           `json:"religiousRestrictions,omitempty"`
	EthicalRestrictions   []string           `json:"ethicalRestrictions,omitempty"`
	MedicalConditions     []MedicalCondition `json:"medicalConditions,omitempty" validate:"dive"`
	TexturePreferences    TexturePreferences `json:"texturePreferences"`
}

// User is owned by the account and only changed through explicit updates.
type User struct {
	ID                  string               `json:"id"`
	Email               string               `json:"email"`
	Profile             Profile              `json:"profile"`
	LearnedPreferences  LearnedPreferences   `json:"learnedPreferences"`
	DietaryRestrictions *DietaryRestrictions `json:"dietaryRestrictions,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}
