package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"ai-meal-coach/internal/mealplan"
	"ai-meal-coach/internal/sanitize"
)

const (
	DefaultDays = 7

	SpecialInstructionsStart = "<<<SPECIAL_INSTRUCTIONS>>>"
	SpecialInstructionsEnd   = "<<<END_SPECIAL_INSTRUCTIONS>>>"
)

// GenerationConfig controls the shape of the requested plan.
type GenerationConfig struct {
	Days int
}

// Messages is the system/user pair sent to a model.
type Messages struct {
	System string
	User   string
}

const systemMessage = `You are an expert nutritionist and meal planning assistant. You create personalized, practical and varied meal plans and always answer with a single JSON object matching the requested schema.

You must respect, in this order:
- dietary restrictions and allergies, which are never negotiable
- the diet type
- the daily calorie target
- learned preferences
- feedback given during the current planning session`

// Build renders the messages for fc. special is appended verbatim inside
// delimiters and must already be sanitized by the caller.
func Build(fc FullContext, cfg *GenerationConfig, special string) Messages {
	days := DefaultDays
	if cfg != nil && cfg.Days > 0 {
		days = cfg.Days
	}

	sections := []string{
		hardConstraints(fc.User),
		learnedPreferences(fc.User.LearnedPreferences),
		profileAndGoals(fc.User.Profile),
		sessionFeedback(fc.Session),
		generationInstructions(fc.User.Profile.Goals, days),
	}
	if s := strings.TrimSpace(special); s != "" {
		sections = append(sections, SpecialInstructionsStart+"\n"+s+"\n"+SpecialInstructionsEnd)
	}

	var rendered []string
	for _, s := range sections {
		if s != "" {
			rendered = append(rendered, s)
		}
	}
	return Messages{
		System: systemMessage,
		User:   strings.Join(rendered, "\n\n"),
	}
}

// section collects "- label: value" lines and renders nothing when empty.
type section struct {
	title string
	lines []string
}

func (s *section) add(label, value string) {
	if value == "" {
		return
	}
	if label == "" {
		s.lines = append(s.lines, "- "+value)
		return
	}
	s.lines = append(s.lines, "- "+label+": "+value)
}

func (s *section) list(label string, items []string) {
	s.add(label, strings.Join(sanitize.List(items), ", "))
}

func (s *section) String() string {
	if len(s.lines) == 0 {
		return ""
	}
	return "## " + s.title + "\n" + strings.Join(s.lines, "\n")
}

func hardConstraints(u mealplan.User) string {
	s := section{title: "Hard constraints (must follow)"}
	s.add("Diet type", sanitize.Text(u.Profile.DietType))
	if u.Profile.CalorieTarget > 0 {
		s.add("Daily calorie target", strconv.Itoa(u.Profile.CalorieTarget)+" kcal")
	}

	r := u.DietaryRestrictions
	if r == nil {
		return s.String()
	}

	var allergies []string
	for _, a := range r.Allergies {
		name := sanitize.Text(a.Allergen)
		if name == "" {
			continue
		}
		if sev := sanitize.Text(a.Severity); sev != "" {
			name += " (" + sev + ")"
		}
		allergies = append(allergies, name)
	}
	s.add("Allergies (never include)", strings.Join(allergies, ", "))
	s.list("Intolerances", r.Intolerances)
	s.list("Religious restrictions", r.ReligiousRestrictions)
	s.list("Ethical restrictions", r.EthicalRestrictions)

	var conditions []string
	for _, c := range r.MedicalConditions {
		name := sanitize.Text(c.Condition)
		if name == "" {
			continue
		}
		if note := sanitize.Text(c.DietaryNotes); note != "" {
			name += " (" + note + ")"
		}
		conditions = append(conditions, name)
	}
	s.add("Medical conditions", strings.Join(conditions, ", "))
	s.list("Textures to avoid", r.TexturePreferences.Avoid)
	s.list("Preferred textures", r.TexturePreferences.Prefer)
	return s.String()
}

func learnedPreferences(p mealplan.LearnedPreferences) string {
	s := section{title: "Learned preferences (follow when possible, weaker than hard constraints)"}
	s.list("Disliked cuisines", p.DislikedCuisines)
	s.list("Favorite cuisines", p.FavoriteCuisines)
	s.list("Disliked ingredients", p.DislikedIngredients)
	s.list("Favorite ingredients", p.FavoriteIngredients)
	s.list("Disliked meal types", p.DislikedMealTypes)
	s.list("Favorite meal types", p.FavoriteMealTypes)
	s.add("Spice level", sanitize.Text(p.SpiceLevel))
	s.add("Preferred complexity", sanitize.Text(p.PreferredComplexity))

	b := p.BehavioralPatterns
	s.list("Preferred proteins", b.ProteinPreferences)
	s.list("Preferred cooking methods", b.CookingMethodPreferences)
	if b.PrefersLeftovers {
		s.add("", "Enjoys leftovers, dinners may be reused for next day's lunch")
	}
	if b.BatchCooking {
		s.add("", "Likes batch cooking")
	}
	if b.MealPrep {
		s.add("", "Prepares meals ahead of time")
	}
	return s.String()
}

func profileAndGoals(p mealplan.Profile) string {
	s := section{title: "Profile and goals"}
	s.add("Cooking skill", sanitize.Text(p.CookingSkill))
	if p.HouseholdSize > 0 {
		s.add("Household size", strconv.Itoa(p.HouseholdSize))
	}
	s.add("Measurement system", sanitize.Text(p.MeasurementSystem))

	sp := p.SubPreferences
	s.list("Meal styles", sp.MealStylePreferences)
	if sp.MaxPrepTime > 0 {
		s.add("Maximum prep time", strconv.Itoa(sp.MaxPrepTime)+" minutes")
	}
	if sp.MaxCookTime > 0 {
		s.add("Maximum cook time", strconv.Itoa(sp.MaxCookTime)+" minutes")
	}
	if sp.BudgetPerMeal > 0 {
		s.add("Budget per meal", strconv.FormatFloat(sp.BudgetPerMeal, 'f', 2, 64))
	}
	s.list("Sourcing preferences", sp.SourcingPreferences)
	s.list("Goals", goalPhrases(p.Goals))
	return s.String()
}

var goalSeparators = strings.NewReplacer("_", " ", "-", " ")

func goalPhrases(goals []string) []string {
	out := make([]string, 0, len(goals))
	for _, g := range goals {
		out = append(out, goalSeparators.Replace(g))
	}
	return out
}

func sessionFeedback(sc *SessionContext) string {
	if sc == nil {
		return ""
	}
	var lines []string
	for _, m := range sc.Modifications {
		lines = append(lines, ModificationLine(m))
	}
	if constraints := sanitize.List(sc.TemporaryConstraints); len(constraints) > 0 {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "Temporary constraints for this plan:")
		for _, c := range constraints {
			lines = append(lines, "- "+c)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "## Feedback from this session\n" + strings.Join(lines, "\n")
}

// ModificationLine renders one rejection the way the model sees it.
func ModificationLine(m mealplan.Modification) string {
	reason := sanitize.Text(m.Reason)
	if m.IsMealRejection() {
		return fmt.Sprintf("Rejected %s: %q", sanitize.Text(m.MealID), reason)
	}
	return fmt.Sprintf("Full regeneration requested: %q", reason)
}

type goalHint struct {
	keywords []string
	hint     string
}

var goalHints = []goalHint{
	{[]string{"muscle", "strength", "bulk"}, "Distribute protein evenly across every meal to support muscle building."},
	{[]string{"time", "quick", "fast", "busy"}, "Favor quick recipes with short preparation and cooking times."},
	{[]string{"weight loss", "lose weight", "fat loss", "cut"}, "Keep portions calorie-aware and favor filling, high-fiber foods to support weight loss."},
	{[]string{"budget", "save money", "cheap", "affordable"}, "Prefer affordable staple ingredients and reuse ingredients across meals."},
}

func generationInstructions(goals []string, days int) string {
	lines := []string{
		fmt.Sprintf("Create a %d-day meal plan with %d meals per day (breakfast, lunch and dinner).", days, mealplan.MealsPerDay),
		fmt.Sprintf("Number the days from 1 to %d and give every meal its nutrition per serving.", days),
	}
	joined := strings.ToLower(strings.Join(goalPhrases(goals), " | "))
	for _, h := range goalHints {
		for _, k := range h.keywords {
			if strings.Contains(joined, k) {
				lines = append(lines, h.hint)
				break
			}
		}
	}
	return "## Generation instructions\n" + strings.Join(lines, "\n")
}
