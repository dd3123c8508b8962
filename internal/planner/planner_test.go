package planner

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"ai-meal-coach/internal/llm"
	"ai-meal-coach/internal/mealplan"
	"ai-meal-coach/internal/mealplan/mealplantest"
	"ai-meal-coach/internal/prompt"
	"ai-meal-coach/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockModelClient answers with queued responses and records every request.
type MockModelClient struct {
	mu        sync.Mutex
	responses []llm.ContentResponse
	err       error
	requests  []llm.CompletionRequest
}

func (m *MockModelClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	if len(m.responses) == 0 {
		return llm.ContentResponse{}, errors.New("no more responses")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func planResponse(t *testing.T, plan *mealplan.MealPlan, tokens int) llm.ContentResponse {
	t.Helper()
	b, err := json.Marshal(plan)
	require.NoError(t, err)
	return llm.ContentResponse{
		Content: string(b),
		Usage:   shared.TokenUsage{PromptTokens: tokens / 2, CompletionTokens: tokens - tokens/2, TotalTokens: tokens},
	}
}

func newTestPlanner(client llm.ModelClient) *Planner {
	reg := llm.NewRegistry()
	reg.Register(llm.ProviderOpenAI, "gpt-test", client)
	reg.Register(llm.ProviderAnthropic, "claude-test", client)
	return NewPlanner(Config{
		DefaultProvider:  llm.ProviderOpenAI,
		Temperature:      0.7,
		RetryTemperature: 0.9,
		MaxTokens:        4000,
	}, reg, zap.NewNop())
}

func sessionContext(plan *mealplan.MealPlan) prompt.FullContext {
	return prompt.BuildFullContext(mealplan.User{ID: "u1"}, &mealplan.Session{ID: "s1", CurrentMealPlan: plan})
}

func TestGenerate(t *testing.T) {
	t.Run("valid response", func(t *testing.T) {
		client := &MockModelClient{responses: []llm.ContentResponse{planResponse(t, mealplantest.Plan(7), 120)}}
		p := newTestPlanner(client)

		res, err := p.Generate(context.Background(), prompt.BuildFullContext(mealplan.User{ID: "u1"}, nil), Options{})
		require.NoError(t, err)

		assert.Equal(t, 7, res.Plan.DayCount())
		assert.Equal(t, 120, res.Usage.TotalTokens)
		assert.Equal(t, "gpt-test", res.Usage.Model)
		assert.Equal(t, llm.ProviderOpenAI, res.Provider)
		assert.Equal(t, ModeGenerate, res.Mode)
		assert.Equal(t, 1, res.Attempts)
		assert.Equal(t, 1500.0, res.Plan.NutritionSummary.AvgDailyCalories)

		require.Len(t, client.requests, 1)
		req := client.requests[0]
		assert.Equal(t, 0.7, req.Temperature)
		assert.Equal(t, 4000, req.MaxTokens)
		assert.Equal(t, "meal_plan", req.SchemaName)
		assert.NotEmpty(t, req.Schema)
		assert.Contains(t, req.User, "Create a 7-day meal plan")
	})

	t.Run("options override defaults", func(t *testing.T) {
		client := &MockModelClient{responses: []llm.ContentResponse{planResponse(t, mealplantest.Plan(3), 0)}}
		p := newTestPlanner(client)
		temp := 0.2

		res, err := p.Generate(context.Background(), prompt.BuildFullContext(mealplan.User{}, nil), Options{
			Provider:     llm.ProviderAnthropic,
			Temperature:  &temp,
			MaxTokens:    100,
			Days:         3,
			SystemPrompt: "custom system",
			Instructions: "use the slow cooker",
		})
		require.NoError(t, err)

		assert.Equal(t, llm.ProviderAnthropic, res.Provider)
		assert.Equal(t, 0, res.Usage.TotalTokens)
		req := client.requests[0]
		assert.Equal(t, "claude-test", req.Model)
		assert.Equal(t, 0.2, req.Temperature)
		assert.Equal(t, 100, req.MaxTokens)
		assert.Equal(t, "custom system", req.System)
		assert.Contains(t, req.User, prompt.SpecialInstructionsStart+"\nuse the slow cooker")
	})

	t.Run("missing usage totals are filled in", func(t *testing.T) {
		resp := planResponse(t, mealplantest.Plan(7), 0)
		resp.Usage = shared.TokenUsage{PromptTokens: 10, CompletionTokens: 5}
		p := newTestPlanner(&MockModelClient{responses: []llm.ContentResponse{resp}})

		res, err := p.Generate(context.Background(), prompt.FullContext{}, Options{})
		require.NoError(t, err)
		assert.Equal(t, 15, res.Usage.TotalTokens)
	})

	t.Run("invalid output is not retried", func(t *testing.T) {
		bad := mealplantest.Plan(7)
		bad.Days[0].Meals.Breakfast.Name = ""
		bad.Days[2].Meals.Dinner.SpiceLevel = "volcanic"
		client := &MockModelClient{responses: []llm.ContentResponse{planResponse(t, bad, 10), planResponse(t, mealplantest.Plan(7), 10)}}
		p := newTestPlanner(client)

		_, err := p.Generate(context.Background(), prompt.FullContext{}, Options{})
		var verr *GenerationValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, client.requests, 1)

		paths := make([]string, 0, len(verr.Violations))
		for _, v := range verr.Violations {
			paths = append(paths, v.Path)
		}
		assert.Contains(t, paths, "days[0].meals.breakfast.name")
		assert.Contains(t, paths, "days[2].meals.dinner.spiceLevel")
		assert.True(t, IsRetryable(err))
	})

	t.Run("transport error is wrapped", func(t *testing.T) {
		p := newTestPlanner(&MockModelClient{err: errors.New("connection reset")})
		_, err := p.Generate(context.Background(), prompt.FullContext{}, Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
		var perr *ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, llm.ProviderOpenAI, perr.Provider)
		assert.True(t, IsRetryable(err))
	})

	t.Run("unknown provider", func(t *testing.T) {
		p := newTestPlanner(&MockModelClient{})
		_, err := p.Generate(context.Background(), prompt.FullContext{}, Options{Provider: llm.ProviderGemini})
		assert.ErrorIs(t, err, llm.ErrProviderNotConfigured)
	})
}

func TestRegenerateSingleMeal(t *testing.T) {
	prev := mealplantest.Plan(3)
	target := mealplan.MealID{Type: mealplan.Breakfast, Day: 1}

	withNewBreakfast := func() *mealplan.MealPlan {
		// The model also "drifts" another meal; only the target may change.
		out := mealplantest.Plan(3)
		out.Days[0].Meals.Breakfast = mealplantest.Meal("Tofu Scramble", "American", "tofu", "spinach")
		out.Days[1].Meals.Lunch.Name = "Drifted Lunch"
		return out
	}

	t.Run("only the target meal changes", func(t *testing.T) {
		client := &MockModelClient{responses: []llm.ContentResponse{planResponse(t, withNewBreakfast(), 50)}}
		p := newTestPlanner(client)

		res, err := p.RegenerateSingleMeal(context.Background(), sessionContext(prev), "breakfast-day1", "has mushrooms", Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Attempts)
		assert.Equal(t, ModeRegenerateMeal, res.Mode)

		for d := 1; d <= 3; d++ {
			for _, mt := range mealplan.MealTypes {
				id := mealplan.MealID{Type: mt, Day: d}
				got, _ := res.Plan.Meal(id)
				old, _ := prev.Meal(id)
				if id == target {
					assert.False(t, got.Equal(old))
					assert.Equal(t, "Tofu Scramble", got.Name)
					continue
				}
				assert.True(t, got.Equal(old), "meal %s changed: %s", id, got.Diff(old))
			}
		}
		assert.Equal(t, "Oatmeal 1", prev.Days[0].Meals.Breakfast.Name, "input plan must not be mutated")

		req := client.requests[0]
		assert.Contains(t, req.User, "Replace ONLY the meal breakfast-day1")
		assert.Contains(t, req.User, "has mushrooms")
		assert.Contains(t, req.User, `"Oatmeal 1"`)
	})

	t.Run("identical meal is retried once at 0.9", func(t *testing.T) {
		client := &MockModelClient{responses: []llm.ContentResponse{
			planResponse(t, mealplantest.Plan(3), 40),
			planResponse(t, withNewBreakfast(), 60),
		}}
		p := newTestPlanner(client)

		res, err := p.RegenerateSingleMeal(context.Background(), sessionContext(prev), "breakfast-day1", "bland", Options{})
		require.NoError(t, err)

		assert.Equal(t, 2, res.Attempts)
		assert.Equal(t, 100, res.Usage.TotalTokens)
		require.Len(t, client.requests, 2)
		assert.Equal(t, 0.7, client.requests[0].Temperature)
		assert.Equal(t, 0.9, client.requests[1].Temperature)
		assert.Equal(t, client.requests[0].User, client.requests[1].User)
		got, _ := res.Plan.Meal(target)
		assert.Equal(t, "Tofu Scramble", got.Name)
	})

	t.Run("stalls after two identical meals", func(t *testing.T) {
		client := &MockModelClient{responses: []llm.ContentResponse{
			planResponse(t, mealplantest.Plan(3), 40),
			planResponse(t, mealplantest.Plan(3), 40),
			planResponse(t, withNewBreakfast(), 40),
		}}
		p := newTestPlanner(client)

		res, err := p.RegenerateSingleMeal(context.Background(), sessionContext(prev), "breakfast-day1", "bland", Options{})
		assert.Nil(t, res)
		var stalled *RegenerationStalledError
		require.ErrorAs(t, err, &stalled)
		assert.Equal(t, "breakfast-day1", stalled.MealID)
		assert.Equal(t, 2, stalled.Attempts)
		assert.Len(t, client.requests, 2)
		assert.True(t, IsRetryable(err))
	})

	t.Run("wrong day count is a validation error", func(t *testing.T) {
		client := &MockModelClient{responses: []llm.ContentResponse{planResponse(t, mealplantest.Plan(2), 10)}}
		p := newTestPlanner(client)

		_, err := p.RegenerateSingleMeal(context.Background(), sessionContext(prev), "lunch-day2", "", Options{})
		var verr *GenerationValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "days", verr.Violations[0].Path)
	})

	t.Run("precondition errors never call the model", func(t *testing.T) {
		client := &MockModelClient{}
		p := newTestPlanner(client)

		_, err := p.RegenerateSingleMeal(context.Background(), sessionContext(prev), "brunch-day1", "", Options{})
		assert.Error(t, err)
		_, err = p.RegenerateSingleMeal(context.Background(), sessionContext(prev), "dinner-day9", "", Options{})
		assert.Error(t, err)
		_, err = p.RegenerateSingleMeal(context.Background(), sessionContext(nil), "dinner-day1", "", Options{})
		assert.ErrorIs(t, err, ErrNoCurrentPlan)
		assert.Empty(t, client.requests)
	})
}

func TestRegenerateFullPlan(t *testing.T) {
	prev := mealplantest.Plan(2)
	next := &mealplan.MealPlan{}
	for d := 1; d <= 2; d++ {
		next.Days = append(next.Days, mealplan.Day{DayNumber: d, Meals: mealplan.Meals{
			Breakfast: mealplantest.Meal("Granola", "American"),
			Lunch:     mealplantest.Meal("Falafel Wrap", "Middle Eastern"),
			Dinner:    mealplantest.Meal("Mushroom Risotto", "Italian"),
		}})
	}
	client := &MockModelClient{responses: []llm.ContentResponse{planResponse(t, next, 80)}}
	p := newTestPlanner(client)

	res, err := p.RegenerateFullPlan(context.Background(), sessionContext(prev), "too repetitive", Options{})
	require.NoError(t, err)

	assert.Equal(t, ModeRegeneratePlan, res.Mode)
	assert.Equal(t, 2, res.Plan.DayCount())
	req := client.requests[0]
	assert.Contains(t, req.User, "too repetitive")
	assert.Contains(t, req.User, "- Oatmeal 1")
	assert.Contains(t, req.User, "- Veggie Curry 2")
	assert.Contains(t, req.User, "Create a 2-day meal plan")
	assert.Equal(t, "planner:regenerate-plan", res.Meta().AgentName)
}

func TestParsePlan(t *testing.T) {
	valid, err := json.Marshal(mealplantest.Plan(1))
	require.NoError(t, err)

	t.Run("code fences are stripped", func(t *testing.T) {
		plan, err := ParsePlan("```json\n"+string(valid)+"\n```", 1)
		require.NoError(t, err)
		assert.Equal(t, 1, plan.DayCount())
	})

	t.Run("prose around the object is ignored", func(t *testing.T) {
		_, err := ParsePlan("Here you go:\n"+string(valid)+"\nEnjoy!", 0)
		assert.NoError(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParsePlan("I cannot help with that", 1)
		var verr *GenerationValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "", verr.Violations[0].Path)
		assert.True(t, strings.HasPrefix(verr.Violations[0].Message, "response is not valid JSON"))
	})

	t.Run("wrong type reports the field", func(t *testing.T) {
		_, err := ParsePlan(`{"days":[{"dayNumber":"one"}]}`, 1)
		var verr *GenerationValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Violations[0].Path, "dayNumber")
	})

	t.Run("day numbering", func(t *testing.T) {
		plan := mealplantest.Plan(2)
		plan.Days[1].DayNumber = 5
		b, _ := json.Marshal(plan)
		_, err := ParsePlan(string(b), 2)
		var verr *GenerationValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "days[1].dayNumber", verr.Violations[0].Path)
	})

	t.Run("empty plan", func(t *testing.T) {
		_, err := ParsePlan(`{"days":[]}`, 7)
		var verr *GenerationValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "days", verr.Violations[0].Path)
	})
}
