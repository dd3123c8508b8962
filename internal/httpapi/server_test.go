package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ai-meal-coach/internal/app"
	"ai-meal-coach/internal/config"
	"ai-meal-coach/internal/database"
	"ai-meal-coach/internal/llm"
	"ai-meal-coach/internal/mealplan/mealplantest"
	"ai-meal-coach/internal/planner"
	"ai-meal-coach/internal/prompt"
	"ai-meal-coach/internal/shared"
	"ai-meal-coach/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testSecret = []byte("test-secret")

// stubGenerator returns a fresh 7-day plan unless err is set.
type stubGenerator struct {
	mu  sync.Mutex
	err error
}

func (g *stubGenerator) setErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

func (g *stubGenerator) result(mode planner.Mode) (*planner.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	plan := mealplantest.Plan(7)
	if mode == planner.ModeRegenerateMeal {
		plan.Days[0].Meals.Breakfast = mealplantest.Meal("Tofu Scramble", "American")
	}
	return &planner.Result{
		Plan:     plan,
		Usage:    shared.TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
		Provider: llm.ProviderOpenAI,
		Mode:     mode,
		Duration: 1500 * time.Millisecond,
		Attempts: 1,
	}, nil
}

func (g *stubGenerator) Generate(context.Context, prompt.FullContext, planner.Options) (*planner.Result, error) {
	return g.result(planner.ModeGenerate)
}

func (g *stubGenerator) RegenerateSingleMeal(context.Context, prompt.FullContext, string, string, planner.Options) (*planner.Result, error) {
	return g.result(planner.ModeRegenerateMeal)
}

func (g *stubGenerator) RegenerateFullPlan(context.Context, prompt.FullContext, string, planner.Options) (*planner.Result, error) {
	return g.result(planner.ModeRegeneratePlan)
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
	gen     *stubGenerator
}

func newTestAPI(t *testing.T, perMinute int) *testAPI {
	t.Helper()
	dir := t.TempDir()
	db, err := database.NewDB(filepath.Join(dir, "api.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gen := &stubGenerator{}
	svc := app.NewService(database.NewRepository(db.SQL), gen, app.NewBackground(zap.NewNop(), time.Second), zap.NewNop())
	t.Cleanup(svc.WaitForBackground)

	cfg := &config.Config{JWTSecret: string(testSecret), RateLimitAIPerMinute: perMinute}
	srv := NewServer(cfg, svc, db.SQL, dir, zap.NewNop())
	return &testAPI{t: t, handler: srv.Handler(), gen: gen}
}

type response struct {
	Status    int
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	Retryable bool            `json:"retryable"`
	Metadata  map[string]any  `json:"metadata"`
}

func (a *testAPI) do(method, path, userID string, body any) response {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		token, err := NewToken(testSecret, userID, time.Hour)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var resp response
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	resp.Status = rec.Code
	return resp
}

func (a *testAPI) register(userID string) {
	a.t.Helper()
	resp := a.do(http.MethodPost, "/users/me", userID, map[string]any{
		"email":   userID + "@example.com",
		"profile": map[string]any{"dietType": "vegetarian", "calorieTarget": 1800, "householdSize": 2},
	})
	require.Equal(a.t, http.StatusCreated, resp.Status, resp.Message)
}

func (a *testAPI) startSession(userID string) string {
	a.t.Helper()
	resp := a.do(http.MethodPost, "/meal-plans", userID, nil)
	require.Equal(a.t, http.StatusCreated, resp.Status, resp.Message)
	var out struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	require.NoError(a.t, json.Unmarshal(resp.Data, &out))
	return out.Session.ID
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, 10)
	resp := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.True(t, resp.Success)
	assert.Contains(t, string(resp.Data), `"database":"ok"`)
}

func TestAuthentication(t *testing.T) {
	api := newTestAPI(t, 10)

	resp := api.do(http.MethodGet, "/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.False(t, resp.Success)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	other, err := NewToken([]byte("other-secret"), "u1", time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+other)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := NewToken(testSecret, "u1", -time.Minute)
	require.NoError(t, err)
	_, err = parseToken(testSecret, expired)
	assert.Error(t, err)

	resp = api.do(http.MethodGet, "/users/me", "u1", nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "NOT_FOUND", resp.Code)
}

func TestSessionFlow(t *testing.T) {
	api := newTestAPI(t, 100)
	api.register("u1")
	api.register("u2")

	sessionID := api.startSession("u1")
	path := "/meal-plans/sessions/" + sessionID

	resp := api.do(http.MethodGet, path, "u2", nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "UNAUTHORIZED", resp.Code)

	resp = api.do(http.MethodPost, path+"/regenerate-meal", "u1", map[string]string{"mealId": "brunch-day1"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = api.do(http.MethodPost, path+"/regenerate-meal", "u1", map[string]string{"mealId": "breakfast-day1", "reason": "has mushrooms"})
	require.Equal(t, http.StatusOK, resp.Status, resp.Message)
	assert.Contains(t, string(resp.Data), "Tofu Scramble")
	assert.Contains(t, string(resp.Data), `"durationMs":1500`)

	resp = api.do(http.MethodPost, path+"/constraints", "u1", map[string]string{"constraint": "no oven this week"})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Data), "no oven this week")

	resp = api.do(http.MethodPost, path+"/regenerate", "u1", map[string]string{"reason": "too bland"})
	require.Equal(t, http.StatusOK, resp.Status)

	resp = api.do(http.MethodPost, path+"/confirm", "u1", map[string]string{"startDate": "2026-03-01"})
	require.Equal(t, http.StatusOK, resp.Status, resp.Message)
	var confirmed struct {
		MealPlan struct {
			ID      string `json:"id"`
			EndDate string `json:"endDate"`
		} `json:"mealPlan"`
		Session struct {
			Status string `json:"status"`
		} `json:"session"`
		ReplacedPlanIDs []string `json:"replacedPlanIds"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &confirmed))
	assert.Equal(t, "2026-03-07", confirmed.MealPlan.EndDate)
	assert.Equal(t, "confirmed", confirmed.Session.Status)
	assert.Empty(t, confirmed.ReplacedPlanIDs)
	planID := confirmed.MealPlan.ID

	resp = api.do(http.MethodPost, path+"/regenerate", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "INVALID_STATE", resp.Code)

	// A second plan overlapping the first needs consent.
	second := api.startSession("u1")
	resp = api.do(http.MethodPost, "/meal-plans/sessions/"+second+"/confirm", "u1", map[string]string{"startDate": "2026-03-05"})
	assert.Equal(t, http.StatusConflict, resp.Status)
	assert.Equal(t, []any{planID}, resp.Metadata["conflictingPlanIds"])

	resp = api.do(http.MethodPost, "/meal-plans/sessions/"+second+"/confirm", "u1", map[string]any{"startDate": "2026-03-05", "replaceConflicting": true})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Data), planID)

	resp = api.do(http.MethodGet, "/meal-plans/"+planID, "u1", nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp = api.do(http.MethodGet, "/meal-plans/calendar?from=2026-03-01&to=2026-03-31", "u1", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	var calendar []struct {
		ID        string `json:"id"`
		StartDate string `json:"startDate"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &calendar))
	require.Len(t, calendar, 1)
	assert.Equal(t, "2026-03-05", calendar[0].StartDate)

	resp = api.do(http.MethodGet, "/meal-plans/calendar?from=2026-03-31&to=2026-03-01", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = api.do(http.MethodGet, "/meal-plans/"+calendar[0].ID+"/shopping-list", "u1", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Data), `"servings":2`)

	resp = api.do(http.MethodGet, "/meal-plans/"+calendar[0].ID, "u2", nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp = api.do(http.MethodDelete, "/meal-plans/"+calendar[0].ID, "u1", nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	resp = api.do(http.MethodGet, "/meal-plans", "u1", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, "[]", string(resp.Data))

	resp = api.do(http.MethodDelete, path, "u1", nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	resp = api.do(http.MethodGet, path, "u1", nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestUserRoutes(t *testing.T) {
	api := newTestAPI(t, 10)

	resp := api.do(http.MethodPost, "/users/me", "u1", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.NotNil(t, resp.Metadata["violations"])

	api.register("u1")

	resp = api.do(http.MethodPut, "/users/me/profile", "u1", map[string]any{"cookingSkill": "advanced", "householdSize": 4})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Data), `"householdSize":4`)

	resp = api.do(http.MethodPut, "/users/me/restrictions", "u1", map[string]any{
		"allergies": []map[string]string{{"allergen": "peanuts", "severity": "severe"}},
	})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Data), "peanuts")

	resp = api.do(http.MethodPut, "/users/me/preferences", "u1", map[string]any{"spiceLevel": "volcanic"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = api.do(http.MethodPut, "/users/me/preferences", "u1", map[string]any{"favoriteCuisines": []string{"thai"}, "spiceLevel": "spicy"})
	require.Equal(t, http.StatusOK, resp.Status)
	resp = api.do(http.MethodGet, "/users/me", "u1", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Data), `"favoriteCuisines":["thai"]`)
}

func TestGenerationFailures(t *testing.T) {
	api := newTestAPI(t, 100)
	api.register("u1")

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid model output", &planner.GenerationValidationError{Violations: []validation.Violation{{Path: "days", Message: "is required"}}}, http.StatusBadGateway, "GENERATION_INVALID"},
		{"stalled", &planner.RegenerationStalledError{MealID: "lunch-day1", Attempts: 2}, http.StatusServiceUnavailable, "REGENERATION_STALLED"},
		{"provider down", &planner.ProviderError{Provider: llm.ProviderAnthropic, Err: errors.New("503")}, http.StatusBadGateway, "PROVIDER_ERROR"},
		{"provider timed out", &planner.ProviderError{Provider: llm.ProviderOpenAI, Err: fmt.Errorf("complete: %w", context.DeadlineExceeded)}, http.StatusGatewayTimeout, "TIMEOUT"},
		{"provider missing", fmt.Errorf("resolve: %w", llm.ErrProviderNotConfigured), http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api.gen.setErr(tt.err)
			resp := api.do(http.MethodPost, "/meal-plans", "u1", nil)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.code, resp.Code)
			assert.False(t, resp.Success)
			assert.NotContains(t, resp.Message, "disk on fire")
		})
	}

	api.gen.setErr(nil)
	resp := api.do(http.MethodGet, "/meal-plans", "u1", nil)
	assert.JSONEq(t, "[]", string(resp.Data), "failed generations must not leave plans behind")
}

func TestRateLimit(t *testing.T) {
	api := newTestAPI(t, 2)
	api.register("u1")
	api.register("u2")

	api.startSession("u1")
	api.startSession("u1")
	resp := api.do(http.MethodPost, "/meal-plans", "u1", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.True(t, resp.Retryable)

	// Buckets are per user and ordinary routes are not limited.
	api.startSession("u2")
	resp = api.do(http.MethodGet, "/meal-plans", "u1", nil)
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestDecode_RejectsMalformedBody(t *testing.T) {
	api := newTestAPI(t, 10)
	api.register("u1")

	req := httptest.NewRequest(http.MethodPut, "/users/me/profile", bytes.NewBufferString("{not json"))
	token, err := NewToken(testSecret, "u1", time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
