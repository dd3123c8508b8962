// Package planner asks a model for meal plans and makes sure what comes back
// is a valid plan, and for single-meal regeneration, an actually different meal.
package planner

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"ai-meal-coach/internal/config"
	"ai-meal-coach/internal/llm"
	"ai-meal-coach/internal/mealplan"
	"ai-meal-coach/internal/prompt"
	"ai-meal-coach/internal/sanitize"
	"ai-meal-coach/internal/shared"

	"go.uber.org/zap"
)

//go:embed schema.json
var planSchema []byte

//go:embed single_meal_prompt.md
var singleMealPrompt string

//go:embed full_plan_prompt.md
var fullPlanPrompt string

var (
	singleMealTmpl = template.Must(template.New("single_meal").Parse(singleMealPrompt))
	fullPlanTmpl   = template.Must(template.New("full_plan").Parse(fullPlanPrompt))
)

// Mode names the kind of generation, used for logs and metrics.
type Mode string

const (
	ModeGenerate       Mode = "generate"
	ModeRegenerateMeal Mode = "regenerate-meal"
	ModeRegeneratePlan Mode = "regenerate-plan"
)

// Config holds the generation defaults. Build it once from configuration and
// pass it in; the planner never reads the environment.
type Config struct {
	DefaultProvider  llm.Provider
	Temperature      float64
	RetryTemperature float64
	MaxTokens        int
	Days             int
}

// NewConfig derives planner defaults from the AI configuration.
func NewConfig(ai config.AIConfig) (Config, error) {
	provider, err := llm.ParseProvider(ai.DefaultProvider)
	if err != nil {
		return Config{}, err
	}
	retry := ai.RetryTemperature
	if retry == 0 {
		retry = 0.9
	}
	return Config{
		DefaultProvider:  provider,
		Temperature:      ai.Temperature,
		RetryTemperature: retry,
		MaxTokens:        ai.MaxTokens,
		Days:             prompt.DefaultDays,
	}, nil
}

// Options override Config for a single call. Zero values mean "use the default".
type Options struct {
	Provider     llm.Provider
	Model        string
	Temperature  *float64
	MaxTokens    int
	Days         int
	SystemPrompt string
	Instructions string
}

// Result is a validated plan plus what it cost to produce.
type Result struct {
	Plan     *mealplan.MealPlan
	Usage    shared.TokenUsage
	Provider llm.Provider
	Mode     Mode
	Duration time.Duration
	Attempts int
}

// Meta converts the result for the metrics store.
func (r *Result) Meta() shared.AgentMeta {
	return shared.AgentMeta{
		AgentName: "planner:" + string(r.Mode),
		Usage:     r.Usage,
		Latency:   r.Duration,
	}
}

// Resolver hands out a client and default model for a provider.
type Resolver interface {
	Resolve(p llm.Provider) (llm.ModelClient, string, error)
}

// Planner handles the generation of meal plans.
type Planner struct {
	cfg    Config
	models Resolver
	logger *zap.Logger
}

// NewPlanner creates a new Planner instance.
func NewPlanner(cfg Config, models Resolver, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Days <= 0 {
		cfg.Days = prompt.DefaultDays
	}
	return &Planner{cfg: cfg, models: models, logger: logger}
}

// Generate creates a fresh plan for the context.
func (p *Planner) Generate(ctx context.Context, fc prompt.FullContext, opts Options) (*Result, error) {
	start := time.Now()
	days := p.days(opts, nil)

	out, err := p.attempt(ctx, fc, days, sanitize.Text(opts.Instructions), opts, p.temperature(opts))
	if err != nil {
		return nil, err
	}
	return p.finish(ModeGenerate, out.plan, out.usage, out.provider, start, 1), nil
}

type singleMealData struct {
	MealID          string
	CurrentMealName string
	Reason          string
	Days            int
	PlanJSON        string
	Instructions    string
}

// RegenerateSingleMeal replaces one meal of the session's current plan. Every
// other meal is carried over unchanged. If the model returns the same meal
// again it is asked once more at the retry temperature before giving up with
// a RegenerationStalledError.
func (p *Planner) RegenerateSingleMeal(ctx context.Context, fc prompt.FullContext, mealID, reason string, opts Options) (*Result, error) {
	start := time.Now()
	id, err := mealplan.ParseMealID(mealID)
	if err != nil {
		return nil, err
	}
	prev := fc.CurrentPlan()
	if prev == nil {
		return nil, ErrNoCurrentPlan
	}
	rejected, ok := prev.Meal(id)
	if !ok {
		return nil, fmt.Errorf("meal %s is not part of the current plan", id)
	}

	planJSON, err := json.MarshalIndent(prev, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal current plan: %w", err)
	}
	special, err := render(singleMealTmpl, singleMealData{
		MealID:          id.String(),
		CurrentMealName: sanitize.Text(rejected.Name),
		Reason:          sanitize.Text(reason),
		Days:            prev.DayCount(),
		PlanJSON:        string(planJSON),
		Instructions:    sanitize.Text(opts.Instructions),
	})
	if err != nil {
		return nil, err
	}

	temperatures := []float64{p.temperature(opts), p.cfg.RetryTemperature}
	var usage shared.TokenUsage
	for i, temperature := range temperatures {
		out, err := p.attempt(ctx, fc, prev.DayCount(), special, opts, temperature)
		if err != nil {
			return nil, err
		}
		usage = usage.Add(out.usage)

		candidate, _ := out.plan.Meal(id)
		if !candidate.Equal(rejected) {
			plan, err := prev.WithMeal(id, candidate)
			if err != nil {
				return nil, err
			}
			return p.finish(ModeRegenerateMeal, plan, usage, out.provider, start, i+1), nil
		}
		p.logger.Warn("regenerated meal is identical to the rejected one",
			zap.String("meal_id", id.String()),
			zap.Int("attempt", i+1),
			zap.Float64("temperature", temperature),
		)
	}
	return nil, &RegenerationStalledError{MealID: id.String(), Attempts: len(temperatures)}
}

type fullPlanData struct {
	Reason        string
	Days          int
	PreviousMeals []string
	Instructions  string
}

// RegenerateFullPlan asks for a materially different plan of the same length.
func (p *Planner) RegenerateFullPlan(ctx context.Context, fc prompt.FullContext, reason string, opts Options) (*Result, error) {
	start := time.Now()
	prev := fc.CurrentPlan()
	days := p.days(opts, prev)

	special, err := render(fullPlanTmpl, fullPlanData{
		Reason:        sanitize.Text(reason),
		Days:          days,
		PreviousMeals: mealNames(prev),
		Instructions:  sanitize.Text(opts.Instructions),
	})
	if err != nil {
		return nil, err
	}

	out, err := p.attempt(ctx, fc, days, special, opts, p.temperature(opts))
	if err != nil {
		return nil, err
	}
	return p.finish(ModeRegeneratePlan, out.plan, out.usage, out.provider, start, 1), nil
}

type attemptResult struct {
	plan     *mealplan.MealPlan
	usage    shared.TokenUsage
	provider llm.Provider
}

func (p *Planner) attempt(
	ctx context.Context,
	fc prompt.FullContext,
	days int,
	special string,
	opts Options,
	temperature float64,
) (attemptResult, error) {
	provider := opts.Provider
	if provider == "" {
		provider = p.cfg.DefaultProvider
	}
	client, model, err := p.models.Resolve(provider)
	if err != nil {
		return attemptResult{}, err
	}
	if opts.Model != "" {
		model = opts.Model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.cfg.MaxTokens
	}

	msgs := prompt.Build(fc, &prompt.GenerationConfig{Days: days}, special)
	if opts.SystemPrompt != "" {
		msgs.System = opts.SystemPrompt
	}

	resp, err := client.Complete(ctx, llm.CompletionRequest{
		Model:       model,
		System:      msgs.System,
		User:        msgs.User,
		SchemaName:  "meal_plan",
		Schema:      planSchema,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return attemptResult{}, &ProviderError{Provider: provider, Err: err}
	}

	usage := resp.Usage.Normalize()
	if usage.Model == "" {
		usage.Model = model
	}
	plan, err := ParsePlan(resp.Content, days)
	if err != nil {
		p.logger.Warn("model returned an invalid meal plan",
			zap.String("provider", string(provider)),
			zap.String("model", usage.Model),
			zap.Error(err),
		)
		return attemptResult{}, err
	}
	return attemptResult{plan: plan, usage: usage, provider: provider}, nil
}

func (p *Planner) finish(mode Mode, plan *mealplan.MealPlan, usage shared.TokenUsage, provider llm.Provider, start time.Time, attempts int) *Result {
	r := &Result{
		Plan:     plan,
		Usage:    usage,
		Provider: provider,
		Mode:     mode,
		Duration: time.Since(start),
		Attempts: attempts,
	}
	p.logger.Info("meal plan generated",
		zap.String("mode", string(mode)),
		zap.String("provider", string(provider)),
		zap.String("model", usage.Model),
		zap.Int("total_tokens", usage.TotalTokens),
		zap.Int("attempts", attempts),
		zap.Duration("latency", r.Duration),
	)
	return r
}

func (p *Planner) temperature(opts Options) float64 {
	if opts.Temperature != nil {
		return *opts.Temperature
	}
	return p.cfg.Temperature
}

func (p *Planner) days(opts Options, prev *mealplan.MealPlan) int {
	switch {
	case opts.Days > 0:
		return opts.Days
	case prev.DayCount() > 0:
		return prev.DayCount()
	default:
		return p.cfg.Days
	}
}

func mealNames(plan *mealplan.MealPlan) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range plan.AllMeals() {
		name := sanitize.Text(m.Name)
		if _, ok := seen[name]; ok || name == "" {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
