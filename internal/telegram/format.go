package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"ai-meal-coach/internal/app"
	"ai-meal-coach/internal/mealplan"
	"ai-meal-coach/internal/metrics"
	"ai-meal-coach/internal/shopping"
)

var mealIcons = map[mealplan.MealType]string{
	mealplan.Breakfast: "🍳",
	mealplan.Lunch:     "🥗",
	mealplan.Dinner:    "🍲",
}

func formatPlan(plan *mealplan.MealPlan) string {
	if plan == nil {
		return "No plan yet. Send /plan to start one."
	}

	var pb strings.Builder
	fmt.Fprintf(&pb, "📅 *Your %d-day Meal Plan*\n\n", plan.DayCount())

	totalPrep := 0
	for i := range plan.Days {
		day := &plan.Days[i]
		fmt.Fprintf(&pb, "*Day %d*\n", day.DayNumber)
		for _, t := range mealplan.MealTypes {
			meal := day.Meals.Slot(t)
			id := mealplan.MealID{Type: t, Day: day.DayNumber}
			fmt.Fprintf(&pb, "%s %s _(%s, %d min)_ `%s`\n",
				mealIcons[t], escape(meal.Name), escape(meal.Cuisine), meal.PrepTime, id)
			totalPrep += meal.PrepTime
		}
		pb.WriteString("\n")
	}

	fmt.Fprintf(&pb, "📊 *Daily average:* %s kcal, %sg protein\n",
		formatAmount(plan.NutritionSummary.AvgDailyCalories),
		formatAmount(plan.NutritionSummary.AvgProtein))
	fmt.Fprintf(&pb, "⏱ *Total Prep:* %d mins\n\n", totalPrep)
	pb.WriteString("Use /swap, /redo or /avoid to change it, /confirm to keep it.")
	return pb.String()
}

func formatConfirmation(res *app.ConfirmResult) string {
	var sb strings.Builder
	sb.WriteString("✅ *Plan saved!*")
	if res.MealPlan.Scheduled() {
		fmt.Fprintf(&sb, "\n🗓 %s to %s", res.MealPlan.StartDate, res.MealPlan.EndDate)
	}
	if n := len(res.ReplacedPlanIDs); n > 0 {
		fmt.Fprintf(&sb, "\n🔄 Replaced %d earlier plan(s).", n)
	}
	return sb.String()
}

func formatShoppingList(list *shopping.ShoppingList) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🛒 *Shopping List* (%d servings)\n\n", list.Servings)
	if len(list.Items) == 0 {
		sb.WriteString("_Nothing to buy_\n")
	}
	for _, item := range list.Items {
		amount := formatAmount(item.Amount)
		if item.Unit != "" {
			amount += " " + item.Unit
		}
		fmt.Fprintf(&sb, "• %s: %s\n", escape(item.Name), escape(amount))
	}
	return sb.String()
}

func formatMetrics(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution)
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Uptime: %s\n", health.Uptime)
	if health.DataDiskSize != "" {
		fmt.Fprintf(&sb, "• Disk Data: %s\n", health.DataDiskSize)
	}
	return sb.String()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
