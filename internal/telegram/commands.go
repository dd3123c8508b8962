package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"ai-meal-coach/internal/app"
	"ai-meal-coach/internal/apperror"
	"ai-meal-coach/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	callbackReplace = "replace"
	callbackCancel  = "cancel"
)

const helpText = `🥗 *Meal Coach*

Send me what you feel like eating this week, or use:
/plan \[days] \[notes] - start a new plan
/swap <meal id> <reason> - replace one meal
/redo <reason> - replace the whole plan
/avoid <something> - avoid it for the rest of this plan
/confirm \[YYYY-MM-DD] - keep the plan, optionally from a start date
/help - show this message`

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		b.reply(msg.Chat.ID, b.errorText("set up your account", err))
		return
	}

	if !msg.IsCommand() {
		if strings.TrimSpace(msg.Text) == "" {
			return
		}
		b.handlePlan(ctx, userID, msg.Chat.ID, app.GenerationOptions{Instructions: msg.Text})
		return
	}

	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		b.reply(msg.Chat.ID, helpText)
	case "plan":
		opts, err := parsePlanArgs(args)
		if err != nil {
			b.reply(msg.Chat.ID, escape(err.Error()))
			return
		}
		b.handlePlan(ctx, userID, msg.Chat.ID, opts)
	case "swap":
		b.handleSwap(ctx, userID, msg.Chat.ID, args)
	case "redo":
		b.handleRedo(ctx, userID, msg.Chat.ID, args)
	case "avoid":
		b.handleAvoid(ctx, userID, msg.Chat.ID, args)
	case "confirm":
		b.handleConfirm(ctx, userID, msg.Chat.ID, 0, args, false)
	case "metrics":
		if msg.From.ID != b.cfg.AdminID {
			b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
			return
		}
		b.handleMetricsCommand(msg.Chat.ID)
	default:
		b.reply(msg.Chat.ID, "Unknown command. Send /help to see what I can do.")
	}
}

// parsePlanArgs reads an optional leading day count followed by free-form notes.
func parsePlanArgs(args string) (app.GenerationOptions, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return app.GenerationOptions{}, nil
	}
	days, err := strconv.Atoi(fields[0])
	if err != nil {
		return app.GenerationOptions{Instructions: args}, nil
	}
	if days < 1 || days > 14 {
		return app.GenerationOptions{}, fmt.Errorf("a plan can cover 1 to 14 days, got %d", days)
	}
	return app.GenerationOptions{
		Days:         days,
		Instructions: strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(args), fields[0])),
	}, nil
}

func (b *Bot) handlePlan(ctx context.Context, userID string, chatID int64, opts app.GenerationOptions) {
	statusID := b.thinking(chatID, "Putting your meal plan together")

	res, err := b.svc.GenerateMealPlan(ctx, userID, app.GenerateRequest{GenerationOptions: opts})
	if err != nil {
		b.edit(chatID, statusID, b.errorText("generate a plan", err), nil)
		return
	}
	if err := b.chats.Save(ctx, ChatState{UserID: userID, ChatID: chatID, SessionID: res.Session.ID}); err != nil {
		b.logger.Error("failed to remember session", zap.String("user_id", userID), zap.Error(err))
	}
	b.checkUsage(res)
	b.edit(chatID, statusID, formatPlan(res.Session.CurrentMealPlan), nil)
}

func (b *Bot) handleSwap(ctx context.Context, userID string, chatID int64, args string) {
	mealID, reason, _ := strings.Cut(args, " ")
	if mealID == "" {
		b.reply(chatID, "Usage: /swap <meal id> <reason>, e.g. `/swap dinner-day2 too spicy`")
		return
	}
	state, ok := b.activeSession(ctx, userID, chatID)
	if !ok {
		return
	}
	statusID := b.thinking(chatID, "Finding something else for "+mealID)

	res, err := b.svc.RegenerateMeal(ctx, userID, state.SessionID, app.RegenerateMealRequest{
		MealID: mealID,
		Reason: strings.TrimSpace(reason),
	})
	if err != nil {
		b.edit(chatID, statusID, b.errorText("swap that meal", err), nil)
		return
	}
	b.checkUsage(res)
	b.edit(chatID, statusID, formatPlan(res.Session.CurrentMealPlan), nil)
}

func (b *Bot) handleRedo(ctx context.Context, userID string, chatID int64, reason string) {
	state, ok := b.activeSession(ctx, userID, chatID)
	if !ok {
		return
	}
	statusID := b.thinking(chatID, "Starting over with a fresh plan")

	res, err := b.svc.RegeneratePlan(ctx, userID, state.SessionID, app.RegeneratePlanRequest{Reason: reason})
	if err != nil {
		b.edit(chatID, statusID, b.errorText("redo the plan", err), nil)
		return
	}
	b.checkUsage(res)
	b.edit(chatID, statusID, formatPlan(res.Session.CurrentMealPlan), nil)
}

func (b *Bot) handleAvoid(ctx context.Context, userID string, chatID int64, constraint string) {
	if constraint == "" {
		b.reply(chatID, "Usage: /avoid <something>, e.g. `/avoid mushrooms`")
		return
	}
	state, ok := b.activeSession(ctx, userID, chatID)
	if !ok {
		return
	}
	session, err := b.svc.AddTemporaryConstraint(ctx, userID, state.SessionID, constraint)
	if err != nil {
		b.reply(chatID, b.errorText("add that constraint", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("👍 Noted. I will avoid: %s\nSend /redo or /swap to apply it.",
		escape(strings.Join(session.TemporaryConstraints, ", "))))
}

// handleConfirm stores the current plan. When the dates collide with an
// existing plan the user is asked whether to replace it.
func (b *Bot) handleConfirm(ctx context.Context, userID string, chatID int64, messageID int, startDate string, replace bool) {
	state, ok := b.activeSession(ctx, userID, chatID)
	if !ok {
		return
	}

	res, err := b.svc.ConfirmSession(ctx, userID, state.SessionID, app.ConfirmRequest{
		StartDate:          startDate,
		ReplaceConflicting: replace,
	})
	if apperror.Is(err, apperror.CodeConflict) {
		state.PendingStartDate = startDate
		if err := b.chats.Save(ctx, *state); err != nil {
			b.logger.Error("failed to remember pending confirmation", zap.String("user_id", userID), zap.Error(err))
		}
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔄 Replace", callbackReplace),
				tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", callbackCancel),
			),
		)
		text := fmt.Sprintf("🗓️ You already have a plan overlapping *%s*.\nReplace it with this one?", escape(startDate))
		b.edit(chatID, messageID, text, &keyboard)
		return
	}
	if err != nil {
		b.edit(chatID, messageID, b.errorText("confirm the plan", err), nil)
		return
	}

	if err := b.chats.Delete(ctx, userID); err != nil {
		b.logger.Error("failed to clear chat state", zap.String("user_id", userID), zap.Error(err))
	}
	b.edit(chatID, messageID, formatConfirmation(res), nil)

	list, err := b.svc.ShoppingList(ctx, userID, res.MealPlan.ID)
	if err != nil {
		b.reply(chatID, b.errorText("build the shopping list", err))
		return
	}
	b.reply(chatID, formatShoppingList(list))
}

func (b *Bot) handleCallbackQuery(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", zap.Error(err))
	}
	if q.Message == nil {
		return
	}
	chatID, messageID := q.Message.Chat.ID, q.Message.MessageID

	userID, err := b.ensureUser(ctx, q.From)
	if err != nil {
		b.edit(chatID, messageID, b.errorText("set up your account", err), nil)
		return
	}
	state, err := b.chats.Get(ctx, userID)
	if err != nil {
		b.edit(chatID, messageID, b.errorText("load your plan", err), nil)
		return
	}
	if state == nil || state.SessionID == "" {
		b.edit(chatID, messageID, "Nothing to confirm. Send /plan to start a new plan.", nil)
		return
	}

	switch q.Data {
	case callbackReplace:
		b.handleConfirm(ctx, userID, chatID, messageID, state.PendingStartDate, true)
	case callbackCancel:
		state.PendingStartDate = ""
		if err := b.chats.Save(ctx, *state); err != nil {
			b.logger.Error("failed to clear pending confirmation", zap.String("user_id", userID), zap.Error(err))
		}
		b.edit(chatID, messageID, "Kept your existing plan. Try /confirm with another date.", nil)
	}
}

// activeSession returns the chat's open session, telling the user when there is none.
func (b *Bot) activeSession(ctx context.Context, userID string, chatID int64) (*ChatState, bool) {
	state, err := b.chats.Get(ctx, userID)
	if err != nil {
		b.reply(chatID, b.errorText("load your plan", err))
		return nil, false
	}
	if state == nil || state.SessionID == "" {
		b.reply(chatID, "You have no plan in progress. Send /plan to start one.")
		return nil, false
	}
	return state, true
}

// checkUsage alerts the admin about oversized prompts.
func (b *Bot) checkUsage(res *app.SessionResult) {
	if res.Usage.PromptTokens <= contextBloatTokens {
		return
	}
	b.sendAdminAlert(fmt.Sprintf("⚠️ *Context Bloat Alert*\nProvider: %s\nModel: %s\nPrompt Tokens: %d",
		escape(string(res.Provider)), escape(res.Usage.Model), res.Usage.PromptTokens))
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	usage, err := b.usage.GetDailyUsage(7)
	if err != nil {
		b.logger.Error("failed to fetch metrics", zap.Error(err))
		b.reply(chatID, "❌ Error fetching metrics.")
		return
	}
	b.reply(chatID, formatMetrics(usage, metrics.GetSysHealth(b.dataDir)))
}
