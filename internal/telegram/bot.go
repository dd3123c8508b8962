// Package telegram is a chat front end for the planning lifecycle. Each
// Telegram user maps to one application user and at most one open session.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"ai-meal-coach/internal/app"
	"ai-meal-coach/internal/apperror"
	"ai-meal-coach/internal/config"
	"ai-meal-coach/internal/mealplan"
	"ai-meal-coach/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// contextBloatTokens is the prompt size above which the admin is alerted.
const contextBloatTokens = 4000

const defaultUpdateTimeout = 3 * time.Minute

// sender is the part of *tgbotapi.BotAPI the bot uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// usageReader reports token usage. *metrics.Store implements it.
type usageReader interface {
	GetDailyUsage(days int) ([]metrics.DailyUsage, error)
}

// Bot wraps the Telegram API and the planning service.
type Bot struct {
	api           sender
	svc           *app.Service
	usage         usageReader
	chats         *SessionRepository
	cfg           config.TelegramConfig
	householdSize int
	dataDir       string
	timeout       time.Duration
	logger        *zap.Logger
	wg            sync.WaitGroup
}

// NewBot initializes the Telegram API client and sets the webhook.
func NewBot(
	cfg *config.Config,
	svc *app.Service,
	usage *metrics.Store,
	chats *SessionRepository,
	dataDir string,
	logger *zap.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(cfg.Telegram.WebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.Telegram.WebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.Telegram.WebhookURL, err)
	}
	logger.Info("webhook set", zap.String("response", resp.Description))

	b := newBot(api, svc, usage, chats, cfg.Telegram, dataDir, logger)
	b.householdSize = cfg.DefaultHouseholdSize
	if cfg.AI.RequestTimeout > 0 {
		b.timeout = 2 * cfg.AI.RequestTimeout
	}
	return b, nil
}

func newBot(api sender, svc *app.Service, usage usageReader, chats *SessionRepository, cfg config.TelegramConfig, dataDir string, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:           api,
		svc:           svc,
		usage:         usage,
		chats:         chats,
		cfg:           cfg,
		householdSize: 1,
		dataDir:       dataDir,
		timeout:       defaultUpdateTimeout,
		logger:        logger,
	}
}

// RegisterHandlers registers the webhook and health handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

// Wait blocks until every dispatched update has been handled.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.logger.Warn("error parsing update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	// Generation outlives the webhook request; Telegram retries slow answers.
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		b.handleUpdate(ctx, update)
	}()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while handling update", zap.Int("update_id", update.UpdateID), zap.Any("panic", r))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if !b.isAllowed(q.From) {
			return
		}
		b.handleCallbackQuery(ctx, q)
	case update.Message != nil:
		msg := update.Message
		if !b.isAllowed(msg.From) {
			return
		}
		b.processMessage(ctx, msg)
	}
}

// isAllowed applies the allow-list when one is configured.
func (b *Bot) isAllowed(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	if len(b.cfg.AllowedUserIDs) == 0 {
		return true
	}
	for _, id := range b.cfg.AllowedUserIDs {
		if from.ID == id {
			return true
		}
	}
	b.logger.Warn("unauthorized access attempt",
		zap.Int64("telegram_id", from.ID),
		zap.String("username", from.UserName),
	)
	return false
}

// ensureUser registers the Telegram user on first contact.
func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (string, error) {
	userID := userIDFor(from.ID)
	_, err := b.svc.RegisterUser(ctx, userID, app.RegisterRequest{
		Email: fmt.Sprintf("tg%d@telegram.local", from.ID),
		Profile: mealplan.Profile{
			Name:          from.FirstName,
			HouseholdSize: b.householdSize,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to register telegram user %d: %w", from.ID, err)
	}
	return userID, nil
}

func userIDFor(telegramID int64) string {
	return "tg:" + strconv.FormatInt(telegramID, 10)
}

func (b *Bot) send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, err := b.api.Send(c)
	if err != nil {
		b.logger.Warn("failed to send telegram message", zap.Error(err))
	}
	return m, err
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, _ = b.send(msg)
}

// edit replaces a status message, falling back to a new message when the
// status message could not be sent.
func (b *Bot) edit(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	if messageID == 0 {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if markup != nil {
			msg.ReplyMarkup = *markup
		}
		_, _ = b.send(msg)
		return
	}
	e := tgbotapi.NewEditMessageText(chatID, messageID, text)
	e.ParseMode = tgbotapi.ModeMarkdown
	e.ReplyMarkup = markup
	_, _ = b.send(e)
}

// thinking posts a status message and returns its id, 0 when sending failed.
func (b *Bot) thinking(chatID int64, status string) int {
	msg := tgbotapi.NewMessage(chatID, "🧑‍🍳 *Thinking...*\n"+escape(status))
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.send(msg)
	if err != nil {
		return 0
	}
	return sent.MessageID
}

func (b *Bot) sendAdminAlert(text string) {
	if b.cfg.AdminID == 0 {
		return
	}
	b.reply(b.cfg.AdminID, text)
}

// errorText turns an error into something safe to show the user.
func (b *Bot) errorText(action string, err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return fmt.Sprintf("❌ *Could not %s:* %s", action, escape(appErr.Message))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("⌛ *Could not %s:* the request took too long. Please try again.", action)
	}
	b.logger.Error("telegram command failed", zap.String("action", action), zap.Error(err))
	return fmt.Sprintf("❌ *Could not %s.* Please try again in a moment.", action)
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
