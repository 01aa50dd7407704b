// Package bot is the Telegram surface of TargetHawk. Handlers translate
// commands and button presses into ledger, registry and session calls.
package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"targethawk-bot/internal/apperr"
	"targethawk-bot/internal/auth"
	"targethawk-bot/internal/config"
	"targethawk-bot/internal/ledger"
	"targethawk-bot/internal/payment"
	"targethawk-bot/internal/session"
	"targethawk-bot/internal/signals"
)

const leaderboardSize = 10

// Checkout creates payment links for /upgrade.
type Checkout interface {
	CheckoutURL(ctx context.Context, userID int64, plan payment.Plan, currency, returnURL string) (string, error)
}

type Bot struct {
	api      *telego.Bot
	cfg      *config.Config
	ledger   *ledger.Ledger
	registry *signals.Registry
	sessions *session.Machine
	admins   *auth.Policy

	// nil when payments are not configured
	checkout Checkout
	plans    []payment.Plan
}

type Option func(*Bot)

func WithPayments(checkout Checkout, plans []payment.Plan) Option {
	return func(b *Bot) {
		b.checkout = checkout
		b.plans = plans
	}
}

func New(api *telego.Bot, cfg *config.Config, l *ledger.Ledger, registry *signals.Registry, sessions *session.Machine, admins *auth.Policy, opts ...Option) *Bot {
	b := &Bot{
		api:      api,
		cfg:      cfg,
		ledger:   l,
		registry: registry,
		sessions: sessions,
		admins:   admins,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start long-polls for updates and blocks until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.api.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.api, updates)
	if err != nil {
		return fmt.Errorf("failed to create bot handler: %w", err)
	}
	b.register(handler)

	go func() {
		<-ctx.Done()
		handler.Stop()
	}()

	log.Info("Bot started")
	handler.Start()
	log.Info("Bot stopped")
	return nil
}

func (b *Bot) register(h *th.BotHandler) {
	h.Handle(b.handleStart, th.CommandEqual("start"))
	h.Handle(b.handlePlans, th.CommandEqual("plans"))
	h.Handle(b.handleUpgrade, th.CommandEqual("upgrade"))
	h.Handle(b.handleRefer, th.CommandEqual("refer"))
	h.Handle(b.handleStatus, th.CommandEqual("status"))
	h.Handle(b.handleLeaderboard, th.CommandEqual("leaderboard"))
	h.Handle(b.handleTrack, th.CommandEqual("track"))
	h.Handle(b.handleSignalsMenu, th.CommandEqual("signals"))
	h.Handle(b.handleAdminMenu, th.CommandEqual("admin"))
	h.Handle(b.handleCancel, th.CommandEqual("cancel"))

	h.Handle(b.handlePlansCallback, th.CallbackDataEqual("show_plans"))
	h.Handle(b.handleAddSignal, th.CallbackDataEqual("add_new_signal"))
	h.Handle(b.handleListSignals, th.CallbackDataEqual("show_signals_list"))
	h.Handle(b.handleSelectSignal, th.CallbackDataPrefix(cbSignal))
	h.Handle(b.handleSelectField, th.CallbackDataPrefix(cbField))
	h.Handle(b.handleCancelEdit, th.CallbackDataEqual("cancel_edit"))
	h.Handle(b.handleStartDelete, th.CallbackDataEqual("delete_signals"))
	h.Handle(b.handleToggleDelete, th.CallbackDataPrefix(cbDelete))
	h.Handle(b.handleConfirmDelete, th.CallbackDataEqual("confirm_delete"))
	h.Handle(b.handleCancelDelete, th.CallbackDataEqual("cancel_delete"))
	h.Handle(b.handleAdminStats, th.CallbackDataEqual("admin_stats"))
	h.Handle(b.handleAdminUpgradeFlow, th.CallbackDataEqual("admin_upgrade_flow"))

	// free text completes whatever flow the chat is in
	h.Handle(b.handleText, th.AnyMessageWithText(), th.Not(th.AnyCommand()))
}

func messageKey(m *telego.Message) session.Key {
	return session.Key{UserID: m.From.ID, ChatID: m.Chat.ID}
}

// Buttons are only offered in private chats, so the chat is the user.
func callbackKey(q *telego.CallbackQuery) session.Key {
	return session.Key{UserID: q.From.ID, ChatID: q.From.ID}
}

func (b *Bot) send(ctx *th.Context, chatID int64, text string, markup ...*telego.InlineKeyboardMarkup) {
	msg := tu.Message(tu.ID(chatID), text)
	if len(markup) > 0 && markup[0] != nil {
		msg = msg.WithReplyMarkup(markup[0])
	}
	if _, err := ctx.Bot().SendMessage(ctx.Context(), msg); err != nil {
		log.WithFields(log.Fields{
			"chatID": chatID,
			"error":  err,
		}).Warn("Failed to send message")
	}
}

func (b *Bot) answer(ctx *th.Context, q *telego.CallbackQuery, text string) {
	params := tu.CallbackQuery(q.ID)
	if text != "" {
		params = params.WithText(text)
	}
	if err := ctx.Bot().AnswerCallbackQuery(ctx.Context(), params); err != nil {
		log.WithFields(log.Fields{
			"userID": q.From.ID,
			"error":  err,
		}).Debug("Failed to answer callback query")
	}
}

// sendError reports err to the chat. Only infrastructure failures are
// logged; domain errors are the user's to fix.
func (b *Bot) sendError(ctx *th.Context, chatID int64, op string, err error) {
	if errors.Is(err, session.ErrUnexpectedState) {
		b.send(ctx, chatID, "⌛ This menu has expired. Open it again with /signals.")
		return
	}
	logFailure(op, chatID, err)
	b.send(ctx, chatID, apperr.UserMessage(err))
}

// logFailure records infrastructure failures. Caller mistakes are only
// answered, not logged.
func logFailure(op string, chatID int64, err error) {
	if apperr.IsDomain(err) {
		return
	}
	log.WithFields(log.Fields{
		"operation": op,
		"chatID":    chatID,
		"error":     err,
	}).Error("Request failed")
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.admins.IsAuthorized(userID)
}
