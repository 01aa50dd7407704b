package bot

import (
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"targethawk-bot/internal/session"
)

func (b *Bot) handleStart(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	referrer := parseReferrer(commandArgs(msg.Text))

	_, err := b.ledger.RegisterOrTouch(ctx.Context(), msg.From.ID, msg.From.Username, referrer)
	if err != nil {
		b.sendError(ctx, msg.Chat.ID, "start", err)
		return nil
	}

	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📊 My Signals").WithCallbackData("show_signals_list"),
			tu.InlineKeyboardButton("💰 Plans & Upgrade").WithCallbackData("show_plans"),
		),
	)
	b.send(ctx, msg.Chat.ID, welcomeText, keyboard)
	return nil
}

func (b *Bot) handlePlans(ctx *th.Context, update telego.Update) error {
	b.send(ctx, update.Message.Chat.ID, plansText(b.plans, b.cfg.PaymentCurrency))
	return nil
}

func (b *Bot) handlePlansCallback(ctx *th.Context, update telego.Update) error {
	q := update.CallbackQuery
	b.answer(ctx, q, "")
	b.send(ctx, q.From.ID, plansText(b.plans, b.cfg.PaymentCurrency))
	return nil
}

// handleUpgrade creates one payment link per plan. Payments land on the
// webhook, which grants the tier.
func (b *Bot) handleUpgrade(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if b.checkout == nil || len(b.plans) == 0 {
		b.send(ctx, msg.Chat.ID, "💳 Online payments are not available right now.")
		return nil
	}
	if _, err := b.ledger.Profile(ctx.Context(), msg.From.ID); err != nil {
		b.sendError(ctx, msg.Chat.ID, "upgrade", err)
		return nil
	}

	var rows [][]telego.InlineKeyboardButton
	for _, plan := range b.plans {
		url, err := b.checkout.CheckoutURL(ctx.Context(), msg.From.ID, plan, b.cfg.PaymentCurrency, b.cfg.PaymentReturnURL)
		if err != nil {
			log.WithFields(log.Fields{
				"userID": msg.From.ID,
				"tier":   plan.Tier,
				"error":  err,
			}).Error("Failed to create payment link")
			b.send(ctx, msg.Chat.ID, "❌ Failed to create a payment link. Please try again later.")
			return nil
		}
		label := fmt.Sprintf("%s – %s %s", plan.Title, plan.Price.StringFixed(2), b.cfg.PaymentCurrency)
		rows = append(rows, tu.InlineKeyboardRow(tu.InlineKeyboardButton(label).WithURL(url)))
	}
	b.send(ctx, msg.Chat.ID, "🔐 Upgrade your plan:", tu.InlineKeyboard(rows...))
	return nil
}

func (b *Bot) handleRefer(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	profile, err := b.ledger.Profile(ctx.Context(), msg.From.ID)
	if err != nil {
		b.sendError(ctx, msg.Chat.ID, "refer", err)
		return nil
	}
	b.send(ctx, msg.Chat.ID, referText(b.cfg.BotUsername, profile.User))
	return nil
}

func (b *Bot) handleStatus(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	profile, err := b.ledger.Profile(ctx.Context(), msg.From.ID)
	if err != nil {
		b.sendError(ctx, msg.Chat.ID, "status", err)
		return nil
	}
	b.send(ctx, msg.Chat.ID, statusText(profile, time.Now()))
	return nil
}

func (b *Bot) handleLeaderboard(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	users, err := b.ledger.Leaderboard(ctx.Context(), leaderboardSize)
	if err != nil {
		b.sendError(ctx, msg.Chat.ID, "leaderboard", err)
		return nil
	}
	b.send(ctx, msg.Chat.ID, leaderboardText(users))
	return nil
}

func (b *Bot) handleTrack(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	req, err := parseTrackArgs(msg.From.ID, commandArgs(msg.Text))
	if err != nil {
		b.sendError(ctx, msg.Chat.ID, "track", err)
		return nil
	}
	signal, err := b.registry.Create(ctx.Context(), req)
	if err != nil {
		b.sendError(ctx, msg.Chat.ID, "track", err)
		return nil
	}
	b.send(ctx, msg.Chat.ID, fmt.Sprintf("✅ Signal for %s created with ID: %d. It is now being tracked.", signal.Symbol, signal.ID))
	return nil
}

func (b *Bot) handleCancel(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	active, err := b.sessions.Cancel(ctx.Context(), messageKey(msg))
	if err != nil {
		b.sendError(ctx, msg.Chat.ID, "cancel", err)
		return nil
	}
	if !active {
		b.send(ctx, msg.Chat.ID, "Nothing to cancel.")
		return nil
	}
	b.send(ctx, msg.Chat.ID, "✅ Operation cancelled.")
	return nil
}

// handleText routes plain text to the flow waiting for it. Text outside a
// flow is ignored.
func (b *Bot) handleText(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if msg.From == nil {
		return nil
	}
	key := messageKey(msg)
	conv, err := b.sessions.Current(ctx.Context(), key)
	if err != nil {
		b.sendError(ctx, msg.Chat.ID, "load session", err)
		return nil
	}

	switch conv.State {
	case session.StateAwaitingValue:
		b.completeEdit(ctx, key, msg)
	case session.StateAwaitingAdminUpgrade:
		b.completeAdminUpgrade(ctx, key, msg)
	}
	return nil
}
