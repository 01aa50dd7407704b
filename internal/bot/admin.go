package bot

import (
	"errors"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"targethawk-bot/internal/ledger"
	"targethawk-bot/internal/session"
)

const notAuthorized = "⛔️ You are not authorized to use this command."

var errNotAuthorized = errors.New("not authorized")

func (b *Bot) handleAdminMenu(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if !b.isAdmin(msg.From.ID) {
		b.send(ctx, msg.Chat.ID, notAuthorized)
		return nil
	}
	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("📈 Get Bot Stats").WithCallbackData("admin_stats")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("🚀 Upgrade User Plan").WithCallbackData("admin_upgrade_flow")),
	)
	b.send(ctx, msg.Chat.ID, "Admin Menu:", keyboard)
	return nil
}

func (b *Bot) handleAdminStats(ctx *th.Context, update telego.Update) error {
	q := update.CallbackQuery
	b.answer(ctx, q, "")
	if !b.isAdmin(q.From.ID) {
		b.send(ctx, q.From.ID, notAuthorized)
		return nil
	}
	stats, err := b.ledger.Stats(ctx.Context())
	if err != nil {
		b.sendError(ctx, q.From.ID, "admin stats", err)
		return nil
	}
	b.send(ctx, q.From.ID, statsText(stats))
	return nil
}

func (b *Bot) handleAdminUpgradeFlow(ctx *th.Context, update telego.Update) error {
	q := update.CallbackQuery
	b.answer(ctx, q, "")
	if !b.isAdmin(q.From.ID) {
		b.send(ctx, q.From.ID, notAuthorized)
		return nil
	}
	if err := b.sessions.StartAdminUpgrade(ctx.Context(), callbackKey(q)); err != nil {
		b.sendError(ctx, q.From.ID, "start admin upgrade", err)
		return nil
	}
	b.send(ctx, q.From.ID, adminUpgradePrompt())
	return nil
}

func (b *Bot) completeAdminUpgrade(ctx *th.Context, key session.Key, msg *telego.Message) {
	var (
		req ledger.GrantRequest
		res *ledger.GrantResult
	)
	err := b.sessions.Complete(ctx.Context(), key, session.StateAwaitingAdminUpgrade, func(*session.Conversation) error {
		// admin rights may have been revoked since the flow started
		if !b.isAdmin(msg.From.ID) {
			return errNotAuthorized
		}
		var err error
		if req, err = parseAdminUpgrade(msg.Text); err != nil {
			return err
		}
		res, err = b.ledger.GrantTier(ctx.Context(), req)
		return err
	})
	if errors.Is(err, errNotAuthorized) {
		b.send(ctx, msg.Chat.ID, notAuthorized)
		return
	}
	if err != nil {
		b.sendError(ctx, msg.Chat.ID, "admin upgrade", err)
		return
	}

	log.WithFields(log.Fields{
		"adminID":  msg.From.ID,
		"userID":   req.UserID,
		"tier":     req.Tier,
		"notified": res.Notified,
	}).Info("Admin granted tier")
	b.send(ctx, msg.Chat.ID, adminGrantText(req, res))
}
