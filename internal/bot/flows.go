package bot

import (
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"targethawk-bot/internal/session"
	"targethawk-bot/internal/signals"
)

// callback data prefixes
const (
	cbSignal = "sig:"
	cbField  = "field:"
	cbDelete = "del:"
)

func (b *Bot) handleSignalsMenu(ctx *th.Context, update telego.Update) error {
	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("📈 List & Edit Signals").WithCallbackData("show_signals_list")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("🗑️ Delete Signals").WithCallbackData("delete_signals")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("➕ Add New Signal").WithCallbackData("add_new_signal")),
	)
	b.send(ctx, update.Message.Chat.ID, "What would you like to do with your signals?", keyboard)
	return nil
}

func (b *Bot) handleAddSignal(ctx *th.Context, update telego.Update) error {
	q := update.CallbackQuery
	b.answer(ctx, q, "")
	b.send(ctx, q.From.ID, "Use the /track command to add a new signal.\n"+trackUsage)
	return nil
}

func (b *Bot) handleListSignals(ctx *th.Context, update telego.Update) error {
	q := update.CallbackQuery
	b.answer(ctx, q, "")

	list, err := b.registry.ListForOwner(ctx.Context(), q.From.ID)
	if err != nil {
		b.sendError(ctx, q.From.ID, "list signals", err)
		return nil
	}
	if len(list) == 0 {
		b.send(ctx, q.From.ID, "You have no signals to edit. Add one with /track.")
		return nil
	}
	if err := b.sessions.StartEdit(ctx.Context(), callbackKey(q)); err != nil {
		b.sendError(ctx, q.From.ID, "start edit", err)
		return nil
	}

	rows := make([][]telego.InlineKeyboardButton, 0, len(list)+1)
	for _, s := range list {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(signalButtonText(s)).WithCallbackData(fmt.Sprintf("%s%d", cbSignal, s.ID)),
		))
	}
	rows = append(rows, tu.InlineKeyboardRow(tu.InlineKeyboardButton("🔙 Back to menu").WithCallbackData("cancel_edit")))
	b.send(ctx, q.From.ID, "Choose a signal to edit:", tu.InlineKeyboard(rows...))
	return nil
}

func (b *Bot) handleSelectSignal(ctx *th.Context, update telego.Update) error {
	q := update.CallbackQuery
	b.answer(ctx, q, "")

	id, ok := parseCallbackID(q.Data, cbSignal)
	if !ok {
		return nil
	}
	if err := b.sessions.SelectSignal(ctx.Context(), callbackKey(q), id); err != nil {
		b.sendError(ctx, q.From.ID, "select signal", err)
		return nil
	}

	fields := signals.EditableFields()
	var rows [][]telego.InlineKeyboardButton
	for i := 0; i < len(fields); i += 3 {
		var row []telego.InlineKeyboardButton
		for _, f := range fields[i:min(i+3, len(fields))] {
			row = append(row, tu.InlineKeyboardButton(f).WithCallbackData(cbField+f))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tu.InlineKeyboardRow(tu.InlineKeyboardButton("❌ Cancel").WithCallbackData("cancel_edit")))
	b.send(ctx, q.From.ID, fmt.Sprintf("⚙️ Which field of signal %d would you like to edit?", id), tu.InlineKeyboard(rows...))
	return nil
}

func (b *Bot) handleSelectField(ctx *th.Context, update telego.Update) error {
	q := update.CallbackQuery
	b.answer(ctx, q, "")

	field := strings.TrimPrefix(q.Data, cbField)
	if !signals.IsEditable(field) {
		b.sendError(ctx, q.From.ID, "select field", signals.ErrInvalidField)
		return nil
	}
	if _, err := b.sessions.SelectField(ctx.Context(), callbackKey(q), field); err != nil {
		b.sendError(ctx, q.From.ID, "select field", err)
		return nil
	}
	b.send(ctx, q.From.ID, fieldPrompt(field))
	return nil
}

func (b *Bot) handleCancelEdit(ctx *th.Context, update telego.Update) error {
	q := update.CallbackQuery
	b.answer(ctx, q, "")
	if _, err := b.sessions.Cancel(ctx.Context(), callbackKey(q)); err != nil {
		b.sendError(ctx, q.From.ID, "cancel edit", err)
		return nil
	}
	b.send(ctx, q.From.ID, "✅ Edit cancelled.")
	return nil
}

// completeEdit applies the value typed in reply to a field prompt. The
// flow ends whether or not the update succeeds.
func (b *Bot) completeEdit(ctx *th.Context, key session.Key, msg *telego.Message) {
	var signalID uint
	var field string
	err := b.sessions.Complete(ctx.Context(), key, session.StateAwaitingValue, func(conv *session.Conversation) error {
		signalID, field = conv.SignalID, conv.Field
		return b.registry.UpdateField(ctx.Context(), conv.SignalID, conv.Field, msg.Text, msg.From.ID)
	})
	if err != nil {
		b.sendError(ctx, msg.Chat.ID, "update signal", err)
		return
	}
	b.send(ctx, msg.Chat.ID, fmt.Sprintf("✅ Updated %s of signal %d.", field, signalID))
}

func (b *Bot) handleStartDelete(ctx *th.Context, update telego.Update) error {
	q := update.CallbackQuery
	b.answer(ctx, q, "")

	list, err := b.registry.ListForOwner(ctx.Context(), q.From.ID)
	if err != nil {
		b.sendError(ctx, q.From.ID, "list signals", err)
		return nil
	}
	if len(list) == 0 {
		b.send(ctx, q.From.ID, "You have no signals to delete.")
		return nil
	}
	if err := b.sessions.StartDelete(ctx.Context(), callbackKey(q)); err != nil {
		b.sendError(ctx, q.From.ID, "start delete", err)
		return nil
	}

	rows := make([][]telego.InlineKeyboardButton, 0, len(list)+1)
	for _, s := range list {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(deletionButtonText(s)).WithCallbackData(fmt.Sprintf("%s%d", cbDelete, s.ID)),
		))
	}
	rows = append(rows, tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("✅ Confirm Deletion").WithCallbackData("confirm_delete"),
		tu.InlineKeyboardButton("❌ Cancel").WithCallbackData("cancel_delete"),
	))
	b.send(ctx, q.From.ID, deletionText(nil), tu.InlineKeyboard(rows...))
	return nil
}

// handleToggleDelete reports the running selection in the callback answer
// rather than posting a new message per tap.
func (b *Bot) handleToggleDelete(ctx *th.Context, update telego.Update) error {
	q := update.CallbackQuery
	id, ok := parseCallbackID(q.Data, cbDelete)
	if !ok {
		b.answer(ctx, q, "")
		return nil
	}
	selected, err := b.sessions.ToggleDeletion(ctx.Context(), callbackKey(q), id)
	if err != nil {
		b.answer(ctx, q, "")
		b.sendError(ctx, q.From.ID, "toggle deletion", err)
		return nil
	}
	b.answer(ctx, q, deletionText(selected))
	return nil
}

func (b *Bot) handleConfirmDelete(ctx *th.Context, update telego.Update) error {
	q := update.CallbackQuery
	b.answer(ctx, q, "")

	var deleted int64
	var nothing bool
	err := b.sessions.Complete(ctx.Context(), callbackKey(q), session.StateAwaitingDeletion, func(conv *session.Conversation) error {
		if len(conv.Selected) == 0 {
			nothing = true
			return nil
		}
		n, err := b.registry.DeleteMany(ctx.Context(), conv.Selected, q.From.ID)
		deleted = n
		return err
	})
	switch {
	case err != nil:
		b.sendError(ctx, q.From.ID, "delete signals", err)
	case nothing:
		b.send(ctx, q.From.ID, "❌ No signals were selected for deletion.")
	default:
		b.send(ctx, q.From.ID, fmt.Sprintf("✅ Deleted %d signal(s).", deleted))
	}
	return nil
}

func (b *Bot) handleCancelDelete(ctx *th.Context, update telego.Update) error {
	q := update.CallbackQuery
	b.answer(ctx, q, "")
	if _, err := b.sessions.Cancel(ctx.Context(), callbackKey(q)); err != nil {
		b.sendError(ctx, q.From.ID, "cancel delete", err)
		return nil
	}
	b.send(ctx, q.From.ID, "✅ Deletion cancelled.")
	return nil
}
