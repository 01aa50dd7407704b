package notify

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// TelegramSender sends notices as private chat messages.
type TelegramSender struct {
	bot *telego.Bot
}

func NewTelegramSender(bot *telego.Bot) *TelegramSender {
	return &TelegramSender{bot: bot}
}

func (s *TelegramSender) Send(ctx context.Context, notice Notice) error {
	_, err := s.bot.SendMessage(ctx, tu.Message(tu.ID(notice.UserID), notice.Text))
	return err
}
