package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gashawdemlew/telegram-info-guide-bot/internal/bot"
)

// FromBotUpdate reduces a raw platform update to the dispatcher's Update.
// Non-message events (edits, channel posts, callback queries) and messages
// without a sender reduce to the zero Update, which the dispatcher ignores.
//
// Commands are parsed by the SDK: "/start@SomeBot arg" yields Command
// "start" with Text left empty, so command payloads never reach the AI
// exchange path.
func FromBotUpdate(u tgbotapi.Update) bot.Update {
	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return bot.Update{}
	}

	out := bot.Update{
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		FirstName: msg.From.FirstName,
	}

	if msg.IsCommand() {
		out.Command = msg.Command()
		return out
	}

	out.Text = msg.Text
	return out
}
