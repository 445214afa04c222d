package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gashawdemlew/telegram-info-guide-bot/internal/bot"
)

func message(text string, entities []tgbotapi.MessageEntity) *tgbotapi.Message {
	return &tgbotapi.Message{
		From:     &tgbotapi.User{ID: 42, FirstName: "Alice"},
		Chat:     &tgbotapi.Chat{ID: 100},
		Text:     text,
		Entities: entities,
	}
}

func command(text string) *tgbotapi.Message {
	return message(text, []tgbotapi.MessageEntity{
		{Type: "bot_command", Offset: 0, Length: len(text)},
	})
}

func TestFromBotUpdate(t *testing.T) {
	tests := []struct {
		name string
		in   tgbotapi.Update
		want bot.Update
	}{
		{
			name: "plain text",
			in:   tgbotapi.Update{Message: message("Hello there", nil)},
			want: bot.Update{UserID: 42, ChatID: 100, FirstName: "Alice", Text: "Hello there"},
		},
		{
			name: "start command",
			in:   tgbotapi.Update{Message: command("/start")},
			want: bot.Update{UserID: 42, ChatID: 100, FirstName: "Alice", Command: "start"},
		},
		{
			name: "reset command",
			in:   tgbotapi.Update{Message: command("/new_chat")},
			want: bot.Update{UserID: 42, ChatID: 100, FirstName: "Alice", Command: "new_chat"},
		},
		{
			name: "no message",
			in:   tgbotapi.Update{},
			want: bot.Update{},
		},
		{
			name: "edited message only",
			in:   tgbotapi.Update{EditedMessage: message("edited", nil)},
			want: bot.Update{},
		},
		{
			name: "message without sender",
			in: tgbotapi.Update{Message: &tgbotapi.Message{
				Chat: &tgbotapi.Chat{ID: 100},
				Text: "anonymous",
			}},
			want: bot.Update{},
		},
		{
			name: "message without chat",
			in: tgbotapi.Update{Message: &tgbotapi.Message{
				From: &tgbotapi.User{ID: 42},
				Text: "floating",
			}},
			want: bot.Update{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromBotUpdate(tt.in)
			if got != tt.want {
				t.Errorf("FromBotUpdate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// Addressed commands and payloads: the SDK strips the bot mention and the
// command text never leaks into Text.
func TestFromBotUpdate_AddressedCommand(t *testing.T) {
	msg := message("/start@GuideBot hello", []tgbotapi.MessageEntity{
		{Type: "bot_command", Offset: 0, Length: len("/start@GuideBot")},
	})

	got := FromBotUpdate(tgbotapi.Update{Message: msg})

	if got.Command != "start" {
		t.Errorf("Command = %q, want %q", got.Command, "start")
	}
	if got.Text != "" {
		t.Errorf("Text = %q, want empty for a command update", got.Text)
	}
}

func TestFromBotUpdate_ZeroIsIgnorable(t *testing.T) {
	if !FromBotUpdate(tgbotapi.Update{}).IsZero() {
		t.Error("non-message update did not reduce to the zero Update")
	}
	if FromBotUpdate(tgbotapi.Update{Message: message("hi", nil)}).IsZero() {
		t.Error("real message reduced to the zero Update")
	}
}
