package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/gashawdemlew/telegram-info-guide-bot/internal/gemini"
	"github.com/gashawdemlew/telegram-info-guide-bot/internal/session"
)

// fakeMessenger records outbound messages and typing indicators.
type fakeMessenger struct {
	mu      sync.Mutex
	sent    []string
	chats   []int64
	typing  int
	sendErr error
	typeErr error
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	f.chats = append(f.chats, chatID)
	return f.sendErr
}

func (f *fakeMessenger) SendTyping(_ context.Context, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return f.typeErr
}

func (f *fakeMessenger) replies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeMessenger) typingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.typing
}

type fakeGateway struct {
	configured bool
}

func (f *fakeGateway) Configured() bool { return f.configured }

// fakeConversation replies with a fixed transform of the prompt, or fails.
type fakeConversation struct {
	err     error
	replyFn func(text string) string
}

func (f *fakeConversation) Send(_ context.Context, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.replyFn != nil {
		return f.replyFn(text), nil
	}
	return "echo: " + text, nil
}

type fixture struct {
	dispatcher *Dispatcher
	messenger  *fakeMessenger
	sessions   *session.Store
}

func newFixture(t *testing.T, configured bool, conv session.Conversation) *fixture {
	t.Helper()

	messenger := &fakeMessenger{}
	store, err := session.New(func(_ context.Context) (session.Conversation, error) {
		return conv, nil
	}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("session.New() error: %v", err)
	}

	d, err := New(Config{
		Messenger: messenger,
		Gateway:   &fakeGateway{configured: configured},
		Sessions:  store,
		Logger:    slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return &fixture{dispatcher: d, messenger: messenger, sessions: store}
}

func textUpdate(text string) Update {
	return Update{UserID: 1, ChatID: 10, FirstName: "Alice", Text: text}
}

func commandUpdate(cmd string) Update {
	return Update{UserID: 1, ChatID: 10, FirstName: "Alice", Command: cmd}
}

func TestNew_Validation(t *testing.T) {
	store, _ := session.New(func(_ context.Context) (session.Conversation, error) {
		return &fakeConversation{}, nil
	}, slog.New(slog.DiscardHandler))

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing messenger", Config{Gateway: &fakeGateway{}, Sessions: store}},
		{"missing gateway", Config{Messenger: &fakeMessenger{}, Sessions: store}},
		{"missing sessions", Config{Messenger: &fakeMessenger{}, Gateway: &fakeGateway{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("New() error = nil, want validation error")
			}
		})
	}
}

func TestDispatch_StartGreetsWithName(t *testing.T) {
	f := newFixture(t, true, &fakeConversation{})

	f.dispatcher.Dispatch(context.Background(), commandUpdate(CommandStart))

	replies := f.messenger.replies()
	if len(replies) != 1 {
		t.Fatalf("got %d replies, want 1", len(replies))
	}
	want := fmt.Sprintf(greetingTemplate, "Alice")
	if replies[0] != want {
		t.Errorf("greeting = %q, want %q", replies[0], want)
	}
	if !strings.Contains(replies[0], "Alice") {
		t.Error("greeting does not contain the user's first name")
	}
	// The greeting must not create a session.
	if f.sessions.Len() != 0 {
		t.Errorf("session count after /start = %d, want 0", f.sessions.Len())
	}
}

func TestDispatch_IgnoresUnboundUpdates(t *testing.T) {
	f := newFixture(t, true, &fakeConversation{})
	ctx := context.Background()

	f.dispatcher.Dispatch(ctx, Update{UserID: 1, ChatID: 10, Command: "help"})
	f.dispatcher.Dispatch(ctx, Update{UserID: 1, ChatID: 10}) // no text, no command
	f.dispatcher.Dispatch(ctx, Update{})

	if got := len(f.messenger.replies()); got != 0 {
		t.Errorf("got %d replies for unbound updates, want 0", got)
	}
}

func TestDispatch_MessageRepliesWithModelText(t *testing.T) {
	f := newFixture(t, true, &fakeConversation{})

	f.dispatcher.Dispatch(context.Background(), textUpdate("Hello"))

	replies := f.messenger.replies()
	if len(replies) != 1 {
		t.Fatalf("got %d replies, want exactly 1", len(replies))
	}
	if replies[0] != "echo: Hello" {
		t.Errorf("reply = %q, want %q", replies[0], "echo: Hello")
	}
	if f.messenger.typingCount() != 1 {
		t.Errorf("typing sent %d times, want 1", f.messenger.typingCount())
	}
}

func TestDispatch_NotConfigured(t *testing.T) {
	f := newFixture(t, false, &fakeConversation{})

	f.dispatcher.Dispatch(context.Background(), textUpdate("Hello"))

	replies := f.messenger.replies()
	if len(replies) != 1 || replies[0] != replyNotConfigured {
		t.Fatalf("replies = %v, want exactly [%q]", replies, replyNotConfigured)
	}
	// The check precedes side effects: no typing, no session.
	if f.messenger.typingCount() != 0 {
		t.Error("typing was sent before the configuration check")
	}
	if f.sessions.Len() != 0 {
		t.Error("session was created despite unconfigured gateway")
	}
}

func TestDispatch_BackendErrorKeepsSession(t *testing.T) {
	flaky := &fakeConversation{err: fmt.Errorf("%w: status 400", gemini.ErrBackend)}
	f := newFixture(t, true, flaky)
	ctx := context.Background()

	f.dispatcher.Dispatch(ctx, textUpdate("Hello"))

	replies := f.messenger.replies()
	if len(replies) != 1 || replies[0] != replyBackendError {
		t.Fatalf("replies = %v, want exactly [%q]", replies, replyBackendError)
	}
	// History survives a failed exchange.
	if f.sessions.Len() != 1 {
		t.Errorf("session count after backend error = %d, want 1", f.sessions.Len())
	}

	// The retry reuses the same conversation and succeeds.
	flaky.err = nil
	f.dispatcher.Dispatch(ctx, textUpdate("again"))
	replies = f.messenger.replies()
	if got := replies[len(replies)-1]; got != "echo: again" {
		t.Errorf("retry reply = %q, want %q", got, "echo: again")
	}
}

func TestDispatch_UnexpectedErrorReply(t *testing.T) {
	f := newFixture(t, true, &fakeConversation{err: errors.New("socket closed")})

	f.dispatcher.Dispatch(context.Background(), textUpdate("Hello"))

	replies := f.messenger.replies()
	if len(replies) != 1 || replies[0] != replyUnexpected {
		t.Fatalf("replies = %v, want exactly [%q]", replies, replyUnexpected)
	}
}

func TestDispatch_NotConfiguredSentinelFromFactory(t *testing.T) {
	messenger := &fakeMessenger{}
	store, _ := session.New(func(_ context.Context) (session.Conversation, error) {
		return nil, gemini.ErrNotConfigured
	}, slog.New(slog.DiscardHandler))
	d, _ := New(Config{
		Messenger: messenger,
		Gateway:   &fakeGateway{configured: true},
		Sessions:  store,
		Logger:    slog.New(slog.DiscardHandler),
	})

	d.Dispatch(context.Background(), textUpdate("Hello"))

	replies := messenger.replies()
	if len(replies) != 1 || replies[0] != replyNotConfigured {
		t.Fatalf("replies = %v, want exactly [%q]", replies, replyNotConfigured)
	}
}

func TestDispatch_EmptyModelReply(t *testing.T) {
	blank := &fakeConversation{replyFn: func(string) string { return "  \n\t " }}
	f := newFixture(t, true, blank)

	f.dispatcher.Dispatch(context.Background(), textUpdate("Hello"))

	replies := f.messenger.replies()
	if len(replies) != 1 || replies[0] != replyEmpty {
		t.Fatalf("replies = %v, want exactly [%q]", replies, replyEmpty)
	}
}

func TestDispatch_TypingFailureDoesNotAbort(t *testing.T) {
	f := newFixture(t, true, &fakeConversation{})
	f.messenger.typeErr = errors.New("flood wait")

	f.dispatcher.Dispatch(context.Background(), textUpdate("Hello"))

	replies := f.messenger.replies()
	if len(replies) != 1 || replies[0] != "echo: Hello" {
		t.Fatalf("replies = %v, want the model reply despite typing failure", replies)
	}
}

// panicConversation triggers the recover path in handleMessage.
type panicConversation struct{}

func (panicConversation) Send(_ context.Context, _ string) (string, error) {
	panic("nil pointer in SDK")
}

func TestDispatch_PanicDegradesToGenericReply(t *testing.T) {
	f := newFixture(t, true, panicConversation{})

	f.dispatcher.Dispatch(context.Background(), textUpdate("Hello"))

	replies := f.messenger.replies()
	if len(replies) != 1 || replies[0] != replyUnexpected {
		t.Fatalf("replies = %v, want exactly [%q]", replies, replyUnexpected)
	}
}

func TestDispatch_ResetBranches(t *testing.T) {
	f := newFixture(t, true, &fakeConversation{})
	ctx := context.Background()

	// No session yet: reset is a confirmed no-op.
	f.dispatcher.Dispatch(ctx, commandUpdate(CommandReset))
	replies := f.messenger.replies()
	if len(replies) != 1 || replies[0] != replyResetNoop {
		t.Fatalf("replies = %v, want [%q]", replies, replyResetNoop)
	}

	// Create a session, then reset it.
	f.dispatcher.Dispatch(ctx, textUpdate("Hello"))
	f.dispatcher.Dispatch(ctx, commandUpdate(CommandReset))

	replies = f.messenger.replies()
	if got := replies[len(replies)-1]; got != replyReset {
		t.Errorf("reset reply = %q, want %q", got, replyReset)
	}
	if f.sessions.Len() != 0 {
		t.Errorf("session count after reset = %d, want 0", f.sessions.Len())
	}
}

// TestDispatch_ConversationLifecycle walks the full user journey: greet,
// chat, reset, chat again on a fresh conversation.
func TestDispatch_ConversationLifecycle(t *testing.T) {
	var built int
	messenger := &fakeMessenger{}
	store, _ := session.New(func(_ context.Context) (session.Conversation, error) {
		built++
		n := built
		return &fakeConversation{replyFn: func(text string) string {
			return fmt.Sprintf("s%d: %s", n, text)
		}}, nil
	}, slog.New(slog.DiscardHandler))
	d, _ := New(Config{
		Messenger: messenger,
		Gateway:   &fakeGateway{configured: true},
		Sessions:  store,
		Logger:    slog.New(slog.DiscardHandler),
	})
	ctx := context.Background()

	d.Dispatch(ctx, commandUpdate(CommandStart))
	d.Dispatch(ctx, textUpdate("Hello"))
	d.Dispatch(ctx, textUpdate("Hello"))
	d.Dispatch(ctx, commandUpdate(CommandReset))
	d.Dispatch(ctx, textUpdate("Hello"))

	want := []string{
		fmt.Sprintf(greetingTemplate, "Alice"),
		"s1: Hello",
		"s1: Hello",
		replyReset,
		"s2: Hello",
	}
	got := messenger.replies()
	if len(got) != len(want) {
		t.Fatalf("got %d replies, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("reply %d = %q, want %q", i, got[i], want[i])
		}
	}
	if built != 2 {
		t.Errorf("conversations built = %d, want 2", built)
	}
}
