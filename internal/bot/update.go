// Package bot contains the update ingestion and session-scoped dispatch core.
//
// The [Dispatcher] maps each inbound [Update] to a handler (greeting, reset,
// or AI exchange) and orchestrates the reply flow: every handled update
// yields exactly one outbound message, never silence, even when the backend
// is broken. Unrecognized updates are ignored without a reply.
//
// The [Queue] decouples webhook acknowledgement from AI processing: the HTTP
// handler enqueues and acks immediately; updates are dispatched
// asynchronously, one goroutine per update, so a hung backend call holds
// only that user's event.
package bot

// Command names the dispatcher binds. Parsed without the leading slash.
const (
	// CommandStart greets the user without touching session state.
	CommandStart = "start"

	// CommandReset evicts the user's conversation memory.
	CommandReset = "new_chat"
)

// Update is one inbound event from the chat platform, reduced to the fields
// the dispatcher needs. Constructed by the ingestion transport, consumed
// once, discarded.
type Update struct {
	UserID    int64  // stable user identity, keys the session store
	ChatID    int64  // destination for the reply
	FirstName string // display name for the greeting
	Text      string // raw text payload; empty for non-text events
	Command   string // recognized command without slash; empty for plain text
}

// IsZero reports whether the update carries nothing dispatchable
// (e.g. an edited-message or non-message event from the transport).
func (u Update) IsZero() bool {
	return u.UserID == 0 && u.ChatID == 0 && u.Text == "" && u.Command == ""
}
