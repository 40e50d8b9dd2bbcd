package websocket

import (
	"encoding/json"
	"log/slog"

	"github.com/lllypuk/userdesk/internal/store"
)

// Outbound message types.
const (
	TypeToast        = "toast"
	TypeUsersChanged = "users.changed"
)

// Subscriber is a store that reports reductions.
// Declared on the consumer side per project guidelines.
type Subscriber interface {
	Subscribe(l store.Listener) func()
}

// UsersChanged tells a tab that its list is stale.
type UsersChanged struct {
	Action string `json:"action"`
	Total  int64  `json:"total"`
	ID     int64  `json:"id,omitempty"`
}

// Broadcaster turns session activity into WebSocket messages.
type Broadcaster struct {
	hub    *Hub
	logger *slog.Logger
}

// BroadcasterOption configures a Broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithBroadcasterLogger sets the logger for the broadcaster.
func WithBroadcasterLogger(logger *slog.Logger) BroadcasterOption {
	return func(b *Broadcaster) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBroadcaster creates a new Broadcaster.
func NewBroadcaster(hub *Hub, opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		hub:    hub,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Toast pushes a notification to every tab of a session.
func (b *Broadcaster) Toast(sessionID string, t store.Toast) {
	b.send(sessionID, TypeToast, t)
}

// Attach forwards collection changes of s to the session's tabs.
// It returns a function that detaches the listener.
func (b *Broadcaster) Attach(sessionID string, s Subscriber) func() {
	return s.Subscribe(func(st store.State, a store.Action) {
		change := UsersChanged{Action: string(a.Type()), Total: st.Paginator.TotalElements}

		switch act := a.(type) {
		case store.Added:
			change.ID = act.User.ID
		case store.Updated:
			change.ID = act.User.ID
		case store.Removed:
			change.ID = act.ID
		default:
			return
		}

		b.send(sessionID, TypeUsersChanged, change)
	})
}

func (b *Broadcaster) send(sessionID, msgType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("failed to marshal websocket payload",
			slog.String("type", msgType),
			slog.String("error", err.Error()),
		)
		return
	}

	frame, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		b.logger.Error("failed to marshal websocket message",
			slog.String("type", msgType),
			slog.String("error", err.Error()),
		)
		return
	}

	b.hub.SendToSession(sessionID, frame)
}
