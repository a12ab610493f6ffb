package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ariabot/aria/aria/database/models"
)

// Event names dispatched through the timer table. Handlers register
// against these with Dispatcher.OnTimer; an event without a handler is
// logged and dropped.
const (
	EventReminder = "reminder"
	EventUnmute   = "unmute"
)

// ReminderPayload is carried by EventReminder timers.
type ReminderPayload struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	Message   string `json:"message"`
}

// UnmutePayload is carried by EventUnmute timers.
type UnmutePayload struct {
	GuildID string `json:"guild_id"`
	UserID  string `json:"user_id"`
}

// NewTimer builds an unpersisted timer. ID stays zero until the
// dispatcher inserts it.
func NewTimer(event string, expires time.Time, payload any) (*models.Timer, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode timer payload: %w", err)
	}
	return &models.Timer{
		Event:   event,
		Payload: raw,
		Created: time.Now(),
		Expires: expires,
	}, nil
}

// DecodePayload unpacks a timer's payload into v.
func DecodePayload(t *models.Timer, v any) error {
	if len(t.Payload) == 0 {
		return fmt.Errorf("timer %d has no payload", t.ID)
	}
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("failed to decode payload for timer %d: %w", t.ID, err)
	}
	return nil
}
