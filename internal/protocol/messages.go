package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/taskdesk/internal/notify"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeDismissNotification   MessageType = "dismiss_notification"
	TypeNotificationShown     MessageType = "notification_shown"
	TypeNotificationDismissed MessageType = "notification_dismissed"
	TypeErrorEvent            MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type DismissNotification struct {
	Type           MessageType `json:"type"`
	NotificationID string      `json:"notification_id"`
}

type NotificationShown struct {
	Type           MessageType `json:"type"`
	NotificationID string      `json:"notification_id"`
	Kind           string      `json:"kind"`
	Message        string      `json:"message"`
	TaskID         string      `json:"task_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	ExpiresAt      time.Time   `json:"expires_at"`
}

type NotificationDismissed struct {
	Type           MessageType `json:"type"`
	NotificationID string      `json:"notification_id"`
	Reason         string      `json:"reason"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeDismissNotification:
		var msg DismissNotification
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		msg.NotificationID = strings.TrimSpace(msg.NotificationID)
		if msg.NotificationID == "" {
			return nil, errors.New("invalid dismiss_notification")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}

// FromEvent converts a hub event into its outbound websocket message.
func FromEvent(evt notify.Event) any {
	n := evt.Notification
	if evt.Type == notify.EventDismissed {
		return NotificationDismissed{
			Type:           TypeNotificationDismissed,
			NotificationID: n.ID,
			Reason:         string(evt.Reason),
		}
	}
	return Shown(n)
}

func Shown(n notify.Notification) NotificationShown {
	return NotificationShown{
		Type:           TypeNotificationShown,
		NotificationID: n.ID,
		Kind:           string(n.Kind),
		Message:        n.Message,
		TaskID:         n.TaskID,
		CreatedAt:      n.CreatedAt,
		ExpiresAt:      n.ExpiresAt,
	}
}

func TypeOf(v any) (MessageType, bool) {
	switch m := v.(type) {
	case DismissNotification:
		return m.Type, true
	case NotificationShown:
		return m.Type, true
	case NotificationDismissed:
		return m.Type, true
	case ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
