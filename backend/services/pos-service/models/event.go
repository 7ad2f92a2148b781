package models

import "time"

type EventType string

const (
	EventOnline         EventType = "online"
	EventOffline        EventType = "offline"
	EventQueued         EventType = "queued"
	EventSyncing        EventType = "syncing"
	EventSynced         EventType = "synced"
	EventSyncFailed     EventType = "sync_failed"
	EventOrderCompleted EventType = "order_completed"
	EventReview         EventType = "review"
)

// Event is one status notification for the terminal UI.
type Event struct {
	Type       EventType `json:"type"`
	Message    string    `json:"message"`
	Count      int       `json:"count,omitempty"`
	LocalID    string    `json:"local_id,omitempty"`
	TerminalID string    `json:"terminal_id,omitempty"`
	At         time.Time `json:"at"`
}
