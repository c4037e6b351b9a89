package types

import "time"

// EventLevel is the severity of a progress event.
type EventLevel string

const (
	LevelInfo    EventLevel = "info"
	LevelWarn    EventLevel = "warn"
	LevelError   EventLevel = "error"
	LevelSuccess EventLevel = "success"
)

// ProgressEvent is a structured pipeline progress update. The engine emits
// these through a callback and never prints; callers (CLI, dashboard) decide
// how to display them.
type ProgressEvent struct {
	Stage       string     `json:"stage"`
	Level       EventLevel `json:"level"`
	CurrentItem string     `json:"current_item,omitempty"`
	Completed   int        `json:"completed"`
	Total       int        `json:"total"`
	Message     string     `json:"message"`
	Timestamp   time.Time  `json:"timestamp"`
}

// EventFunc receives progress events. A nil EventFunc disables emission.
type EventFunc func(ProgressEvent)
