package models

// EventType identifies a row-level change on the remote task table.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is one realtime feed message. New carries the row after the
// change (INSERT/UPDATE); Old carries the row before it (DELETE carries at
// least the id). The feed may echo this device's own pushes back; consumers
// must be idempotent.
type ChangeEvent struct {
	Type EventType `json:"eventType"`
	New  *Task     `json:"new,omitempty"`
	Old  *Task     `json:"old,omitempty"`
}
