package models

// EventType — тип события реального времени.
type EventType string

const (
	EventSubscription EventType = "subscription"
	EventGazette      EventType = "gazette"
)

// Event отправляется клиенту через websocket. Доставка не гарантируется.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}
