package websocket

import "github.com/stemsi/survey-backend/internal/analytics"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing      Action = "ping"
	ActionSetSource Action = "set_source"
)

// RequestEnvelope is every client message. Source is only read for set_source.
type RequestEnvelope struct {
	Action Action `json:"action"`
	Source string `json:"source,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventStatistics Event = "statistics"
	EventPong       Event = "pong"
)

// StatisticsResponse carries freshly computed statistics.
type StatisticsResponse struct {
	Event      Event                 `json:"event"`
	Statistics *analytics.Statistics `json:"statistics"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
