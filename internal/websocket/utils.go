package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// PongWait is how long the server waits for any client frame.
	PongWait = 60 * time.Second
	// PingPeriod must be shorter than PongWait.
	PingPeriod = PongWait * 9 / 10
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// WritePing sends a control ping frame.
func WritePing(conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// ReadJSON reads and decodes a message into the provided structure.
// Every read, and every pong, extends the read deadline by PongWait.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(PongWait))
	return conn.ReadJSON(v)
}

// KeepAlive extends the read deadline whenever the client answers a ping.
func KeepAlive(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(PongWait))
	})
}
