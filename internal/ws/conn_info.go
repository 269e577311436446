package ws

import "time"

// ConnInfo carries handshake metadata attached to a live connection, used for
// lifecycle events and audit correlation.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
