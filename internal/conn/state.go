package conn

import "time"

// Status is the connection lifecycle state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
)

// State is the single source of truth for connection status. It is mutated
// only by the Controller; consumers receive copies. Address and ChainID are
// non-empty only while Status is connected (or reconnecting, which keeps the
// last known identity while the session is re-established).
type State struct {
	Status       Status    `json:"status"`
	WalletID     string    `json:"wallet_id,omitempty"`
	Address      string    `json:"address,omitempty"`
	ChainID      int64     `json:"chain_id,omitempty"`
	ConnectedAt  time.Time `json:"connected_at,omitzero"`
	LastActivity time.Time `json:"last_activity,omitzero"`
	Err          string    `json:"error,omitempty"`
}
