// Package provider defines the wallet provider adapter: the capability
// interface through which the core talks to an external wallet bridge.
package provider

import (
	"context"
	"encoding/json"
)

// Account is the identity the provider is connected as.
type Account struct {
	Address string
	ChainID int64
}

// Connector is one wallet integration the provider can connect through.
type Connector struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

// Provider is the adapter contract. Implementations must be safe for
// concurrent use; every method honors ctx cancellation.
type Provider interface {
	// Connect asks the provider to establish a session through the given
	// connector and returns the resulting account.
	Connect(ctx context.Context, connectorID string) (Account, error)

	// Disconnect tears down the provider-side session.
	Disconnect(ctx context.Context) error

	// Account returns the current session account, or nil when there is none.
	Account(ctx context.Context) (*Account, error)

	// Connected reports whether a provider-side session exists.
	Connected(ctx context.Context) bool

	// Connectors lists the wallet integrations the provider knows about.
	Connectors(ctx context.Context) ([]Connector, error)

	// Request performs a raw provider method call.
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}
