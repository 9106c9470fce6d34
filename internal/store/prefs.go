package store

import (
	"encoding/json"
	"errors"
)

// Preferences is the user-preferences blob persisted under KeyUserPreferences.
type Preferences struct {
	AutoReconnect  bool  `json:"auto_reconnect"`
	PreferredChain int64 `json:"preferred_chain,omitempty"`
}

// DefaultPreferences returns the preferences used when none are stored.
func DefaultPreferences() Preferences {
	return Preferences{AutoReconnect: true}
}

// LoadPreferences reads the preferences blob, falling back to defaults when
// the key is absent or the blob is unparseable.
func LoadPreferences(g Gateway) Preferences {
	raw, err := g.Get(KeyUserPreferences)
	if err != nil {
		return DefaultPreferences()
	}
	var p Preferences
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return DefaultPreferences()
	}
	return p
}

// SavePreferences writes the preferences blob.
func SavePreferences(g Gateway, p Preferences) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return g.Set(KeyUserPreferences, string(data))
}

// IsNotFound reports whether err is the missing-key error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
