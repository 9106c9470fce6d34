// Package wallet holds the static catalog of supported wallet integrations.
package wallet

import (
	"errors"
	"fmt"

	"wconnect/internal/errs"
)

// ErrWalletNotFound is returned when a wallet id is not in the registry.
var ErrWalletNotFound = errors.New("wallet not found")

// InstallProbe reports whether the wallet integration behind id is available
// on this machine (typically answered by the bridge's connector list).
type InstallProbe func(id string) bool

// Descriptor identifies one supported wallet integration.
type Descriptor struct {
	ID         string
	Name       string
	InstallURL string

	probe    InstallProbe
	messages map[int]string // provider error code -> friendly message
}

// Installed reports whether the wallet is available. Without a probe the
// registry assumes availability and lets the connect attempt decide.
func (d *Descriptor) Installed() bool {
	if d.probe == nil {
		return true
	}
	return d.probe(d.ID)
}

// ErrorMessage maps a provider error to a user-facing message for this
// wallet, falling back to a generic line when the code is unknown.
func (d *Descriptor) ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := d.messages[errs.CodeOf(err)]; ok {
		return msg
	}
	if errs.IsTimeout(err) {
		return fmt.Sprintf("%s did not respond in time", d.Name)
	}
	return fmt.Sprintf("Could not connect to %s", d.Name)
}

// Registry is the static wallet catalog.
type Registry struct {
	wallets []Descriptor
	byID    map[string]*Descriptor
}

// NewRegistry creates the full wallet registry. probe may be nil.
func NewRegistry(probe InstallProbe) *Registry {
	wallets := allWallets()
	r := &Registry{
		wallets: wallets,
		byID:    make(map[string]*Descriptor, len(wallets)),
	}
	for i := range r.wallets {
		d := &r.wallets[i]
		d.probe = probe
		r.byID[d.ID] = d
	}
	return r
}

// All returns every wallet in the registry.
func (r *Registry) All() []Descriptor {
	return r.wallets
}

// ByID finds a wallet descriptor by id (e.g. "metaMask").
func (r *Registry) ByID(id string) (*Descriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return d, nil
}

// --- wallet data ---

func allWallets() []Descriptor {
	return []Descriptor{
		{
			ID: "metaMask", Name: "MetaMask",
			InstallURL: "https://metamask.io/download",
			messages: map[int]string{
				errs.CodeUserRejected:   "MetaMask: connection request was rejected",
				errs.CodeRequestPending: "MetaMask is already processing a request — check the extension popup",
				errs.CodeUnauthorized:   "MetaMask is locked — unlock it and try again",
			},
		},
		{
			ID: "coinbaseWallet", Name: "Coinbase Wallet",
			InstallURL: "https://www.coinbase.com/wallet/downloads",
			messages: map[int]string{
				errs.CodeUserRejected:   "Coinbase Wallet: connection request was rejected",
				errs.CodeRequestPending: "Coinbase Wallet has a pending request — approve or dismiss it first",
			},
		},
		{
			ID: "walletConnect", Name: "WalletConnect",
			InstallURL: "https://walletconnect.network",
			messages: map[int]string{
				errs.CodeUserRejected: "WalletConnect: pairing was rejected",
				errs.CodeDisconnected: "WalletConnect session expired — scan the QR code again",
			},
		},
		{
			ID: "rabby", Name: "Rabby",
			InstallURL: "https://rabby.io",
			messages: map[int]string{
				errs.CodeUserRejected:   "Rabby: connection request was rejected",
				errs.CodeRequestPending: "Rabby is already processing a request",
			},
		},
		{
			ID: "trust", Name: "Trust Wallet",
			InstallURL: "https://trustwallet.com/download",
			messages: map[int]string{
				errs.CodeUserRejected: "Trust Wallet: connection request was rejected",
			},
		},
	}
}
