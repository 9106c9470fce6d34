// Package providertest provides a scriptable in-memory Provider for tests.
package providertest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"wconnect/internal/errs"
	"wconnect/internal/provider"
)

// DefaultAddress is the account the fake connects as.
const DefaultAddress = "0xAb5801a7D398351b8bE11C439e05C5b3259aeC9B"

// Fake is a scriptable wallet provider. The zero value is not usable; create
// it with New. All fields guarded by the internal mutex must be scripted
// before the fake is shared across goroutines.
type Fake struct {
	mu sync.Mutex

	Address     string
	chainID     int64
	blockNumber uint64
	known       map[int64]bool
	account     *provider.Account
	connectors  []provider.Connector

	// ConnectErrs is a queue of errors returned by successive Connect calls;
	// once drained, ConnectErr (sticky) applies, then success.
	ConnectErrs   []error
	ConnectErr    error
	DisconnectErr error
	AccountErr    error

	// RequestErrs injects a sticky error per method.
	RequestErrs map[string]error

	// RequestFunc fully overrides Request when set.
	RequestFunc func(ctx context.Context, method string, params ...any) (json.RawMessage, error)

	// OnRequest is called at the start of every Request (and Connect),
	// before any scripted behavior. Useful for advancing fake clocks.
	OnRequest func(method string)

	calls map[string]int
}

// New creates a fake provider that knows chain 1 and reports the metaMask
// and coinbaseWallet connectors as ready.
func New() *Fake {
	return &Fake{
		Address:     DefaultAddress,
		chainID:     1,
		blockNumber: 0x10,
		known:       map[int64]bool{1: true},
		connectors: []provider.Connector{
			{ID: "metaMask", Name: "MetaMask", Ready: true},
			{ID: "coinbaseWallet", Name: "Coinbase Wallet", Ready: true},
			{ID: "walletConnect", Name: "WalletConnect", Ready: false},
		},
		RequestErrs: make(map[string]error),
		calls:       make(map[string]int),
	}
}

// Calls returns how many times method was invoked. Connect and Disconnect
// count under "connect" and "disconnect".
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// ChainID returns the fake's active chain.
func (f *Fake) ChainID() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chainID
}

// KnowsChain reports whether the chain has been registered with the fake.
func (f *Fake) KnowsChain(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.known[id]
}

// SetAccount scripts an existing provider-side session.
func (f *Fake) SetAccount(address string, chainID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.account = &provider.Account{Address: address, ChainID: chainID}
	f.chainID = chainID
}

// DropAccount clears the provider-side session without counting a call.
func (f *Fake) DropAccount() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.account = nil
}

func (f *Fake) Connect(ctx context.Context, connectorID string) (provider.Account, error) {
	if f.OnRequest != nil {
		f.OnRequest("connect")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["connect"]++

	if len(f.ConnectErrs) > 0 {
		err := f.ConnectErrs[0]
		f.ConnectErrs = f.ConnectErrs[1:]
		if err != nil {
			return provider.Account{}, err
		}
	} else if f.ConnectErr != nil {
		return provider.Account{}, f.ConnectErr
	}

	f.account = &provider.Account{Address: f.Address, ChainID: f.chainID}
	return *f.account, nil
}

func (f *Fake) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["disconnect"]++
	if f.DisconnectErr != nil {
		return f.DisconnectErr
	}
	f.account = nil
	return nil
}

func (f *Fake) Account(ctx context.Context) (*provider.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["account"]++
	if f.AccountErr != nil {
		return nil, f.AccountErr
	}
	if f.account == nil {
		return nil, nil
	}
	acct := *f.account
	return &acct, nil
}

func (f *Fake) Connected(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account != nil
}

func (f *Fake) Connectors(ctx context.Context) ([]provider.Connector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]provider.Connector, len(f.connectors))
	copy(out, f.connectors)
	return out, nil
}

func (f *Fake) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if f.OnRequest != nil {
		f.OnRequest(method)
	}
	if f.RequestFunc != nil {
		return f.RequestFunc(ctx, method, params...)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++

	if err := f.RequestErrs[method]; err != nil {
		return nil, err
	}

	switch method {
	case "eth_chainId":
		return jsonString(fmt.Sprintf("0x%x", f.chainID)), nil
	case "eth_blockNumber":
		return jsonString(fmt.Sprintf("0x%x", f.blockNumber)), nil
	case "eth_accounts":
		if f.account == nil {
			return json.RawMessage(`[]`), nil
		}
		out, _ := json.Marshal([]string{f.account.Address})
		return out, nil
	case "wallet_switchEthereumChain":
		id, err := paramChainID(params)
		if err != nil {
			return nil, err
		}
		if !f.known[id] {
			return nil, errs.Provider(errs.CodeUnrecognizedChain,
				fmt.Sprintf("Unrecognized chain ID 0x%x", id))
		}
		f.chainID = id
		if f.account != nil {
			f.account.ChainID = id
		}
		return json.RawMessage(`null`), nil
	case "wallet_addEthereumChain":
		id, err := paramChainID(params)
		if err != nil {
			return nil, err
		}
		f.known[id] = true
		return json.RawMessage(`null`), nil
	default:
		return json.RawMessage(`null`), nil
	}
}

func jsonString(s string) json.RawMessage {
	out, _ := json.Marshal(s)
	return out
}

// paramChainID extracts the hex chainId field from the first param object.
func paramChainID(params []any) (int64, error) {
	if len(params) == 0 {
		return 0, fmt.Errorf("missing chain params")
	}
	raw, err := json.Marshal(params[0])
	if err != nil {
		return 0, err
	}
	var p struct {
		ChainID string `json:"chainId"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return 0, err
	}
	var id int64
	if _, err := fmt.Sscanf(p.ChainID, "0x%x", &id); err != nil {
		return 0, fmt.Errorf("malformed chainId %q", p.ChainID)
	}
	return id, nil
}
