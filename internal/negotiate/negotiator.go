// Package negotiate moves the wallet provider's active chain, registering
// unknown chains on the fly.
package negotiate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"wconnect/internal/chain"
	"wconnect/internal/errs"
	"wconnect/internal/logger"
	"wconnect/internal/notify"
	"wconnect/internal/provider"
)

// Result describes the outcome of a successful network switch.
type Result struct {
	ChainID    int64
	Name       string
	Switched   bool // false when already on the requested chain
	Registered bool // true when the register-chain fallback ran
	Message    string
}

// Status describes a chain from the negotiator's point of view.
type Status struct {
	Supported bool
	Name      string
	Active    bool
}

// Negotiator performs the switch-chain / register-chain protocol.
type Negotiator struct {
	p      provider.Provider
	chains *chain.Registry
	notify notify.Sink
	log    *logger.Logger
}

// New creates a negotiator over the given provider and network catalog.
func New(p provider.Provider, chains *chain.Registry, sink notify.Sink, log *logger.Logger) *Negotiator {
	return &Negotiator{p: p, chains: chains, notify: sink, log: log.WithComponent("negotiate")}
}

// EIP-3326 / EIP-3085 parameter shapes.
type switchChainParams struct {
	ChainID string `json:"chainId"`
}

type addChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	RPCURLs           []string       `json:"rpcUrls"`
	NativeCurrency    chain.Currency `json:"nativeCurrency"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

// SwitchNetwork moves the provider's active chain to chainID. When the
// provider reports the chain as unrecognized, the chain is registered from
// its catalog descriptor and the switch retried exactly once. Any other
// switch failure is surfaced as-is: blindly registering on every error
// would mask real failures.
func (n *Negotiator) SwitchNetwork(ctx context.Context, chainID int64) (Result, error) {
	desc, err := n.chains.ByID(chainID)
	if err != nil {
		return Result{}, errs.Validation(fmt.Sprintf("chain %d is not supported", chainID))
	}

	current, err := n.currentChain(ctx)
	if err == nil && current == chainID {
		return Result{
			ChainID: chainID,
			Name:    desc.DisplayName,
			Message: fmt.Sprintf("already on %s", desc.DisplayName),
		}, nil
	}

	registered := false
	err = n.switchCall(ctx, chainID)
	if errs.IsUnrecognizedChain(err) {
		n.log.Info("chain unknown to provider, registering", zap.String("chain", desc.Name))
		if regErr := n.registerCall(ctx, desc); regErr != nil {
			return Result{}, fmt.Errorf("registering chain %s: %w", desc.Name, regErr)
		}
		registered = true
		err = n.switchCall(ctx, chainID)
	}
	if err != nil {
		return Result{}, fmt.Errorf("switching to %s: %w", desc.Name, err)
	}

	n.notify.Success(fmt.Sprintf("Switched to %s", desc.DisplayName))
	return Result{
		ChainID:    chainID,
		Name:       desc.DisplayName,
		Switched:   true,
		Registered: registered,
		Message:    fmt.Sprintf("switched to %s", desc.DisplayName),
	}, nil
}

// ValidateNetwork reports whether chainID is in the catalog. Pure membership
// check; the provider is not touched.
func (n *Negotiator) ValidateNetwork(chainID int64) bool {
	return n.chains.Contains(chainID)
}

// GetStatus reports how chainID relates to the catalog and to the provider's
// active chain.
func (n *Negotiator) GetStatus(ctx context.Context, chainID int64) Status {
	desc, err := n.chains.ByID(chainID)
	if err != nil {
		return Status{}
	}
	current, err := n.currentChain(ctx)
	return Status{
		Supported: true,
		Name:      desc.DisplayName,
		Active:    err == nil && current == chainID,
	}
}

func (n *Negotiator) switchCall(ctx context.Context, chainID int64) error {
	_, err := n.p.Request(ctx, "wallet_switchEthereumChain",
		switchChainParams{ChainID: hexChainID(chainID)})
	return err
}

func (n *Negotiator) registerCall(ctx context.Context, desc *chain.Network) error {
	_, err := n.p.Request(ctx, "wallet_addEthereumChain", addChainParams{
		ChainID:           hexChainID(desc.ChainID),
		ChainName:         desc.DisplayName,
		RPCURLs:           []string{desc.RPCURL},
		NativeCurrency:    desc.Currency,
		BlockExplorerURLs: explorerURLs(desc),
	})
	return err
}

func (n *Negotiator) currentChain(ctx context.Context) (int64, error) {
	raw, err := n.p.Request(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}
	var hex string
	if err := json.Unmarshal(raw, &hex); err != nil {
		return 0, err
	}
	id, err := hexutil.DecodeBig(hex)
	if err != nil {
		return 0, fmt.Errorf("parsing chain id %q: %w", hex, err)
	}
	return id.Int64(), nil
}

func hexChainID(id int64) string {
	return fmt.Sprintf("0x%x", id)
}

func explorerURLs(desc *chain.Network) []string {
	if desc.Explorer == "" {
		return nil
	}
	return []string{desc.Explorer}
}
