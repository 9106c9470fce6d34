package chain

import (
	"errors"
	"strings"
)

// ErrChainNotFound is returned when a chain is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// Currency describes a chain's native currency.
type Currency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Network holds the metadata needed to switch to or register a chain with a
// wallet provider.
type Network struct {
	ChainID     int64    `json:"chain_id"`
	Name        string   `json:"name"` // slug, e.g. "bsc"
	DisplayName string   `json:"display_name"`
	RPCURL      string   `json:"rpc_url"`
	Currency    Currency `json:"native_currency"`
	Explorer    string   `json:"block_explorer_url"`
	Testnet     bool     `json:"is_testnet"`
}

// Registry is the static network catalog. Descriptors are immutable; the
// registry is constructed once and injected where needed.
type Registry struct {
	networks []Network
	byID     map[int64]*Network
	byName   map[string]*Network
}

// NewRegistry creates the full registry of supported networks.
func NewRegistry() *Registry {
	networks := allNetworks()
	r := &Registry{
		networks: networks,
		byID:     make(map[int64]*Network, len(networks)),
		byName:   make(map[string]*Network, len(networks)),
	}
	for i := range r.networks {
		n := &r.networks[i]
		r.byID[n.ChainID] = n
		r.byName[n.Name] = n
	}
	return r
}

// All returns every network in the registry.
func (r *Registry) All() []Network {
	return r.networks
}

// ByID finds a network by its numeric chain ID.
func (r *Registry) ByID(chainID int64) (*Network, error) {
	n, ok := r.byID[chainID]
	if !ok {
		return nil, ErrChainNotFound
	}
	return n, nil
}

// ByName finds a network by its slug name (e.g. "bsc", "ethereum").
func (r *Registry) ByName(name string) (*Network, error) {
	n, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, ErrChainNotFound
	}
	return n, nil
}

// Contains reports whether chainID is in the catalog.
func (r *Registry) Contains(chainID int64) bool {
	_, ok := r.byID[chainID]
	return ok
}

// --- network data ---

var (
	eth = Currency{Name: "Ether", Symbol: "ETH", Decimals: 18}
	bnb = Currency{Name: "BNB", Symbol: "BNB", Decimals: 18}
	pol = Currency{Name: "POL", Symbol: "POL", Decimals: 18}
	avx = Currency{Name: "Avalanche", Symbol: "AVAX", Decimals: 18}
)

func allNetworks() []Network {
	return []Network{
		{
			ChainID: 1, Name: "ethereum", DisplayName: "Ethereum",
			RPCURL:   "https://ethereum-rpc.publicnode.com",
			Currency: eth,
			Explorer: "https://etherscan.io",
		},
		{
			ChainID: 56, Name: "bsc", DisplayName: "BSC",
			RPCURL:   "https://bsc-dataseed.binance.org",
			Currency: bnb,
			Explorer: "https://bscscan.com",
		},
		{
			ChainID: 137, Name: "polygon", DisplayName: "Polygon",
			RPCURL:   "https://polygon-bor-rpc.publicnode.com",
			Currency: pol,
			Explorer: "https://polygonscan.com",
		},
		{
			ChainID: 10, Name: "optimism", DisplayName: "Optimism",
			RPCURL:   "https://mainnet.optimism.io",
			Currency: eth,
			Explorer: "https://optimistic.etherscan.io",
		},
		{
			ChainID: 42161, Name: "arbitrum", DisplayName: "Arbitrum One",
			RPCURL:   "https://arb1.arbitrum.io/rpc",
			Currency: eth,
			Explorer: "https://arbiscan.io",
		},
		{
			ChainID: 8453, Name: "base", DisplayName: "Base",
			RPCURL:   "https://mainnet.base.org",
			Currency: eth,
			Explorer: "https://basescan.org",
		},
		{
			ChainID: 43114, Name: "avalanche", DisplayName: "Avalanche C-Chain",
			RPCURL:   "https://api.avax.network/ext/bc/C/rpc",
			Currency: avx,
			Explorer: "https://snowtrace.io",
		},
		{
			ChainID: 11155111, Name: "sepolia", DisplayName: "Sepolia",
			RPCURL:   "https://rpc.sepolia.org",
			Currency: eth,
			Explorer: "https://sepolia.etherscan.io",
			Testnet:  true,
		},
	}
}
