package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"wconnect/internal/errs"
	"wconnect/internal/logger"
)

// Provider methods spoken by the bridge. The eth_/wallet_ namespaces follow
// EIP-1193; the bridge_ namespace is specific to the wconnect bridge daemon.
const (
	methodRequestAccounts = "eth_requestAccounts"
	methodAccounts        = "eth_accounts"
	methodChainID         = "eth_chainId"
	methodBlockNumber     = "eth_blockNumber"
	methodSwitchChain     = "wallet_switchEthereumChain"
	methodAddChain        = "wallet_addEthereumChain"
	methodRevoke          = "wallet_revokePermissions"
	methodConnectors      = "bridge_connectors"
)

const dialProbeTimeout = 5 * time.Second

// Bridge talks to a wallet bridge daemon over JSON-RPC (HTTP or WebSocket).
type Bridge struct {
	c   *rpc.Client
	log *logger.Logger
}

// Dial connects to the bridge at url and validates once, up front, that the
// endpoint implements the provider interface. Non-conforming endpoints are
// rejected with a validation error instead of failing later in a hot path.
func Dial(ctx context.Context, url, authToken string, log *logger.Logger) (*Bridge, error) {
	var opts []rpc.ClientOption
	if authToken != "" {
		opts = append(opts, rpc.WithHeader("Authorization", "Bearer "+authToken))
	}

	c, err := rpc.DialOptions(ctx, url, opts...)
	if err != nil {
		return nil, errs.Wrap(errs.KindNetwork, err, "dialing wallet bridge")
	}

	b := &Bridge{c: c, log: log.WithComponent("bridge")}

	probeCtx, cancel := context.WithTimeout(ctx, dialProbeTimeout)
	defer cancel()
	if _, err := b.chainID(probeCtx); err != nil {
		c.Close()
		return nil, errs.Wrap(errs.KindValidation, err,
			fmt.Sprintf("endpoint %s does not implement the wallet provider interface", url))
	}
	return b, nil
}

// Close releases the underlying RPC connection.
func (b *Bridge) Close() {
	b.c.Close()
}

// Connect implements Provider.
func (b *Bridge) Connect(ctx context.Context, connectorID string) (Account, error) {
	var accounts []string
	err := b.c.CallContext(ctx, &accounts, methodRequestAccounts, connectorID)
	if err != nil {
		return Account{}, classify(err, "connect request")
	}
	if len(accounts) == 0 {
		return Account{}, errs.Provider(errs.CodeUnauthorized, "provider returned no accounts")
	}
	if !common.IsHexAddress(accounts[0]) {
		return Account{}, errs.Validation("provider returned malformed address " + accounts[0])
	}

	chainID, err := b.chainID(ctx)
	if err != nil {
		return Account{}, classify(err, "chain id query")
	}
	return Account{Address: accounts[0], ChainID: chainID}, nil
}

// Disconnect implements Provider.
func (b *Bridge) Disconnect(ctx context.Context) error {
	err := b.c.CallContext(ctx, nil, methodRevoke, map[string]any{"eth_accounts": map[string]any{}})
	if err != nil {
		return classify(err, "revoke permissions")
	}
	return nil
}

// Account implements Provider.
func (b *Bridge) Account(ctx context.Context) (*Account, error) {
	var accounts []string
	if err := b.c.CallContext(ctx, &accounts, methodAccounts); err != nil {
		return nil, classify(err, "account query")
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	chainID, err := b.chainID(ctx)
	if err != nil {
		return nil, classify(err, "chain id query")
	}
	return &Account{Address: accounts[0], ChainID: chainID}, nil
}

// Connected implements Provider.
func (b *Bridge) Connected(ctx context.Context) bool {
	acct, err := b.Account(ctx)
	return err == nil && acct != nil
}

// Connectors implements Provider.
func (b *Bridge) Connectors(ctx context.Context) ([]Connector, error) {
	var out []Connector
	if err := b.c.CallContext(ctx, &out, methodConnectors); err != nil {
		return nil, classify(err, "connector listing")
	}
	return out, nil
}

// Request implements Provider.
func (b *Bridge) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := b.c.CallContext(ctx, &raw, method, params...); err != nil {
		return nil, classify(err, method)
	}
	return raw, nil
}

func (b *Bridge) chainID(ctx context.Context) (int64, error) {
	var hex string
	if err := b.c.CallContext(ctx, &hex, methodChainID); err != nil {
		return 0, err
	}
	id, err := hexutil.DecodeBig(hex)
	if err != nil {
		return 0, fmt.Errorf("parsing chain id %q: %w", hex, err)
	}
	return id.Int64(), nil
}

// classify wraps a raw RPC failure into the error taxonomy exactly once, at
// this boundary.
func classify(err error, op string) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &errs.Error{Kind: errs.KindProvider, Code: rpcErr.ErrorCode(), Msg: op, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.KindTimeout, err, op+" timed out")
	}
	return errs.Wrap(errs.KindNetwork, err, op)
}
