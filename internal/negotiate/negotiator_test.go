package negotiate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wconnect/internal/chain"
	"wconnect/internal/errs"
	"wconnect/internal/logger"
	"wconnect/internal/negotiate"
	"wconnect/internal/notify"
	"wconnect/internal/provider/providertest"
)

func newNegotiator(fake *providertest.Fake) (*negotiate.Negotiator, *notify.Capture) {
	sink := &notify.Capture{}
	n := negotiate.New(fake, chain.NewRegistry(), sink, logger.Nop())
	return n, sink
}

func TestSwitchNetworkNoOpWhenAlreadyActive(t *testing.T) {
	fake := providertest.New() // active chain is 1
	n, _ := newNegotiator(fake)

	res, err := n.SwitchNetwork(context.Background(), 1)
	require.NoError(t, err)

	assert.False(t, res.Switched)
	assert.False(t, res.Registered)
	assert.Equal(t, "already on Ethereum", res.Message)
	assert.Zero(t, fake.Calls("wallet_switchEthereumChain"))
}

func TestSwitchNetworkRegistersUnknownChainOnce(t *testing.T) {
	fake := providertest.New() // knows only chain 1
	n, sink := newNegotiator(fake)

	res, err := n.SwitchNetwork(context.Background(), 56)
	require.NoError(t, err)

	assert.True(t, res.Switched)
	assert.True(t, res.Registered)
	assert.Equal(t, int64(56), res.ChainID)
	assert.Equal(t, int64(56), fake.ChainID())
	assert.True(t, fake.KnowsChain(56))

	// One failed switch, one register, one retried switch.
	assert.Equal(t, 2, fake.Calls("wallet_switchEthereumChain"))
	assert.Equal(t, 1, fake.Calls("wallet_addEthereumChain"))

	entries := sink.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, "success", entries[len(entries)-1].Level)
	assert.Equal(t, "Switched to BSC", entries[len(entries)-1].Msg)
}

func TestSwitchNetworkKnownChainDoesNotRegister(t *testing.T) {
	fake := providertest.New()
	fake.Request(context.Background(), "wallet_addEthereumChain",
		map[string]string{"chainId": "0x89"}) // pre-register Polygon
	n, _ := newNegotiator(fake)

	res, err := n.SwitchNetwork(context.Background(), 137)
	require.NoError(t, err)

	assert.True(t, res.Switched)
	assert.False(t, res.Registered)
	assert.Equal(t, 1, fake.Calls("wallet_switchEthereumChain"))
	assert.Equal(t, 1, fake.Calls("wallet_addEthereumChain")) // only the pre-registration
}

func TestSwitchNetworkSurfacesNonChainErrors(t *testing.T) {
	fake := providertest.New()
	fake.RequestErrs["wallet_switchEthereumChain"] =
		errs.Provider(errs.CodeUserRejected, "User rejected the request")
	n, _ := newNegotiator(fake)

	_, err := n.SwitchNetwork(context.Background(), 137)
	require.Error(t, err)

	// A rejection must not trigger the register fallback.
	assert.Zero(t, fake.Calls("wallet_addEthereumChain"))
}

func TestSwitchNetworkSurfacesRegisterFailure(t *testing.T) {
	fake := providertest.New()
	fake.RequestErrs["wallet_addEthereumChain"] = errors.New("bridge closed")
	n, _ := newNegotiator(fake)

	_, err := n.SwitchNetwork(context.Background(), 137)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registering chain")
	assert.Equal(t, int64(1), fake.ChainID())
}

func TestSwitchNetworkRejectsUnsupportedChain(t *testing.T) {
	fake := providertest.New()
	n, _ := newNegotiator(fake)

	_, err := n.SwitchNetwork(context.Background(), 999999)
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	assert.Zero(t, fake.Calls("wallet_switchEthereumChain"))
}

func TestValidateNetwork(t *testing.T) {
	n, _ := newNegotiator(providertest.New())
	assert.True(t, n.ValidateNetwork(1))
	assert.True(t, n.ValidateNetwork(8453))
	assert.False(t, n.ValidateNetwork(999999))
}

func TestGetStatus(t *testing.T) {
	fake := providertest.New()
	n, _ := newNegotiator(fake)
	ctx := context.Background()

	st := n.GetStatus(ctx, 1)
	assert.True(t, st.Supported)
	assert.True(t, st.Active)
	assert.Equal(t, "Ethereum", st.Name)

	st = n.GetStatus(ctx, 56)
	assert.True(t, st.Supported)
	assert.False(t, st.Active)

	st = n.GetStatus(ctx, 999999)
	assert.False(t, st.Supported)
}
