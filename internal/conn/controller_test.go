package conn_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wconnect/internal/chain"
	"wconnect/internal/conn"
	"wconnect/internal/errs"
	"wconnect/internal/health"
	"wconnect/internal/logger"
	"wconnect/internal/notify"
	"wconnect/internal/provider/providertest"
	"wconnect/internal/store"
	"wconnect/internal/wallet"
)

func newController(fake *providertest.Fake, st store.Gateway, sink notify.Sink) *conn.Controller {
	if sink == nil {
		sink = notify.Nop{}
	}
	return conn.New(conn.Deps{
		Provider: fake,
		Store:    st,
		Wallets:  wallet.NewRegistry(nil),
		Chains:   chain.NewRegistry(),
		Notify:   sink,
		Log:      logger.Nop(),
	}, conn.Options{
		MaxRetries: 3,
		Health: health.Options{
			// Keep the background loop quiet during tests.
			Interval:      time.Hour,
			AutoReconnect: false,
		},
	})
}

func TestConnectSuccess(t *testing.T) {
	fake := providertest.New()
	st := store.NewMem()
	c := newController(fake, st, nil)

	res := c.Connect(context.Background(), "metaMask")

	require.True(t, res.OK, res.Message)
	assert.Equal(t, conn.CodeConnected, res.Code)
	assert.NotEmpty(t, res.AttemptID)
	assert.Equal(t, conn.StatusConnected, res.State.Status)
	assert.Equal(t, "metaMask", res.State.WalletID)
	assert.Equal(t, providertest.DefaultAddress, res.State.Address)
	assert.Equal(t, int64(1), res.State.ChainID)
	assert.False(t, res.State.ConnectedAt.IsZero())

	v, err := st.Get(store.KeyLastWalletID)
	require.NoError(t, err)
	assert.Equal(t, "metaMask", v)
	_, err = st.Get(store.KeyConnectionStart)
	assert.NoError(t, err)
	_, err = st.Get(store.KeyConnectionState)
	assert.NoError(t, err)
}

func TestConnectUnknownWallet(t *testing.T) {
	fake := providertest.New()
	c := newController(fake, store.NewMem(), nil)

	res := c.Connect(context.Background(), "phantom")

	assert.False(t, res.OK)
	assert.Equal(t, conn.CodeUnknownWallet, res.Code)
	assert.Zero(t, fake.Calls("connect"))
}

func TestConnectSameWalletIsIdempotent(t *testing.T) {
	fake := providertest.New()
	c := newController(fake, store.NewMem(), nil)

	require.True(t, c.Connect(context.Background(), "metaMask").OK)
	res := c.Connect(context.Background(), "metaMask")

	assert.True(t, res.OK)
	assert.Equal(t, conn.CodeAlreadyConnected, res.Code)
	assert.Equal(t, 1, fake.Calls("connect"))
}

func TestConnectOtherWalletWhileConnected(t *testing.T) {
	fake := providertest.New()
	c := newController(fake, store.NewMem(), nil)

	require.True(t, c.Connect(context.Background(), "metaMask").OK)
	res := c.Connect(context.Background(), "coinbaseWallet")

	assert.False(t, res.OK)
	assert.Equal(t, conn.CodeBusy, res.Code)
	assert.Contains(t, res.Message, "disconnect first")
	assert.Equal(t, 1, fake.Calls("connect"))
}

func TestConnectWhileAttemptInFlight(t *testing.T) {
	fake := providertest.New()
	c := newController(fake, store.NewMem(), nil)

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	fake.OnRequest = func(method string) {
		if method == "connect" {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
		}
	}

	first := make(chan conn.Result, 1)
	go func() { first <- c.Connect(context.Background(), "metaMask") }()
	<-started

	res := c.Connect(context.Background(), "metaMask")
	assert.Equal(t, conn.CodeBusy, res.Code)

	close(release)
	select {
	case r := <-first:
		require.True(t, r.OK, r.Message)
	case <-time.After(5 * time.Second):
		t.Fatal("first connect never finished")
	}
	assert.Equal(t, 1, fake.Calls("connect"))
}

func TestConnectRetryBudget(t *testing.T) {
	fake := providertest.New()
	fake.ConnectErr = errs.Provider(errs.CodeUserRejected, "User rejected the request")
	sink := &notify.Capture{}
	c := newController(fake, store.NewMem(), sink)

	for i := 0; i < 3; i++ {
		res := c.Connect(context.Background(), "metaMask")
		assert.False(t, res.OK)
		assert.Equal(t, conn.CodeFailed, res.Code)
		assert.Equal(t, "MetaMask: connection request was rejected", res.Message)
	}

	// Fourth attempt is blocked before the provider is touched.
	res := c.Connect(context.Background(), "metaMask")
	assert.Equal(t, conn.CodeMaxRetries, res.Code)
	assert.Contains(t, res.Message, "wconnect retry reset")
	assert.Equal(t, 3, fake.Calls("connect"))

	// The counter is per wallet.
	fake.ConnectErr = nil
	res = c.Connect(context.Background(), "coinbaseWallet")
	assert.True(t, res.OK)
}

func TestConnectSuccessResetsRetryBudget(t *testing.T) {
	fake := providertest.New()
	fake.ConnectErrs = []error{
		errs.Provider(errs.CodeUserRejected, "rejected"),
		errs.Provider(errs.CodeUserRejected, "rejected"),
		nil, // third attempt succeeds
	}
	c := newController(fake, store.NewMem(), nil)

	c.Connect(context.Background(), "metaMask")
	c.Connect(context.Background(), "metaMask")
	require.True(t, c.Connect(context.Background(), "metaMask").OK)

	assert.Equal(t, 3, c.Retry().Remaining("metaMask"))
}

func TestConnectPendingDoesNotBurnRetryBudget(t *testing.T) {
	fake := providertest.New()
	fake.ConnectErr = errs.Provider(errs.CodeRequestPending, "Request already pending")
	c := newController(fake, store.NewMem(), nil)

	res := c.Connect(context.Background(), "metaMask")
	assert.False(t, res.OK)
	assert.Equal(t, conn.CodePending, res.Code)
	assert.Contains(t, res.Message, "MetaMask is already processing a request")
	assert.Equal(t, 3, c.Retry().Remaining("metaMask"))
	assert.Equal(t, conn.StatusDisconnected, c.Snapshot().Status)
}

func TestConnectResyncsWhenProviderAlreadyConnected(t *testing.T) {
	fake := providertest.New()
	fake.ConnectErr = errors.New("connector already connected")
	fake.SetAccount(providertest.DefaultAddress, 1)
	sink := &notify.Capture{}
	c := newController(fake, store.NewMem(), sink)

	res := c.Connect(context.Background(), "metaMask")

	require.True(t, res.OK, res.Message)
	assert.Equal(t, conn.CodeConnected, res.Code)
	assert.Equal(t, providertest.DefaultAddress, res.State.Address)

	var restored bool
	for _, e := range sink.Entries() {
		if e.Level == "success" {
			assert.Contains(t, e.Msg, "Restored session with")
			restored = true
		}
	}
	assert.True(t, restored)
}

func TestDisconnectClearsEverything(t *testing.T) {
	fake := providertest.New()
	st := store.NewMem()
	c := newController(fake, st, nil)

	require.True(t, c.Connect(context.Background(), "metaMask").OK)
	res := c.Disconnect(context.Background())

	assert.True(t, res.OK)
	assert.Equal(t, conn.CodeDisconnected, res.Code)
	assert.Equal(t, conn.StatusDisconnected, c.Snapshot().Status)

	for _, key := range []string{store.KeyLastWalletID, store.KeyConnectionStart, store.KeyConnectionState} {
		_, err := st.Get(key)
		assert.ErrorIs(t, err, store.ErrNotFound, key)
	}
	assert.Equal(t, 1, fake.Calls("disconnect"))
}

func TestDisconnectSucceedsLocallyWhenProviderFails(t *testing.T) {
	fake := providertest.New()
	st := store.NewMem()
	c := newController(fake, st, nil)

	require.True(t, c.Connect(context.Background(), "metaMask").OK)
	fake.DisconnectErr = errors.New("bridge closed")

	res := c.Disconnect(context.Background())
	assert.True(t, res.OK)
	assert.Equal(t, conn.StatusDisconnected, c.Snapshot().Status)
	_, err := st.Get(store.KeyLastWalletID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDisconnectWinsOverInFlightConnect(t *testing.T) {
	fake := providertest.New()
	c := newController(fake, store.NewMem(), nil)

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	fake.OnRequest = func(method string) {
		if method == "connect" {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
		}
	}

	first := make(chan conn.Result, 1)
	go func() { first <- c.Connect(context.Background(), "metaMask") }()
	<-started

	c.Disconnect(context.Background())
	close(release)

	select {
	case res := <-first:
		assert.Equal(t, conn.CodeDiscarded, res.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("connect never finished")
	}
	assert.Equal(t, conn.StatusDisconnected, c.Snapshot().Status)
}

func TestRetryConnectionUsesLastWallet(t *testing.T) {
	fake := providertest.New()
	st := store.NewMem()
	c := newController(fake, st, nil)

	require.True(t, c.Connect(context.Background(), "metaMask").OK)
	c.Disconnect(context.Background())

	// Persisted wallet id is gone after disconnect; retry has nothing to use.
	res := c.RetryConnection(context.Background())
	assert.Equal(t, conn.CodeNoSession, res.Code)

	// With a stored wallet id, retry reconnects it.
	require.NoError(t, st.Set(store.KeyLastWalletID, "metaMask"))
	res = c.RetryConnection(context.Background())
	assert.True(t, res.OK)
	assert.Equal(t, "metaMask", c.Snapshot().WalletID)
}

func TestRestoreSessionFreshState(t *testing.T) {
	fake := providertest.New()
	st := store.NewMem()
	c := newController(fake, st, nil)

	require.NoError(t, st.Set(store.KeyLastWalletID, "metaMask"))
	require.NoError(t, st.Set(store.KeyConnectionStart, time.Now().Add(-time.Hour).Format(time.RFC3339)))

	res := c.RestoreSession(context.Background())
	require.True(t, res.OK, res.Message)
	assert.Equal(t, conn.StatusConnected, c.Snapshot().Status)
}

func TestRestoreSessionExpired(t *testing.T) {
	fake := providertest.New()
	st := store.NewMem()
	c := newController(fake, st, nil)

	require.NoError(t, st.Set(store.KeyLastWalletID, "metaMask"))
	require.NoError(t, st.Set(store.KeyConnectionStart, time.Now().Add(-25*time.Hour).Format(time.RFC3339)))

	res := c.RestoreSession(context.Background())
	assert.False(t, res.OK)
	assert.Equal(t, conn.CodeExpired, res.Code)
	assert.Zero(t, fake.Calls("connect"))

	_, err := st.Get(store.KeyConnectionStart)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRestoreSessionNothingStored(t *testing.T) {
	c := newController(providertest.New(), store.NewMem(), nil)
	res := c.RestoreSession(context.Background())
	assert.Equal(t, conn.CodeNoSession, res.Code)
}

func TestRestoreSessionMalformedTimestamp(t *testing.T) {
	fake := providertest.New()
	st := store.NewMem()
	c := newController(fake, st, nil)

	require.NoError(t, st.Set(store.KeyLastWalletID, "metaMask"))
	require.NoError(t, st.Set(store.KeyConnectionStart, "yesterday-ish"))

	res := c.RestoreSession(context.Background())
	assert.Equal(t, conn.CodeExpired, res.Code)
	assert.Zero(t, fake.Calls("connect"))
}

func TestRestoreSessionFailedConnectClearsTimestamp(t *testing.T) {
	fake := providertest.New()
	fake.ConnectErr = errs.Provider(errs.CodeUserRejected, "rejected")
	st := store.NewMem()
	c := newController(fake, st, nil)

	require.NoError(t, st.Set(store.KeyLastWalletID, "metaMask"))
	require.NoError(t, st.Set(store.KeyConnectionStart, time.Now().Format(time.RFC3339)))

	res := c.RestoreSession(context.Background())
	assert.False(t, res.OK)
	assert.Equal(t, 1, fake.Calls("connect"))

	_, err := st.Get(store.KeyConnectionStart)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReconnectKeepsWalletIdentity(t *testing.T) {
	fake := providertest.New()
	c := newController(fake, store.NewMem(), nil)

	require.True(t, c.Connect(context.Background(), "metaMask").OK)
	require.NoError(t, c.Reconnect(context.Background()))

	st := c.Snapshot()
	assert.Equal(t, conn.StatusConnected, st.Status)
	assert.Equal(t, "metaMask", st.WalletID)
	assert.Equal(t, 2, fake.Calls("connect"))
}

func TestReconnectFailureKeepsSessionAlive(t *testing.T) {
	fake := providertest.New()
	c := newController(fake, store.NewMem(), nil)

	require.True(t, c.Connect(context.Background(), "metaMask").OK)
	fake.ConnectErr = errors.New("bridge hiccup")

	err := c.Reconnect(context.Background())
	require.Error(t, err)
	// Still connected: the monitor keeps probing and decides what happens next.
	assert.Equal(t, conn.StatusConnected, c.Snapshot().Status)
}

func TestReconnectWithoutSession(t *testing.T) {
	c := newController(providertest.New(), store.NewMem(), nil)
	assert.Error(t, c.Reconnect(context.Background()))
}

func TestSessionLostClearsState(t *testing.T) {
	fake := providertest.New()
	st := store.NewMem()
	sink := &notify.Capture{}
	c := newController(fake, st, sink)

	require.True(t, c.Connect(context.Background(), "metaMask").OK)
	c.SessionLost()

	snap := c.Snapshot()
	assert.Equal(t, conn.StatusDisconnected, snap.Status)
	_, err := st.Get(store.KeyLastWalletID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	entries := sink.Entries()
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, "error", last.Level)
	assert.Contains(t, last.Msg, "Connection lost")
}

func TestSwitchNetworkRequiresConnection(t *testing.T) {
	c := newController(providertest.New(), store.NewMem(), nil)
	res := c.SwitchNetwork(context.Background(), 137)
	assert.Equal(t, conn.CodeNotConnected, res.Code)
}

func TestSwitchNetworkUpdatesState(t *testing.T) {
	fake := providertest.New()
	st := store.NewMem()
	c := newController(fake, st, nil)

	require.True(t, c.Connect(context.Background(), "metaMask").OK)
	res := c.SwitchNetwork(context.Background(), 137)

	require.True(t, res.OK, res.Message)
	assert.Equal(t, conn.CodeSwitched, res.Code)
	assert.Equal(t, int64(137), c.Snapshot().ChainID)
	assert.Equal(t, int64(137), fake.ChainID())
	assert.True(t, fake.KnowsChain(137))
}

func TestSwitchNetworkSupersededByDisconnect(t *testing.T) {
	fake := providertest.New()
	st := store.NewMem()
	c := newController(fake, st, nil)

	require.True(t, c.Connect(context.Background(), "metaMask").OK)

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	fake.OnRequest = func(method string) {
		if method == "wallet_switchEthereumChain" {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
		}
	}

	done := make(chan conn.Result, 1)
	go func() { done <- c.SwitchNetwork(context.Background(), 56) }()
	<-started

	c.Disconnect(context.Background())
	close(release)

	select {
	case res := <-done:
		assert.Equal(t, conn.CodeDiscarded, res.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("switch never finished")
	}

	// The keys Disconnect removed must stay removed.
	for _, key := range []string{store.KeyLastWalletID, store.KeyConnectionStart, store.KeyConnectionState} {
		_, err := st.Get(key)
		assert.ErrorIs(t, err, store.ErrNotFound, key)
	}
	assert.Equal(t, conn.StatusDisconnected, c.Snapshot().Status)
}

func TestSwitchNetworkFailureLeavesChainUntouched(t *testing.T) {
	fake := providertest.New()
	c := newController(fake, store.NewMem(), nil)

	require.True(t, c.Connect(context.Background(), "metaMask").OK)
	fake.RequestErrs["wallet_switchEthereumChain"] =
		errs.Provider(errs.CodeUserRejected, "User rejected the request")

	res := c.SwitchNetwork(context.Background(), 56)
	assert.False(t, res.OK)
	assert.Equal(t, conn.CodeFailed, res.Code)
	assert.Equal(t, int64(1), c.Snapshot().ChainID)
}

func TestValidateNetwork(t *testing.T) {
	c := newController(providertest.New(), store.NewMem(), nil)
	assert.True(t, c.ValidateNetwork(1))
	assert.False(t, c.ValidateNetwork(999999))
}

func TestHealthLifecycle(t *testing.T) {
	fake := providertest.New()
	c := newController(fake, store.NewMem(), nil)

	// Before connecting there is nothing to check.
	snap := c.CheckHealth(context.Background())
	assert.Equal(t, health.StatusDisconnected, snap.Status)

	require.True(t, c.Connect(context.Background(), "metaMask").OK)
	require.Eventually(t, func() bool {
		return c.CheckHealth(context.Background()).Status == health.StatusHealthy
	}, 5*time.Second, 20*time.Millisecond)

	c.Disconnect(context.Background())
	assert.Equal(t, health.StatusDisconnected, c.Health().Status)
}
