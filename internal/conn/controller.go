// Package conn owns the connection lifecycle: the state machine, the retry
// gate, persistence of the session, and the health monitor's lifecycle.
package conn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wconnect/internal/chain"
	"wconnect/internal/errs"
	"wconnect/internal/health"
	"wconnect/internal/logger"
	"wconnect/internal/negotiate"
	"wconnect/internal/notify"
	"wconnect/internal/provider"
	"wconnect/internal/retry"
	"wconnect/internal/store"
	"wconnect/internal/wallet"
)

// Deps are the collaborators injected into the controller.
type Deps struct {
	Provider provider.Provider
	Store    store.Gateway
	Wallets  *wallet.Registry
	Chains   *chain.Registry
	Notify   notify.Sink
	Log      *logger.Logger
}

// Options configures the controller.
type Options struct {
	ConnectTimeout   time.Duration // budget for one provider connect, default 30s
	MaxConnectionAge time.Duration // persisted-session freshness window, default 24h
	MaxRetries       int           // manual retry cap, default 3
	Health           health.Options
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 30 * time.Second
	}
	if o.MaxConnectionAge <= 0 {
		o.MaxConnectionAge = 24 * time.Hour
	}
	return o
}

// Controller is the connection lifecycle orchestrator.
type Controller struct {
	provider   provider.Provider
	store      store.Gateway
	wallets    *wallet.Registry
	chains     *chain.Registry
	notify     notify.Sink
	log        *logger.Logger
	retry      *retry.Policy
	negotiator *negotiate.Negotiator
	monitor    *health.Monitor
	opts       Options
	now        func() time.Time

	mu    sync.Mutex
	state State
	// epoch increments on every disconnect; an in-flight operation commits
	// only if the epoch it started under is still current. This is how
	// "disconnect always wins" is enforced.
	epoch uint64
}

// New creates a controller and its owned negotiator and health monitor.
func New(deps Deps, opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		provider: deps.Provider,
		store:    deps.Store,
		wallets:  deps.Wallets,
		chains:   deps.Chains,
		notify:   deps.Notify,
		log:      deps.Log.WithComponent("conn"),
		retry:    retry.New(opts.MaxRetries),
		opts:     opts,
		now:      time.Now,
		state:    State{Status: StatusDisconnected},
	}
	c.negotiator = negotiate.New(deps.Provider, deps.Chains, deps.Notify, deps.Log)
	c.monitor = health.New(deps.Provider, c, c, deps.Notify, deps.Log, opts.Health)
	return c
}

// Snapshot returns a copy of the current connection state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Retry exposes the retry policy for status display and explicit resets.
func (c *Controller) Retry() *retry.Policy {
	return c.retry
}

// Connect establishes a session through the given wallet. Idempotent when
// already connected with the same wallet; rejected while another attempt is
// in flight; gated by the retry policy before the provider is touched.
func (c *Controller) Connect(ctx context.Context, walletID string) Result {
	attemptID := uuid.NewString()

	desc, err := c.wallets.ByID(walletID)
	if err != nil {
		return Result{
			Code:      CodeUnknownWallet,
			Message:   fmt.Sprintf("unknown wallet %q", walletID),
			AttemptID: attemptID,
			State:     c.Snapshot(),
		}
	}

	c.mu.Lock()
	switch c.state.Status {
	case StatusConnected:
		if c.state.WalletID == walletID {
			st := c.state
			c.mu.Unlock()
			return Result{OK: true, Code: CodeAlreadyConnected,
				Message: "already connected to " + desc.Name, AttemptID: attemptID, State: st}
		}
		st := c.state
		c.mu.Unlock()
		return Result{Code: CodeBusy,
			Message:   fmt.Sprintf("already connected via %s — disconnect first", st.WalletID),
			AttemptID: attemptID, State: st}
	case StatusConnecting, StatusReconnecting:
		st := c.state
		c.mu.Unlock()
		return Result{Code: CodeBusy,
			Message: "a connection attempt is already in progress", AttemptID: attemptID, State: st}
	}

	if !c.retry.CanAttempt(walletID) {
		st := c.state
		c.mu.Unlock()
		msg := fmt.Sprintf("maximum connection attempts reached for %s — reset with `wconnect retry reset %s`",
			desc.Name, walletID)
		c.notify.Error(msg)
		return Result{Code: CodeMaxRetries, Message: msg, AttemptID: attemptID, State: st}
	}

	epoch := c.epoch
	c.state.Status = StatusConnecting
	c.state.WalletID = walletID
	c.state.Err = ""
	c.mu.Unlock()

	c.log.Info("connecting",
		zap.String("wallet", walletID), zap.String("attempt", attemptID))

	cctx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()

	acct, err := c.provider.Connect(cctx, walletID)
	if err == nil {
		return c.commitConnect(epoch, desc, acct, attemptID, "Connected to")
	}
	return c.handleConnectError(ctx, epoch, desc, err, attemptID)
}

func (c *Controller) commitConnect(epoch uint64, desc *wallet.Descriptor, acct provider.Account, attemptID, verb string) Result {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		c.log.Info("discarding connect result superseded by disconnect",
			zap.String("attempt", attemptID))
		return Result{Code: CodeDiscarded,
			Message: "connection attempt superseded by disconnect", AttemptID: attemptID}
	}
	now := c.now()
	c.state = State{
		Status:       StatusConnected,
		WalletID:     desc.ID,
		Address:      acct.Address,
		ChainID:      acct.ChainID,
		ConnectedAt:  now,
		LastActivity: now,
	}
	st := c.state
	c.mu.Unlock()

	c.retry.RecordSuccess(desc.ID)
	c.persistSession(st)
	c.monitor.Start()
	c.notify.Success(fmt.Sprintf("%s %s (%s)", verb, desc.Name, shortAddr(acct.Address)))

	return Result{OK: true, Code: CodeConnected, Message: "connected", AttemptID: attemptID, State: st}
}

func (c *Controller) handleConnectError(ctx context.Context, epoch uint64, desc *wallet.Descriptor, connErr error, attemptID string) Result {
	// "Already connected" from the provider means our state drifted from
	// the provider's; resync instead of failing (and retry-looping).
	if errs.IsAlreadyConnected(connErr) {
		if acct, err := c.provider.Account(ctx); err == nil && acct != nil {
			c.log.Info("provider session already open, resyncing state",
				zap.String("attempt", attemptID))
			return c.commitConnect(epoch, desc, *acct, attemptID, "Restored session with")
		}
	}

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return Result{Code: CodeDiscarded,
			Message: "connection attempt superseded by disconnect", AttemptID: attemptID}
	}

	// A pending approval popup is not a retry-worthy failure; nagging the
	// user while their wallet already shows the request helps nobody.
	if errs.IsPending(connErr) {
		c.state.Status = StatusDisconnected
		st := c.state
		c.mu.Unlock()
		c.log.Info("connect request already pending in wallet",
			zap.String("wallet", desc.ID), zap.String("attempt", attemptID))
		msg := desc.ErrorMessage(connErr)
		c.notify.Info(msg)
		return Result{Code: CodePending, Message: msg, AttemptID: attemptID, State: st}
	}

	msg := desc.ErrorMessage(connErr)
	c.state.Status = StatusDisconnected
	c.state.Err = msg
	st := c.state
	c.mu.Unlock()

	attempts := c.retry.RecordFailure(desc.ID)
	remaining := c.retry.Remaining(desc.ID)
	c.log.Warn("connect failed",
		zap.String("wallet", desc.ID),
		zap.String("attempt", attemptID),
		zap.Int("attempts", attempts),
		zap.Error(connErr))

	if remaining > 0 {
		c.notify.Error(fmt.Sprintf("%s (%d attempts left)", msg, remaining))
	} else {
		c.notify.Error(msg + " — retry budget exhausted")
	}
	return Result{Code: CodeFailed, Message: msg, AttemptID: attemptID, State: st}
}

// Disconnect clears local state unconditionally. Provider-side failures are
// logged, never allowed to leave the state stuck on connected.
func (c *Controller) Disconnect(ctx context.Context) Result {
	c.mu.Lock()
	wasActive := c.state.Status != StatusDisconnected
	c.epoch++
	c.state = State{Status: StatusDisconnected}
	st := c.state
	c.mu.Unlock()

	c.monitor.Stop()
	c.clearSession()

	if err := c.provider.Disconnect(ctx); err != nil {
		c.log.Warn("provider disconnect failed", zap.Error(err))
	}
	if wasActive {
		c.notify.Info("Disconnected")
	}
	return Result{OK: true, Code: CodeDisconnected, Message: "disconnected", State: st}
}

// RetryConnection re-invokes Connect with the last known wallet id. A no-op
// when there is none.
func (c *Controller) RetryConnection(ctx context.Context) Result {
	c.mu.Lock()
	last := c.state.WalletID
	c.mu.Unlock()

	if last == "" {
		if v, err := c.store.Get(store.KeyLastWalletID); err == nil {
			last = v
		}
	}
	if last == "" {
		return Result{Code: CodeNoSession, Message: "no previous wallet to retry", State: c.Snapshot()}
	}
	return c.Connect(ctx, last)
}

// RestoreSession attempts a single reconnect from persisted state, only when
// the stored session is younger than MaxConnectionAge. A failed restore is
// not retried — this path must never surprise the user with repeated wallet
// popups — and the stale timestamp is cleared.
func (c *Controller) RestoreSession(ctx context.Context) Result {
	walletID, err := c.store.Get(store.KeyLastWalletID)
	if err != nil {
		return Result{Code: CodeNoSession, Message: "no stored session", State: c.Snapshot()}
	}

	startRaw, err := c.store.Get(store.KeyConnectionStart)
	if err != nil {
		return Result{Code: CodeNoSession, Message: "no stored session", State: c.Snapshot()}
	}
	started, perr := time.Parse(time.RFC3339, startRaw)
	if perr != nil || c.now().Sub(started) >= c.opts.MaxConnectionAge {
		c.removeKey(store.KeyConnectionStart)
		c.removeKey(store.KeyConnectionState)
		return Result{Code: CodeExpired, Message: "stored session expired", State: c.Snapshot()}
	}

	res := c.Connect(ctx, walletID)
	if !res.OK {
		c.removeKey(store.KeyConnectionStart)
	}
	return res
}

// Reconnect is the health monitor's reconnection path. It re-establishes the
// provider session while keeping the wallet identity, passing through the
// reconnecting state.
func (c *Controller) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Status != StatusConnected {
		c.mu.Unlock()
		return errors.New("no active session to reconnect")
	}
	walletID := c.state.WalletID
	epoch := c.epoch
	c.state.Status = StatusReconnecting
	c.mu.Unlock()

	acct, err := c.provider.Connect(ctx, walletID)

	c.mu.Lock()
	if epoch != c.epoch {
		// Disconnect won while we were reconnecting; drop the result.
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		// Back to connected-but-unhealthy: the monitor keeps probing and
		// retries until its own counter is exhausted.
		c.state.Status = StatusConnected
		c.mu.Unlock()
		return err
	}
	now := c.now()
	c.state.Status = StatusConnected
	c.state.Address = acct.Address
	c.state.ChainID = acct.ChainID
	c.state.ConnectedAt = now
	c.state.LastActivity = now
	st := c.state
	c.mu.Unlock()

	c.persistSession(st)
	c.notify.Success("Reconnected (" + shortAddr(acct.Address) + ")")
	return nil
}

// SessionLost is invoked by the monitor when its reconnect budget is
// exhausted: the connection is declared lost and local state is cleared.
func (c *Controller) SessionLost() {
	c.mu.Lock()
	c.epoch++
	c.state = State{Status: StatusDisconnected, Err: "connection lost"}
	c.mu.Unlock()

	c.monitor.Stop()
	c.clearSession()
	c.notify.Error("Connection lost — reconnect attempts exhausted")
}

// SwitchNetwork negotiates a chain switch and records the new chain. A
// disconnect racing the switch wins: the result is discarded and nothing is
// persisted, so the keys Disconnect removed stay removed.
func (c *Controller) SwitchNetwork(ctx context.Context, chainID int64) Result {
	c.mu.Lock()
	if c.state.Status != StatusConnected {
		st := c.state
		c.mu.Unlock()
		return Result{Code: CodeNotConnected, Message: "not connected", State: st}
	}
	epoch := c.epoch
	c.mu.Unlock()

	res, err := c.negotiator.SwitchNetwork(ctx, chainID)
	if err != nil {
		c.notify.Error("Network switch failed: " + err.Error())
		return Result{Code: CodeFailed, Message: err.Error(), State: c.Snapshot()}
	}

	c.mu.Lock()
	if epoch != c.epoch || c.state.Status != StatusConnected {
		st := c.state
		c.mu.Unlock()
		return Result{Code: CodeDiscarded,
			Message: "network switch superseded by disconnect", State: st}
	}
	c.state.ChainID = chainID
	c.state.LastActivity = c.now()
	st := c.state
	c.mu.Unlock()

	c.persistSession(st)
	return Result{OK: true, Code: CodeSwitched, Message: res.Message, State: st}
}

// ValidateNetwork reports whether chainID is in the network catalog.
func (c *Controller) ValidateNetwork(chainID int64) bool {
	return c.negotiator.ValidateNetwork(chainID)
}

// NetworkStatus reports how chainID relates to the catalog and the provider.
func (c *Controller) NetworkStatus(ctx context.Context, chainID int64) negotiate.Status {
	return c.negotiator.GetStatus(ctx, chainID)
}

// CheckHealth runs one health check immediately.
func (c *Controller) CheckHealth(ctx context.Context) health.Snapshot {
	return c.monitor.CheckNow(ctx)
}

// Health returns the most recent health snapshot without probing.
func (c *Controller) Health() health.Snapshot {
	return c.monitor.Snapshot()
}

// HealthSummary returns the condensed health view.
func (c *Controller) HealthSummary() health.Summary {
	return c.monitor.Summary()
}

// --- health.Session ---

// Connected implements health.Session.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Status == StatusConnected
}

// Address implements health.Session.
func (c *Controller) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Address
}

// ConnectedAt implements health.Session.
func (c *Controller) ConnectedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ConnectedAt
}

// --- persistence ---

func (c *Controller) persistSession(st State) {
	c.setKey(store.KeyLastWalletID, st.WalletID)
	c.setKey(store.KeyConnectionStart, st.ConnectedAt.Format(time.RFC3339))
	if blob, err := json.Marshal(st); err == nil {
		c.setKey(store.KeyConnectionState, string(blob))
	}
}

func (c *Controller) clearSession() {
	c.removeKey(store.KeyLastWalletID)
	c.removeKey(store.KeyConnectionStart)
	c.removeKey(store.KeyConnectionState)
}

// Storage failures never block the lifecycle; they are logged and the state
// machine proceeds.
func (c *Controller) setKey(key, value string) {
	if err := c.store.Set(key, value); err != nil {
		c.log.Warn("persisting key failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Controller) removeKey(key string) {
	if err := c.store.Remove(key); err != nil {
		c.log.Warn("removing key failed", zap.String("key", key), zap.Error(err))
	}
}

func shortAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
