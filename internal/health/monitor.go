// Package health runs the periodic connection health monitor: three probes
// per check under layered timeouts, classification into a snapshot, and an
// optional bounded auto-reconnect loop.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"wconnect/internal/errs"
	"wconnect/internal/logger"
	"wconnect/internal/notify"
	"wconnect/internal/provider"
)

// Status classifies overall connection health.
type Status string

const (
	StatusHealthy      Status = "healthy"      // no issues
	StatusDegraded     Status = "degraded"     // exactly one issue
	StatusUnhealthy    Status = "unhealthy"    // two or more issues
	StatusDisconnected Status = "disconnected" // no active connection
)

// Snapshot is a point-in-time health classification. It is recomputed on
// every check, never patched incrementally.
type Snapshot struct {
	Status        Status
	Latency       time.Duration
	ConnectionAge time.Duration
	ErrorCount    int
	Issues        []string
	CheckedAt     time.Time
}

// Summary is the condensed view offered to the UI layer.
type Summary struct {
	Status       Status
	Issues       []string
	Latency      time.Duration
	Uptime       time.Duration
	CanReconnect bool
}

// Session is the monitor's read-only view of the connection state.
type Session interface {
	Connected() bool
	Address() string
	ConnectedAt() time.Time
}

// Reconnector triggers a reconnect attempt. Implemented by the connection
// controller; may be absent when auto-reconnect is disabled.
type Reconnector interface {
	Reconnect(ctx context.Context) error
}

// sessionLoser is optionally implemented by the Reconnector; invoked once
// when the reconnect budget is exhausted so the owner can declare the
// connection lost.
type sessionLoser interface {
	SessionLost()
}

// Options configures the monitor. Timeouts are layered: ProbeTimeout <
// CheckTimeout < SafetyTimeout, each strictly larger than the one it wraps,
// so an inner timeout always fires first under normal conditions.
type Options struct {
	Interval         time.Duration // tick period, default 30s
	ProbeTimeout     time.Duration // per probe, default 2.5s
	CheckTimeout     time.Duration // whole three-probe batch, default 9s
	SafetyTimeout    time.Duration // last-resort in-flight guard, default 18s
	ReconnectDelay   time.Duration // delay before an auto-reconnect, default 5s
	ReconnectTimeout time.Duration // budget for one reconnect, default 30s
	MaxLatency       time.Duration // latency threshold, default 2s
	MaxReconnects    int           // auto-reconnect cap, default 3
	AutoReconnect    bool
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 30 * time.Second
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 2500 * time.Millisecond
	}
	if o.CheckTimeout <= 0 {
		o.CheckTimeout = 9 * time.Second
	}
	if o.SafetyTimeout <= 0 {
		o.SafetyTimeout = 18 * time.Second
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 5 * time.Second
	}
	if o.ReconnectTimeout <= 0 {
		o.ReconnectTimeout = 30 * time.Second
	}
	if o.MaxLatency <= 0 {
		o.MaxLatency = 2 * time.Second
	}
	if o.MaxReconnects <= 0 {
		o.MaxReconnects = 3
	}
	return o
}

// Monitor owns the health snapshot and the check loop.
type Monitor struct {
	p       provider.Provider
	session Session
	rec     Reconnector
	notify  notify.Sink
	log     *logger.Logger
	opts    Options
	now     func() time.Time

	mu               sync.Mutex
	inFlight         bool
	errorCount       int
	reconnects       int
	reconnectPending bool
	exhausted        bool
	snapshot         Snapshot
	cancelRun        context.CancelFunc
	// gen is bumped by Start and Stop; a check commits its result only if
	// the generation it started under is still current. A disconnect during
	// an in-flight check therefore discards the check's result.
	gen uint64
}

// New creates a monitor. rec may be nil when auto-reconnect is disabled.
func New(p provider.Provider, session Session, rec Reconnector, sink notify.Sink, log *logger.Logger, opts Options) *Monitor {
	m := &Monitor{
		p:       p,
		session: session,
		rec:     rec,
		notify:  sink,
		log:     log.WithComponent("health"),
		opts:    opts.withDefaults(),
		now:     time.Now,
	}
	m.snapshot = Snapshot{Status: StatusDisconnected, CheckedAt: m.now()}
	return m
}

// SetClock overrides the monitor's time source (useful for testing).
func (m *Monitor) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Start begins monitoring: one immediate check, then a fixed interval.
// Idempotent — a running loop is cancelled and re-armed, and the reconnect
// and error counters start fresh.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.cancelRun != nil {
		m.cancelRun()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelRun = cancel
	m.errorCount = 0
	m.reconnects = 0
	m.exhausted = false
	m.gen++
	m.mu.Unlock()

	go m.run(ctx)
}

// Stop cancels the interval, aborts any in-flight check and resets the
// snapshot to disconnected.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelRun != nil {
		m.cancelRun()
		m.cancelRun = nil
	}
	m.gen++
	m.snapshot = Snapshot{Status: StatusDisconnected, CheckedAt: m.now()}
}

func (m *Monitor) run(ctx context.Context) {
	m.CheckNow(ctx)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

// CheckNow runs one health check and returns the resulting snapshot. A call
// while a check is already in flight is a no-op returning the previous
// snapshot — checks are never queued. A check whose monitor was stopped
// while it ran discards its result and returns the stop-time snapshot.
func (m *Monitor) CheckNow(ctx context.Context) Snapshot {
	m.mu.Lock()
	if m.inFlight {
		snap := copySnapshot(m.snapshot)
		m.mu.Unlock()
		return snap
	}
	m.inFlight = true
	gen := m.gen
	m.mu.Unlock()

	// Last-resort guard: if the release below ever fails to run, the flag
	// must not permanently disable monitoring.
	safety := time.AfterFunc(m.opts.SafetyTimeout, func() {
		m.mu.Lock()
		if m.inFlight {
			m.log.Warn("health check in-flight flag stuck, force-clearing")
			m.inFlight = false
		}
		m.mu.Unlock()
	})
	defer func() {
		safety.Stop()
		m.mu.Lock()
		m.inFlight = false
		m.mu.Unlock()
	}()

	if !m.session.Connected() {
		snap, _ := m.commit(gen, Snapshot{Status: StatusDisconnected, CheckedAt: m.now()})
		return snap
	}

	checkCtx, cancel := context.WithTimeout(ctx, m.opts.CheckTimeout)
	defer cancel()

	type probeOut struct {
		issues  []string
		latency time.Duration
	}
	done := make(chan probeOut, 1)
	go func() {
		issues, latency := m.runProbes(checkCtx)
		done <- probeOut{issues, latency}
	}()

	var snap Snapshot
	select {
	case out := <-done:
		snap = m.buildSnapshot(out.issues, out.latency)
	case <-checkCtx.Done():
		m.mu.Lock()
		m.errorCount++
		ec := m.errorCount
		m.mu.Unlock()
		snap = Snapshot{
			Status:        classify([]string{"Health check failed"}),
			ConnectionAge: m.connectionAge(),
			ErrorCount:    ec,
			Issues:        []string{"Health check failed"},
			CheckedAt:     m.now(),
		}
	}

	snap, current := m.commit(gen, snap)
	if current {
		m.react(snap)
	}
	return snap
}

// commit installs snap unless Stop or a restart superseded the check while
// it was in flight. Stale results are dropped and the current snapshot
// (the disconnected one Stop installed) is returned instead.
func (m *Monitor) commit(gen uint64, snap Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return copySnapshot(m.snapshot), false
	}
	m.snapshot = snap
	return snap, true
}

// runProbes executes the three independent probes sequentially, each under
// its own timeout. A probe timing out yields a different issue than a probe
// being refused.
func (m *Monitor) runProbes(ctx context.Context) ([]string, time.Duration) {
	issues := make([]string, 0, 3)

	// Latency probe: round trip of the cheapest provider call.
	start := m.now()
	_, err := m.request(ctx, "eth_chainId")
	latency := m.now().Sub(start)
	switch {
	case errs.IsTimeout(err):
		issues = append(issues, "Latency probe timed out")
	case err != nil:
		issues = append(issues, fmt.Sprintf("Latency probe failed: %v", err))
	case latency > m.opts.MaxLatency:
		issues = append(issues, fmt.Sprintf("High network latency: %dms", latency.Milliseconds()))
	}

	// Wallet responsiveness probe: the provider must still report the
	// account we connected as.
	raw, err := m.request(ctx, "eth_accounts")
	switch {
	case errs.IsTimeout(err):
		issues = append(issues, "Wallet probe timed out")
	case err != nil:
		issues = append(issues, fmt.Sprintf("Wallet not responding: %v", err))
	default:
		var accounts []string
		if jsonErr := json.Unmarshal(raw, &accounts); jsonErr != nil ||
			len(accounts) == 0 || !strings.EqualFold(accounts[0], m.session.Address()) {
			issues = append(issues, "Wallet account mismatch")
		}
	}

	// Network responsiveness probe.
	raw, err = m.request(ctx, "eth_blockNumber")
	switch {
	case errs.IsTimeout(err):
		issues = append(issues, "Network probe timed out")
	case err != nil:
		issues = append(issues, fmt.Sprintf("Network not responding: %v", err))
	default:
		var hex string
		if jsonErr := json.Unmarshal(raw, &hex); jsonErr != nil {
			issues = append(issues, "Network returned malformed block number")
		} else if _, decErr := hexutil.DecodeBig(hex); decErr != nil {
			issues = append(issues, "Network returned malformed block number")
		}
	}

	return issues, latency
}

func (m *Monitor) request(ctx context.Context, method string) (json.RawMessage, error) {
	probeCtx, cancel := context.WithTimeout(ctx, m.opts.ProbeTimeout)
	defer cancel()
	return m.p.Request(probeCtx, method)
}

func (m *Monitor) buildSnapshot(issues []string, latency time.Duration) Snapshot {
	m.mu.Lock()
	if len(issues) == 0 {
		m.errorCount = 0
		m.reconnects = 0
	}
	ec := m.errorCount
	m.mu.Unlock()

	return Snapshot{
		Status:        classify(issues),
		Latency:       latency,
		ConnectionAge: m.connectionAge(),
		ErrorCount:    ec,
		Issues:        issues,
		CheckedAt:     m.now(),
	}
}

func (m *Monitor) connectionAge() time.Duration {
	at := m.session.ConnectedAt()
	if at.IsZero() {
		return 0
	}
	return m.now().Sub(at)
}

// classify maps issue count to status: none healthy, one degraded, two or
// more unhealthy.
func classify(issues []string) Status {
	switch {
	case len(issues) == 0:
		return StatusHealthy
	case len(issues) == 1:
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}

// react emits notifications and, for unhealthy connections, schedules a
// single delayed auto-reconnect gated by its own bounded counter.
func (m *Monitor) react(snap Snapshot) {
	switch snap.Status {
	case StatusDegraded:
		m.notify.Warning("Connection degraded: " + strings.Join(snap.Issues, "; "))
	case StatusUnhealthy:
		m.notify.Error("Connection unhealthy: " + strings.Join(snap.Issues, "; "))
		m.maybeScheduleReconnect()
	}
}

func (m *Monitor) maybeScheduleReconnect() {
	m.mu.Lock()
	if !m.opts.AutoReconnect || m.rec == nil || m.reconnectPending {
		m.mu.Unlock()
		return
	}
	if m.reconnects >= m.opts.MaxReconnects {
		// Budget exhausted: hand the session-lost decision to the owner,
		// exactly once per monitoring session.
		fire := !m.exhausted
		m.exhausted = true
		m.mu.Unlock()
		if fire {
			if sl, ok := m.rec.(sessionLoser); ok {
				sl.SessionLost()
			}
		}
		return
	}
	m.reconnectPending = true
	m.reconnects++
	attempt := m.reconnects
	m.mu.Unlock()

	m.notify.Info(fmt.Sprintf("Reconnecting in %s (attempt %d/%d)",
		m.opts.ReconnectDelay, attempt, m.opts.MaxReconnects))

	time.AfterFunc(m.opts.ReconnectDelay, func() {
		defer func() {
			m.mu.Lock()
			m.reconnectPending = false
			m.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), m.opts.ReconnectTimeout)
		defer cancel()

		if err := m.rec.Reconnect(ctx); err != nil {
			m.log.Warn("auto-reconnect failed",
				zap.Int("attempt", attempt), zap.Error(err))
			return
		}
		m.mu.Lock()
		m.reconnects = 0
		m.mu.Unlock()
	})
}

// Snapshot returns a copy of the most recent snapshot.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySnapshot(m.snapshot)
}

// Summary returns the condensed health view.
func (m *Monitor) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := copySnapshot(m.snapshot)
	return Summary{
		Status:       snap.Status,
		Issues:       snap.Issues,
		Latency:      snap.Latency,
		Uptime:       snap.ConnectionAge,
		CanReconnect: m.reconnects < m.opts.MaxReconnects,
	}
}

func copySnapshot(s Snapshot) Snapshot {
	out := s
	out.Issues = make([]string, len(s.Issues))
	copy(out.Issues, s.Issues)
	return out
}
