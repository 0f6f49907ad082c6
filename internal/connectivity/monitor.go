// Package connectivity wraps network reachability into a single online/offline
// boolean with an edge-triggered reconnect signal.
package connectivity

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"
)

// Prober answers a single question: is the internet reachable right now?
// Link-local connectivity without internet access must report false.
type Prober interface {
	Probe(ctx context.Context) bool
}

// HTTPProber probes reachability with a HEAD request against a generate-204
// style endpoint.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

// NewHTTPProber creates a prober for the given URL.
func NewHTTPProber(url string, timeout time.Duration) *HTTPProber {
	return &HTTPProber{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

// Probe reports whether the probe endpoint answered successfully.
func (p *HTTPProber) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return false
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusBadRequest
}

// Monitor observes reachability transitions. It starts optimistically ONLINE
// so the first render never waits on probe latency, and corrects itself on
// the first real observation.
//
// Transition semantics:
//   - ONLINE -> OFFLINE sets an internal backlog flag and raises no signal.
//   - OFFLINE -> ONLINE emits exactly one value on the Reconnected channel.
//
// The channel holds one buffered value, so a reconnect that fires while no
// listener is receiving is kept, not lost. The backlog flag is cleared only
// by ClearBacklog, after the controller confirms a fully clean drain.
type Monitor struct {
	prober   Prober
	interval time.Duration

	mu         sync.Mutex
	online     bool
	wasOffline bool

	reconnect chan struct{}
	stopCh    chan struct{}
	stopOnce  sync.Once
	started   bool
}

// NewMonitor creates a monitor that polls the prober at the given interval.
// A nil prober disables polling; state then only moves via SetOnline, which
// is how hosts with a platform reachability feed (or tests) drive it.
func NewMonitor(prober Prober, interval time.Duration) *Monitor {
	return &Monitor{
		prober:    prober,
		interval:  interval,
		online:    true, // optimistic until first observation
		reconnect: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start begins the probe loop. Safe to call once.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.started || m.prober == nil {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	log.Printf("[Connectivity] Monitor started - interval: %v", m.interval)
	go m.run()
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.interval)
			online := m.prober.Probe(ctx)
			cancel()
			m.SetOnline(online)
		case <-m.stopCh:
			log.Printf("[Connectivity] Monitor stopped")
			return
		}
	}
}

// SetOnline records a reachability observation and fires the reconnect
// signal on a genuine offline-to-online edge.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	if !online {
		m.wasOffline = true
	}
	fire := online && !wasOnline && m.wasOffline
	m.mu.Unlock()

	if wasOnline != online {
		if online {
			log.Printf("[Connectivity] Back online")
		} else {
			log.Printf("[Connectivity] Connection lost")
		}
	}

	if fire {
		select {
		case m.reconnect <- struct{}{}:
		default:
			// a reconnect is already pending; one is enough
		}
	}
}

// IsOnline returns the current reachability state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// HasBacklog reports whether an offline period has happened that has not yet
// been fully synced away.
func (m *Monitor) HasBacklog() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wasOffline
}

// ClearBacklog marks the last offline period as fully reconciled. Called by
// the session controller after a drain with zero failures.
func (m *Monitor) ClearBacklog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wasOffline = false
}

// Reconnected returns the edge-triggered reconnect channel.
func (m *Monitor) Reconnected() <-chan struct{} {
	return m.reconnect
}

// Stop terminates the probe loop.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}
