package status

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is how often the gateway is probed when no interval is configured
const DefaultInterval = 30 * time.Second

// Prober reports whether the remote gateway answers
type Prober interface {
	Probe(ctx context.Context) bool
}

// Status is the last known gateway connectivity
type Status struct {
	Online    bool      `json:"online"`
	CheckedAt time.Time `json:"checked_at"`
}

// Label renders the status the way the browser shows it
func (s Status) Label() string {
	if s.Online {
		return "online"
	}
	return "offline"
}

// Monitor polls the gateway in the background and publishes changes.
// The chat core never consults it; it only feeds the UI indicator.
type Monitor struct {
	prober   Prober
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu        sync.RWMutex
	current   Status
	checked   bool
	listeners []func(Status)
}

// NewMonitor creates a monitor; a non-positive interval falls back to DefaultInterval
func NewMonitor(prober Prober, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		prober:   prober,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start runs an immediate check and then one per interval
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.pollLoop()
	m.logger.Info("Gateway status monitor started", zap.Duration("interval", m.interval))
}

// Stop ends polling and waits for an in-flight probe
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	m.wg.Wait()
	m.logger.Info("Gateway status monitor stopped")
}

// Current returns the last observed status
func (m *Monitor) Current() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// OnChange registers fn to be called whenever online/offline flips.
// The first check always counts as a change.
func (m *Monitor) OnChange(fn func(Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// CheckNow probes once and records the result
func (m *Monitor) CheckNow(ctx context.Context) Status {
	online := m.prober.Probe(ctx)
	st := Status{Online: online, CheckedAt: time.Now()}

	m.mu.Lock()
	changed := !m.checked || m.current.Online != online
	m.current = st
	m.checked = true
	listeners := append([]func(Status){}, m.listeners...)
	m.mu.Unlock()

	if changed {
		m.logger.Info("Gateway status changed", zap.String("status", st.Label()))
		for _, fn := range listeners {
			fn(st)
		}
	}
	return st
}

func (m *Monitor) pollLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-m.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	m.CheckNow(ctx)
	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}
