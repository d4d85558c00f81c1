// Package connectivity tracks whether the remote API is reachable. The
// monitor polls a probe URL and broadcasts transitions; consumers never
// probe the network themselves, they ask the monitor.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"
)

// Config holds monitor tuning.
type Config struct {
	ProbeURL string
	Interval time.Duration
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Monitor implements usecase.Connectivity by polling a probe URL. Online()
// is cheap and safe from any goroutine; Changes() delivers every transition.
type Monitor struct {
	probeURL   string
	interval   time.Duration
	httpClient *http.Client
	logger     *slog.Logger

	online  atomic.Bool
	changes chan bool

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewMonitor creates a new Monitor. The initial state is offline until the
// first probe succeeds.
func NewMonitor(cfg Config) *Monitor {
	if cfg.Interval == 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Monitor{
		probeURL:   cfg.ProbeURL,
		interval:   cfg.Interval,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
		changes:    make(chan bool, 8),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Online reports the last observed state.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Changes delivers the new state on every transition. The channel is
// buffered; a slow consumer loses intermediate flaps, never the latest
// state ordering.
func (m *Monitor) Changes() <-chan bool {
	return m.changes
}

// Start probes immediately, then keeps probing on the configured interval.
func (m *Monitor) Start() {
	m.startOnce.Do(func() {
		go m.run()
	})
}

// Stop halts probing. It is idempotent and waits for the loop to exit.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	<-m.done
}

func (m *Monitor) run() {
	defer close(m.done)

	m.probe()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.probe()
		}
	}
}

func (m *Monitor) probe() {
	online := m.check()

	if m.online.Swap(online) == online {
		return
	}

	if online {
		m.logger.Info("connectivity restored", slog.String("probe", m.probeURL))
	} else {
		m.logger.Warn("connectivity lost", slog.String("probe", m.probeURL))
	}

	select {
	case m.changes <- online:
	default:
	}
}

func (m *Monitor) check() bool {
	ctx, cancel := context.WithTimeout(context.Background(), m.httpClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 500
}
