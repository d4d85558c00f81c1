package connectivity

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestMonitorDetectsOnline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMonitor(Config{ProbeURL: srv.URL, Interval: 10 * time.Millisecond})
	m.Start()
	defer m.Stop()

	deadline := time.After(time.Second)
	for !m.Online() {
		select {
		case <-deadline:
			t.Fatal("monitor never went online")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestMonitorDetectsTransitions(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			// Simulate an unreachable host by hijacking and dropping.
			hj, ok := w.(http.Hijacker)
			if ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMonitor(Config{ProbeURL: srv.URL, Interval: 10 * time.Millisecond})
	m.Start()
	defer m.Stop()

	waitFor := func(want bool) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case got := <-m.Changes():
				if got == want {
					return
				}
			case <-deadline:
				t.Fatalf("never observed transition to online=%v", want)
			}
		}
	}

	waitFor(true)

	healthy.Store(false)
	waitFor(false)

	healthy.Store(true)
	waitFor(true)
}

func TestMonitorOfflineWhenProbeUnreachable(t *testing.T) {
	// Closed immediately so the address refuses connections.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	m := NewMonitor(Config{ProbeURL: url, Interval: 10 * time.Millisecond, Timeout: 100 * time.Millisecond})
	m.Start()
	defer m.Stop()

	time.Sleep(50 * time.Millisecond)
	if m.Online() {
		t.Fatal("expected offline state for unreachable probe")
	}
}

func TestMonitorStopIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMonitor(Config{ProbeURL: srv.URL, Interval: 10 * time.Millisecond})
	m.Start()
	m.Stop()
	m.Stop()
}
