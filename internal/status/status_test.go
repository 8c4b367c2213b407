package status

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// reference restates the precedence rules independently of Derive's switch.
func reference(s Signals) State {
	if s.ShowcaseMode {
		return StateShowcase
	}
	if s.GraphAuthLoading {
		return StateAuthenticating
	}
	if s.GraphConnected {
		if s.GraphServiceError {
			return StateConnectedServiceError
		}
		return StateConnected
	}
	if s.GraphAuthError {
		return StateAuthError
	}
	return StateDisconnected
}

func TestDerive_AllCombinations(t *testing.T) {
	for mask := 0; mask < 32; mask++ {
		s := Signals{
			ShowcaseMode:      mask&1 != 0,
			GraphAuthLoading:  mask&2 != 0,
			GraphConnected:    mask&4 != 0,
			GraphAuthError:    mask&8 != 0,
			GraphServiceError: mask&16 != 0,
		}
		if got, want := Derive(s), reference(s); got != want {
			t.Errorf("Derive(%+v) = %s, want %s", s, got, want)
		}
	}
}

func TestDerive_Examples(t *testing.T) {
	tests := []struct {
		name string
		in   Signals
		want State
	}{
		{"all false", Signals{}, StateDisconnected},
		{"connected wins over auth error", Signals{GraphConnected: true, GraphAuthError: true}, StateConnected},
		{"service error", Signals{GraphConnected: true, GraphServiceError: true}, StateConnectedServiceError},
		{"showcase wins over loading", Signals{ShowcaseMode: true, GraphAuthLoading: true, GraphConnected: true}, StateShowcase},
		{"service error without connection", Signals{GraphServiceError: true}, StateDisconnected},
		{"loading", Signals{GraphAuthLoading: true, GraphAuthError: true}, StateAuthenticating},
		{"auth error", Signals{GraphAuthError: true}, StateAuthError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Derive(tt.in); got != tt.want {
				t.Errorf("Derive = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestState_SyncAllowed(t *testing.T) {
	allowed := map[State]bool{
		StateShowcase:              false,
		StateAuthenticating:        false,
		StateConnected:             true,
		StateConnectedServiceError: true,
		StateAuthError:             false,
		StateDisconnected:          false,
	}
	for s, want := range allowed {
		if s.SyncAllowed() != want {
			t.Errorf("%s.SyncAllowed() = %v, want %v", s, !want, want)
		}
		if s.Label() == "" {
			t.Errorf("%s has empty label", s)
		}
	}
}

func TestTracker_NotifiesOnlyOnChange(t *testing.T) {
	tr := NewTracker(Signals{})
	var mu sync.Mutex
	var seen []State
	unsubscribe := tr.Subscribe(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	tr.Update(func(s *Signals) { s.GraphAuthLoading = true })
	tr.Update(func(s *Signals) { s.GraphAuthError = true }) // still authenticating
	tr.Update(func(s *Signals) { s.GraphAuthLoading = false; s.GraphConnected = true })
	unsubscribe()
	tr.Update(func(s *Signals) { s.GraphConnected = false })

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateAuthenticating, StateConnected}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %s, want %s", i, seen[i], want[i])
		}
	}
	if tr.State() != StateAuthError {
		t.Errorf("final state = %s, want auth_error", tr.State())
	}
}

func TestProbe_TogglesServiceError(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := NewTracker(Signals{GraphConnected: true})
	p := NewProbe(srv.URL, 10*time.Millisecond, tr, slog.New(slog.NewJSONHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = p.Run(ctx); close(done) }()
	defer func() { cancel(); <-done }()

	waitFor(t, func() bool { return tr.State() == StateConnectedServiceError })
	healthy.Store(true)
	waitFor(t, func() bool { return tr.State() == StateConnected })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}
