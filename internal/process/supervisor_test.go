package process

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) record(args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := 0; i+1 < len(args); i += 2 {
		if args[i] == "line" {
			if s, ok := args[i+1].(string); ok {
				l.lines = append(l.lines, s)
			}
		}
	}
}

func (l *recordingLogger) Debug(_ string, args ...any) { l.record(args) }
func (l *recordingLogger) Info(string, ...any)         {}
func (l *recordingLogger) Warn(string, ...any)         {}
func (l *recordingLogger) Error(string, ...any)        {}

func (l *recordingLogger) has(line string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, got := range l.lines {
		if got == line {
			return true
		}
	}
	return false
}

func requireShell(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"sh", "sleep"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not available: %v", bin, err)
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewSupervisor_Defaults(t *testing.T) {
	s := NewSupervisor(Config{Binary: "/usr/bin/agent"}, &recordingLogger{})

	if s.cfg.Name != "/usr/bin/agent" {
		t.Errorf("Name = %q, want binary path", s.cfg.Name)
	}
	if s.cfg.RestartDelay != 5*time.Second {
		t.Errorf("RestartDelay = %v", s.cfg.RestartDelay)
	}
	if s.cfg.GracefulTimeout != 10*time.Second {
		t.Errorf("GracefulTimeout = %v", s.cfg.GracefulTimeout)
	}
	if s.cfg.ProbeInterval != 30*time.Second {
		t.Errorf("ProbeInterval = %v", s.cfg.ProbeInterval)
	}
	if got := s.Status().State; got != StateStopped {
		t.Errorf("State = %q, want %q", got, StateStopped)
	}
}

func TestSupervisor_StopsOnCancel(t *testing.T) {
	requireShell(t)
	logger := &recordingLogger{}
	s := NewSupervisor(Config{
		Name:   "agent",
		Binary: "sh",
		Args:   []string{"-c", "echo ready; exec sleep 30"},
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitFor(t, "running state", func() bool { return s.Status().State == StateRunning })
	waitFor(t, "captured output", func() bool { return logger.has("ready") })
	if s.Status().PID == 0 {
		t.Error("PID = 0 while running")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	st := s.Status()
	if st.State != StateStopped || st.PID != 0 {
		t.Errorf("Status() = %+v, want stopped without pid", st)
	}
}

func TestSupervisor_GivesUpAfterMaxRestarts(t *testing.T) {
	requireShell(t)
	s := NewSupervisor(Config{
		Name:         "agent",
		Binary:       "sh",
		Args:         []string{"-c", "exit 3"},
		RestartDelay: 10 * time.Millisecond,
		MaxRestarts:  2,
	}, &recordingLogger{})

	err := s.Run(context.Background())
	if !errors.Is(err, ErrRestartsExhausted) {
		t.Fatalf("Run() error = %v, want ErrRestartsExhausted", err)
	}

	st := s.Status()
	if st.State != StateGaveUp {
		t.Errorf("State = %q, want %q", st.State, StateGaveUp)
	}
	if st.Restarts != 3 {
		t.Errorf("Restarts = %d, want 3", st.Restarts)
	}
	if !strings.Contains(st.LastError, "exit status 3") {
		t.Errorf("LastError = %q, want exit status", st.LastError)
	}
}

func TestSupervisor_MissingBinary(t *testing.T) {
	s := NewSupervisor(Config{
		Binary:       "/nonexistent/miio-agent",
		RestartDelay: 10 * time.Millisecond,
		MaxRestarts:  1,
	}, &recordingLogger{})

	err := s.Run(context.Background())
	if !errors.Is(err, ErrRestartsExhausted) {
		t.Fatalf("Run() error = %v, want ErrRestartsExhausted", err)
	}
}

func TestSupervisor_ProbeWatchdog(t *testing.T) {
	requireShell(t)
	probeErr := errors.New("agent silent")
	var mu sync.Mutex
	calls := 0

	s := NewSupervisor(Config{
		Name:          "agent",
		Binary:        "sleep",
		Args:          []string{"30"},
		RestartDelay:  10 * time.Millisecond,
		MaxRestarts:   1,
		ProbeInterval: 10 * time.Millisecond,
		Probe: func(context.Context) error {
			mu.Lock()
			calls++
			mu.Unlock()
			return probeErr
		},
	}, &recordingLogger{})

	err := s.Run(context.Background())
	if !errors.Is(err, ErrRestartsExhausted) || !errors.Is(err, probeErr) {
		t.Fatalf("Run() error = %v, want exhausted restarts caused by the probe", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 2*maxProbeFailures {
		t.Errorf("probe calls = %d, want %d", calls, 2*maxProbeFailures)
	}
}
