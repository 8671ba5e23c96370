package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// State is the lifecycle state of the supervised process.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	StateBackoff State = "backoff"
	StateGaveUp  State = "gave_up"
)

// maxProbeFailures is how many consecutive probe failures kill the child.
const maxProbeFailures = 3

// probeTimeout bounds a single probe call.
const probeTimeout = 5 * time.Second

// ErrRestartsExhausted is returned by Run when the child kept exiting.
var ErrRestartsExhausted = errors.New("process: restart attempts exhausted")

// errProbeFailed marks an exit forced by the watchdog.
var errProbeFailed = errors.New("process: probe failed repeatedly")

// Logger is the logging interface used by the supervisor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config describes the process to supervise.
type Config struct {
	Name   string
	Binary string
	Args   []string

	// Env is appended to the parent's environment.
	Env []string

	// RestartDelay is the pause between an exit and the next start.
	RestartDelay time.Duration

	// MaxRestarts limits the number of restarts. 0 means unlimited.
	MaxRestarts int

	// GracefulTimeout is how long SIGTERM is given before SIGKILL.
	GracefulTimeout time.Duration

	// Probe, if set, is called every ProbeInterval while the child runs.
	Probe         func(ctx context.Context) error
	ProbeInterval time.Duration
}

// Status is a point-in-time view of the supervisor.
type Status struct {
	Name      string    `json:"name"`
	State     State     `json:"state"`
	PID       int       `json:"pid,omitempty"`
	Restarts  int       `json:"restarts"`
	LastError string    `json:"last_error,omitempty"`
	Since     time.Time `json:"since"`
}

// Supervisor runs and restarts one child process.
type Supervisor struct {
	cfg    Config
	logger Logger

	mu       sync.RWMutex
	state    State
	pid      int
	restarts int
	lastErr  error
	since    time.Time
}

// NewSupervisor creates a Supervisor. Zero durations get defaults.
func NewSupervisor(cfg Config, logger Logger) *Supervisor {
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = 5 * time.Second
	}
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = 10 * time.Second
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 30 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Binary
	}
	return &Supervisor{
		cfg:    cfg,
		logger: logger,
		state:  StateStopped,
		since:  time.Now(),
	}
}

// Run starts the child and keeps it running until ctx is cancelled, in
// which case the child is terminated and Run returns nil. It returns
// ErrRestartsExhausted once the child has exited more than MaxRestarts
// times.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			s.setState(StateStopped, 0, nil)
			return nil
		}

		s.mu.Lock()
		s.restarts++
		attempt := s.restarts
		s.mu.Unlock()

		if s.cfg.MaxRestarts > 0 && attempt > s.cfg.MaxRestarts {
			s.logger.Error("process keeps exiting, giving up",
				"name", s.cfg.Name, "attempts", attempt-1, "error", err)
			s.setState(StateGaveUp, 0, err)
			return fmt.Errorf("%w: %s: %w", ErrRestartsExhausted, s.cfg.Name, err)
		}

		s.logger.Warn("process exited, restarting",
			"name", s.cfg.Name, "error", err, "attempt", attempt, "delay", s.cfg.RestartDelay)
		s.setState(StateBackoff, 0, err)

		select {
		case <-ctx.Done():
			s.setState(StateStopped, 0, err)
			return nil
		case <-time.After(s.cfg.RestartDelay):
		}
	}
}

// runOnce starts the child and blocks until it exits, the watchdog kills
// it or ctx is cancelled.
func (s *Supervisor) runOnce(ctx context.Context) error {
	cmd := exec.Command(s.cfg.Binary, s.cfg.Args...) //nolint:gosec // binary comes from operator config
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if s.cfg.Env != nil {
		cmd.Env = append(os.Environ(), s.cfg.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", s.cfg.Name, err)
	}

	pid := cmd.Process.Pid
	s.setState(StateRunning, pid, nil)
	s.logger.Info("process started", "name", s.cfg.Name, "pid", pid)

	var output sync.WaitGroup
	output.Add(2)
	go s.captureOutput(&output, "stdout", stdout)
	go s.captureOutput(&output, "stderr", stderr)

	exited := make(chan error, 1)
	go func() {
		output.Wait()
		exited <- cmd.Wait()
	}()

	var probe <-chan time.Time
	if s.cfg.Probe != nil {
		ticker := time.NewTicker(s.cfg.ProbeInterval)
		defer ticker.Stop()
		probe = ticker.C
	}

	failures := 0
	for {
		select {
		case err := <-exited:
			if err == nil {
				err = errors.New("exited with status 0")
			}
			return err

		case <-ctx.Done():
			s.terminate(pid, exited)
			return ctx.Err()

		case <-probe:
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			err := s.cfg.Probe(probeCtx)
			cancel()
			if err == nil {
				if failures > 0 {
					s.logger.Info("process probe recovered", "name", s.cfg.Name)
				}
				failures = 0
				continue
			}
			failures++
			s.logger.Warn("process probe failed",
				"name", s.cfg.Name, "error", err, "consecutive_failures", failures)
			if failures >= maxProbeFailures {
				s.terminate(pid, exited)
				return fmt.Errorf("%w: %w", errProbeFailed, err)
			}
		}
	}
}

// terminate signals the process group with SIGTERM, escalating to SIGKILL
// after GracefulTimeout, and waits for the exit.
func (s *Supervisor) terminate(pid int, exited <-chan error) {
	s.logger.Info("stopping process", "name", s.cfg.Name, "pid", pid)
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		s.logger.Warn("sending SIGTERM failed", "name", s.cfg.Name, "error", err)
	}

	select {
	case <-exited:
		return
	case <-time.After(s.cfg.GracefulTimeout):
	}

	s.logger.Warn("process ignored SIGTERM, killing", "name", s.cfg.Name, "timeout", s.cfg.GracefulTimeout)
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		s.logger.Error("sending SIGKILL failed", "name", s.cfg.Name, "error", err)
	}
	<-exited
}

func (s *Supervisor) captureOutput(wg *sync.WaitGroup, stream string, r io.Reader) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.logger.Debug("process output", "name", s.cfg.Name, "stream", stream, "line", scanner.Text())
	}
}

func (s *Supervisor) setState(state State, pid int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.pid = pid
	if err != nil {
		s.lastErr = err
	}
	s.since = time.Now()
}

// Status returns the current supervisor status.
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Name:     s.cfg.Name,
		State:    s.state,
		PID:      s.pid,
		Restarts: s.restarts,
		Since:    s.since,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
