package encoder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

const (
	chunkSize       = 32 * 1024
	diagnosticTail  = 32 // stderr lines kept for the fatal report
	defaultGrace    = 5 * time.Second
	defaultKillWait = 5 * time.Second
)

// LaunchError means the encoder process could not be started. The session
// must not be registered when Start returns one.
type LaunchError struct {
	SessionID string
	Err       error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("encoder launch failed for session %q: %v", e.SessionID, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// FatalError is a diagnostic line matched by the fatal heuristic while the
// encoder was live.
type FatalError struct {
	SessionID string
	Line      string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("encoder fatal for session %q: %s", e.SessionID, e.Line)
}

// Supervisor launches and owns one external encoding process per session.
type Supervisor struct {
	binary          string
	logger          *slog.Logger
	processLogger   *slog.Logger // logger for encoder stderr output
	gracefulTimeout time.Duration
	killTimeout     time.Duration

	// test seam: replaces the ffmpeg invocation entirely
	commandOverride func(StreamParams) (string, []string)
}

// NewSupervisor creates a supervisor that launches ffmpeg.
// processLogger receives the encoder's own diagnostics, re-leveled.
func NewSupervisor(logger, processLogger *slog.Logger) *Supervisor {
	return &Supervisor{
		binary:          "ffmpeg",
		logger:          logger,
		processLogger:   processLogger,
		gracefulTimeout: defaultGrace,
		killTimeout:     defaultKillWait,
	}
}

// SetBinary overrides the encoder binary path.
func (s *Supervisor) SetBinary(path string) { s.binary = path }

// SetGracePeriod overrides the SIGTERM-to-SIGKILL escalation window.
func (s *Supervisor) SetGracePeriod(grace, killWait time.Duration) {
	s.gracefulTimeout = grace
	s.killTimeout = killWait
}

// OverrideCommand replaces the encoder invocation entirely. Test hook.
func (s *Supervisor) OverrideCommand(fn func(StreamParams) (string, []string)) {
	s.commandOverride = fn
}

// Encoder is one running encoder process bound to a session.
type Encoder struct {
	sessionID       string
	cmd             *exec.Cmd
	chunks          chan []byte
	fatal           chan error
	processDone     chan error
	stopped         chan struct{}
	logger          *slog.Logger
	processLogger   *slog.Logger
	gracefulTimeout time.Duration
	killTimeout     time.Duration

	stopOnce sync.Once

	tailMu sync.Mutex
	tail   []string
}

// Start launches the encoder for the given stream parameters and begins
// draining its output. The returned Encoder's chunk channel ends when the
// process exits; it is never restarted.
func (s *Supervisor) Start(p StreamParams) (*Encoder, error) {
	binary, argv := s.binary, BuildArgs(p)
	if s.commandOverride != nil {
		binary, argv = s.commandOverride(p)
	}

	cmd := exec.Command(binary, argv...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = append(os.Environ(), "DISPLAY="+p.Display)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &LaunchError{SessionID: p.SessionID, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &LaunchError{SessionID: p.SessionID, Err: err}
	}

	if err := cmd.Start(); err != nil {
		s.logger.Error("Failed to start encoder", "session_id", p.SessionID, "error", err)
		return nil, &LaunchError{SessionID: p.SessionID, Err: err}
	}

	s.logger.Info("Encoder started",
		"session_id", p.SessionID,
		"pid", cmd.Process.Pid,
		"codec", p.Profile.Codec,
		"resolution", p.Quality.Resolution,
		"bitrate", p.Quality.Bitrate)

	e := &Encoder{
		sessionID:       p.SessionID,
		cmd:             cmd,
		chunks:          make(chan []byte, 8),
		fatal:           make(chan error, 1),
		processDone:     make(chan error, 1),
		stopped:         make(chan struct{}),
		logger:          s.logger,
		processLogger:   s.processLogger,
		gracefulTimeout: s.gracefulTimeout,
		killTimeout:     s.killTimeout,
	}

	go e.readChunks(stdout)
	go e.scanDiagnostics(stderr)
	go func() {
		err := cmd.Wait()
		e.logger.Info("Encoder exited", "session_id", e.sessionID, "exit_code", exitCodeFromError(err))
		e.processDone <- err
	}()

	return e, nil
}

// Chunks returns the live media payload: raw chunks in production order.
// The channel is closed when the process exits. No backfill, no restart.
func (e *Encoder) Chunks() <-chan []byte { return e.chunks }

// Fatal carries the first diagnostic line matched by the fatal heuristic.
func (e *Encoder) Fatal() <-chan error { return e.fatal }

// Tail returns the most recent diagnostic lines from the encoder.
func (e *Encoder) Tail() []string {
	e.tailMu.Lock()
	defer e.tailMu.Unlock()
	out := make([]string, len(e.tail))
	copy(out, e.tail)
	return out
}

// Stop requests graceful termination, escalating to SIGKILL after the grace
// period. Idempotent: stopping an already-stopped encoder is a no-op.
func (e *Encoder) Stop() {
	e.stopOnce.Do(func() {
		// Release the chunk reader: once stopping, nobody consumes chunks.
		close(e.stopped)

		if e.cmd.Process == nil {
			return
		}

		e.logger.Info("Sending SIGTERM to encoder", "session_id", e.sessionID, "pid", e.cmd.Process.Pid)
		if err := e.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			if !errors.Is(err, os.ErrProcessDone) {
				e.logger.Warn("Failed to send SIGTERM", "session_id", e.sessionID, "error", err)
			}
		}

		select {
		case <-e.processDone:
			return
		case <-time.After(e.gracefulTimeout):
		}

		e.logger.Warn("Graceful shutdown timeout, forcing kill", "session_id", e.sessionID, "timeout", e.gracefulTimeout)
		if err := e.cmd.Process.Kill(); err != nil {
			// process exited between timeout and kill
			if !errors.Is(err, os.ErrProcessDone) {
				e.logger.Error("Failed to kill encoder", "session_id", e.sessionID, "error", err)
			}
		}

		select {
		case <-e.processDone:
		case <-time.After(e.killTimeout):
			e.logger.Error("Encoder did not exit after kill signal", "session_id", e.sessionID)
		}
	})
}

// readChunks streams stdout into the chunk channel until the pipe closes.
func (e *Encoder) readChunks(r io.Reader) {
	defer close(e.chunks)

	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case e.chunks <- chunk:
			case <-e.stopped:
				return
			}
		}
		if err != nil {
			if err != io.EOF && !errors.Is(err, os.ErrClosed) {
				e.logger.Warn("Error reading encoder output", "session_id", e.sessionID, "error", err)
			}
			return
		}
	}
}

// scanDiagnostics re-levels stderr lines into the process logger, keeps a
// short tail, and raises the fatal signal on the first matched line.
func (e *Encoder) scanDiagnostics(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		e.tailMu.Lock()
		e.tail = append(e.tail, line)
		if len(e.tail) > diagnosticTail {
			e.tail = e.tail[1:]
		}
		e.tailMu.Unlock()

		level, msg := ParseLogLevel(line)
		switch level {
		case "fatal", "panic", "error":
			e.processLogger.Error(msg, "session_id", e.sessionID)
		case "warning":
			e.processLogger.Warn(msg, "session_id", e.sessionID)
		case "debug", "verbose", "trace":
			e.processLogger.Debug(msg, "session_id", e.sessionID)
		default:
			e.processLogger.Info(msg, "session_id", e.sessionID)
		}

		if IsFatalLine(line) {
			select {
			case e.fatal <- &FatalError{SessionID: e.sessionID, Line: line}:
			default:
				// only the first fatal line is reported
			}
		}
	}
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
