// Package mpv drives an mpv process over its JSON IPC socket.
package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/mkrause/retrocast/internal/app/player"
)

const (
	connectRetryInterval = 100 * time.Millisecond
	connectBudget        = 5 * time.Second
	requestTimeout       = 2 * time.Second
)

var ErrIPCClosed = errors.New("mpv ipc connection closed")

// Settings configures the mpv process. Decoded from the engine settings map.
type Settings struct {
	Binary     string   `mapstructure:"binary"`
	Socket     string   `mapstructure:"socket"`
	Fullscreen bool     `mapstructure:"fullscreen"`
	ExtraArgs  []string `mapstructure:"extra_args"`
}

// ParseSettings decodes an engine settings map.
func ParseSettings(raw map[string]any) (Settings, error) {
	var s Settings
	if err := mapstructure.Decode(raw, &s); err != nil {
		return s, errors.Wrap(err, "failed to decode mpv settings")
	}
	if s.Binary == "" {
		s.Binary = "mpv"
	}
	if s.Socket == "" {
		s.Socket = filepath.Join(os.TempDir(), fmt.Sprintf("retrocast-mpv-%d.sock", os.Getpid()))
	}
	return s, nil
}

type request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

type response struct {
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID int64           `json:"request_id,omitempty"`
	Event     string          `json:"event,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}

// Engine implements playback on an mpv subprocess. Safe for use from a
// single controller goroutine; the IPC reader runs internally.
type Engine struct {
	settings Settings
	cmd      *exec.Cmd
	conn     net.Conn
	enc      *json.Encoder

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan response
	state   player.EngineState
	closed  bool
}

// Start launches mpv idle and connects to its IPC socket.
func Start(ctx context.Context, settings Settings) (*Engine, error) {
	args := []string{
		"--idle=yes",
		"--no-terminal",
		"--force-window=yes",
		"--keep-open=yes",
		"--input-ipc-server=" + settings.Socket,
	}
	if settings.Fullscreen {
		args = append(args, "--fullscreen")
	}
	args = append(args, settings.ExtraArgs...)

	cmd := exec.Command(settings.Binary, args...)
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "failed to start mpv")
	}

	conn, err := dialWithRetry(ctx, settings.Socket)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}

	e := &Engine{
		settings: settings,
		cmd:      cmd,
		conn:     conn,
		enc:      json.NewEncoder(conn),
		pending:  make(map[int64]chan response),
		state:    player.EngineStopped,
	}
	go e.readLoop()

	zlog.Info().Str("socket", settings.Socket).Msg("mpv engine started")
	return e, nil
}

func dialWithRetry(ctx context.Context, socket string) (net.Conn, error) {
	deadline := time.Now().Add(connectBudget)
	for {
		conn, err := net.Dial("unix", socket)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, errors.Wrap(err, "timed out connecting to mpv ipc socket")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectRetryInterval):
		}
	}
}

// readLoop dispatches responses to waiting requests and folds events into
// the engine state.
func (e *Engine) readLoop() {
	scanner := bufio.NewScanner(e.conn)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for scanner.Scan() {
		var r response
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			zlog.Warn().Err(err).Msg("unparseable mpv ipc message")
			continue
		}
		if r.RequestID != 0 {
			e.mu.Lock()
			ch, ok := e.pending[r.RequestID]
			if ok {
				delete(e.pending, r.RequestID)
			}
			e.mu.Unlock()
			if ok {
				ch <- r
			}
			continue
		}
		if r.Event != "" {
			e.handleEvent(r)
		}
	}

	e.mu.Lock()
	e.closed = true
	if e.state != player.EngineEnded {
		e.state = player.EngineError
	}
	for id, ch := range e.pending {
		close(ch)
		delete(e.pending, id)
	}
	e.mu.Unlock()
}

func (e *Engine) handleEvent(r response) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch r.Event {
	case "playback-restart":
		e.state = player.EnginePlaying
	case "pause":
		e.state = player.EnginePaused
	case "unpause":
		e.state = player.EnginePlaying
	case "end-file":
		if r.Reason == "error" {
			e.state = player.EngineError
		} else {
			e.state = player.EngineEnded
		}
	case "idle":
		if e.state == player.EnginePlaying || e.state == player.EnginePaused {
			e.state = player.EngineEnded
		}
	}
}

// command sends one IPC command and waits for its reply.
func (e *Engine) command(args ...any) (json.RawMessage, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrIPCClosed
	}
	e.nextID++
	id := e.nextID
	ch := make(chan response, 1)
	e.pending[id] = ch
	e.mu.Unlock()

	if err := e.enc.Encode(request{Command: args, RequestID: id}); err != nil {
		e.mu.Lock()
		delete(e.pending, id)
		e.mu.Unlock()
		return nil, errors.Wrap(err, "failed to send mpv command")
	}

	select {
	case r, ok := <-ch:
		if !ok {
			return nil, ErrIPCClosed
		}
		if r.Error != "" && r.Error != "success" {
			return nil, errors.Newf("mpv command failed: %s", r.Error)
		}
		return r.Data, nil
	case <-time.After(requestTimeout):
		e.mu.Lock()
		delete(e.pending, id)
		e.mu.Unlock()
		return nil, errors.New("mpv command timed out")
	}
}

// Load replaces the current file.
func (e *Engine) Load(ref string) error {
	if _, err := e.command("loadfile", ref, "replace"); err != nil {
		return err
	}
	e.mu.Lock()
	e.state = player.EnginePaused
	e.mu.Unlock()
	// Loading leaves mpv paused until Play.
	_, err := e.command("set_property", "pause", true)
	return err
}

// Play unpauses playback.
func (e *Engine) Play() error {
	if _, err := e.command("set_property", "pause", false); err != nil {
		return err
	}
	e.mu.Lock()
	if e.state == player.EnginePaused || e.state == player.EngineStopped {
		e.state = player.EnginePlaying
	}
	e.mu.Unlock()
	return nil
}

// Pause pauses playback.
func (e *Engine) Pause() error {
	if _, err := e.command("set_property", "pause", true); err != nil {
		return err
	}
	e.mu.Lock()
	if e.state == player.EnginePlaying {
		e.state = player.EnginePaused
	}
	e.mu.Unlock()
	return nil
}

// Stop stops playback and clears the playlist.
func (e *Engine) Stop() error {
	if _, err := e.command("stop"); err != nil {
		return err
	}
	e.mu.Lock()
	e.state = player.EngineStopped
	e.mu.Unlock()
	return nil
}

// Seek jumps to an absolute position.
func (e *Engine) Seek(ms int64) error {
	_, err := e.command("seek", float64(ms)/1000.0, "absolute")
	return err
}

// PositionMs returns the current playback position.
func (e *Engine) PositionMs() (int64, error) {
	data, err := e.command("get_property", "time-pos")
	if err != nil {
		return 0, err
	}
	var sec float64
	if err := json.Unmarshal(data, &sec); err != nil {
		return 0, errors.Wrap(err, "unexpected time-pos payload")
	}
	return int64(sec * 1000), nil
}

// State returns the last observed engine state.
func (e *Engine) State() player.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Close shuts down the IPC connection and the mpv process.
func (e *Engine) Close() error {
	_, _ = e.command("quit")
	_ = e.conn.Close()

	done := make(chan error, 1)
	go func() { done <- e.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		_ = e.cmd.Process.Kill()
		<-done
	}
	_ = os.Remove(e.settings.Socket)
	return nil
}
