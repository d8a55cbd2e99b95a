package terminal

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/vt"
	"github.com/creack/pty"
	"go.uber.org/zap"
)

// ErrSessionClosed is returned when input is sent to a session that has finished.
var ErrSessionClosed = errors.New("terminal: session closed")

// reverse video bit of a cell style
const attrReverse = 1 << 5

// Cell is one resolved grid cell: default colors are filled in and reverse video is applied.
type Cell struct {
	Content string
	Width   int
	Fg      color.Color
	Bg      color.Color
}

type session struct {
	mu *sync.Mutex

	// grid orders output writes and resizes against whole-grid reads
	grid *sync.RWMutex

	id  int
	emu *vt.SafeEmulator

	cmd   *exec.Cmd
	ptmx  *os.File
	shell string
	env   []string

	onOutput func()
	onBell   func()
	logger   *zap.Logger

	done      chan struct{}
	inputDone chan struct{}
	closeOnce sync.Once
	closed    bool
}

// Session is one shell attached to a VT emulator. Output from the shell is parsed into the
// emulator's grid; input from the host is encoded by the emulator and written to the shell.
type Session interface {
	// ID returns the number the session was created with.
	ID() int

	// Write feeds shell output into the emulator and reports it through the output callback.
	//
	// Parameters:
	//   - p: raw output bytes including escape sequences
	//
	// Returns:
	//   - int: the number of bytes consumed
	//   - error: ErrSessionClosed once the session is closed
	Write(p []byte) (int, error)

	// SendText types text into the session.
	//
	// Parameters:
	//   - text: UTF-8 text
	SendText(text string)

	// SendKey sends one special key press, encoded for the session's current modes.
	//
	// Parameters:
	//   - key: the key event
	SendKey(key vt.KeyPressEvent)

	// Resize changes the grid size and the pty window size.
	//
	// Parameters:
	//   - cols: new column count
	//   - rows: new row count
	//
	// Returns:
	//   - error: if the pty rejects the size or the session is closed
	Resize(cols, rows int) error

	// Size returns the grid size in cells.
	Size() (cols, rows int)

	// ReadGrid runs fn while output writes and resizes wait, so every cell, cursor and color
	// read inside fn comes from the same grid state. fn must not call Write or Resize.
	//
	// Parameters:
	//   - fn: the reads to run
	ReadGrid(fn func())

	// Cell returns the cell at (x, y) with the session's default colors resolved.
	//
	// Parameters:
	//   - x: column
	//   - y: row
	//
	// Returns:
	//   - Cell: the resolved cell; a blank cell for positions outside the grid
	Cell(x, y int) Cell

	// Cursor returns the cursor position in cells.
	Cursor() (x, y int)

	// Background returns the session's default background color.
	Background() color.Color

	// Foreground returns the session's default foreground color.
	Foreground() color.Color

	// Done is closed when the session finishes, either because the shell exited or Close was called.
	Done() <-chan struct{}

	// Close terminates the shell and shuts the emulator's input side, which stops the input
	// pump. It is safe to call more than once.
	Close() error
}

var _ Session = &session{}

// NewSession creates a session without a shell. Output is supplied through Write and input
// produced by the emulator is discarded. Used for replaying captured output.
//
// Parameters:
//   - id: the session number
//   - cols: grid columns
//   - rows: grid rows
//   - opts: variadic list of SessionBuilderOption functions
//
// Returns:
//   - Session: the session
func NewSession(id, cols, rows int, opts ...SessionBuilderOption) Session {
	s := newSession(id, cols, rows, opts...)
	go s.pumpInput(io.Discard)
	return s
}

// StartSession starts a shell on a new pty and attaches it to a VT emulator.
//
// Parameters:
//   - id: the session number
//   - cols: grid columns
//   - rows: grid rows
//   - opts: variadic list of SessionBuilderOption functions
//
// Returns:
//   - Session: the running session
//   - error: if the pty or the shell cannot be started
func StartSession(id, cols, rows int, opts ...SessionBuilderOption) (Session, error) {
	s := newSession(id, cols, rows, opts...)

	cmd := exec.Command(s.shell)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	cmd.Env = append(cmd.Env, s.env...)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		s.closeInput()
		return nil, fmt.Errorf("session %d: start pty: %w", id, err)
	}
	s.cmd = cmd
	s.ptmx = ptmx

	go s.pumpInput(ptmx)
	go s.pumpOutput()
	go s.wait()

	s.logger.Info("session started",
		zap.Int("session", id),
		zap.String("shell", s.shell),
		zap.Int("pid", cmd.Process.Pid),
	)
	return s, nil
}

func newSession(id, cols, rows int, opts ...SessionBuilderOption) *session {
	s := &session{
		mu:        &sync.Mutex{},
		grid:      &sync.RWMutex{},
		id:        id,
		emu:       vt.NewSafeEmulator(cols, rows),
		shell:     defaultShell(),
		logger:    zap.NewNop(),
		done:      make(chan struct{}),
		inputDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	swallowQueries(s.emu)
	s.emu.SetCallbacks(vt.Callbacks{
		Bell: func() {
			if s.onBell != nil {
				s.onBell()
			}
		},
	})
	return s
}

func defaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// swallowQueries stops the emulator from answering status and attribute queries. Shells that
// echo unexpected input would otherwise print the replies back into the grid.
func swallowQueries(emu *vt.SafeEmulator) {
	// DSR: CSI 5 n, CSI 6 n
	emu.RegisterCsiHandler('n', func(params ansi.Params) bool {
		n, _, ok := params.Param(0, 1)
		return ok && (n == 5 || n == 6)
	})
	// DECXCPR: CSI ? 6 n
	emu.RegisterCsiHandler(ansi.Command('?', 0, 'n'), func(params ansi.Params) bool {
		n, _, ok := params.Param(0, 1)
		return ok && n == 6
	})
	// primary and secondary DA
	emu.RegisterCsiHandler('c', func(params ansi.Params) bool {
		n, _, _ := params.Param(0, 0)
		return n == 0
	})
	emu.RegisterCsiHandler(ansi.Command('>', 0, 'c'), func(params ansi.Params) bool {
		n, _, _ := params.Param(0, 0)
		return n == 0
	})
}

// pumpInput copies emulator-encoded input to the shell until the input side is closed.
func (s *session) pumpInput(w io.Writer) {
	defer close(s.inputDone)
	buf := make([]byte, 4096)
	for {
		n, err := s.emu.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				s.logger.Debug("session input", zap.Int("session", s.id), zap.Error(werr))
			}
		}
		if err != nil {
			return
		}
	}
}

// pumpOutput feeds pty output into the emulator until the pty closes.
func (s *session) pumpOutput() {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			if _, werr := s.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *session) wait() {
	err := s.cmd.Wait()
	s.logger.Info("session finished", zap.Int("session", s.id), zap.NamedError("exit", err))
	_ = s.Close()
}

func (s *session) ID() int {
	return s.id
}

func (s *session) Write(p []byte) (int, error) {
	if s.isClosed() {
		return 0, ErrSessionClosed
	}
	s.grid.Lock()
	n, err := s.emu.Write(p)
	s.grid.Unlock()
	if n > 0 && s.onOutput != nil {
		s.onOutput()
	}
	return n, err
}

func (s *session) SendText(text string) {
	if s.isClosed() {
		return
	}
	s.emu.SendText(text)
}

func (s *session) SendKey(key vt.KeyPressEvent) {
	if s.isClosed() {
		return
	}
	s.emu.SendKey(key)
}

func (s *session) Resize(cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("session %d: invalid size %dx%d", s.id, cols, rows)
	}
	if s.isClosed() {
		return ErrSessionClosed
	}
	s.grid.Lock()
	s.emu.Resize(cols, rows)
	s.grid.Unlock()
	if s.ptmx != nil {
		if err := pty.Setsize(s.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
			return fmt.Errorf("session %d: resize pty: %w", s.id, err)
		}
	}
	return nil
}

func (s *session) Size() (int, int) {
	return s.emu.Width(), s.emu.Height()
}

func (s *session) ReadGrid(fn func()) {
	s.grid.RLock()
	defer s.grid.RUnlock()
	fn()
}

func (s *session) Cell(x, y int) Cell {
	c := Cell{Content: " ", Width: 1, Fg: s.Foreground(), Bg: s.Background()}

	cell := s.emu.CellAt(x, y)
	if cell == nil {
		return c
	}
	if cell.Content != "" {
		c.Content = cell.Content
	}
	if cell.Width > 1 {
		c.Width = cell.Width
	}
	if cell.Style.Fg != nil {
		c.Fg = cell.Style.Fg
	}
	if cell.Style.Bg != nil {
		c.Bg = cell.Style.Bg
	}
	if uint8(cell.Style.Attrs)&attrReverse != 0 {
		c.Fg, c.Bg = c.Bg, c.Fg
	}
	return c
}

func (s *session) Cursor() (int, int) {
	pos := s.emu.CursorPosition()
	return pos.X, pos.Y
}

func (s *session) Background() color.Color {
	if c := s.emu.BackgroundColor(); c != nil {
		return c
	}
	return color.Black
}

func (s *session) Foreground() color.Color {
	if c := s.emu.ForegroundColor(); c != nil {
		return c
	}
	return color.White
}

func (s *session) Done() <-chan struct{} {
	return s.done
}

func (s *session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if s.cmd != nil && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		if s.ptmx != nil {
			err = s.ptmx.Close()
		}
		s.closeInput()
		close(s.done)
	})
	return err
}

// closeInput ends the input pump by closing the emulator's input pipe. The emulator itself is
// never closed: its closed flag is read by Read and Write without a lock.
func (s *session) closeInput() {
	if c, ok := s.emu.InputPipe().(io.Closer); ok {
		_ = c.Close()
	}
}
