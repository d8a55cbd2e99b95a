package terminal

import (
	"errors"
	"fmt"
	"image"
	"os"
	"slices"
	"sync"

	"github.com/charmbracelet/x/vt"
	"go.uber.org/zap"
)

// ErrSessionLimit is returned when a session is added while the manager is full.
var ErrSessionLimit = errors.New("terminal: session limit reached")

// DefaultMaxSessions is the session limit used when none is configured.
const DefaultMaxSessions = 8

// SessionFactory starts a session with the given id and grid size.
type SessionFactory func(id, cols, rows int, opts ...SessionBuilderOption) (Session, error)

type manager struct {
	mu *sync.Mutex

	sessions []Session
	current  int
	nextID   int

	maxSessions int
	factory     SessionFactory
	sessionOpts []SessionBuilderOption
	raster      Rasterizer

	markDirty func()
	onEmpty   func()
	bell      func()
	logger    *zap.Logger
}

// Manager owns the terminal sessions and tracks which one is shown. Only output from the
// current session, a session switch or a font change marks the screen dirty.
type Manager interface {
	// Spawn starts a new session sized to the rasterizer grid and makes it current.
	//
	// Returns:
	//   - Session: the new session
	//   - error: ErrSessionLimit if the manager is full, or the start error
	Spawn() (Session, error)

	// Current returns the session being shown, or nil when there is none.
	Current() Session

	// Sessions returns the sessions in creation order.
	Sessions() []Session

	// Next switches to the following session, wrapping to the first.
	Next()

	// Prev switches to the preceding session, wrapping to the last.
	Prev()

	// Remove closes a session and drops it. When the current session is removed the one that took
	// its place becomes current; removing the last session calls the empty callback.
	//
	// Parameters:
	//   - s: the session to remove
	Remove(s Session)

	// SendText types text into the current session.
	SendText(text string)

	// SendKey sends a key press to the current session.
	SendKey(key vt.KeyPressEvent)

	// ChangeFontScale grows or shrinks the rasterizer scale by one step and resizes every
	// session's grid to fit.
	//
	// Parameters:
	//   - increase: true to grow the glyphs
	//
	// Returns:
	//   - bool: false if the scale was already at its bound
	ChangeFontScale(increase bool) bool

	// RenderSnapshot rasterizes the current session.
	//
	// Returns:
	//   - *image.RGBA: the snapshot at the rasterizer's size
	RenderSnapshot() *image.RGBA

	// Close closes every session and the rasterizer.
	Close()
}

var _ Manager = &manager{}

// NewManager creates a session manager that renders through raster.
//
// Parameters:
//   - raster: the rasterizer producing snapshots and grid sizes
//   - opts: variadic list of ManagerBuilderOption functions
//
// Returns:
//   - Manager: the manager with no sessions
func NewManager(raster Rasterizer, opts ...ManagerBuilderOption) Manager {
	m := &manager{
		mu:          &sync.Mutex{},
		current:     -1,
		maxSessions: DefaultMaxSessions,
		factory:     StartSession,
		raster:      raster,
		markDirty:   func() {},
		onEmpty:     func() {},
		bell:        NewBell(BellIgnore, os.Stderr, nil),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *manager) Spawn() (Session, error) {
	m.mu.Lock()
	if len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		return nil, fmt.Errorf("spawn session %d: %w", len(m.sessions)+1, ErrSessionLimit)
	}
	id := m.nextID
	m.nextID++
	m.mu.Unlock()

	cols, rows := m.raster.Grid()

	// the session reference is only known after the factory returns
	var self Session
	ready := make(chan struct{})
	opts := append(slices.Clone(m.sessionOpts),
		WithOutputCallback(func() {
			<-ready
			if m.Current() == self {
				m.markDirty()
			}
		}),
		WithBellCallback(func() {
			<-ready
			if m.Current() == self {
				m.bell()
			}
		}),
		WithSessionLogger(m.logger),
	)

	s, err := m.factory(id, cols, rows, opts...)
	if err != nil {
		close(ready)
		return nil, err
	}
	self = s

	m.mu.Lock()
	m.sessions = append(m.sessions, s)
	m.current = len(m.sessions) - 1
	m.mu.Unlock()
	close(ready)

	go func() {
		<-s.Done()
		m.Remove(s)
	}()

	m.logger.Info("session attached", zap.Int("session", id), zap.Int("cols", cols), zap.Int("rows", rows))
	m.markDirty()
	return s, nil
}

func (m *manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current < 0 {
		return nil
	}
	return m.sessions[m.current]
}

func (m *manager) Sessions() []Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sessions)
}

func (m *manager) Next() {
	m.switchBy(1)
}

func (m *manager) Prev() {
	m.switchBy(-1)
}

func (m *manager) switchBy(step int) {
	m.mu.Lock()
	n := len(m.sessions)
	if n == 0 {
		m.mu.Unlock()
		return
	}
	m.current = ((m.current+step)%n + n) % n
	id := m.sessions[m.current].ID()
	m.mu.Unlock()

	m.logger.Debug("session switched", zap.Int("session", id))
	m.markDirty()
}

func (m *manager) Remove(s Session) {
	m.mu.Lock()
	i := slices.Index(m.sessions, s)
	if i < 0 {
		m.mu.Unlock()
		return
	}
	wasCurrent := i == m.current
	m.sessions = slices.Delete(m.sessions, i, i+1)
	switch {
	case len(m.sessions) == 0:
		m.current = -1
	case i < m.current, m.current >= len(m.sessions):
		m.current--
	}
	empty := len(m.sessions) == 0
	m.mu.Unlock()

	_ = s.Close()
	m.logger.Info("session removed", zap.Int("session", s.ID()), zap.Bool("current", wasCurrent))

	if wasCurrent {
		m.markDirty()
	}
	if empty {
		m.onEmpty()
	}
}

func (m *manager) SendText(text string) {
	if s := m.Current(); s != nil {
		s.SendText(text)
	}
}

func (m *manager) SendKey(key vt.KeyPressEvent) {
	if s := m.Current(); s != nil {
		s.SendKey(key)
	}
}

func (m *manager) ChangeFontScale(increase bool) bool {
	scale := m.raster.Scale()
	if increase {
		scale++
	} else {
		scale--
	}
	if err := m.raster.SetScale(scale); err != nil {
		return false
	}

	cols, rows := m.raster.Grid()
	for _, s := range m.Sessions() {
		if err := s.Resize(cols, rows); err != nil {
			m.logger.Warn("resize session", zap.Int("session", s.ID()), zap.Error(err))
		}
	}
	m.logger.Debug("font scale changed", zap.Int("scale", scale), zap.Int("cols", cols), zap.Int("rows", rows))
	m.markDirty()
	return true
}

func (m *manager) RenderSnapshot() *image.RGBA {
	return m.raster.Render(m.Current())
}

func (m *manager) Close() {
	for _, s := range m.Sessions() {
		_ = s.Close()
	}
	m.raster.Close()
}
