package main

import (
	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/camera"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/window"
	"github.com/Carmen-Shannon/oxy-vrterm/terminal"
	"go.uber.org/zap"
)

// bindings routes window input. Ctrl+Shift chords and F12 control the app; every other key goes
// to the current session. Dragging with the middle button turns the head.
type bindings struct {
	sessions terminal.Manager
	head     camera.HeadController
	logger   *zap.Logger

	looking      bool
	lastX, lastY int32
}

func newBindings(sessions terminal.Manager, head camera.HeadController, logger *zap.Logger) *bindings {
	return &bindings{sessions: sessions, head: head, logger: logger}
}

func (b *bindings) attach(w window.Window) {
	w.SetKeyDownCallback(b.keyDown)
	w.SetCharCallback(b.char)
	w.SetScrollCallback(b.scroll)
	w.SetMiddleMouseDownCallback(b.lookStart)
	w.SetMiddleMouseUpCallback(b.lookEnd)
	w.SetMouseMoveCallback(b.mouseMove)
}

func (b *bindings) keyDown(keyCode uint32, mods common.KeyMods) {
	if mods.Has(common.ModControl) && mods.Has(common.ModShift) {
		switch keyCode {
		case common.KeyN:
			if _, err := b.sessions.Spawn(); err != nil {
				b.logger.Warn("new session", zap.Error(err))
			}
			return
		case common.KeyRight:
			b.sessions.Next()
			return
		case common.KeyLeft:
			b.sessions.Prev()
			return
		case common.KeyEqual:
			b.sessions.ChangeFontScale(true)
			return
		case common.KeyMinus:
			b.sessions.ChangeFontScale(false)
			return
		}
	}
	if keyCode == common.KeyF12 {
		b.head.Recenter()
		return
	}

	if ev, ok := terminal.KeyEvent(keyCode, mods); ok {
		b.sessions.SendKey(ev)
	}
}

func (b *bindings) char(ch rune) {
	b.sessions.SendText(string(ch))
}

func (b *bindings) scroll(delta float32) {
	switch {
	case delta > 0:
		b.sessions.ChangeFontScale(true)
	case delta < 0:
		b.sessions.ChangeFontScale(false)
	}
}

func (b *bindings) lookStart(x, y int32) {
	b.looking = true
	b.lastX, b.lastY = x, y
}

func (b *bindings) lookEnd(_, _ int32) {
	b.looking = false
}

func (b *bindings) mouseMove(x, y int32) {
	if !b.looking {
		return
	}
	b.head.Look(float32(x-b.lastX), float32(y-b.lastY))
	b.lastX, b.lastY = x, y
}
