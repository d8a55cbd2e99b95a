package main

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/camera"
	"github.com/Carmen-Shannon/oxy-vrterm/terminal"
	"github.com/charmbracelet/x/vt"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// recordingManager records the calls bindings make. Methods it does not override panic.
type recordingManager struct {
	terminal.Manager

	calls []string
	texts []string
	keys  []vt.KeyPressEvent
}

func (m *recordingManager) Spawn() (terminal.Session, error) {
	m.calls = append(m.calls, "spawn")
	return nil, nil
}

func (m *recordingManager) Next() { m.calls = append(m.calls, "next") }

func (m *recordingManager) Prev() { m.calls = append(m.calls, "prev") }

func (m *recordingManager) ChangeFontScale(increase bool) bool {
	if increase {
		m.calls = append(m.calls, "grow")
	} else {
		m.calls = append(m.calls, "shrink")
	}
	return true
}

func (m *recordingManager) SendText(text string) { m.texts = append(m.texts, text) }

func (m *recordingManager) SendKey(key vt.KeyPressEvent) { m.keys = append(m.keys, key) }

func TestBindingsChords(t *testing.T) {
	m := &recordingManager{}
	b := newBindings(m, camera.NewHeadController(), zap.NewNop())
	chord := common.ModControl | common.ModShift

	b.keyDown(common.KeyN, chord)
	b.keyDown(common.KeyRight, chord)
	b.keyDown(common.KeyLeft, chord)
	b.keyDown(common.KeyEqual, chord)
	b.keyDown(common.KeyMinus, chord)

	assert.Equal(t, []string{"spawn", "next", "prev", "grow", "shrink"}, m.calls)
	assert.Empty(t, m.keys, "chords are not forwarded")
}

func TestBindingsForwardKeys(t *testing.T) {
	m := &recordingManager{}
	b := newBindings(m, camera.NewHeadController(), zap.NewNop())

	b.keyDown(common.KeyEnter, 0)
	b.keyDown(common.KeyLeft, common.ModShift)
	b.keyDown(common.KeyC, common.ModControl)
	b.keyDown(common.KeyA, 0) // arrives as a character instead
	b.char('a')
	b.char('é')

	assert.Equal(t, []vt.KeyPressEvent{
		{Code: vt.KeyEnter},
		{Code: vt.KeyLeft, Mod: vt.ModShift},
		{Code: 'c', Mod: vt.ModCtrl},
	}, m.keys)
	assert.Equal(t, []string{"a", "é"}, m.texts)
	assert.Empty(t, m.calls)
}

func TestBindingsScroll(t *testing.T) {
	m := &recordingManager{}
	b := newBindings(m, camera.NewHeadController(), zap.NewNop())

	b.scroll(1)
	b.scroll(0)
	b.scroll(-2)

	assert.Equal(t, []string{"grow", "shrink"}, m.calls)
}

func TestBindingsLook(t *testing.T) {
	head := camera.NewHeadController(camera.WithMouseSensitivity(0.01))
	b := newBindings(&recordingManager{}, head, zap.NewNop())

	b.mouseMove(100, 100)
	assert.Zero(t, head.Yaw(), "no drag without the middle button")

	b.lookStart(100, 100)
	b.mouseMove(120, 100)
	assert.InDelta(t, 0.2, head.Yaw(), 1e-5)
	b.lookEnd(120, 100)
	b.mouseMove(300, 100)
	assert.InDelta(t, 0.2, head.Yaw(), 1e-5)

	b.keyDown(common.KeyF12, 0)
	assert.Zero(t, head.Yaw())
	assert.Zero(t, head.Pitch())
}
