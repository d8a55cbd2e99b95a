package terminal

import (
	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/charmbracelet/x/vt"
)

var specialKeys = map[uint32]rune{
	common.KeyEnter:     vt.KeyEnter,
	common.KeyTab:       vt.KeyTab,
	common.KeyBackspace: vt.KeyBackspace,
	common.KeyEsc:       vt.KeyEscape,
	common.KeyUp:        vt.KeyUp,
	common.KeyDown:      vt.KeyDown,
	common.KeyLeft:      vt.KeyLeft,
	common.KeyRight:     vt.KeyRight,
	common.KeyInsert:    vt.KeyInsert,
	common.KeyDelete:    vt.KeyDelete,
	common.KeyHome:      vt.KeyHome,
	common.KeyEnd:       vt.KeyEnd,
	common.KeyPageUp:    vt.KeyPgUp,
	common.KeyPageDown:  vt.KeyPgDown,
}

// KeyEvent translates a window key press into a VT key event. Printable keys without Ctrl or
// Alt are not translated; they arrive as text through the window's character callback.
//
// Parameters:
//   - keyCode: the GLFW key code
//   - mods: modifiers held during the press
//
// Returns:
//   - vt.KeyPressEvent: the event to send
//   - bool: false if the key is not sent as a key event
func KeyEvent(keyCode uint32, mods common.KeyMods) (vt.KeyPressEvent, bool) {
	var mod vt.KeyMod
	if mods.Has(common.ModShift) {
		mod |= vt.ModShift
	}
	if mods.Has(common.ModControl) {
		mod |= vt.ModCtrl
	}
	if mods.Has(common.ModAlt) {
		mod |= vt.ModAlt
	}

	if code, ok := specialKeys[keyCode]; ok {
		return vt.KeyPressEvent{Code: code, Mod: mod}, true
	}

	if mod&(vt.ModCtrl|vt.ModAlt) == 0 {
		return vt.KeyPressEvent{}, false
	}
	switch {
	case keyCode >= common.KeyA && keyCode <= 'Z':
		// letter key codes are upper-case ASCII
		return vt.KeyPressEvent{Code: rune(keyCode - 'A' + 'a'), Mod: mod}, true
	case keyCode >= common.Key0 && keyCode <= common.Key9, keyCode == common.KeySpace:
		return vt.KeyPressEvent{Code: rune(keyCode), Mod: mod}, true
	}
	return vt.KeyPressEvent{}, false
}
