// Package hotkey parses user-facing key-combination strings ("Ctrl+Shift+V")
// into the modifier mask and virtual-key code the OS registration call wants,
// and formats them back for display.
package hotkey

import (
	"fmt"
	"strings"
)

// Modifier flags, matching the Win32 RegisterHotKey values.
const (
	ModAlt   uint16 = 0x0001
	ModCtrl  uint16 = 0x0002
	ModShift uint16 = 0x0004
	ModWin   uint16 = 0x0008
)

// Virtual-key codes for the named keys the parser accepts.
const (
	vkBack     uint16 = 0x08
	vkTab      uint16 = 0x09
	vkReturn   uint16 = 0x0D
	vkEscape   uint16 = 0x1B
	vkSpace    uint16 = 0x20
	vkPageUp   uint16 = 0x21
	vkPageDown uint16 = 0x22
	vkEnd      uint16 = 0x23
	vkHome     uint16 = 0x24
	vkLeft     uint16 = 0x25
	vkUp       uint16 = 0x26
	vkRight    uint16 = 0x27
	vkDown     uint16 = 0x28
	vkInsert   uint16 = 0x2D
	vkDelete   uint16 = 0x2E
	vkF1       uint16 = 0x70
)

// Spec is a parsed key combination.
type Spec struct {
	Display   string
	Modifiers uint16
	VK        uint16
}

// SameBinding reports whether two specs resolve to the same effective
// registration, regardless of how the user spelled them.
func (s Spec) SameBinding(o Spec) bool {
	return s.Modifiers == o.Modifiers && s.VK == o.VK
}

var keyAliases = map[string]string{
	"CONTROL":   "CTRL",
	"LCTRL":     "CTRL",
	"RCTRL":     "CTRL",
	"L_CONTROL": "CTRL",
	"R_CONTROL": "CTRL",
	"ALTGR":     "ALT",
	"OPTION":    "ALT",
	"RETURN":    "ENTER",
	"ESCAPE":    "ESC",
	"PGUP":      "PAGEUP",
	"PGDN":      "PAGEDOWN",
	"PGDOWN":    "PAGEDOWN",
	"DEL":       "DELETE",
	"INS":       "INSERT",
	"PRIOR":     "PAGEUP",
	"NEXT":      "PAGEDOWN",
}

var vkByName = map[string]uint16{
	"BACKSPACE": vkBack,
	"TAB":       vkTab,
	"ENTER":     vkReturn,
	"ESC":       vkEscape,
	"SPACE":     vkSpace,
	"LEFT":      vkLeft,
	"RIGHT":     vkRight,
	"UP":        vkUp,
	"DOWN":      vkDown,
	"HOME":      vkHome,
	"END":       vkEnd,
	"PAGEUP":    vkPageUp,
	"PAGEDOWN":  vkPageDown,
	"INSERT":    vkInsert,
	"DELETE":    vkDelete,
}

func init() {
	for i := uint16(1); i <= 24; i++ {
		vkByName[fmt.Sprintf("F%d", i)] = vkF1 + i - 1
	}
}

// Parse converts a key-combination string into a Spec. Only the first
// sequence of a comma-separated list is considered; full-width plus signs are
// tolerated. Exactly one non-modifier key is required.
func Parse(seq string) (Spec, error) {
	seq = strings.TrimSpace(seq)
	if seq == "" {
		return Spec{}, fmt.Errorf("hotkey: empty sequence")
	}
	for _, sep := range []string{",", "，", "、"} {
		if i := strings.Index(seq, sep); i >= 0 {
			seq = strings.TrimSpace(seq[:i])
			break
		}
	}
	seq = strings.NewReplacer("＋", "+", "﹢", "+", " ", "").Replace(seq)

	var modifiers uint16
	var key string
	for _, raw := range strings.Split(seq, "+") {
		if raw == "" {
			continue
		}
		token := strings.ToUpper(raw)
		if alias, ok := keyAliases[token]; ok {
			token = alias
		}
		switch token {
		case "CTRL":
			modifiers |= ModCtrl
		case "SHIFT":
			modifiers |= ModShift
		case "ALT":
			modifiers |= ModAlt
		case "WIN", "META", "CMD", "COMMAND":
			modifiers |= ModWin
		default:
			if key != "" {
				return Spec{}, fmt.Errorf("hotkey: more than one key in %q", seq)
			}
			key = token
		}
	}
	if key == "" {
		return Spec{}, fmt.Errorf("hotkey: no key in %q", seq)
	}

	vk, ok := vkFromKey(key)
	if !ok {
		return Spec{}, fmt.Errorf("hotkey: unsupported key %q", key)
	}
	return Spec{Display: FormatDisplay(modifiers, vk), Modifiers: modifiers, VK: vk}, nil
}

func vkFromKey(key string) (uint16, bool) {
	if vk, ok := vkByName[key]; ok {
		return vk, true
	}
	if len(key) == 1 {
		c := key[0]
		if c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			return uint16(c), true
		}
	}
	return 0, false
}

// FormatDisplay renders a registration back into canonical "Ctrl+Alt+X" form.
func FormatDisplay(modifiers, vk uint16) string {
	var parts []string
	if modifiers&ModCtrl != 0 {
		parts = append(parts, "Ctrl")
	}
	if modifiers&ModShift != 0 {
		parts = append(parts, "Shift")
	}
	if modifiers&ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if modifiers&ModWin != 0 {
		parts = append(parts, "Win")
	}
	parts = append(parts, keyName(vk))
	return strings.Join(parts, "+")
}

func keyName(vk uint16) string {
	if vk >= 'A' && vk <= 'Z' || vk >= '0' && vk <= '9' {
		return string(rune(vk))
	}
	if vk >= vkF1 && vk < vkF1+24 {
		return fmt.Sprintf("F%d", vk-vkF1+1)
	}
	for name, code := range vkByName {
		if code != vk {
			continue
		}
		switch name {
		case "PAGEUP":
			return "PageUp"
		case "PAGEDOWN":
			return "PageDown"
		case "ESC":
			return "Esc"
		default:
			return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
		}
	}
	return fmt.Sprintf("0x%X", vk)
}
