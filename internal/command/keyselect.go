package command

import (
	"strconv"
	"strings"

	"ckbcored/internal/device"
)

// resolveKeySelectors expands a comma-separated key-selector list
// into the set of scancodes it names, in order.
// Each selector is "all", "#<dec>", "#x<hex>", or a keymap name
// compared at most device.MaxKeyNameLen bytes. Unresolvable selectors contribute nothing.
func resolveKeySelectors(d *device.Device, left string) []int {
	var keys []int
	for _, sel := range strings.Split(left, ",") {
		if sel == "" {
			continue
		}
		switch {
		case sel == "all":
			for i := 0; i < device.NKeysExtended; i++ {
				keys = append(keys, i)
			}
		case strings.HasPrefix(sel, "#x"):
			if n, err := strconv.ParseUint(sel[2:], 16, 32); err == nil && int(n) < device.NKeysExtended {
				keys = append(keys, int(n))
			}
		case strings.HasPrefix(sel, "#"):
			if n, err := strconv.ParseUint(sel[1:], 10, 32); err == nil && int(n) < device.NKeysExtended {
				keys = append(keys, int(n))
			}
		default:
			name := sel
			if len(name) > device.MaxKeyNameLen {
				name = name[:device.MaxKeyNameLen]
			}
			if k := device.FindKeyByName(d.Keymap, name); k >= 0 {
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// splitColon implements the colon-split rule: left is the prefix
// before the first ':' (or the whole word if there's no colon), right
// is everything after it. ok is false only when word is empty or the
// colon is the very first character, leaving an empty left-hand side.
func splitColon(word string) (left, right string, ok bool) {
	idx := strings.IndexByte(word, ':')
	if idx < 0 {
		if word == "" {
			return "", "", false
		}
		return word, "", true
	}
	if idx == 0 {
		return "", "", false
	}
	return word[:idx], word[idx+1:], true
}
