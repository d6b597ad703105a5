package device

// KeymapEntry names one scancode in the device's extended key table.
// Unnamed entries (Name == "") never match the key-name selector.
type KeymapEntry struct {
	Name string
}

// MaxKeyNameLen is the cap on a key-selector name's length.
const MaxKeyNameLen = 10

// FindKeyByName returns the scancode index of the first keymap entry
// whose name matches, or -1 if none does.
func FindKeyByName(keymap [NKeysExtended]KeymapEntry, name string) int {
	for i := range keymap {
		if keymap[i].Name != "" && keymap[i].Name == name {
			return i
		}
	}
	return -1
}
