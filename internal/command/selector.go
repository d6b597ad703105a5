package command

import (
	"strconv"
	"strings"
)

// parseNotifyToken recognizes an @<decimal> word and
// returns the channel number and true if word matched and the number
// is in [0, outfifoMax). An out-of-range or malformed @N is reported
// as "not a selector" so the caller leaves the current channel alone.
func parseNotifyToken(word string, outfifoMax int) (int, bool) {
	if !strings.HasPrefix(word, "@") {
		return 0, false
	}
	n, err := strconv.Atoi(word[1:])
	if err != nil {
		return 0, false
	}
	if n < 0 || n >= outfifoMax {
		return 0, false
	}
	return n, true
}
