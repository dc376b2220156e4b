package utils

import "unicode/utf8"

// Truncate shortens s to at most max runes, appending an ellipsis when
// anything was cut. Used to keep log lines and alert mails bounded when
// a post carries a very long message.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
