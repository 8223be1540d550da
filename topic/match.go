// Package topic implements the MQTT topic-filter grammar and the
// subscription trie used to find matching subscribers for a publish.
package topic

import "strings"

// ValidTopic reports whether s is a legal publish topic: non-empty, no
// wildcard characters, at most 65535 bytes, no embedded NUL.
func ValidTopic(s string) bool {
	if s == "" || len(s) > 65535 {
		return false
	}
	if strings.ContainsAny(s, "+#") {
		return false
	}
	return strings.IndexByte(s, 0) < 0
}

// ValidFilter reports whether s is a legal subscription filter: `+` is
// permitted only as an entire level, `#` only as the final, entire level.
func ValidFilter(s string) bool {
	if s == "" || len(s) > 65535 {
		return false
	}
	if strings.IndexByte(s, 0) >= 0 {
		return false
	}
	levels := strings.Split(s, "/")
	for i, lvl := range levels {
		switch {
		case lvl == "#":
			if i != len(levels)-1 {
				return false
			}
		case lvl == "+":
			// fine at any level
		case strings.ContainsAny(lvl, "+#"):
			return false
		}
	}
	return true
}

// Matches reports whether topic satisfies filter, per MQTT 3.1.1 section
// 4.7.1's wildcard grammar.
func Matches(filter, topic string) bool {
	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")

	i := 0
	for ; i < len(fl); i++ {
		if fl[i] == "#" {
			return true
		}
		if i >= len(tl) {
			return false
		}
		if fl[i] == "+" {
			continue
		}
		if fl[i] != tl[i] {
			return false
		}
	}
	return i == len(tl)
}
