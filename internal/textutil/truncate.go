package textutil

import "unicode/utf8"

// TruncateBytes returns the longest prefix of s whose UTF-8 encoding fits in
// max bytes. The cut always lands on a rune boundary, so a 4-byte code point
// is either kept whole or dropped, never split. Input already within the
// limit is returned unchanged.
func TruncateBytes(s string, max int) string {
	if max < 0 {
		max = 0
	}
	if len(s) <= max {
		return s
	}
	end := 0
	for i, r := range s {
		next := i + utf8.RuneLen(r)
		if next > max {
			break
		}
		end = next
	}
	return s[:end]
}
