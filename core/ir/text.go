package ir

import "unicode/utf8"

// RuneLen returns the length of s in code points.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// SliceRunes returns string(r[start:end]), or false when the range is invalid.
func SliceRunes(r []rune, start, end int) (string, bool) {
	if start < 0 || end < start || end > len(r) {
		return "", false
	}
	return string(r[start:end]), true
}

// RuneOffset converts a byte offset into s to a code-point offset.
func RuneOffset(s string, byteOffset int) int {
	if byteOffset > len(s) {
		byteOffset = len(s)
	}
	return utf8.RuneCountInString(s[:byteOffset])
}
