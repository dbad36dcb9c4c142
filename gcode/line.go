// SPDX-License-Identifier: AGPL-3.0-or-later
package gcode

import (
	"regexp"
	"strconv"
	"strings"
)

var parenComment = regexp.MustCompile(`\(.*?\)`)

// Normalize strips parenthesized comments and trailing ';' comments from a
// raw G-code line, trims the result, and upcases it. Normalization is
// idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	s := parenComment.ReplaceAllString(raw, "")
	if idx := strings.IndexByte(s, ';'); idx >= 0 {
		s = s[:idx]
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

var paramPattern = map[byte]*regexp.Regexp{}

func paramRegexp(letter byte) *regexp.Regexp {
	if re, ok := paramPattern[letter]; ok {
		return re
	}
	re := regexp.MustCompile(string(letter) + `(-?[0-9]+\.?[0-9]*)`)
	paramPattern[letter] = re
	return re
}

// Param extracts the numeric value following letter in a normalized line
// (e.g. Param("X5 Y-2.3", 'Y') == (-2.3, true)). normalized must already be
// the output of Normalize.
func Param(normalized string, letter byte) (float64, bool) {
	m := paramRegexp(letter).FindStringSubmatch(normalized)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// IsMotion reports whether a normalized line begins with G0, G1, G2 or G3.
// This is a plain prefix test, so words such as G28 or G17 also count.
func IsMotion(normalized string) bool {
	return strings.HasPrefix(normalized, "G0") ||
		strings.HasPrefix(normalized, "G1") ||
		strings.HasPrefix(normalized, "G2") ||
		strings.HasPrefix(normalized, "G3")
}

// IsLaserOn reports whether a normalized line turns the spindle/laser on
// (M3 or M4), regardless of word order.
func IsLaserOn(normalized string) bool {
	return strings.Contains(normalized, "M3") || strings.Contains(normalized, "M4")
}

// IsLaserOff reports whether a normalized line turns the spindle/laser off (M5).
func IsLaserOff(normalized string) bool {
	return strings.Contains(normalized, "M5")
}
