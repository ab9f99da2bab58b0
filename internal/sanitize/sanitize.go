// Package sanitize strips presentation markup from note field values so the
// bare text can be sent to generation services or used in file names.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	htmlRe          = regexp.MustCompile(`<[^>]+?>`)
	rubyRe          = regexp.MustCompile(`(\s?)([\p{L}\p{N}_]+)(\[[^\]]+?\])`)
	parentheticalRe = regexp.MustCompile(`\s*\([^)]*\)`)
)

// StripHTML removes HTML tags, leaving only the text content.
func StripHTML(s string) string {
	return htmlRe.ReplaceAllString(s, "")
}

// StripRuby removes Anki ruby annotations of the form word[reading],
// keeping the base word.
func StripRuby(s string) string {
	return rubyRe.ReplaceAllString(s, "$2")
}

// StripParenthetical removes parenthesised asides, including any leading
// whitespace before the opening bracket.
func StripParenthetical(s string) string {
	return parentheticalRe.ReplaceAllString(s, "")
}

// Characters that are unsafe in file names on common filesystems.
// https://www.mtu.edu/umc/services/websites/writing/characters-avoid/
const illegalFilenameChars = "#%&{}\\<>*?/ $!'\":@+`|="

// ToFilename replaces filesystem-unsafe characters with underscores so a
// word can be used as a deterministic media file name.
func ToFilename(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalFilenameChars, r) {
			return '_'
		}
		return r
	}, s)
}
