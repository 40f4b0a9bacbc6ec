package ocr

import (
	"regexp"
	"strings"
)

var (
	// typographic punctuation produced by handwriting OCR
	punctuationReplacer = strings.NewReplacer(
		"\u2010", "-", "\u2011", "-", "\u2012", "-", "\u2013", "-", "\u2014", "-", "\u2212", "-",
		"\u2018", "'", "\u2019", "'", "\u201a", "'", "\u2032", "'",
		"\u201c", `"`, "\u201d", `"`, "\u201e", `"`, "\u2033", `"`,
	)
	delSpaceRE   = regexp.MustCompile(`(?m)^([ \t]*)del[ \t]+`)
	delLetterRE  = regexp.MustCompile(`(?m)^([ \t]*)del([A-Za-z_])`)
	defNoColonRE = regexp.MustCompile(`(?m)^([ \t]*def[ \t]+\w+[ \t]*\([^\n]*\))[ \t]*$`)
)

// RepairTranscription corrects known handwriting-OCR confusions in source code
// text: bidirectional control marks are removed, typographic dashes and quotes
// become ASCII, a leading "del" misread of "def" is fixed and a missing colon
// after a function header is restored.
func RepairTranscription(text string) string {
	text = stripBidi(text)
	text = punctuationReplacer.Replace(text)
	text = delSpaceRE.ReplaceAllString(text, "${1}def ")
	text = delLetterRE.ReplaceAllString(text, "${1}def ${2}")
	text = defNoColonRE.ReplaceAllString(text, "${1}:")
	return text
}

func stripBidi(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\u200e', r == '\u200f', r == '\u061c':
			return -1
		case r >= '\u202a' && r <= '\u202e':
			return -1
		case r >= '\u2066' && r <= '\u2069':
			return -1
		}
		return r
	}, s)
}
