// Package censor replaces denylisted words in user-supplied text.
package censor

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// replacements maps a forbidden word (lower case) to its substitute.
// None of the substitutes contain a forbidden word, which keeps Filter
// idempotent.
var replacements = map[string]string{
	"gay":     "coconut milk",
	"fgt":     "lieutenant",
	"nigger":  "fine sir",
	"loli":    "fine lady",
	"fuck":    "duck",
	"fucking": "fun time",
	"dildo":   "poporing",
	"faggot":  "lamborghini",
	"cunt":    "ant hill",
	"fag":     "cigarette",
}

var pattern = compile(replacements)

// compile builds one alternation over every forbidden word. Longer words
// come first so "fucking" wins over "fuck" at the same position.
func compile(words map[string]string) *regexp.Regexp {
	keys := make([]string, 0, len(words))
	for w := range words {
		keys = append(keys, w)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for i, k := range keys {
		keys[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(keys, "|") + `)`)
}

// isWordRune reports a Unicode word character, so an accented letter next
// to a forbidden word makes it part of a longer word.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// standalone reports whether text[start:end] is not flanked by word runes.
func standalone(text string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

// Filter returns text with every denylisted whole word replaced,
// case-insensitively. Words embedded in longer words are left alone and
// substitutes are never filtered again.
func Filter(text string) string {
	if text == "" {
		return text
	}

	// A rejected candidate is all word runes, so no standalone match can
	// start inside it.
	matches := pattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		if !standalone(text, m[0], m[1]) {
			continue
		}
		sub, ok := replacements[strings.ToLower(text[m[0]:m[1]])]
		if !ok {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(sub)
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}
