package repository

import (
	"strings"
	"unicode/utf8"
)

// CheckContent trims surrounding whitespace and enforces the author-facing
// bounds. It runs on the raw text, before any filtering.
func CheckContent(content string) (string, error) {
	return bounded(content, MaxContentLength)
}

// NormalizeContent trims surrounding whitespace and enforces the storage
// bounds every driver applies before inserting.
func NormalizeContent(content string) (string, error) {
	return bounded(content, MaxStoredContentLength)
}

func bounded(content string, limit int) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > limit {
		return "", ErrContentTooLong
	}
	return content, nil
}
