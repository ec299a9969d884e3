package http

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Input validation constants
const (
	MaxQuestionLength  = 1000
	MaxAnswerLength    = 10000
	MaxCategoryLength  = 64
	MaxConfigKeyLength = 64
	MaxConfigValLength = 10000
	MaxAgentNameLength = 128
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidID checks if an identifier is safe (alphanumeric + underscore + hyphen)
func ValidID(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	return idPattern.MatchString(s)
}

// ValidConfigKey checks if a config key is safe
func ValidConfigKey(s string) bool {
	if s == "" || len(s) > MaxConfigKeyLength {
		return false
	}
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_]+$`, s)
	return matched
}

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return strings.TrimSpace(s)
}

// ValidateLength checks if string is within bounds
func ValidateLength(s string, min, max int) bool {
	l := utf8.RuneCountInString(s)
	return l >= min && l <= max
}
