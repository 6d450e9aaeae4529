package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// normalizeEmail lower-cases and validates a bare address.
func normalizeEmail(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || utf8.RuneCountInString(s) > 320 {
		return "", false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", false
	}
	return s, true
}

func tooLong(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}
