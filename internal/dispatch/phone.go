package dispatch

import (
	"regexp"
	"strings"
)

var (
	e164Pattern             = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)
	messagingServicePattern = regexp.MustCompile(`^MG[A-Za-z0-9]{32}$`)
)

// NormalizePhone drops every whitespace rune; nothing else is rewritten.
func NormalizePhone(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// ValidE164 reports whether s is "+" followed by 7-15 digits, first digit 1-9.
func ValidE164(s string) bool { return e164Pattern.MatchString(s) }

// IsMessagingServiceID reports whether s has the shape of a messaging
// service identifier ("MG" + 32 alphanumerics).
func IsMessagingServiceID(s string) bool { return messagingServicePattern.MatchString(s) }
