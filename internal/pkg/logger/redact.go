package logger

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactPhone keeps the country prefix and the last three digits.
// "6281234567890" → "628*******890"
func RedactPhone(phone string) string {
	if len(phone) <= 6 {
		return strings.Repeat("*", len(phone))
	}
	return phone[:3] + strings.Repeat("*", len(phone)-6) + phone[len(phone)-3:]
}

// RedactIP drops the host part: the last IPv4 octet or everything after the
// third IPv6 group.
func RedactIP(ip string) string {
	if i := strings.LastIndex(ip, "."); i > 0 && !strings.Contains(ip, ":") {
		return ip[:i] + ".x"
	}
	if parts := strings.Split(ip, ":"); len(parts) > 3 {
		return strings.Join(parts[:3], ":") + ":x"
	}
	return ip
}
