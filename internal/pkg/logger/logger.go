package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// ParseLevel maps a config value such as "debug" or "WARN" to a Level.
// Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	for l, name := range levelNames {
		if strings.EqualFold(s, name) {
			return l
		}
	}
	if strings.EqualFold(s, "warning") {
		return WARN
	}
	return INFO
}

// Logger provides structured JSON logging with optional PII redaction.
type Logger struct {
	level     Level
	mu        sync.Mutex
	redactPII bool
	out       io.Writer
}

var defaultLogger = &Logger{level: INFO, redactPII: true, out: os.Stderr}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(l Level) { defaultLogger.level = l }

// SetRedactPII enables or disables PII redaction for the default logger.
func SetRedactPII(r bool) { defaultLogger.redactPII = r }

// SetOutput redirects the default logger. Tests use it to capture entries.
func SetOutput(w io.Writer) {
	defaultLogger.mu.Lock()
	defaultLogger.out = w
	defaultLogger.mu.Unlock()
}

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { defaultLogger.log(DEBUG, msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { defaultLogger.log(INFO, msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { defaultLogger.log(WARN, msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { defaultLogger.log(ERROR, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	if level < l.level {
		return
	}

	entry := map[string]interface{}{
		"time":  time.Now().UTC().Format(time.RFC3339),
		"level": levelNames[level],
		"msg":   msg,
	}

	for i := 0; i < len(fields)-1; i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		val := fmt.Sprintf("%v", fields[i+1])
		if l.redactPII {
			val = redactPIIValue(key, val)
		}
		entry[key] = val
	}

	data, _ := json.Marshal(entry)
	l.mu.Lock()
	fmt.Fprintln(l.out, string(data))
	l.mu.Unlock()
}

// Phone numbers and visitor IPs are the PII this service handles. Contact
// numbers are redacted by key; emails are also caught inside free text.
func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	switch {
	case strings.Contains(key, "phone") || strings.Contains(key, "whatsapp"):
		return RedactPhone(val)
	case strings.Contains(key, "email"):
		return RedactEmail(val)
	case key == "ip" || strings.HasSuffix(key, "_ip") || strings.HasPrefix(key, "ip_"):
		return RedactIP(val)
	}
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}
