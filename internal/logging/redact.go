// Package logging provides redaction of sensitive values in log entries.
//
// The harness logs the environment overlay it hands to the subject command.
// Overlays frequently carry credentials, so every configured logger gets a
// hook that masks values whose names or shapes look secret.
package logging

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// Redacted replaces any masked value.
const Redacted = "***REDACTED***"

//nolint:gochecknoglobals // read-only lookup tables
var (
	sensitiveNames = []string{
		"password",
		"passwd",
		"token",
		"secret",
		"api_key",
		"apikey",
		"private_key",
		"credential",
		"authorization",
	}

	envAssignmentPattern = regexp.MustCompile(`\b([A-Za-z_]*(?:TOKEN|SECRET|PASSWORD|PASSWD|API_KEY|APIKEY)[A-Za-z_]*=)([^\s]+)`)
	urlPasswordPattern   = regexp.MustCompile(`://([^:/\s]+):([^@\s]+)@`)
	bearerPattern        = regexp.MustCompile(`(Bearer|Token)\s+([^\s'"]+)`)
)

// IsSensitiveName reports whether a field or environment variable name suggests secret content.
func IsSensitiveName(name string) bool {
	lower := strings.ToLower(name)
	for _, sensitive := range sensitiveNames {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}

// RedactText masks credentials embedded in free-form text.
func RedactText(text string) string {
	text = envAssignmentPattern.ReplaceAllString(text, "${1}"+Redacted)
	text = urlPasswordPattern.ReplaceAllString(text, "://$1:"+Redacted+"@")
	text = bearerPattern.ReplaceAllString(text, "$1 "+Redacted)
	return text
}

// RedactEnv returns a copy of an environment overlay with sensitive values masked.
func RedactEnv(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		if IsSensitiveName(k) {
			out[k] = Redacted
			continue
		}
		out[k] = v
	}
	return out
}

// RedactionHook masks sensitive data in log entries before they are written.
type RedactionHook struct{}

// NewRedactionHook creates a RedactionHook.
func NewRedactionHook() *RedactionHook {
	return &RedactionHook{}
}

// Levels returns all levels; redaction applies everywhere.
func (h *RedactionHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire redacts the message and every field value of the entry.
func (h *RedactionHook) Fire(entry *logrus.Entry) error {
	entry.Message = RedactText(entry.Message)

	for key, value := range entry.Data {
		entry.Data[key] = redactValue(key, value)
	}

	return nil
}

func redactValue(key string, value interface{}) interface{} {
	if IsSensitiveName(key) {
		return Redacted
	}

	switch v := value.(type) {
	case string:
		return RedactText(v)
	case map[string]string:
		return RedactEnv(v)
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = RedactText(s)
		}
		return out
	default:
		return value
	}
}
