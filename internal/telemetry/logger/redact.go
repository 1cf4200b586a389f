package logger

import (
	"log/slog"
	"regexp"
	"strings"
)

const redactedValue = "***REDACTED***"

// Values with these prefixes are secret references.
var secretPrefixes = []string{
	"dmpw_", // device password reference
	"dmsk_", // cluster shared key
}

var sensitiveKeys = []string{"password", "secret", "credential", "private_key", "passphrase"}

// userinfoPattern matches the password part of "scheme://user:password@".
var userinfoPattern = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://[^:/@\s]*):[^@/\s]+@`)

func redact(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	v := a.Value.String()
	if v != "" && IsSensitiveKey(a.Key) {
		return slog.String(a.Key, redactedValue)
	}
	if r := RedactString(v); r != v {
		return slog.String(a.Key, r)
	}
	return a
}

// RedactString masks secret references and passwords embedded in URLs.
func RedactString(s string) string {
	for _, prefix := range secretPrefixes {
		if strings.HasPrefix(s, prefix) {
			return maskSecret(s, prefix)
		}
	}
	if strings.Contains(s, "://") {
		return userinfoPattern.ReplaceAllString(s, "$1:****@")
	}
	return s
}

// maskSecret keeps the prefix and three characters at each end.
func maskSecret(value, prefix string) string {
	body := value[len(prefix):]
	if len(body) <= 6 {
		return prefix + "***"
	}
	return prefix + body[:3] + "..." + body[len(body)-3:]
}

// IsSensitiveKey reports whether an attribute key names a secret.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
