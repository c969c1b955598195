package logging

import (
	"log/slog"
	"sort"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// Keys that are safe to log verbatim. Public identities (addresses, mints)
// are included; secrets, tokens and DSNs are not.
var plainKeys = map[string]struct{}{
	"service":   {},
	"env":       {},
	"message":   {},
	"severity":  {},
	"timestamp": {},
	"error":     {},
	"component": {},
	"chain_id":  {},
	"height":    {},
	"treasure":  {},
	"finder":    {},
	"authority": {},
	"mint":      {},
	"method":    {},
	"listen":    {},
}

// IsAllowlisted reports whether key may be logged without masking.
func IsAllowlisted(key string) bool {
	_, ok := plainKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// RedactionAllowlist returns the plain keys, sorted.
func RedactionAllowlist() []string {
	keys := make([]string, 0, len(plainKeys))
	for key := range plainKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MaskField masks value unless key is allowlisted. Empty values pass through
// so a missing secret stays visible as missing.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskDSN keeps the driver scheme and host of a connection string but hides
// credentials, e.g. "postgres://[REDACTED]@db:5432/hunt".
func MaskDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return dsn
	}
	return scheme + "://" + RedactedValue + rest[at:]
}
