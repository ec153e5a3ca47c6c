package types

import "log/slog"

// redacted is the placeholder substituted for secret values wherever they
// could otherwise leak: fmt verbs, JSON output, and slog records.
const redacted = "***REDACTED***"

// SecretString holds a sensitive configuration value (API credentials, client
// secrets). It renders as a redacted placeholder through fmt, JSON, and slog;
// the raw value is only reachable through an explicit Unmask call, which keeps
// accidental logging grep-able down to Unmask call sites.
type SecretString string

// String implements fmt.Stringer with the redacted placeholder.
func (s SecretString) String() string { return redacted }

// MarshalJSON emits the redacted placeholder so config dumps and structured
// logs never carry the raw value.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// LogValue implements slog.LogValuer so secrets passed directly as log
// attributes are redacted as well.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// Unmask returns the raw value. Callers should be limited to the points where
// the secret is genuinely consumed (Authorization headers, token requests).
func (s SecretString) Unmask() string { return string(s) }

// IsSet reports whether a value is present without exposing it.
func (s SecretString) IsSet() bool { return s != "" }
