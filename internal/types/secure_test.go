package types

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

// TestSecretStringRedactsFmt verifies secrets never surface through fmt verbs.
func TestSecretStringRedactsFmt(t *testing.T) {
	secret := SecretString("cdse-client-secret-123")

	for _, rendered := range []string{
		fmt.Sprintf("%s", secret),
		fmt.Sprintf("%v", secret),
		fmt.Sprint(secret),
	} {
		if strings.Contains(rendered, "cdse-client-secret-123") {
			t.Fatalf("secret leaked through fmt: %q", rendered)
		}
		if !strings.Contains(rendered, "REDACTED") {
			t.Errorf("expected redaction placeholder, got %q", rendered)
		}
	}
}

// TestSecretStringRedactsJSON verifies JSON marshaling emits the placeholder.
func TestSecretStringRedactsJSON(t *testing.T) {
	payload := struct {
		Secret SecretString `json:"secret"`
	}{Secret: "token-abc"}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(data), "token-abc") {
		t.Fatalf("secret leaked into JSON: %s", data)
	}
}

// TestSecretStringRedactsSlog verifies the LogValuer hook redacts log attributes.
func TestSecretStringRedactsSlog(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("configured", "client_secret", SecretString("token-xyz"))

	if strings.Contains(buf.String(), "token-xyz") {
		t.Fatalf("secret leaked into log output: %s", buf.String())
	}
}

// TestSecretStringUnmask verifies the raw value is reachable only via Unmask.
func TestSecretStringUnmask(t *testing.T) {
	secret := SecretString("raw-value")
	if secret.Unmask() != "raw-value" {
		t.Errorf("Unmask() = %q, want %q", secret.Unmask(), "raw-value")
	}
	if !secret.IsSet() {
		t.Error("IsSet() should be true for a non-empty secret")
	}
	if SecretString("").IsSet() {
		t.Error("IsSet() should be false for an empty secret")
	}
}
