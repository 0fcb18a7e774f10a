package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
environment: test
auth:
  secret: local-secret
quote_api:
  base_url: https://quotes.example.com/v1
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Market.Timezone != "America/New_York" {
		t.Fatalf("unexpected timezone %q", c.Market.Timezone)
	}
	if c.Stream.RegularInterval != 5*time.Second {
		t.Fatalf("unexpected regular interval %v", c.Stream.RegularInterval)
	}
	if c.Synthetic.MomentumBias != 0.6 {
		t.Fatalf("unexpected momentum bias %v", c.Synthetic.MomentumBias)
	}
}

func TestValidateRejectsSlowResolveTimeout(t *testing.T) {
	body := minimalYAML + `
stream:
  regular_interval: 1s
  resolve_timeout: 2s
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected error for resolve_timeout >= regular_interval")
	}
}

func TestValidateRequiresAuthSecret(t *testing.T) {
	body := `
environment: test
quote_api:
  base_url: https://quotes.example.com/v1
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected error for missing auth secret")
	}
}

func TestLoadWithEnvSuppliesSecret(t *testing.T) {
	t.Setenv("AUTH_SECRET", "env-secret")
	body := `
environment: test
quote_api:
  base_url: https://quotes.example.com/v1
`
	c, err := LoadWithEnv(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Auth.Secret != "env-secret" {
		t.Fatalf("expected secret from env, got %q", c.Auth.Secret)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("QUOTE_API_KEY", "from-env")
	c, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.QuoteAPI.APIKey != "from-env" {
		t.Fatalf("expected env override, got %q", c.QuoteAPI.APIKey)
	}
}
