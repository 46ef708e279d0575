package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "")
	t.Setenv("PAYGATE_LISTEN", "")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Listen != ":5000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Payment.Mint != devnetUSDCMint {
		t.Errorf("Mint = %q", cfg.Payment.Mint)
	}
	if cfg.Payment.PriceBaseUnits != 100 {
		t.Errorf("PriceBaseUnits = %d", cfg.Payment.PriceBaseUnits)
	}
	if cfg.Payment.Decimals != 6 {
		t.Errorf("Decimals = %d", cfg.Payment.Decimals)
	}
	if cfg.confirmTimeout() != 60*time.Second {
		t.Errorf("confirmTimeout = %s", cfg.confirmTimeout())
	}
	if cfg.pollInterval() != 3*time.Second {
		t.Errorf("pollInterval = %s", cfg.pollInterval())
	}
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paygated.yaml")
	body := `
listen: ":8402"
log_level: debug
payment:
  price_base_units: 2500
  message: pay up
settlement:
  confirm_timeout_seconds: 10
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Listen != ":8402" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Payment.PriceBaseUnits != 2500 {
		t.Errorf("PriceBaseUnits = %d", cfg.Payment.PriceBaseUnits)
	}
	if cfg.Payment.Message != "pay up" {
		t.Errorf("Message = %q", cfg.Payment.Message)
	}
	if cfg.confirmTimeout() != 10*time.Second {
		t.Errorf("confirmTimeout = %s", cfg.confirmTimeout())
	}
	// Keys absent from the file keep their defaults.
	if cfg.Payment.Mint != devnetUSDCMint {
		t.Errorf("Mint = %q", cfg.Payment.Mint)
	}
	if cfg.Settlement.PollIntervalSecs != 3 {
		t.Errorf("PollIntervalSecs = %d", cfg.Settlement.PollIntervalSecs)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paygated.yaml")
	if err := os.WriteFile(path, []byte(`rpc_url: "http://file.example"`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SOLANA_RPC_URL", "http://env.example")
	t.Setenv("PAYGATE_LISTEN", "127.0.0.1:9000")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.RPCURL != "http://env.example" {
		t.Errorf("RPCURL = %q", cfg.RPCURL)
	}
	if cfg.Listen != "127.0.0.1:9000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
