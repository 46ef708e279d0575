package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warden-labs/paygate/types"
)

// Config is the daemon configuration. Defaults target the devnet demo
// deployment; SOLANA_RPC_URL and PAYGATE_LISTEN override the file.
type Config struct {
	Listen   string `yaml:"listen"`
	RPCURL   string `yaml:"rpc_url"`
	LogLevel string `yaml:"log_level"`
	Metrics  bool   `yaml:"metrics"`

	Payment struct {
		Mint           string `yaml:"mint"`
		PriceBaseUnits uint64 `yaml:"price_base_units"`
		Decimals       int32  `yaml:"decimals"`
		Network        string `yaml:"network"`
		Message        string `yaml:"message"`
	} `yaml:"payment"`

	Settlement struct {
		Commitment          string `yaml:"commitment"`
		ConfirmTimeoutSecs  int    `yaml:"confirm_timeout_seconds"`
		PollIntervalSecs    int    `yaml:"poll_interval_seconds"`
		ProvisionTimeoutSec int    `yaml:"provision_timeout_seconds"`
	} `yaml:"settlement"`
}

// devnetUSDCMint is the circle-issued USDC mint on devnet.
const devnetUSDCMint = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"

func defaultConfig() Config {
	cfg := Config{}
	cfg.Listen = ":5000"
	cfg.RPCURL = "https://api.devnet.solana.com"
	cfg.LogLevel = "info"
	cfg.Metrics = true
	cfg.Payment.Mint = devnetUSDCMint
	cfg.Payment.PriceBaseUnits = 100
	cfg.Payment.Decimals = 6
	cfg.Payment.Network = types.NetworkSolanaDevnet.String()
	cfg.Payment.Message = "Send USDC to this token account to unlock access"
	cfg.Settlement.Commitment = string(types.CommitmentConfirmed)
	cfg.Settlement.ConfirmTimeoutSecs = 60
	cfg.Settlement.PollIntervalSecs = 3
	cfg.Settlement.ProvisionTimeoutSec = 30
	return cfg
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	}

	if v := os.Getenv("SOLANA_RPC_URL"); v != "" {
		cfg.RPCURL = v
	}
	if v := os.Getenv("PAYGATE_LISTEN"); v != "" {
		cfg.Listen = v
	}

	return cfg, nil
}

func (c Config) confirmTimeout() time.Duration {
	return time.Duration(c.Settlement.ConfirmTimeoutSecs) * time.Second
}

func (c Config) pollInterval() time.Duration {
	return time.Duration(c.Settlement.PollIntervalSecs) * time.Second
}

func (c Config) provisionTimeout() time.Duration {
	return time.Duration(c.Settlement.ProvisionTimeoutSec) * time.Second
}
