package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}

	if cfg.ScanTopK != 10 {
		t.Errorf("ScanTopK = %d, want 10", cfg.ScanTopK)
	}

	if cfg.ScanInterval != 30*time.Second {
		t.Errorf("ScanInterval = %v, want 30s", cfg.ScanInterval)
	}

	if cfg.MinProfitBPS != 50 {
		t.Errorf("MinProfitBPS = %d, want 50", cfg.MinProfitBPS)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("SCAN_TOP_K", "5")
	t.Setenv("COOLDOWN_INTERVAL", "45s")
	t.Setenv("MONITORED_TOKENS",
		"0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174, 0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.ScanTopK != 5 {
		t.Errorf("ScanTopK = %d, want 5", cfg.ScanTopK)
	}

	if cfg.CooldownInterval != 45*time.Second {
		t.Errorf("CooldownInterval = %v, want 45s", cfg.CooldownInterval)
	}

	if len(cfg.MonitoredTokens) != 2 {
		t.Fatalf("MonitoredTokens length = %d, want 2", len(cfg.MonitoredTokens))
	}
}

func TestLoadFromEnvInvalidAddress(t *testing.T) {
	t.Setenv("MONITORED_TOKENS", "not-an-address")

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("expected error for invalid address, got nil")
	}

	if !strings.Contains(err.Error(), "invalid address") {
		t.Errorf("error = %v, want invalid address", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid-defaults",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "inverted-delta-window",
			mutate:  func(c *Config) { c.ScanDeltaLowerPct = 30.0 },
			wantErr: "SCAN_DELTA_LOWER_PCT",
		},
		{
			name:    "loan-fraction-too-large",
			mutate:  func(c *Config) { c.LoanFraction = 1.0 },
			wantErr: "LOAN_FRACTION",
		},
		{
			name:    "unknown-gas-oracle-mode",
			mutate:  func(c *Config) { c.GasOracleMode = "chainlink" },
			wantErr: "GAS_ORACLE_MODE",
		},
		{
			name:    "unknown-storage-mode",
			mutate:  func(c *Config) { c.StorageMode = "redis" },
			wantErr: "STORAGE_MODE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v", err)
			}

			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}

			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
