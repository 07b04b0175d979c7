package main

import (
	"flag"
	"os"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr []string
	}{
		{
			name: "valid config, not backtest",
			cfg: Config{
				Markets:          []string{"^GSPC", "^NDX"},
				QuoteAsset:       "USD",
				FMPAPIKey:        "apikey",
				DatabaseEndpoint: "http://localhost:4001",
				InitialBalance:   10_000,
				Backtest:         false,
			},
			wantErr: nil,
		},
		{
			name: "missing markets, not backtest",
			cfg: Config{
				Markets:          []string{},
				QuoteAsset:       "USD",
				FMPAPIKey:        "apikey",
				DatabaseEndpoint: "http://localhost:4001",
				InitialBalance:   10_000,
				Backtest:         false,
			},
			wantErr: []string{"no markets provided for edge service"},
		},
		{
			name: "missing FMPAPIKey, not backtest",
			cfg: Config{
				Markets:          []string{"^GSPC"},
				QuoteAsset:       "USD",
				FMPAPIKey:        "",
				DatabaseEndpoint: "http://localhost:4001",
				InitialBalance:   10_000,
				Backtest:         false,
			},
			wantErr: []string{"fmp api key cannot be an empty string"},
		},
		{
			name: "non-positive initial balance",
			cfg: Config{
				Markets:          []string{"^GSPC"},
				QuoteAsset:       "USD",
				FMPAPIKey:        "apikey",
				DatabaseEndpoint: "http://localhost:4001",
				InitialBalance:   0,
				Backtest:         false,
			},
			wantErr: []string{"initial balance must be positive"},
		},
		{
			name: "missing markets and FMPAPIKey, not backtest",
			cfg: Config{
				Markets:          []string{},
				QuoteAsset:       "USD",
				FMPAPIKey:        "",
				DatabaseEndpoint: "http://localhost:4001",
				InitialBalance:   10_000,
				Backtest:         false,
			},
			wantErr: []string{
				"no markets provided for edge service",
				"fmp api key cannot be an empty string",
			},
		},
		{
			name: "backtest true, valid filepath",
			cfg: Config{
				Backtest:             true,
				BacktestDataFilepath: "/tmp/data.json",
				InitialBalance:       10_000,
			},
			wantErr: nil,
		},
		{
			name: "backtest true, missing filepath",
			cfg: Config{
				Backtest:             true,
				BacktestDataFilepath: "",
				InitialBalance:       10_000,
			},
			wantErr: []string{"backtest data filepath cannot be an empty string"},
		},
		{
			name: "backtest true, other fields missing",
			cfg: Config{
				Backtest:             true,
				BacktestDataFilepath: "/tmp/data.json",
				InitialBalance:       10_000,
				Markets:              nil,
				FMPAPIKey:            "",
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("expected no error, got: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("expected error(s) %v, got none", tt.wantErr)
					return
				}
				for _, want := range tt.wantErr {
					if !strings.Contains(err.Error(), want) {
						t.Errorf("expected error to contain %q, got %v", want, err)
					}
				}
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	// Save and restore original os.Args and environment
	origArgs := os.Args
	origEnv := os.Environ()
	defer func() {
		os.Args = origArgs
		for _, kv := range origEnv {
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) == 2 {
				os.Setenv(parts[0], parts[1])
			}
		}
	}()

	tests := []struct {
		name        string
		env         map[string]string
		args        []string
		expectErr   bool
		expectInErr []string
		expectCfg   Config
	}{
		{
			name: "all from env, not backtest",
			env: map[string]string{
				"markets":          "^GSPC,^NDX",
				"quoteasset":       "USD",
				"fmpapikey":        "apikey",
				"databaseendpoint": "http://localhost:4001",
				"initialbalance":   "10000",
				"backtest":         "false",
			},
			args:      []string{"cmd"},
			expectErr: false,
			expectCfg: Config{
				Markets:        []string{"^GSPC", "^NDX"},
				FMPAPIKey:      "apikey",
				InitialBalance: 10_000,
				Backtest:       false,
			},
		},
		{
			name: "all from flags, not backtest",
			env:  map[string]string{},
			args: []string{"cmd", "-markets=^GSPC,^NDX", "-quoteasset=USD", "-fmpapikey=apikey",
				"-databaseendpoint=http://localhost:4001", "-initialbalance=10000", "-backtest=false"},
			expectErr: false,
			expectCfg: Config{
				Markets:        []string{"^GSPC", "^NDX"},
				FMPAPIKey:      "apikey",
				InitialBalance: 10_000,
				Backtest:       false,
			},
		},
		{
			name:        "missing markets and fmpapikey",
			env:         map[string]string{"initialbalance": "10000"},
			args:        []string{"cmd"},
			expectErr:   true,
			expectInErr: []string{"no markets provided for edge service", "fmp api key cannot be an empty string"},
		},
		{
			name: "backtest true, missing filepath",
			env: map[string]string{
				"backtest":       "true",
				"initialbalance": "10000",
			},
			args:        []string{"cmd"},
			expectErr:   true,
			expectInErr: []string{"backtest data filepath cannot be an empty string"},
		},
		{
			name: "backtest true, filepath from flag",
			env: map[string]string{
				"backtest":       "true",
				"initialbalance": "10000",
			},
			args:      []string{"cmd", "-backtestdatafilepath=/tmp/data.json"},
			expectErr: false,
			expectCfg: Config{
				Backtest:             true,
				BacktestDataFilepath: "/tmp/data.json",
				InitialBalance:       10_000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset flags for each test
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

			// Set environment variables
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			// Set command-line arguments
			os.Args = tt.args

			var cfg Config
			err := loadConfig(&cfg, "") // don't load .env file

			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				for _, want := range tt.expectInErr {
					if !strings.Contains(err.Error(), want) {
						t.Errorf("expected error to contain %q, got %v", want, err)
					}
				}
			} else {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				// Only check fields that are set in expectCfg
				if len(tt.expectCfg.Markets) != len(cfg.Markets) {
					t.Errorf("Markets: got %v, want %v", cfg.Markets, tt.expectCfg.Markets)
				}
				if tt.expectCfg.FMPAPIKey != "" && cfg.FMPAPIKey != tt.expectCfg.FMPAPIKey {
					t.Errorf("FMPAPIKey: got %v, want %v", cfg.FMPAPIKey, tt.expectCfg.FMPAPIKey)
				}
				if cfg.InitialBalance != tt.expectCfg.InitialBalance {
					t.Errorf("InitialBalance: got %v, want %v", cfg.InitialBalance, tt.expectCfg.InitialBalance)
				}
				if cfg.Backtest != tt.expectCfg.Backtest {
					t.Errorf("Backtest: got %v, want %v", cfg.Backtest, tt.expectCfg.Backtest)
				}
				if tt.expectCfg.BacktestDataFilepath != "" && cfg.BacktestDataFilepath != tt.expectCfg.BacktestDataFilepath {
					t.Errorf("BacktestDataFilepath: got %v, want %v", cfg.BacktestDataFilepath, tt.expectCfg.BacktestDataFilepath)
				}
			}

			// Clean up env
			for k := range tt.env {
				os.Unsetenv(k)
			}
		})
	}
}
