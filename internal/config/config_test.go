package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:         "8082",
		SQLiteDBPath: "./test.db",
		DNAPath:      "./dna.json",
		LogLevel:     "info",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "non-numeric port",
			mutate:  func(c *Config) { c.Port = "abc" },
			wantErr: true,
		},
		{
			name:    "port out of range low",
			mutate:  func(c *Config) { c.Port = "0" },
			wantErr: true,
		},
		{
			name:    "port out of range high",
			mutate:  func(c *Config) { c.Port = "70000" },
			wantErr: true,
		},
		{
			name:    "empty db path",
			mutate:  func(c *Config) { c.SQLiteDBPath = "  " },
			wantErr: true,
		},
		{
			name:    "empty dna path",
			mutate:  func(c *Config) { c.DNAPath = "" },
			wantErr: true,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: true,
		},
		{
			name:    "log level case insensitive",
			mutate:  func(c *Config) { c.LogLevel = "DEBUG" },
			wantErr: false,
		},
		{
			name:    "zero read timeout",
			mutate:  func(c *Config) { c.ReadTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "negative idle timeout",
			mutate:  func(c *Config) { c.IdleTimeout = -time.Second },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8082" {
		t.Errorf("Port = %s, want 8082", cfg.Port)
	}
	if cfg.SQLiteDBPath == "" {
		t.Error("SQLiteDBPath should have a default")
	}
	if cfg.DNAPath == "" {
		t.Error("DNAPath should have a default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HTTP_READ_TIMEOUT", "5s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.Port)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.ReadTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
}

func TestGetEnvDurationFallback(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	cfg := Load()
	if cfg.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want fallback 10s", cfg.ReadTimeout)
	}
}
