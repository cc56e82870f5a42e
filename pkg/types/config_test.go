package types

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: "sqlite", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: "sqlite", DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "valid jsonl config",
			config:  Config{Backend: "jsonl", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "negative cache size rejected when cache enabled",
			config:  Config{Backend: "jsonl", Cache: CacheConfig{Enabled: true, Size: -1}},
			wantErr: ErrCacheSizeInvalid,
		},
		{
			name:    "negative cache ttl rejected when cache enabled",
			config:  Config{Backend: "jsonl", Cache: CacheConfig{Enabled: true, TTL: -time.Second}},
			wantErr: ErrCacheTTLInvalid,
		},
		{
			name:    "cache settings ignored when disabled",
			config:  Config{Backend: "jsonl", Cache: CacheConfig{Size: -1}},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	c := Config{Backend: BackendJSONL}.WithDefaults()
	if c.Cache.Size != DefaultCacheSize {
		t.Fatalf("expected cache size %d, got %d", DefaultCacheSize, c.Cache.Size)
	}
	if c.Cache.TTL != DefaultCacheTTL {
		t.Fatalf("expected cache ttl %v, got %v", DefaultCacheTTL, c.Cache.TTL)
	}

	c = Config{Backend: BackendJSONL, Cache: CacheConfig{Size: 3, TTL: time.Second}}.WithDefaults()
	if c.Cache.Size != 3 || c.Cache.TTL != time.Second {
		t.Fatalf("explicit cache settings overwritten: %+v", c.Cache)
	}
}
