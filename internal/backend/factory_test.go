package backend

import (
	"context"
	"path/filepath"
	"testing"

	"fintrack/internal/config"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	cfg := config.Default()
	cfg.DataBackend = "memory"
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != MemoryBackend || got.AMQPExchange != cfg.AMQPExchange {
		t.Errorf("FromAppConfig() = %+v", got)
	}

	cfg.DataBackend = "sheets"
	if _, err := FromAppConfig(cfg); err == nil {
		t.Error("expected error for an unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for a nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://x", AMQPExchange: "e"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := res.Store.(*memory.Store); !ok {
			t.Errorf("store = %T", res.Store)
		}
		if res.Publisher != nil {
			t.Error("publisher without AMQP URL")
		}
		if err := res.Cleanup(); err != nil {
			t.Error(err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "fintrack.db")
		res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
		if err != nil {
			t.Fatal(err)
		}
		defer res.Cleanup()
		if _, ok := res.Store.(*storage.Store); !ok {
			t.Errorf("store = %T", res.Store)
		}
		if err := res.Store.Ping(ctx); err != nil {
			t.Error(err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := f.CreateBackend(ctx, Config{Type: "csv"}); err == nil {
			t.Error("expected error")
		}
	})
}
