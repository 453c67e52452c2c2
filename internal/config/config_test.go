package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"xmllibrary/internal/adapters/persistence/repositories"
	"xmllibrary/internal/adapters/persistence/xmlstore"
	"xmllibrary/internal/core/domain"
	"xmllibrary/internal/pkg/password"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_MODE", "dev")
	t.Setenv("DATA_DIR", "/srv/library")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Library.LoanDays != 14 || cfg.Library.OverdueSweepCron != "5 0 * * *" {
		t.Fatalf("library defaults: %+v", cfg.Library)
	}
	if cfg.Data.SchemasDir != filepath.Join("/srv/library", "Schemas") || cfg.Data.CacheSliding != 10*time.Minute || cfg.Data.CacheAbsolute != time.Hour {
		t.Fatalf("data defaults: %+v", cfg.Data)
	}
	if cfg.BcryptCost != password.DefaultCost {
		t.Fatalf("bcrypt cost = %d", cfg.BcryptCost)
	}
	if cfg.GetAllowedOrigins() != "*" {
		t.Fatalf("dev origins = %q", cfg.GetAllowedOrigins())
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string][2]string{
		"mode":      {"APP_MODE", "staging"},
		"loan days": {"LOAN_DAYS", "0"},
		"low cost":  {"BCRYPT_COST", "3"},
		"high cost": {"BCRYPT_COST", "32"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("%s=%s accepted", kv[0], kv[1])
			}
		})
	}
}

func TestOpenStorage(t *testing.T) {
	data := filepath.Join("..", "..", "Data")
	cfg := &Config{Data: DataConfig{
		Dir:           t.TempDir(),
		SchemasDir:    filepath.Join(data, "Schemas"),
		DTDsDir:       filepath.Join(data, "DTDs"),
		TransformsDir: filepath.Join(data, "Transforms"),
		CacheSliding:  time.Minute,
		CacheAbsolute: time.Hour,
	}}

	storage, err := OpenStorage(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer storage.Close()
	if err := storage.HealthCheck(); err != nil {
		t.Fatalf("health: %v", err)
	}

	cfg.Data.TransformsDir = filepath.Join(data, "Missing")
	if _, err := OpenStorage(cfg); err == nil {
		t.Fatal("missing transforms folder accepted")
	}
}

func TestSeederRunsOnce(t *testing.T) {
	ctx := context.Background()
	t.Cleanup(func() { _ = password.SetCost(password.DefaultCost) })
	if err := password.SetCost(4); err != nil {
		t.Fatalf("cost: %v", err)
	}
	store, err := xmlstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	users := repositories.NewUserRepository(store)
	seeder := NewSeeder(users, store)

	accounts := []SeedAccount{{Username: "admin", Password: "admin123", Role: domain.RoleAdmin}}
	if err := seeder.Run(ctx, accounts); err != nil {
		t.Fatalf("seed: %v", err)
	}
	accounts[0].Password = "changed-password"
	if err := seeder.Run(ctx, append(accounts, SeedAccount{Username: "other", Password: "x", Role: domain.RoleLibrarian})); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	all, err := users.Load(ctx)
	if err != nil || all.Len() != 1 {
		t.Fatalf("users after two runs: %+v %v", all, err)
	}
	u := all.Items[0]
	if u.Role != domain.RoleAdmin || !password.Verify("admin123", u.PasswordHash) {
		t.Fatalf("seeded user: %+v", u)
	}
}
