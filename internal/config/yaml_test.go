package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestWriteDefaultAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lasercalc.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Database.Driver != "sqlite" || cfg.Auth.PasswordHash != "bcrypt" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.ShutdownTimeout() != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout())
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("LASERCALC_TEST_SECRET", "from-env")
	path := filepath.Join(t.TempDir(), "lasercalc.yaml")
	content := "auth:\n  jwt_secret: ${LASERCALC_TEST_SECRET}\nserver:\n  port: 9090\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("JWTSecret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Server.Port != 9090 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestFromViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("database.driver", "postgres")
	v.Set("log.level", "debug")

	cfg, err := FromViper(v)
	if err != nil {
		t.Fatalf("FromViper: %v", err)
	}
	if cfg.Database.Driver != "postgres" || cfg.Log.Level != "debug" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Server.LoginRateLimit != 10 {
		t.Errorf("LoginRateLimit = %d, want default 10", cfg.Server.LoginRateLimit)
	}
}

func TestShutdownTimeoutFallback(t *testing.T) {
	f := &File{Server: ServerConfig{ShutdownTimeout: "soon"}}
	if f.ShutdownTimeout() != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v", f.ShutdownTimeout())
	}
}

func TestCORSDefaultsAndWildcard(t *testing.T) {
	f := Default()
	if len(f.Server.CORSOrigins) != 0 || f.WildcardCORS() {
		t.Errorf("default CORS origins = %v, want none", f.Server.CORSOrigins)
	}
	f.Server.CORSOrigins = []string{"https://admin.example", "*"}
	if !f.WildcardCORS() {
		t.Error("WildcardCORS should detect \"*\"")
	}
}
