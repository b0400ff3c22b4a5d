package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/readyluo/lasercalcpro-sub004/internal/audit"
	"github.com/readyluo/lasercalcpro-sub004/internal/config"
	"github.com/readyluo/lasercalcpro-sub004/internal/logging"
	"github.com/readyluo/lasercalcpro-sub004/internal/service"
	"github.com/readyluo/lasercalcpro-sub004/internal/store"
)

// cliIP is recorded as the client address of audit entries written by
// shell commands.
const cliIP = "cli"

// loadConfig returns the effective configuration: defaults, then the config
// file, then LASERCALC_* environment variables and flags.
func loadConfig() (*config.File, error) {
	return config.FromViper(viper.GetViper())
}

// openStore opens the configured store, creating the data directory for
// SQLite when needed.
func openStore(cfg *config.File) (*store.Store, error) {
	db := cfg.Database
	if (db.Driver == "" || db.Driver == store.DialectSQLite) && db.DSN == "" && db.DataDir != "" {
		if err := os.MkdirAll(db.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	st, err := store.New(store.Config{Driver: db.Driver, DSN: db.DSN, DataDir: db.DataDir})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// newLogger builds the process logger from cfg, writing to console.
func newLogger(cfg *config.File, console io.Writer) (*slog.Logger, io.Closer, error) {
	return logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}, console)
}

// services bundles what most commands need.
type services struct {
	store  *store.Store
	creds  *service.CredentialService
	tokens *service.TokenService
	audit  *audit.Recorder
	logger *slog.Logger
	close  func()
}

// openServices loads config, opens the store and builds the services on
// top of it. Callers must call close.
func openServices() (*services, *config.File, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger, logCloser, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return nil, nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		logCloser.Close()
		return nil, nil, err
	}

	hasher, err := service.NewPasswordHasher(cfg.Auth.PasswordHash)
	if err != nil {
		st.Close()
		logCloser.Close()
		return nil, nil, err
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = config.DevJWTSecret
	}

	return &services{
		store:  st,
		creds:  service.NewCredentialService(st, hasher, logger),
		tokens: service.NewTokenService(secret),
		audit:  audit.NewRecorder(st, logger),
		logger: logger,
		close: func() {
			st.Close()
			logCloser.Close()
		},
	}, cfg, nil
}

// readPassword prompts for a password on the terminal, asking twice when
// confirm is set.
func readPassword(prompt string, confirm bool) (string, error) {
	fmt.Print(prompt)
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	if confirm {
		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()
		if string(pwBytes) != string(confirmBytes) {
			return "", fmt.Errorf("passwords do not match")
		}
	}
	return string(pwBytes), nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
