package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/readyluo/lasercalcpro-sub004/internal/config"
	"github.com/readyluo/lasercalcpro-sub004/internal/server"
)

const banner = `
 _                        ____      _
| |    __ _ ___  ___ _ __/ ___|__ _| | ___
| |   / _' / __|/ _ \ '__| |   / _' | |/ __|
| |__| (_| \__ \  __/ |  | |__| (_| | | (__
|_____\__,_|___/\___|_|   \____\__,_|_|\___|
`

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the admin API server",
		Long:  "Start the HTTP server that exposes the back-office admin API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().Bool("production", false, "Production mode (Secure session cookie)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("server.production", cmd.Flags().Lookup("production"))

	return cmd
}

func runServe() error {
	fmt.Print(banner)
	fmt.Println()

	svc, cfg, err := openServices()
	if err != nil {
		return err
	}
	defer svc.close()
	logger := svc.logger
	logger.Info("store initialized", "driver", svc.store.Dialect())

	if cfg.Auth.JWTSecret == "" {
		if cfg.Server.Production {
			return fmt.Errorf("auth.jwt_secret must be set in production (LASERCALC_AUTH_JWT_SECRET)")
		}
		logger.Warn("using the development JWT secret - set auth.jwt_secret before exposing this server")
	} else if cfg.Auth.JWTSecret == config.DevJWTSecret && cfg.Server.Production {
		return fmt.Errorf("the development JWT secret cannot be used in production")
	}

	if cfg.WildcardCORS() {
		if cfg.Server.Production {
			return fmt.Errorf("server.cors_origins must list explicit origins in production, not \"*\"")
		}
		logger.Warn("cors_origins contains \"*\"; cross-origin requests will not carry the session cookie")
	}

	hasAdmin, err := svc.store.HasAnyAdmin(context.Background())
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	}
	if !hasAdmin {
		logger.Warn("no admin account found - run: lasercalc admin create")
	}

	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.ShutdownTimeout(),
		CORSOrigins:     cfg.Server.CORSOrigins,
		Production:      cfg.Server.Production,
		LoginRateLimit:  cfg.Server.LoginRateLimit,
		MaxBodySize:     server.DefaultConfig().MaxBodySize,
		Version:         versionString(),
	}
	srv := server.New(srvCfg, svc.store, svc.creds, svc.tokens, svc.audit, logger)

	fmt.Printf("→ LaserCalc Pro admin %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Admin API:  http://%s:%d/api/admin\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Metrics:    http://%s:%d/metrics\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()

	return srv.ListenAndServe()
}
