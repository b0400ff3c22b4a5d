package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	lmcp "github.com/readyluo/lasercalcpro-sub004/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes read-only views of
roles, permission checks, admins and the audit log as tools.

In stdio mode, the server communicates over stdin/stdout using JSON-RPC,
suitable for direct integration with desktop MCP clients.

In HTTP mode, the server listens on the specified port for streamable HTTP
connections.`,
		Example: `  lasercalc mcp                              # stdio mode
  lasercalc mcp --transport http --port 3001  # HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport string, port int) error {
	if transport != "stdio" && transport != "http" {
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}

	svc, _, err := openServices()
	if err != nil {
		return err
	}
	defer svc.close()

	srv := lmcp.NewMCPServer(svc.store, svc.audit, versionString(), svc.logger)

	if transport == "stdio" {
		return srv.ServeStdio()
	}
	addr := fmt.Sprintf(":%d", port)
	svc.logger.Info("starting MCP HTTP server", "addr", addr)
	return srv.ServeHTTP(addr)
}
