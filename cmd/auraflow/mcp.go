package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/aretw0/auraflow/internal/cli"
	"github.com/aretw0/auraflow/internal/logging"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts auraflow as an MCP Server.
This allows AI agents to hand coding tasks to auraflow as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		debug, _ := cmd.Flags().GetBool("debug")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		port := cfg.Server.MCPPort
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}

		app, err := cli.Build(cmd.Context(), cfg, cli.BuildOptions{Debug: debug, Logger: logging.NewJSON(level)})
		if err != nil {
			return err
		}
		defer app.Close()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		return cli.ServeMCP(sigCtx, app, transport, port)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
