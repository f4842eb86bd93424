package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	pgmcp "github.com/ppiankov/pageguard/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP tool server for assistant integration",
	Long:  "Runs pageguard as an MCP (Model Context Protocol) server over stdio.\nExposes tools: check_url, check_field, grant, audit.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\npageguard: shutting down MCP server")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "pageguard MCP server running on stdio")
	return pgmcp.New(a.engine).Run(ctx)
}
