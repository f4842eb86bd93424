package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pageguard/internal/alert"
	"github.com/ppiankov/pageguard/internal/bridge"
	"github.com/ppiankov/pageguard/internal/config"
	"github.com/ppiankov/pageguard/internal/rules"
)

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 8399, "Loopback port for the extension bridge")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local bridge the browser extension talks to",
	Long:  "Starts the loopback HTTP bridge, the grant expiry sweeper, and a config\nfile watcher with hot reload.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
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
		fmt.Fprintln(os.Stderr, "\npageguard: shutting down")
		cancel()
	}()

	// Hot reload: config changes re-enter through the store, and rule-table
	// path changes swap the engine's tables.
	if configPath != "" {
		watcher, err := config.NewWatcher(a.cfgs, configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pageguard: hot-reload disabled: %v\n", err)
		} else {
			go watcher.Run(ctx)
		}
		unsubscribe := a.cfgs.Subscribe(func(cfg *config.Config) {
			set, err := rules.LoadSet(cfg.RuleTables)
			if err != nil {
				fmt.Fprintf(os.Stderr, "pageguard: rule reload failed: %v\n", err)
				return
			}
			a.engine.SetRules(set)
			a.engine.SetAlerts(alert.NewDispatcher(cfg.Alerts))
		})
		defer unsubscribe()
	}

	go a.engine.Grants().RunSweeper(ctx, time.Minute)

	srv := bridge.NewServer(bridge.Config{Port: servePort}, a.engine)
	fmt.Fprintf(os.Stderr, "pageguard: bridge listening on %s\n", srv.Addr())
	return srv.Start(ctx)
}
