package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/pageguard/internal/alert"
	"github.com/ppiankov/pageguard/internal/auditlog"
	"github.com/ppiankov/pageguard/internal/config"
	"github.com/ppiankov/pageguard/internal/engine"
	"github.com/ppiankov/pageguard/internal/grant"
	"github.com/ppiankov/pageguard/internal/pin"
	"github.com/ppiankov/pageguard/internal/policy"
	"github.com/ppiankov/pageguard/internal/reputation"
	"github.com/ppiankov/pageguard/internal/rules"
	"github.com/ppiankov/pageguard/internal/storage"
)

// app bundles the assembled components every command works with.
type app struct {
	cfgs    *config.Store
	backend storage.Store
	engine  *engine.Engine
	pin     *pin.Verifier
	closers []func() error
}

// DefaultDir is where pageguard keeps its state unless overridden.
func DefaultDir() string {
	if dir := os.Getenv("PAGEGUARD_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pageguard"
	}
	return filepath.Join(home, ".pageguard")
}

// newApp loads configuration and assembles the engine. persistent selects
// the SQLite backend under the state directory; one-shot commands that only
// evaluate can run on memory.
func newApp(persistent bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	var backend storage.Store
	var closers []func() error
	if persistent {
		dir := DefaultDir()
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
		db, err := storage.OpenSQLite(filepath.Join(dir, "pageguard.db"))
		if err != nil {
			// Storage failure never blocks a decision.
			fmt.Fprintf(os.Stderr, "pageguard: storage unavailable, running in memory: %v\n", err)
			backend = storage.NewMemory()
		} else {
			backend = db
			closers = append(closers, db.Close)
		}
	} else {
		backend = storage.NewMemory()
	}

	set, err := rules.LoadSet(cfg.RuleTables)
	if err != nil {
		return nil, err
	}

	var checker *reputation.Checker
	if cfg.EnableExternalReputationChecks && cfg.OracleURL != "" {
		oracle := &reputation.HTTPOracle{BaseURL: cfg.OracleURL}
		checker = reputation.NewChecker(oracle, reputation.NewCache(cfg.OracleCacheTTL), cfg.OracleTimeout)
	}

	grants := grant.NewStore(backend)
	verifier := pin.NewVerifier(backend)
	machine := policy.NewMachine(grants, verifier)
	audit := auditlog.New(cfg.LogRetentionCount, backend)
	cfgs := config.NewStore(cfg)

	eng := engine.New(cfgs, set, machine, grants, audit, checker)
	eng.SetAlerts(alert.NewDispatcher(cfg.Alerts))

	return &app{
		cfgs:    cfgs,
		backend: backend,
		engine:  eng,
		pin:     verifier,
		closers: closers,
	}, nil
}

func (a *app) close() {
	a.engine.Audit().Flush()
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			fmt.Fprintf(os.Stderr, "pageguard: close: %v\n", err)
		}
	}
}
