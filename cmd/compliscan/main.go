// Package main implements the compliscan CLI — scan, fix, catalog, and
// quota commands wired onto the orchestrator core.
//
// File index:
//   main.go       - entry point, rootCmd, global flags, wiring
//   cmd_scan.go   - scan subcommand
//   cmd_fix.go    - fix subcommand
//   cmd_catalog.go - catalog list/reload/watch subcommands
//   cmd_quota.go  - quota command
//   report.go     - lipgloss-styled terminal report rendering
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"compliscan/internal/audit"
	"compliscan/internal/catalog"
	"compliscan/internal/config"
	"compliscan/internal/fixgen"
	"compliscan/internal/legalupdate"
	"compliscan/internal/llm"
	"compliscan/internal/logging"
	"compliscan/internal/orchestrator"
	"compliscan/internal/quota"
	"compliscan/internal/store"
)

var (
	verbose    bool
	configPath string
	workspace  string
	timeout    time.Duration
	userID     string

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "compliscan",
	Short: "German/EU website compliance scanner (TMG, GDPR, TTDSG, BFSG)",
	Long: `compliscan audits a website against four regulatory pillars:

  imprint       TMG §5 Impressum completeness
  privacy       GDPR privacy-policy coverage of detected third-party services
  cookie        TTDSG §25 consent-before-load enforcement
  accessibility BFSG / WCAG 2.1 AA automated checks

Run "compliscan scan <url>" to audit a page, then "compliscan fix" to
generate remediation artifacts for specific findings.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		logging.Configure(ws, verbose, cfg.Logging.Categories, cfg.Logging.Level, cfg.Logging.JSONFormat)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".compliscan/config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "local", "User identity for quota and audit attribution")

	rootCmd.AddCommand(scanCmd, fixCmd, catalogCmd, quotaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// buildOrchestrator wires every collaborator the way cmd_init_scan.go's
// runInit wires the kernel: open the store, load the catalog, construct
// each component, hand them to Orchestrator.New.
func buildOrchestrator() (*orchestrator.Orchestrator, func(), error) {
	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}

	var legalSrc legalupdate.Source
	if cfg.LegalUpdates.Path != "" {
		legalSrc = legalupdate.NewFileSource(cfg.LegalUpdates.Path, cfg.LegalUpdates.LookbackDays)
	}

	var altText fixgen.AltTextGenerator
	var legalGen fixgen.LegalParagraphGenerator
	if cfg.LLM.APIKey != "" {
		client, err := llm.New(cfg.LLM)
		if err != nil {
			logging.Get(logging.CategoryCLI).Warn("cli: LLM client unavailable, falling back to templates: %v", err)
		} else {
			altText = client
			legalGen = client
		}
	}

	fg := fixgen.New(altText, legalGen, cfg.Quota)
	ledger := quota.New(st, cfg.Quota)
	auditLog := audit.New(st)

	orch := orchestrator.New(cfg, cat, legalSrc, fg, ledger, auditLog, st)

	cleanup := func() {
		orch.Shutdown()
		st.Close()
	}
	return orch, cleanup, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
