package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"compliscan/internal/domain"
)

var (
	renderModeFlag string
	jsonOutput     bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "Scan a URL against all four compliance pillars",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&renderModeFlag, "render-mode", "auto", "static, rendered, or auto")
	scanCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the scan result as JSON instead of a styled report")
}

func runScan(cmd *cobra.Command, args []string) error {
	orch, cleanup, err := buildOrchestrator()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nscan cancelled")
		cancel()
	}()

	req := domain.ScanRequest{
		URL:        args[0],
		RenderMode: domain.RenderMode(renderModeFlag),
		UserID:     userID,
	}

	result, err := orch.Scan(ctx, req)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	renderScanResult(result)
	return nil
}
