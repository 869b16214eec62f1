package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"compliscan/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and reload the third-party service catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every known service entry",
	RunE:  runCatalogList,
}

var catalogReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Re-read the catalog file once",
	RunE:  runCatalogReload,
}

var catalogWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the catalog file and hot-reload on change until interrupted",
	RunE:  runCatalogWatch,
}

func init() {
	catalogCmd.AddCommand(catalogListCmd, catalogReloadCmd, catalogWatchCmd)
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	for _, svc := range cat.All() {
		fmt.Printf("%-24s %-14s %s\n", svc.Key, svc.Category, svc.DisplayName)
	}
	return nil
}

func runCatalogReload(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	if err := cat.Reload(); err != nil {
		return err
	}
	fmt.Printf("reloaded %d services from %s\n", len(cat.All()), cfg.Catalog.Path)
	return nil
}

func runCatalogWatch(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	w, err := catalog.NewWatcher(cat)
	if err != nil {
		return fmt.Errorf("start catalog watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Printf("watching %s for changes, press Ctrl+C to stop\n", cfg.Catalog.Path)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	return nil
}
