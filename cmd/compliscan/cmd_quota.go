package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"compliscan/internal/domain"
	"compliscan/internal/quota"
	"compliscan/internal/store"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show remaining quota for the current user",
	RunE:  runQuota,
}

func runQuota(cmd *cobra.Command, args []string) error {
	st, err := store.New(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	ledger := quota.New(st, cfg.Quota)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, kind := range []domain.QuotaKind{domain.QuotaScan, domain.QuotaFix, domain.QuotaExport} {
		remaining, err := ledger.Remaining(ctx, userID, kind)
		if err != nil {
			return err
		}
		fmt.Printf("%-8s %d remaining\n", kind, remaining)
	}
	return nil
}
