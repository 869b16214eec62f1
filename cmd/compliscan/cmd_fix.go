package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"compliscan/internal/domain"
)

var (
	fixScanID   string
	fixIssueIDs []string
	fixJSON     bool

	companyName   string
	companyStreet string
	companyCity   string
	companyEmail  string
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Generate remediation artifacts for specific findings from a prior scan",
	RunE:  runFix,
}

func init() {
	fixCmd.Flags().StringVar(&fixScanID, "scan-id", "", "Scan id to generate fixes for (required)")
	fixCmd.Flags().StringSliceVar(&fixIssueIDs, "issue", nil, "Issue id to fix (repeatable)")
	fixCmd.Flags().BoolVar(&fixJSON, "json", false, "Emit the fixes result as JSON")
	fixCmd.Flags().StringVar(&companyName, "company-name", "", "Company name for imprint/privacy templates")
	fixCmd.Flags().StringVar(&companyStreet, "company-street", "", "Street address for imprint templates")
	fixCmd.Flags().StringVar(&companyCity, "company-city", "", "City for imprint templates")
	fixCmd.Flags().StringVar(&companyEmail, "company-email", "", "Contact email for imprint templates")
	fixCmd.MarkFlagRequired("scan-id")
}

func runFix(cmd *cobra.Command, args []string) error {
	orch, cleanup, err := buildOrchestrator()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var info *domain.CompanyInfo
	if companyName != "" || companyStreet != "" || companyCity != "" || companyEmail != "" {
		info = &domain.CompanyInfo{
			Name:   companyName,
			Street: companyStreet,
			City:   companyCity,
			Email:  companyEmail,
		}
	}

	req := domain.FixesRequest{
		ScanID:      fixScanID,
		IssueIDs:    fixIssueIDs,
		CompanyInfo: info,
		UserID:      userID,
	}

	result, err := orch.GenerateFixes(ctx, req)
	if err != nil {
		return err
	}

	if fixJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	renderFixesResult(result)
	return nil
}
