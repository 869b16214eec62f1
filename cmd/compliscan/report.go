package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"compliscan/internal/domain"
)

var (
	colorCritical = lipgloss.Color("#e53935")
	colorWarning  = lipgloss.Color("#FFC107")
	colorInfo     = lipgloss.Color("#2196F3")
	colorMuted    = lipgloss.Color("#8a8f98")
	colorAccent   = lipgloss.Color("#8BC34A")

	scoreStyle = lipgloss.NewStyle().Bold(true)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)

	severityStyles = map[domain.Severity]lipgloss.Style{
		domain.SeverityCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(colorCritical).Padding(0, 1),
		domain.SeverityWarning:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#101F38")).Background(colorWarning).Padding(0, 1),
		domain.SeverityInfo:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(colorInfo).Padding(0, 1),
	}
)

// renderScanResult prints a scan in the teacher's styled-CLI idiom:
// a score summary, then each issue grouped by pillar with a colored
// severity badge.
func renderScanResult(result domain.ScanResult) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("compliscan report: %s", result.URL)))
	fmt.Printf("%s  %s\n", scoreStyle.Render(fmt.Sprintf("overall score: %d/100", result.OverallScore)),
		mutedStyle.Render(fmt.Sprintf("total risk exposure: €%d", result.TotalRiskEuro)))

	for _, pillar := range []domain.Pillar{domain.PillarImprint, domain.PillarPrivacy, domain.PillarCookie, domain.PillarAccessibility} {
		score, ok := result.PillarScores[pillar]
		if !ok {
			continue
		}
		fmt.Printf("\n%s  %s\n", titleStyle.Render(strings.ToUpper(string(pillar))), mutedStyle.Render(fmt.Sprintf("%d/100", score)))

		any := false
		for _, issue := range result.Issues {
			if issue.Pillar != pillar {
				continue
			}
			any = true
			printIssue(issue)
		}
		if !any {
			fmt.Println(mutedStyle.Render("  no findings"))
		}
	}

	if result.LegalUpdatesApplied {
		fmt.Println()
		fmt.Println(mutedStyle.Render(fmt.Sprintf("%d issue(s) boosted by recent legal updates", result.LegalUpdatesCount)))
	}
}

func printIssue(issue domain.Issue) {
	badge := severityStyles[issue.Severity].Render(strings.ToUpper(string(issue.Severity)))
	fmt.Printf("  %s %s %s\n", badge, issue.Title, mutedStyle.Render(fmt.Sprintf("[%s] €%d", issue.ID, issue.RiskEuro)))
	if issue.Description != "" {
		fmt.Printf("      %s\n", issue.Description)
	}
}

// renderFixesResult prints a generated-fixes batch, one line per fix plus
// any failures.
func renderFixesResult(result domain.FixesResult) {
	for _, fix := range result.Fixes {
		fmt.Printf("%s  issue=%s type=%s source=%s status=%s\n",
			titleStyle.Render(fix.ID), fix.IssueID, fix.Type, fix.Source, fix.Validation.Status)
	}
	for issueID, reason := range result.Failed {
		fmt.Printf("%s issue=%s: %s\n", severityStyles[domain.SeverityWarning].Render("FAILED"), issueID, reason)
	}
	fmt.Println(mutedStyle.Render(fmt.Sprintf("fix quota remaining: %d", result.QuotaRemaining)))
}
