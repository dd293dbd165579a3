package main

import (
	"fmt"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jordanharb/moneytrail/internal/common"
	"github.com/jordanharb/moneytrail/internal/model"
	"github.com/jordanharb/moneytrail/internal/pipeline"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <name>",
		Short: "Run the full pipeline including deep validation",
		Long: `Generate candidate pairings and send the strongest ones through deep
validation against the full bill text. Bills validated by a previous run
are skipped; only new legislative activity costs reasoning-service calls.

Examples:
  moneytrail validate "Ana Rivera" --session 50
  moneytrail validate "Ana Rivera" --session 50 --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runValidate,
	}

	cmd.Flags().Int64("session", 0, "Legislative session ID (required)")
	cmd.Flags().String("output", "summary", "Output format (summary, json)")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := strings.Join(args, " ")
	sessionID, _ := cmd.Flags().GetInt64("session")
	outputFormat, _ := cmd.Flags().GetString("output")

	a, err := buildApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	var bar *progressbar.ProgressBar
	a.engine.OnProgress(func(completed, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Validating pairings"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish())
		}
		_ = bar.Set(completed)
	})

	result, err := a.pipeline.Validate(ctx, name, sessionID)
	if err != nil {
		return common.NewUserError("validation failed", err)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	switch outputFormat {
	case "json":
		return exportJSON(result.Report)
	case "summary":
		printValidationReport(result)
	default:
		return fmt.Errorf("invalid output format: %s", outputFormat)
	}

	return nil
}

func printValidationReport(result *pipeline.RunResult) {
	report := result.Report

	fmt.Println(report.SessionSummary)

	if len(report.Confirmed) > 0 {
		fmt.Printf("\nConfirmed connections (%d):\n", len(report.Confirmed))
		for _, c := range report.Confirmed {
			fmt.Printf("  [%s] %s: %s\n", severityLabel(c.Severity),
				c.Pair.Action.BillNumber, c.Explanation)
			for _, provision := range c.KeyProvisions {
				fmt.Printf("      - %s\n", provision)
			}
		}
	}

	if len(report.Rejected) > 0 {
		fmt.Printf("\nRejected (%d):\n", len(report.Rejected))
		for _, r := range report.Rejected {
			fmt.Printf("  %s: %s\n", r.BillNumber, r.ReasonRejected)
		}
	}

	if len(report.KeyFindings) > 0 {
		fmt.Println("\nKey findings:")
		for _, finding := range report.KeyFindings {
			fmt.Printf("  - %s\n", finding)
		}
	}
}

func severityLabel(s model.Severity) string {
	return strings.ToUpper(string(s))
}
