package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jordanharb/moneytrail/internal/common"
	"github.com/jordanharb/moneytrail/internal/pipeline"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <name>",
		Short: "Generate candidate donor-action pairings for one session",
		Long: `Run identity resolution, temporal aggregation, and candidate pairing
generation for one lawmaker and session. This pass is deterministic and
makes no reasoning-service calls; use 'validate' to run the deep pass.

Examples:
  moneytrail analyze "Ana Rivera" --session 50
  moneytrail analyze "Ana Rivera" --session 50 --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().Int64("session", 0, "Legislative session ID (required)")
	cmd.Flags().String("output", "summary", "Output format (summary, json)")
	cmd.Flags().Bool("no-reasoner", false, "Use rule-based disambiguation only")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := strings.Join(args, " ")
	sessionID, _ := cmd.Flags().GetInt64("session")
	outputFormat, _ := cmd.Flags().GetString("output")
	noReasoner, _ := cmd.Flags().GetBool("no-reasoner")

	a, err := buildApp(ctx, !noReasoner)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.pipeline.Analyze(ctx, name, sessionID)
	if err != nil {
		return common.NewUserError("analysis failed", err)
	}

	switch outputFormat {
	case "json":
		return exportJSON(result)
	case "summary":
		printAnalysisSummary(result)
	default:
		return fmt.Errorf("invalid output format: %s", outputFormat)
	}

	return nil
}

func printAnalysisSummary(result *pipeline.RunResult) {
	s := result.Pairing.Summary
	session := result.Dataset.Sessions[0]

	fmt.Printf("%s, %s\n", result.Resolution.Person.Name, session.Name)
	fmt.Printf("  donations: %d  votes: %d  sponsorships: %d\n",
		s.TotalDonations, s.TotalVotes, s.TotalSponsorships)
	fmt.Printf("  pairings: %d high, %d medium, %d low\n",
		s.HighConfidence, s.MediumConfidence, s.LowConfidence)
	fmt.Printf("  bills new since last run: %d of %d\n",
		result.Stats.Remaining, result.Stats.Total)

	for _, p := range result.Pairing.Pairs {
		fmt.Printf("  [%.2f %-6s] %s: %s ($%.2f from %d donor(s))\n",
			p.ConfidenceScore, p.Band(), p.Action.BillNumber,
			p.ConnectionReason, p.TotalAmount, p.DonorCount)
	}
}

func exportJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode as JSON: %w", err)
	}
	return nil
}
