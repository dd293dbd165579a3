package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jordanharb/moneytrail/internal/aggregate"
	"github.com/jordanharb/moneytrail/internal/common"
)

func aggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate <name>",
		Short: "Fetch and classify the temporal dataset without analyzing it",
		Long: `Resolve a lawmaker and assemble their donations, votes, and
sponsorships, classified against session windows. Useful for inspecting
what the analysis phases would see.

Examples:
  moneytrail aggregate "Ana Rivera" --session 50
  moneytrail aggregate "Ana Rivera" --all --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAggregate,
	}

	cmd.Flags().Int64("session", 0, "Legislative session ID")
	cmd.Flags().Bool("all", false, "Aggregate across every session with a calculated window")
	cmd.Flags().String("output", "summary", "Output format (summary, json)")
	cmd.Flags().Bool("no-reasoner", false, "Use rule-based disambiguation only")

	return cmd
}

func runAggregate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := strings.Join(args, " ")
	sessionID, _ := cmd.Flags().GetInt64("session")
	allSessions, _ := cmd.Flags().GetBool("all")
	outputFormat, _ := cmd.Flags().GetString("output")
	noReasoner, _ := cmd.Flags().GetBool("no-reasoner")

	if allSessions {
		sessionID = aggregate.AllSessions
	} else if sessionID == aggregate.AllSessions {
		return fmt.Errorf("either --session or --all is required")
	}

	a, err := buildApp(ctx, !noReasoner)
	if err != nil {
		return err
	}
	defer a.close()

	resolution, dataset, err := a.pipeline.Aggregate(ctx, name, sessionID)
	if err != nil {
		return common.NewUserError("aggregation failed", err)
	}

	switch outputFormat {
	case "json":
		return exportJSON(dataset)
	case "summary":
		printDatasetSummary(resolution.Person.Name, dataset)
	default:
		return fmt.Errorf("invalid output format: %s", outputFormat)
	}

	return nil
}

func printDatasetSummary(name string, ds *aggregate.Dataset) {
	fmt.Printf("%s: %d session(s), %d donation(s), %d vote(s), %d sponsorship(s)\n",
		name, len(ds.Sessions), len(ds.Donations), len(ds.Votes), len(ds.Sponsorships))

	for _, s := range ds.Sessions {
		relevant, total := 0, 0
		var amount float64
		for _, d := range ds.Donations {
			if d.SessionID != s.ID {
				continue
			}
			total++
			amount += d.Amount
			if d.Relevant {
				relevant++
			}
		}
		fmt.Printf("  session %d (%s): %d action(s), %d donation(s) ($%.2f, %d politically relevant)\n",
			s.ID, s.Name, len(ds.Actions(s.ID)), total, amount, relevant)
	}
}
