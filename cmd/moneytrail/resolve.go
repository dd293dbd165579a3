package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jordanharb/moneytrail/internal/common"
)

func resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve a lawmaker name to their campaign finance entities",
		Long: `Look up a lawmaker by name and show the campaign finance entities
attributed to them after disambiguation.

Examples:
  moneytrail resolve "Ana Rivera"
  moneytrail resolve "Rivera" --no-reasoner`,
		Args: cobra.MinimumNArgs(1),
		RunE: runResolve,
	}

	cmd.Flags().Bool("no-reasoner", false, "Use rule-based disambiguation only")

	return cmd
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := strings.Join(args, " ")
	noReasoner, _ := cmd.Flags().GetBool("no-reasoner")

	a, err := buildApp(ctx, !noReasoner)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.pipeline.Resolve(ctx, name)
	if err != nil {
		return common.NewUserError("resolution failed", err)
	}

	p := result.Person
	fmt.Printf("%s (%s, %s), person %d, roles %v\n", p.Name, p.Party, p.Body, p.ID, p.RoleIDs)
	for _, e := range result.Entities {
		fmt.Printf("  entity %d: %s", e.ID, e.CandidateName)
		if e.CommitteeName != "" {
			fmt.Printf(" (%s)", e.CommitteeName)
		}
		fmt.Println()
	}

	return nil
}
