package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jordanharb/moneytrail/internal/common"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <name>",
		Short: "Show incremental analysis state for a lawmaker and session",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runStatus,
	}

	cmd.Flags().Int64("session", 0, "Legislative session ID (required)")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := strings.Join(args, " ")
	sessionID, _ := cmd.Flags().GetInt64("session")

	a, err := buildApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	resolution, stats, phase, err := a.pipeline.Status(ctx, name, sessionID)
	if err != nil {
		return common.NewUserError("status lookup failed", err)
	}

	fmt.Printf("%s, session %d\n", resolution.Person.Name, sessionID)
	if phase == "" {
		fmt.Println("  never analyzed")
		return nil
	}

	fmt.Printf("  state: %s\n", phase)
	fmt.Printf("  bills covered: %d\n", stats.Analyzed)
	fmt.Printf("  runs: %d, last at %s\n", stats.RunCount, stats.LastRunAt.Format("2006-01-02 15:04"))

	return nil
}
