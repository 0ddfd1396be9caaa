package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/trakgo/trak/internal/engine"
	"github.com/trakgo/trak/internal/output"
)

var (
	accessAs     string
	accessIssue  string
	accessAction string
)

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Inspect access decisions",
}

var accessCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a user may perform an action on an issue",
	Long: `Evaluate an action against a user's grants and the issue's current
structural state. Exits non-zero on a denial, so the command works in
scripts. Actions: ` + actionList() + `.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return accessCheckRun()
	},
}

func init() {
	accessCheckCmd.Flags().StringVar(&accessAs, "as", "", "User email (omit for anonymous)")
	accessCheckCmd.Flags().StringVar(&accessIssue, "issue", "", "Issue ID or prefix")
	accessCheckCmd.Flags().StringVar(&accessAction, "action", "", "Action to check")
	_ = accessCheckCmd.MarkFlagRequired("issue")
	_ = accessCheckCmd.MarkFlagRequired("action")

	accessCmd.AddCommand(accessCheckCmd)
	rootCmd.AddCommand(accessCmd)
}

func actionList() string {
	s := ""
	for i, a := range engine.Actions {
		if i > 0 {
			s += ", "
		}
		s += string(a)
	}
	return s
}

func accessCheckRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := resolveIssue(ctx, s, accessIssue)
	if err != nil {
		return err
	}

	issueAs = accessAs
	actor, err := resolveActor(ctx, s)
	if err != nil {
		return err
	}

	action := engine.Action(accessAction)
	if !action.Valid() {
		return fmt.Errorf("unknown action: %s (want one of: %s)", accessAction, actionList())
	}

	who := "anonymous"
	if actor != nil {
		who = actor.Email
	}

	ok, err := engine.CanPerform(actor, issue, action, time.Now().UTC())
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s  %s %s on %s\n", output.DecisionColor(ok), who, action, shortID(issue.ID))
	if !ok {
		return fmt.Errorf("denied")
	}
	return nil
}
