package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trakgo/trak/internal/models"
	"github.com/trakgo/trak/internal/output"
	"github.com/trakgo/trak/internal/store"
)

var (
	transitionRole  string
	transitionGroup string
)

var transitionCmd = &cobra.Command{
	Use:   "transition",
	Short: "Manage workflow transitions",
	Long: `Transitions are directed edges between two states of the same
template, each granted to a system role or a group.`,
}

var transitionAddCmd = &cobra.Command{
	Use:   "add <from-state> <to-state>",
	Short: "Add a transition between two states",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return transitionAddRun(args[0], args[1])
	},
}

var transitionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List a template's transitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return transitionListRun()
	},
}

var transitionRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a transition by ID (or ID prefix)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return transitionRemoveRun(args[0])
	},
}

func init() {
	transitionCmd.PersistentFlags().StringVarP(&stateTemplate, "template", "t", "", "Template name")
	transitionCmd.PersistentFlags().StringVarP(&templateProject, "project", "p", "", "Project name")

	transitionAddCmd.Flags().StringVar(&transitionRole, "role", "", "System role allowed to take the edge")
	transitionAddCmd.Flags().StringVar(&transitionGroup, "group", "", "Group allowed to take the edge")

	transitionCmd.AddCommand(transitionAddCmd)
	transitionCmd.AddCommand(transitionListCmd)
	transitionCmd.AddCommand(transitionRemoveCmd)
	rootCmd.AddCommand(transitionCmd)
}

func transitionAddRun(fromName, toName string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	tpl, err := requireTemplate(ctx, s)
	if err != nil {
		return err
	}
	from, err := resolveState(ctx, s, tpl, fromName)
	if err != nil {
		return err
	}
	to, err := resolveState(ctx, s, tpl, toName)
	if err != nil {
		return err
	}

	if (transitionRole == "") == (transitionGroup == "") {
		return fmt.Errorf("exactly one of --role or --group is required")
	}

	row := &store.TransitionRow{FromStateID: from.ID, ToStateID: to.ID}
	granteeName := ""
	if transitionRole != "" {
		role := models.SystemRole(transitionRole)
		if !role.Valid() {
			return fmt.Errorf("unknown role: %s (want anyone, author, or responsible)", transitionRole)
		}
		row.Role = &role
		granteeName = "role " + transitionRole
	} else {
		g, err := resolveGroup(ctx, s, tpl.ProjectID, transitionGroup)
		if err != nil {
			return err
		}
		row.GroupID = &g.ID
		granteeName = "group " + g.Name
	}

	if dryRun {
		ui.DryRunMsg("Would add transition: %s -> %s (%s)", from.Name, to.Name, granteeName)
		return nil
	}

	if err := s.CreateTransition(ctx, row); err != nil {
		return fmt.Errorf("add transition: %w", err)
	}

	ui.Success("Added transition: %s -> %s (%s)", output.Cyan(from.Name), output.Cyan(to.Name), granteeName)
	return validateAndWarn(ctx, s, tpl.ID)
}

func transitionListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	tpl, err := requireTemplate(ctx, s)
	if err != nil {
		return err
	}

	rows, err := s.ListTransitions(ctx, tpl.ID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		ui.Info("No transitions in %s.", tpl.Name)
		return nil
	}

	states, err := s.ListStates(ctx, tpl.ID)
	if err != nil {
		return err
	}
	byID := make(map[string]*models.State, len(states))
	for _, st := range states {
		byID[st.ID] = st
	}

	table := ui.Table([]string{"ID", "From", "To", "Grantee"})
	for _, row := range rows {
		from, to := row.FromStateID, row.ToStateID
		if st := byID[from]; st != nil {
			from = st.Name
		}
		if st := byID[to]; st != nil {
			to = st.Name
		}
		grantee := ""
		switch {
		case row.Role != nil:
			grantee = "role:" + string(*row.Role)
		case row.GroupID != nil:
			g, err := s.GetGroup(ctx, *row.GroupID)
			if err == nil {
				grantee = "group:" + g.Name
			} else {
				grantee = "group:" + *row.GroupID
			}
		}
		table.Append([]string{shortID(row.ID), from, to, grantee})
	}
	table.Render()
	return nil
}

func transitionRemoveRun(ref string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	tpl, err := requireTemplate(ctx, s)
	if err != nil {
		return err
	}

	rows, err := s.ListTransitions(ctx, tpl.ID)
	if err != nil {
		return err
	}
	var match *store.TransitionRow
	for _, row := range rows {
		if len(ref) > 0 && len(row.ID) >= len(ref) && row.ID[:len(ref)] == ref {
			if match != nil {
				return fmt.Errorf("ambiguous transition ref: %s", ref)
			}
			match = row
		}
	}
	if match == nil {
		return fmt.Errorf("transition not found: %s", ref)
	}

	if dryRun {
		ui.DryRunMsg("Would remove transition %s", shortID(match.ID))
		return nil
	}

	if err := s.DeleteTransition(ctx, match.ID); err != nil {
		return fmt.Errorf("remove transition: %w", err)
	}

	ui.Success("Removed transition %s", shortID(match.ID))
	return nil
}

// shortID truncates a ULID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
