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
	stateTemplate    string
	stateType        string
	stateResponsible string
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Manage workflow states",
}

var stateAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a state to a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return stateAddRun(args[0])
	},
}

var stateListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List a template's states",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stateListRun()
	},
}

var stateRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a state",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return stateRemoveRun(args[0])
	},
}

var stateResponsibleCmd = &cobra.Command{
	Use:   "responsible <state> <group>",
	Short: "Allow a group's members to be assigned in a state",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return stateResponsibleRun(args[0], args[1])
	},
}

var stateResponsibleRevoke bool

func init() {
	stateCmd.PersistentFlags().StringVarP(&stateTemplate, "template", "t", "", "Template name")
	stateCmd.PersistentFlags().StringVarP(&templateProject, "project", "p", "", "Project name")

	stateAddCmd.Flags().StringVar(&stateType, "type", "intermediate", "State type (initial, intermediate, final)")
	stateAddCmd.Flags().StringVar(&stateResponsible, "responsible", "keep", "Responsible policy on entry (keep, assign, remove)")

	stateResponsibleCmd.Flags().BoolVar(&stateResponsibleRevoke, "revoke", false, "Remove the group instead")

	stateCmd.AddCommand(stateAddCmd)
	stateCmd.AddCommand(stateListCmd)
	stateCmd.AddCommand(stateRemoveCmd)
	stateCmd.AddCommand(stateResponsibleCmd)
	rootCmd.AddCommand(stateCmd)
}

func requireTemplate(ctx context.Context, s store.Store) (*models.Template, error) {
	if stateTemplate == "" {
		return nil, fmt.Errorf("--template is required")
	}
	return resolveTemplate(ctx, s, stateTemplate)
}

func stateAddRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	tpl, err := requireTemplate(ctx, s)
	if err != nil {
		return err
	}

	st := &models.State{
		TemplateID:  tpl.ID,
		Name:        name,
		Type:        models.StateType(stateType),
		Responsible: models.ResponsiblePolicy(stateResponsible),
	}
	switch st.Type {
	case models.StateInitial, models.StateIntermediate, models.StateFinal:
	default:
		return fmt.Errorf("unknown state type: %s", stateType)
	}
	switch st.Responsible {
	case models.ResponsibleKeep, models.ResponsibleAssign, models.ResponsibleRemove:
	default:
		return fmt.Errorf("unknown responsible policy: %s", stateResponsible)
	}

	// A workflow has at most one entry point.
	if st.Type == models.StateInitial {
		existing, err := s.ListStates(ctx, tpl.ID)
		if err != nil {
			return err
		}
		for _, other := range existing {
			if other.Type == models.StateInitial {
				return fmt.Errorf("template %s already has initial state %s", tpl.Name, other.Name)
			}
		}
	}

	if dryRun {
		ui.DryRunMsg("Would add state: %s [%s] to %s", name, stateType, tpl.Name)
		return nil
	}

	if err := s.CreateState(ctx, st); err != nil {
		return fmt.Errorf("add state: %w", err)
	}

	ui.Success("Added state: %s [%s] to %s", output.Cyan(name), output.StateColor(stateType), tpl.Name)
	return nil
}

func stateListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	tpl, err := requireTemplate(ctx, s)
	if err != nil {
		return err
	}

	full, err := s.LoadTemplate(ctx, tpl.ID)
	if err != nil {
		return err
	}
	if len(full.States) == 0 {
		ui.Info("No states in %s.", tpl.Name)
		return nil
	}

	table := ui.Table([]string{"Name", "Type", "Responsible", "Transitions", "Fields"})
	for _, st := range full.States {
		table.Append([]string{
			output.Cyan(st.Name),
			output.StateColor(string(st.Type)),
			string(st.EffectiveResponsible()),
			fmt.Sprintf("%d", len(st.Transitions)),
			fmt.Sprintf("%d", len(st.ActiveFields())),
		})
	}
	table.Render()
	return nil
}

func stateRemoveRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	tpl, err := requireTemplate(ctx, s)
	if err != nil {
		return err
	}
	st, err := resolveState(ctx, s, tpl, name)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would remove state: %s", st.Name)
		return nil
	}

	if err := s.DeleteState(ctx, st.ID); err != nil {
		return fmt.Errorf("remove state: %w", err)
	}

	ui.Success("Removed state: %s", output.Cyan(st.Name))
	return nil
}

func stateResponsibleRun(stateName, groupName string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	tpl, err := requireTemplate(ctx, s)
	if err != nil {
		return err
	}
	st, err := resolveState(ctx, s, tpl, stateName)
	if err != nil {
		return err
	}
	g, err := resolveGroup(ctx, s, tpl.ProjectID, groupName)
	if err != nil {
		return err
	}

	if stateResponsibleRevoke {
		if dryRun {
			ui.DryRunMsg("Would remove responsible group %s from %s", g.Name, st.Name)
			return nil
		}
		if err := s.RemoveResponsibleGroup(ctx, st.ID, g.ID); err != nil {
			return err
		}
		ui.Success("Removed responsible group %s from %s", g.Name, output.Cyan(st.Name))
		return nil
	}

	if dryRun {
		ui.DryRunMsg("Would add responsible group %s to %s", g.Name, st.Name)
		return nil
	}
	if err := s.AddResponsibleGroup(ctx, st.ID, g.ID); err != nil {
		return err
	}
	ui.Success("Added responsible group %s to %s", g.Name, output.Cyan(st.Name))
	return nil
}

// resolveState finds a state by name within a template.
func resolveState(ctx context.Context, s store.Store, tpl *models.Template, name string) (*models.State, error) {
	states, err := s.ListStates(ctx, tpl.ID)
	if err != nil {
		return nil, err
	}
	for _, st := range states {
		if st.Name == name {
			return st, nil
		}
	}
	return nil, fmt.Errorf("state not found in %s: %s", tpl.Name, name)
}
