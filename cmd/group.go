package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trakgo/trak/internal/models"
	"github.com/trakgo/trak/internal/output"
)

var (
	groupProject     string
	groupDescription string
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage user groups",
	Long: `Groups collect users for access grants. A group belongs to one
project, or is global and usable by every project.`,
}

var groupAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a group (global unless --project is given)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return groupAddRun(args[0])
	},
}

var groupListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		return groupListRun()
	},
}

var groupRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a group",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return groupRemoveRun(args[0])
	},
}

var groupJoinCmd = &cobra.Command{
	Use:   "join <group> <user-email>",
	Short: "Add a user to a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return groupMembershipRun(args[0], args[1], true)
	},
}

var groupLeaveCmd = &cobra.Command{
	Use:   "leave <group> <user-email>",
	Short: "Remove a user from a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return groupMembershipRun(args[0], args[1], false)
	},
}

func init() {
	groupCmd.PersistentFlags().StringVarP(&groupProject, "project", "p", "", "Project name (omit for global groups)")
	groupAddCmd.Flags().StringVar(&groupDescription, "desc", "", "Group description")

	groupCmd.AddCommand(groupAddCmd)
	groupCmd.AddCommand(groupListCmd)
	groupCmd.AddCommand(groupRemoveCmd)
	groupCmd.AddCommand(groupJoinCmd)
	groupCmd.AddCommand(groupLeaveCmd)
	rootCmd.AddCommand(groupCmd)
}

func groupAddRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	g := &models.Group{Name: name, Description: groupDescription}
	scope := "global"
	if groupProject != "" {
		p, err := resolveProject(ctx, s, groupProject)
		if err != nil {
			return err
		}
		g.ProjectID = &p.ID
		scope = p.Name
	}

	if dryRun {
		ui.DryRunMsg("Would add group: %s (%s)", name, scope)
		return nil
	}

	if err := s.CreateGroup(ctx, g); err != nil {
		return fmt.Errorf("add group: %w", err)
	}

	ui.Success("Added group: %s (%s)", output.Cyan(name), scope)
	return nil
}

func groupListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	projectID := ""
	if groupProject != "" {
		p, err := resolveProject(ctx, s, groupProject)
		if err != nil {
			return err
		}
		projectID = p.ID
	}

	groups, err := s.ListGroups(ctx, projectID)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		ui.Info("No groups.")
		return nil
	}

	table := ui.Table([]string{"Name", "Scope", "Members"})
	for _, g := range groups {
		scope := output.Yellow("global")
		if !g.IsGlobal() {
			if p, err := s.GetProject(ctx, *g.ProjectID); err == nil {
				scope = p.Name
			} else {
				scope = *g.ProjectID
			}
		}
		table.Append([]string{
			output.Cyan(g.Name),
			scope,
			fmt.Sprintf("%d", len(g.Members)),
		})
	}
	table.Render()
	return nil
}

func groupRemoveRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	g, err := findGroup(ctx, name)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would remove group: %s", g.Name)
		return nil
	}

	if err := s.DeleteGroup(ctx, g.ID); err != nil {
		return fmt.Errorf("remove group: %w", err)
	}

	ui.Success("Removed group: %s", output.Cyan(g.Name))
	return nil
}

func groupMembershipRun(groupName, email string, join bool) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	g, err := findGroup(ctx, groupName)
	if err != nil {
		return err
	}
	u, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	if join {
		if dryRun {
			ui.DryRunMsg("Would add %s to %s", u.Email, g.Name)
			return nil
		}
		if err := s.AddGroupMember(ctx, g.ID, u.ID); err != nil {
			return fmt.Errorf("join group: %w", err)
		}
		ui.Success("Added %s to %s", u.Email, output.Cyan(g.Name))
		return nil
	}

	if dryRun {
		ui.DryRunMsg("Would remove %s from %s", u.Email, g.Name)
		return nil
	}
	if err := s.RemoveGroupMember(ctx, g.ID, u.ID); err != nil {
		return fmt.Errorf("leave group: %w", err)
	}
	ui.Success("Removed %s from %s", u.Email, output.Cyan(g.Name))
	return nil
}

// findGroup resolves a group by name, scoped to --project when given.
func findGroup(ctx context.Context, name string) (*models.Group, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}

	projectID := ""
	if groupProject != "" {
		p, err := resolveProject(ctx, s, groupProject)
		if err != nil {
			return nil, err
		}
		projectID = p.ID
	}

	groups, err := s.ListGroups(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var matches []*models.Group
	for _, g := range groups {
		if g.Name == name || strings.HasPrefix(g.ID, name) {
			matches = append(matches, g)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("group not found: %s", name)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous group ref: %s (use --project)", name)
	}
}
