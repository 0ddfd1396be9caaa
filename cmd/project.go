package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/trakgo/trak/internal/models"
	"github.com/trakgo/trak/internal/output"
	"github.com/trakgo/trak/internal/store"
)

var projectDescription string

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
	Long:  "Add, remove, list, suspend, and show projects.",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectAddRun(args[0])
	},
}

var projectRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a project and everything in it",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectRemoveRun(args[0])
	},
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectListRun()
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show detailed project information",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectShowRun(args[0])
	},
}

var projectSuspendCmd = &cobra.Command{
	Use:   "suspend <name>",
	Short: "Suspend a project, blocking all issue activity in it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectSetSuspendedRun(args[0], true)
	},
}

var projectResumeCmd = &cobra.Command{
	Use:   "resume <name>",
	Short: "Resume a suspended project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectSetSuspendedRun(args[0], false)
	},
}

func init() {
	projectAddCmd.Flags().StringVar(&projectDescription, "desc", "", "Project description")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectRemoveCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectSuspendCmd)
	projectCmd.AddCommand(projectResumeCmd)
	rootCmd.AddCommand(projectCmd)
}

func projectAddRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	p := &models.Project{
		Name:        name,
		Description: projectDescription,
	}

	if dryRun {
		ui.DryRunMsg("Would add project: %s", name)
		return nil
	}

	if err := s.CreateProject(context.Background(), p); err != nil {
		return fmt.Errorf("add project: %w", err)
	}

	ui.Success("Added project: %s", output.Cyan(name))
	ui.VerboseLog("ID: %s", p.ID)
	return nil
}

func projectRemoveRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := resolveProject(ctx, s, name)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would remove project: %s", p.Name)
		return nil
	}

	if err := s.DeleteProject(ctx, p.ID); err != nil {
		return fmt.Errorf("remove project: %w", err)
	}

	ui.Success("Removed project: %s", output.Cyan(p.Name))
	return nil
}

func projectListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	projects, err := s.ListProjects(ctx)
	if err != nil {
		return err
	}

	if len(projects) == 0 {
		ui.Info("No projects. Use 'trak project add <name>' to get started.")
		return nil
	}

	table := ui.Table([]string{"Name", "Status", "Templates", "Open Issues"})
	for _, p := range projects {
		status := output.Green("active")
		if p.Suspended {
			status = output.Red("suspended")
		}

		templates, _ := s.ListTemplates(ctx, p.ID)
		issues, _ := s.ListIssues(ctx, store.IssueFilter{ProjectID: p.ID})
		open := 0
		for _, i := range issues {
			if !i.IsClosed() {
				open++
			}
		}

		table.Append([]string{
			output.Cyan(p.Name),
			status,
			fmt.Sprintf("%d", len(templates)),
			fmt.Sprintf("%d", open),
		})
	}
	table.Render()
	return nil
}

func projectShowRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := resolveProject(ctx, s, name)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s\n", output.Cyan(p.Name))
	if p.Description != "" {
		fmt.Fprintf(ui.Out, "  Desc:       %s\n", p.Description)
	}
	if p.Suspended {
		fmt.Fprintf(ui.Out, "  Status:     %s\n", output.Red("suspended"))
	} else {
		fmt.Fprintf(ui.Out, "  Status:     %s\n", output.Green("active"))
	}
	fmt.Fprintf(ui.Out, "  Created:    %s\n", timeAgo(p.CreatedAt))
	fmt.Fprintln(ui.Out)

	templates, err := s.ListTemplates(ctx, p.ID)
	if err != nil {
		return err
	}
	for _, tpl := range templates {
		locked := ""
		if tpl.Locked {
			locked = " " + output.Yellow("[locked]")
		}
		fmt.Fprintf(ui.Out, "  Template:   %s (%s)%s\n", tpl.Name, tpl.Prefix, locked)
	}

	issues, err := s.ListIssues(ctx, store.IssueFilter{ProjectID: p.ID})
	if err == nil {
		open, closed := 0, 0
		for _, i := range issues {
			if i.IsClosed() {
				closed++
			} else {
				open++
			}
		}
		fmt.Fprintf(ui.Out, "  Issues:     %d open, %d closed\n", open, closed)
	}

	groups, err := s.ListGroups(ctx, p.ID)
	if err == nil {
		local := 0
		for _, g := range groups {
			if !g.IsGlobal() {
				local++
			}
		}
		fmt.Fprintf(ui.Out, "  Groups:     %d local\n", local)
	}

	return nil
}

func projectSetSuspendedRun(name string, suspend bool) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := resolveProject(ctx, s, name)
	if err != nil {
		return err
	}

	verb := "suspend"
	if !suspend {
		verb = "resume"
	}

	if p.Suspended == suspend {
		ui.Info("Project %s is already %sed", p.Name, verb)
		return nil
	}

	if dryRun {
		ui.DryRunMsg("Would %s project: %s", verb, p.Name)
		return nil
	}

	p.Suspended = suspend
	if err := s.UpdateProject(ctx, p); err != nil {
		return fmt.Errorf("%s project: %w", verb, err)
	}

	if suspend {
		ui.Success("Suspended project: %s", output.Cyan(p.Name))
	} else {
		ui.Success("Resumed project: %s", output.Cyan(p.Name))
	}
	return nil
}

// resolveProject finds a project by name or ID prefix.
func resolveProject(ctx context.Context, s store.Store, ref string) (*models.Project, error) {
	if p, err := s.GetProjectByName(ctx, ref); err == nil {
		return p, nil
	}

	projects, err := s.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	var match *models.Project
	for _, p := range projects {
		if strings.HasPrefix(p.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous project ref: %s", ref)
			}
			match = p
		}
	}
	if match == nil {
		return nil, fmt.Errorf("project not found: %s", ref)
	}
	return match, nil
}

// timeAgo returns a human-readable duration from a time.
func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	}
}
