package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trakgo/trak/internal/engine"
	"github.com/trakgo/trak/internal/models"
	"github.com/trakgo/trak/internal/output"
	"github.com/trakgo/trak/internal/store"
)

var (
	templateProject     string
	templateDescription string
	templateCritical    int
	templateFrozen      int

	grantRole   string
	grantGroup  string
	grantRevoke bool
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage issue templates",
	Long:  "Templates define the workflow and access rules for issues in a project.",
}

var templateAddCmd = &cobra.Command{
	Use:   "add <name> <prefix>",
	Short: "Create a template in a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return templateAddRun(args[0], args[1])
	},
}

var templateListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List templates in a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		return templateListRun()
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a template's workflow and grants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return templateShowRun(args[0])
	},
}

var templateLockCmd = &cobra.Command{
	Use:   "lock <name>",
	Short: "Lock a template, blocking new issue creation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return templateSetLockedRun(args[0], true)
	},
}

var templateUnlockCmd = &cobra.Command{
	Use:   "unlock <name>",
	Short: "Unlock a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return templateSetLockedRun(args[0], false)
	},
}

var templateRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a template and its issues",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return templateRemoveRun(args[0])
	},
}

var templateGrantCmd = &cobra.Command{
	Use:   "grant <template> <action>",
	Short: "Grant or revoke a template action",
	Long: `Grant a template action to a system role (--role) or a group
(--group), or revoke it with --revoke. Actions: ` + templateActionList() + `.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return templateGrantRun(args[0], args[1])
	},
}

var templateValidateCmd = &cobra.Command{
	Use:   "validate <name>",
	Short: "Check a template's workflow configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return templateValidateRun(args[0])
	},
}

func init() {
	templateCmd.PersistentFlags().StringVarP(&templateProject, "project", "p", "", "Project name")

	templateAddCmd.Flags().StringVar(&templateDescription, "desc", "", "Template description")
	templateAddCmd.Flags().IntVar(&templateCritical, "critical-age", 0, "Days after which an open issue is critical (0 = never)")
	templateAddCmd.Flags().IntVar(&templateFrozen, "frozen-time", 0, "Days after closing until an issue freezes (0 = never)")

	templateGrantCmd.Flags().StringVar(&grantRole, "role", "", "System role (anyone, author, responsible)")
	templateGrantCmd.Flags().StringVar(&grantGroup, "group", "", "Group name")
	templateGrantCmd.Flags().BoolVar(&grantRevoke, "revoke", false, "Revoke instead of grant")

	templateCmd.AddCommand(templateAddCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateShowCmd)
	templateCmd.AddCommand(templateLockCmd)
	templateCmd.AddCommand(templateUnlockCmd)
	templateCmd.AddCommand(templateRemoveCmd)
	templateCmd.AddCommand(templateGrantCmd)
	templateCmd.AddCommand(templateValidateCmd)
	rootCmd.AddCommand(templateCmd)
}

func templateActionList() string {
	s := ""
	for i, a := range models.TemplateActions {
		if i > 0 {
			s += ", "
		}
		s += string(a)
	}
	return s
}

func templateAddRun(name, prefix string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := requireProject(ctx, s)
	if err != nil {
		return err
	}

	tpl := &models.Template{
		ProjectID:   p.ID,
		Name:        name,
		Prefix:      prefix,
		Description: templateDescription,
	}
	if templateCritical > 0 {
		tpl.CriticalAge = &templateCritical
	}
	if templateFrozen > 0 {
		tpl.FrozenTime = &templateFrozen
	}

	if dryRun {
		ui.DryRunMsg("Would add template: %s (%s) in %s", name, prefix, p.Name)
		return nil
	}

	if err := s.CreateTemplate(ctx, tpl); err != nil {
		return fmt.Errorf("add template: %w", err)
	}

	ui.Success("Added template: %s (%s) in %s", output.Cyan(name), prefix, p.Name)
	ui.Info("Add states with 'trak state add' - issues need an initial state")
	return nil
}

func templateListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := requireProject(ctx, s)
	if err != nil {
		return err
	}

	templates, err := s.ListTemplates(ctx, p.ID)
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		ui.Info("No templates in %s.", p.Name)
		return nil
	}

	table := ui.Table([]string{"Name", "Prefix", "Locked", "States"})
	for _, tpl := range templates {
		locked := ""
		if tpl.Locked {
			locked = output.Yellow("yes")
		}
		states, _ := s.ListStates(ctx, tpl.ID)
		table.Append([]string{
			output.Cyan(tpl.Name),
			tpl.Prefix,
			locked,
			fmt.Sprintf("%d", len(states)),
		})
	}
	table.Render()
	return nil
}

func templateShowRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	tpl, err := resolveTemplate(ctx, s, name)
	if err != nil {
		return err
	}

	// Full aggregate for workflow display
	tpl, err = s.LoadTemplate(ctx, tpl.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s (%s)\n", output.Cyan(tpl.Name), tpl.Prefix)
	if tpl.Description != "" {
		fmt.Fprintf(ui.Out, "  Desc:        %s\n", tpl.Description)
	}
	if tpl.Locked {
		fmt.Fprintf(ui.Out, "  Locked:      %s\n", output.Yellow("yes"))
	}
	if tpl.CriticalAge != nil {
		fmt.Fprintf(ui.Out, "  Critical:    after %d days open\n", *tpl.CriticalAge)
	}
	if tpl.FrozenTime != nil {
		fmt.Fprintf(ui.Out, "  Freezes:     %d days after closing\n", *tpl.FrozenTime)
	}
	fmt.Fprintln(ui.Out)

	for _, st := range tpl.States {
		fmt.Fprintf(ui.Out, "  %s [%s]\n", output.Cyan(st.Name), output.StateColor(string(st.Type)))
		for _, tr := range st.Transitions {
			fmt.Fprintf(ui.Out, "    -> %s (%s)\n", tr.To.Name, tr.Grantee)
		}
		for _, f := range st.ActiveFields() {
			req := ""
			if f.Required {
				req = " required"
			}
			fmt.Fprintf(ui.Out, "    field: %s (%s)%s\n", f.Name, f.Type, req)
		}
	}
	fmt.Fprintln(ui.Out)

	for _, role := range models.SystemRoles {
		actions := tpl.RoleGrants[role]
		if len(actions) == 0 {
			continue
		}
		fmt.Fprintf(ui.Out, "  %s:", role)
		for _, a := range models.TemplateActions {
			if actions[a] {
				fmt.Fprintf(ui.Out, " %s", a)
			}
		}
		fmt.Fprintln(ui.Out)
	}
	for _, gg := range tpl.GroupGrants {
		fmt.Fprintf(ui.Out, "  group %s:", gg.Group.Name)
		for _, a := range models.TemplateActions {
			if gg.Actions[a] {
				fmt.Fprintf(ui.Out, " %s", a)
			}
		}
		fmt.Fprintln(ui.Out)
	}

	return nil
}

func templateSetLockedRun(name string, locked bool) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	tpl, err := resolveTemplate(ctx, s, name)
	if err != nil {
		return err
	}

	verb := "lock"
	if !locked {
		verb = "unlock"
	}

	if tpl.Locked == locked {
		ui.Info("Template %s is already %sed", tpl.Name, verb)
		return nil
	}

	if dryRun {
		ui.DryRunMsg("Would %s template: %s", verb, tpl.Name)
		return nil
	}

	tpl.Locked = locked
	if err := s.UpdateTemplate(ctx, tpl); err != nil {
		return fmt.Errorf("%s template: %w", verb, err)
	}

	if locked {
		ui.Success("Locked template: %s", output.Cyan(tpl.Name))
	} else {
		ui.Success("Unlocked template: %s", output.Cyan(tpl.Name))
	}
	return nil
}

func templateRemoveRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	tpl, err := resolveTemplate(ctx, s, name)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would remove template: %s", tpl.Name)
		return nil
	}

	if err := s.DeleteTemplate(ctx, tpl.ID); err != nil {
		return fmt.Errorf("remove template: %w", err)
	}

	ui.Success("Removed template: %s", output.Cyan(tpl.Name))
	return nil
}

func templateGrantRun(name, action string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	tpl, err := resolveTemplate(ctx, s, name)
	if err != nil {
		return err
	}

	ta := models.TemplateAction(action)
	if !ta.Valid() {
		return fmt.Errorf("unknown action: %s (want one of: %s)", action, templateActionList())
	}

	if (grantRole == "") == (grantGroup == "") {
		return fmt.Errorf("exactly one of --role or --group is required")
	}

	verb := "Granted"
	if grantRevoke {
		verb = "Revoked"
	}

	if grantRole != "" {
		role := models.SystemRole(grantRole)
		if !role.Valid() {
			return fmt.Errorf("unknown role: %s (want anyone, author, or responsible)", grantRole)
		}

		if dryRun {
			ui.DryRunMsg("Would set grant: %s %s on %s", role, ta, tpl.Name)
			return nil
		}
		if err := s.SetRoleGrant(ctx, tpl.ID, role, ta, !grantRevoke); err != nil {
			return fmt.Errorf("set grant: %w", err)
		}
		ui.Success("%s %s for role %s on %s", verb, ta, role, output.Cyan(tpl.Name))
		return nil
	}

	g, err := resolveGroup(ctx, s, tpl.ProjectID, grantGroup)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would set grant: group %s %s on %s", g.Name, ta, tpl.Name)
		return nil
	}
	if err := s.SetGroupGrant(ctx, tpl.ID, g.ID, ta, !grantRevoke); err != nil {
		return fmt.Errorf("set grant: %w", err)
	}
	ui.Success("%s %s for group %s on %s", verb, ta, g.Name, output.Cyan(tpl.Name))

	return validateAndWarn(ctx, s, tpl.ID)
}

func templateValidateRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	tpl, err := resolveTemplate(ctx, s, name)
	if err != nil {
		return err
	}

	full, err := s.LoadTemplate(ctx, tpl.ID)
	if err != nil {
		return err
	}

	if err := engine.ValidateTemplate(full); err != nil {
		return fmt.Errorf("template %s: %w", tpl.Name, err)
	}

	ui.Success("Template %s is valid", output.Cyan(tpl.Name))
	if full.InitialState() == nil {
		ui.Warning("No initial state yet - issues cannot be created")
	}
	return nil
}

// validateAndWarn re-checks the template after a config change. Errors are
// reported as warnings so the edit itself still lands.
func validateAndWarn(ctx context.Context, s store.Store, templateID string) error {
	full, err := s.LoadTemplate(ctx, templateID)
	if err != nil {
		return err
	}
	if err := engine.ValidateTemplate(full); err != nil {
		ui.Warning("Template configuration is now invalid: %v", err)
	}
	return nil
}

// requireProject resolves the --project flag, failing when it is absent.
func requireProject(ctx context.Context, s store.Store) (*models.Project, error) {
	if templateProject == "" {
		return nil, fmt.Errorf("--project is required")
	}
	return resolveProject(ctx, s, templateProject)
}

// resolveTemplate finds a template by name (scoped to --project when given)
// or by ID prefix.
func resolveTemplate(ctx context.Context, s store.Store, ref string) (*models.Template, error) {
	if templateProject != "" {
		p, err := resolveProject(ctx, s, templateProject)
		if err != nil {
			return nil, err
		}
		if tpl, err := s.GetTemplateByName(ctx, p.ID, ref); err == nil {
			return tpl, nil
		}
	}

	projects, err := s.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	var match *models.Template
	for _, p := range projects {
		templates, err := s.ListTemplates(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, tpl := range templates {
			if tpl.Name == ref || strings.HasPrefix(tpl.ID, ref) {
				if match != nil {
					return nil, fmt.Errorf("ambiguous template ref: %s (use --project)", ref)
				}
				match = tpl
			}
		}
	}
	if match == nil {
		return nil, fmt.Errorf("template not found: %s", ref)
	}
	return match, nil
}

// resolveGroup finds a group by name among those visible to the project,
// preferring the project's own group over a global one with the same name.
func resolveGroup(ctx context.Context, s store.Store, projectID, name string) (*models.Group, error) {
	groups, err := s.ListGroups(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var global *models.Group
	for _, g := range groups {
		if g.Name != name {
			continue
		}
		if !g.IsGlobal() {
			return g, nil
		}
		global = g
	}
	if global != nil {
		return global, nil
	}
	return nil, fmt.Errorf("group not found: %s", name)
}
