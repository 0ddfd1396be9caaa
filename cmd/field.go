package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/trakgo/trak/internal/models"
	"github.com/trakgo/trak/internal/output"
)

var (
	fieldState    string
	fieldType     string
	fieldRequired bool

	fieldGrantRole       string
	fieldGrantGroup      string
	fieldGrantPermission string
)

var fieldCmd = &cobra.Command{
	Use:   "field",
	Short: "Manage per-state field definitions",
}

var fieldAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a field to a state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fieldAddRun(args[0])
	},
}

var fieldListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List a state's fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		return fieldListRun()
	},
}

var fieldRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a field (kept for history, hidden from new issues)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fieldRemoveRun(args[0])
	},
}

var fieldGrantCmd = &cobra.Command{
	Use:   "grant <name>",
	Short: "Set a field permission for a role or group",
	Long: `Set the field permission (none, read, write) for a system role
(--role) or group (--group). 'none' removes the grant.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fieldGrantRun(args[0])
	},
}

func init() {
	fieldCmd.PersistentFlags().StringVarP(&stateTemplate, "template", "t", "", "Template name")
	fieldCmd.PersistentFlags().StringVarP(&templateProject, "project", "p", "", "Project name")
	fieldCmd.PersistentFlags().StringVarP(&fieldState, "state", "s", "", "State name")

	fieldAddCmd.Flags().StringVar(&fieldType, "type", "string", "Field type")
	fieldAddCmd.Flags().BoolVar(&fieldRequired, "required", false, "Field must be filled")

	fieldGrantCmd.Flags().StringVar(&fieldGrantRole, "role", "", "System role")
	fieldGrantCmd.Flags().StringVar(&fieldGrantGroup, "group", "", "Group name")
	fieldGrantCmd.Flags().StringVar(&fieldGrantPermission, "permission", "read", "Permission (none, read, write)")

	fieldCmd.AddCommand(fieldAddCmd)
	fieldCmd.AddCommand(fieldListCmd)
	fieldCmd.AddCommand(fieldRemoveCmd)
	fieldCmd.AddCommand(fieldGrantCmd)
	rootCmd.AddCommand(fieldCmd)
}

func requireState(ctx context.Context) (*models.Template, *models.State, error) {
	s, err := getStore()
	if err != nil {
		return nil, nil, err
	}
	tpl, err := requireTemplate(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	if fieldState == "" {
		return nil, nil, fmt.Errorf("--state is required")
	}
	st, err := resolveState(ctx, s, tpl, fieldState)
	if err != nil {
		return nil, nil, err
	}
	return tpl, st, nil
}

func fieldAddRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	_, st, err := requireState(ctx)
	if err != nil {
		return err
	}

	ft := models.FieldType(fieldType)
	if !ft.Valid() {
		return fmt.Errorf("unknown field type: %s", fieldType)
	}

	f := &models.Field{
		StateID:  st.ID,
		Name:     name,
		Type:     ft,
		Required: fieldRequired,
	}

	if dryRun {
		ui.DryRunMsg("Would add field: %s (%s) to %s", name, fieldType, st.Name)
		return nil
	}

	if err := s.CreateField(ctx, f); err != nil {
		return fmt.Errorf("add field: %w", err)
	}

	ui.Success("Added field: %s (%s) to %s", output.Cyan(name), fieldType, st.Name)
	return nil
}

func fieldListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	_, st, err := requireState(ctx)
	if err != nil {
		return err
	}

	fields, err := s.ListFields(ctx, st.ID)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		ui.Info("No fields in %s.", st.Name)
		return nil
	}

	table := ui.Table([]string{"Name", "Type", "Required", "Status"})
	for _, f := range fields {
		required := ""
		if f.Required {
			required = "yes"
		}
		status := output.Green("active")
		if !f.IsActive() {
			status = output.Red("removed")
		}
		table.Append([]string{output.Cyan(f.Name), string(f.Type), required, status})
	}
	table.Render()
	return nil
}

func fieldRemoveRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	f, err := findField(ctx, name)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would remove field: %s", f.Name)
		return nil
	}

	if err := s.RemoveField(ctx, f.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("remove field: %w", err)
	}

	ui.Success("Removed field: %s", output.Cyan(f.Name))
	return nil
}

func fieldGrantRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	tpl, _, err := requireState(ctx)
	if err != nil {
		return err
	}
	f, err := findField(ctx, name)
	if err != nil {
		return err
	}

	var perm models.FieldPermission
	switch fieldGrantPermission {
	case "none":
		perm = models.FieldPermissionNone
	case "read":
		perm = models.FieldPermissionReadOnly
	case "write":
		perm = models.FieldPermissionReadWrite
	default:
		return fmt.Errorf("unknown permission: %s (want none, read, or write)", fieldGrantPermission)
	}
	if (fieldGrantRole == "") == (fieldGrantGroup == "") {
		return fmt.Errorf("exactly one of --role or --group is required")
	}

	if fieldGrantRole != "" {
		role := models.SystemRole(fieldGrantRole)
		if !role.Valid() {
			return fmt.Errorf("unknown role: %s", fieldGrantRole)
		}
		if dryRun {
			ui.DryRunMsg("Would set field grant: %s %s = %s", f.Name, role, perm)
			return nil
		}
		if err := s.SetFieldRoleGrant(ctx, f.ID, role, perm); err != nil {
			return fmt.Errorf("set field grant: %w", err)
		}
		ui.Success("Set %s for role %s on field %s", perm, role, output.Cyan(f.Name))
		return nil
	}

	g, err := resolveGroup(ctx, s, tpl.ProjectID, fieldGrantGroup)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would set field grant: %s group %s = %s", f.Name, g.Name, perm)
		return nil
	}
	if err := s.SetFieldGroupGrant(ctx, f.ID, g.ID, perm); err != nil {
		return fmt.Errorf("set field grant: %w", err)
	}
	ui.Success("Set %s for group %s on field %s", perm, g.Name, output.Cyan(f.Name))

	return validateAndWarn(ctx, s, tpl.ID)
}

// findField resolves an active field by name within the --state.
func findField(ctx context.Context, name string) (*models.Field, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	_, st, err := requireState(ctx)
	if err != nil {
		return nil, err
	}
	fields, err := s.ListFields(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.Name == name && f.IsActive() {
			return f, nil
		}
	}
	return nil, fmt.Errorf("field not found in %s: %s", st.Name, name)
}
