package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trakgo/trak/internal/models"
	"github.com/trakgo/trak/internal/output"
)

var (
	userFullName string
	userAdmin    bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Create a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userAddRun(args[0])
	},
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return userListRun()
	},
}

var userRemoveCmd = &cobra.Command{
	Use:     "remove <email>",
	Aliases: []string{"rm"},
	Short:   "Delete a user",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userRemoveRun(args[0])
	},
}

var userDisableCmd = &cobra.Command{
	Use:   "disable <email>",
	Short: "Disable a user account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userSetDisabledRun(args[0], true)
	},
}

var userEnableCmd = &cobra.Command{
	Use:   "enable <email>",
	Short: "Re-enable a disabled user account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userSetDisabledRun(args[0], false)
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userFullName, "name", "", "Full name")
	userAddCmd.Flags().BoolVar(&userAdmin, "admin", false, "Grant administrator rights")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userRemoveCmd)
	userCmd.AddCommand(userDisableCmd)
	userCmd.AddCommand(userEnableCmd)
	rootCmd.AddCommand(userCmd)
}

func userAddRun(email string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	u := &models.User{
		Email:    email,
		FullName: userFullName,
		Admin:    userAdmin,
	}
	if u.FullName == "" {
		u.FullName = email
	}

	if dryRun {
		ui.DryRunMsg("Would add user: %s", email)
		return nil
	}

	if err := s.CreateUser(context.Background(), u); err != nil {
		return fmt.Errorf("add user: %w", err)
	}

	ui.Success("Added user: %s", output.Cyan(email))
	return nil
}

func userListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	users, err := s.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		ui.Info("No users.")
		return nil
	}

	table := ui.Table([]string{"Email", "Name", "Admin", "Status"})
	for _, u := range users {
		admin := ""
		if u.Admin {
			admin = output.Yellow("yes")
		}
		status := output.Green("active")
		if u.Disabled {
			status = output.Red("disabled")
		}
		table.Append([]string{output.Cyan(u.Email), u.FullName, admin, status})
	}
	table.Render()
	return nil
}

func userRemoveRun(email string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	u, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would remove user: %s", u.Email)
		return nil
	}

	if err := s.DeleteUser(ctx, u.ID); err != nil {
		return fmt.Errorf("remove user: %w", err)
	}

	ui.Success("Removed user: %s", output.Cyan(u.Email))
	return nil
}

func userSetDisabledRun(email string, disabled bool) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	u, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	verb := "disable"
	if !disabled {
		verb = "enable"
	}

	if u.Disabled == disabled {
		ui.Info("User %s is already %sd", u.Email, verb)
		return nil
	}

	if dryRun {
		ui.DryRunMsg("Would %s user: %s", verb, u.Email)
		return nil
	}

	u.Disabled = disabled
	if err := s.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("%s user: %w", verb, err)
	}

	if disabled {
		ui.Success("Disabled user: %s", output.Cyan(u.Email))
	} else {
		ui.Success("Enabled user: %s", output.Cyan(u.Email))
	}
	return nil
}
