package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trakgo/trak/internal/engine"
	"github.com/trakgo/trak/internal/models"
	"github.com/trakgo/trak/internal/output"
	"github.com/trakgo/trak/internal/store"
)

var (
	issueAs          string
	issueTemplate    string
	issueProject     string
	issueState       string
	issueAuthor      string
	issueResponsible string
	issueMine        bool
	issueAssign      string
	issueCloneOf     string
	issueUntil       string
	issuePrivate     bool
	issueUnlink      bool
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage issues",
	Long: `Create issues and move them through their template's workflow.
Every mutation is checked against the acting user's grants first; pass
the actor with --as (or set default_user in the config).`,
}

var issueAddCmd = &cobra.Command{
	Use:   "add <subject>",
	Short: "Create an issue",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueAddRun(strings.Join(args, " "))
	},
}

var issueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueShowRun(args[0])
	},
}

var issueMoveCmd = &cobra.Command{
	Use:   "move <id> <state>",
	Short: "Move an issue to another state",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueMoveRun(args[0], args[1])
	},
}

var issueTransitionsCmd = &cobra.Command{
	Use:   "transitions <id>",
	Short: "Show the states the actor may move an issue to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueTransitionsRun(args[0])
	},
}

var issueAssignCmd = &cobra.Command{
	Use:   "assign <id> <user-email>",
	Short: "Reassign an issue to another responsible",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueAssignRun(args[0], args[1])
	},
}

var issueSuspendCmd = &cobra.Command{
	Use:   "suspend <id>",
	Short: "Suspend an issue until a future date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueSuspendRun(args[0])
	},
}

var issueResumeCmd = &cobra.Command{
	Use:   "resume <id>",
	Short: "Resume a suspended issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueResumeRun(args[0])
	},
}

var issueCommentCmd = &cobra.Command{
	Use:   "comment <id>",
	Short: "Record comment activity on an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueCommentRun(args[0])
	},
}

var issueDependCmd = &cobra.Command{
	Use:   "depend <id> <dependency-id>",
	Short: "Add or remove a dependency (blocks closing until it is closed)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueLinkRun(args[0], args[1], false)
	},
}

var issueRelateCmd = &cobra.Command{
	Use:   "relate <id> <related-id>",
	Short: "Add or remove a related-issue link",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueLinkRun(args[0], args[1], true)
	},
}

var issueRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Delete an issue",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueRemoveRun(args[0])
	},
}

func init() {
	issueCmd.PersistentFlags().StringVar(&issueAs, "as", "", "Act as this user (email)")

	issueAddCmd.Flags().StringVarP(&issueTemplate, "template", "t", "", "Template name")
	issueAddCmd.Flags().StringVarP(&issueProject, "project", "p", "", "Project name")
	issueAddCmd.Flags().StringVar(&issueCloneOf, "clone-of", "", "Record the issue this one was cloned from")

	issueListCmd.Flags().StringVarP(&issueProject, "project", "p", "", "Filter by project")
	issueListCmd.Flags().StringVarP(&issueTemplate, "template", "t", "", "Filter by template")
	issueListCmd.Flags().StringVar(&issueState, "state", "", "Filter by state name")
	issueListCmd.Flags().StringVar(&issueAuthor, "author", "", "Filter by author email")
	issueListCmd.Flags().StringVar(&issueResponsible, "responsible", "", "Filter by responsible email")
	issueListCmd.Flags().BoolVar(&issueMine, "mine", false, "Only issues where the actor is author or responsible")

	issueMoveCmd.Flags().StringVar(&issueAssign, "assign", "", "Responsible to assign when the target state requires one")

	issueSuspendCmd.Flags().StringVar(&issueUntil, "until", "", "Resume date (YYYY-MM-DD, required)")

	issueCommentCmd.Flags().BoolVar(&issuePrivate, "private", false, "Private comment")

	issueDependCmd.Flags().BoolVar(&issueUnlink, "remove", false, "Remove the link instead")
	issueRelateCmd.Flags().BoolVar(&issueUnlink, "remove", false, "Remove the link instead")

	issueCmd.AddCommand(issueAddCmd)
	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueShowCmd)
	issueCmd.AddCommand(issueMoveCmd)
	issueCmd.AddCommand(issueTransitionsCmd)
	issueCmd.AddCommand(issueAssignCmd)
	issueCmd.AddCommand(issueSuspendCmd)
	issueCmd.AddCommand(issueResumeCmd)
	issueCmd.AddCommand(issueCommentCmd)
	issueCmd.AddCommand(issueDependCmd)
	issueCmd.AddCommand(issueRelateCmd)
	issueCmd.AddCommand(issueRemoveCmd)
	rootCmd.AddCommand(issueCmd)
}

// resolveActor loads the acting user from --as or the default_user config
// key. Returns nil (anonymous) when neither is set.
func resolveActor(ctx context.Context, s store.Store) (*models.User, error) {
	email := issueAs
	if email == "" {
		email = viper.GetString("default_user")
	}
	if email == "" {
		return nil, nil
	}
	u, err := s.LoadUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("resolve actor: %w", err)
	}
	return u, nil
}

// requireActor is resolveActor for commands where anonymous makes no sense.
func requireActor(ctx context.Context, s store.Store) (*models.User, error) {
	u, err := resolveActor(ctx, s)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("no acting user: pass --as <email> or set default_user")
	}
	return u, nil
}

// resolveIssue loads the full issue aggregate by ID or ID prefix.
func resolveIssue(ctx context.Context, s store.Store, ref string) (*models.Issue, error) {
	issues, err := s.ListIssues(ctx, store.IssueFilter{})
	if err != nil {
		return nil, err
	}
	var match *models.Issue
	for _, i := range issues {
		if strings.HasPrefix(i.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous issue ref: %s", ref)
			}
			match = i
		}
	}
	if match == nil {
		return nil, fmt.Errorf("issue not found: %s", ref)
	}
	return s.LoadIssue(ctx, match.ID)
}

// deny formats a refusal for a checked action.
func deny(action string) error {
	return fmt.Errorf("permission denied: %s", action)
}

func issueAddRun(subject string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	actor, err := requireActor(ctx, s)
	if err != nil {
		return err
	}
	if issueTemplate == "" {
		return fmt.Errorf("--template is required")
	}
	templateProject = issueProject
	tplRow, err := resolveTemplate(ctx, s, issueTemplate)
	if err != nil {
		return err
	}
	tpl, err := s.LoadTemplate(ctx, tplRow.ID)
	if err != nil {
		return err
	}

	ok, err := engine.CanCreate(actor, tpl)
	if err != nil {
		return err
	}
	if !ok {
		return deny("create issue in " + tpl.Name)
	}

	initial := tpl.InitialState()
	issue := &models.Issue{
		TemplateID: tpl.ID,
		StateID:    initial.ID,
		Subject:    subject,
		AuthorID:   actor.ID,
	}
	if issueCloneOf != "" {
		origin, err := resolveIssue(ctx, s, issueCloneOf)
		if err != nil {
			return err
		}
		issue.OriginID = &origin.ID
	}

	if dryRun {
		ui.DryRunMsg("Would create issue: %s (%s, state %s)", subject, tpl.Name, initial.Name)
		return nil
	}

	if err := s.CreateIssue(ctx, issue); err != nil {
		return fmt.Errorf("create issue: %w", err)
	}

	ui.Success("Created issue %s: %s", shortID(issue.ID), subject)
	ui.VerboseLog("Template %s, state %s", tpl.Name, initial.Name)
	return nil
}

func issueListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	filter := store.IssueFilter{}
	if issueProject != "" {
		p, err := resolveProject(ctx, s, issueProject)
		if err != nil {
			return err
		}
		filter.ProjectID = p.ID
	}
	if issueTemplate != "" {
		templateProject = issueProject
		tpl, err := resolveTemplate(ctx, s, issueTemplate)
		if err != nil {
			return err
		}
		filter.TemplateID = tpl.ID
	}
	if issueAuthor != "" {
		u, err := s.GetUserByEmail(ctx, issueAuthor)
		if err != nil {
			return err
		}
		filter.AuthorID = u.ID
	}
	if issueResponsible != "" {
		u, err := s.GetUserByEmail(ctx, issueResponsible)
		if err != nil {
			return err
		}
		filter.ResponsibleID = u.ID
	}

	actor, err := resolveActor(ctx, s)
	if err != nil {
		return err
	}
	if issueMine && actor == nil {
		return fmt.Errorf("--mine needs an acting user (--as)")
	}

	issues, err := s.ListIssues(ctx, filter)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	table := ui.Table([]string{"ID", "Subject", "State", "Responsible", "Age"})
	shown := 0
	for _, row := range issues {
		issue, err := s.LoadIssue(ctx, row.ID)
		if err != nil {
			return err
		}
		if issueState != "" && issue.State.Name != issueState {
			continue
		}
		if issueMine && !(issue.AuthorID == actor.ID ||
			issue.ResponsibleID != nil && *issue.ResponsibleID == actor.ID) {
			continue
		}
		// With an actor set, hide what they may not view.
		if actor != nil && !engine.CanView(actor, issue) {
			continue
		}

		subject := issue.Subject
		if issue.IsCritical(now) {
			subject = output.Red(subject)
		}
		responsible := ""
		if issue.ResponsibleID != nil {
			if u, err := s.GetUser(ctx, *issue.ResponsibleID); err == nil {
				responsible = u.Email
			}
		}
		age := fmt.Sprintf("%dd", issue.Age(now))

		stateName := issue.State.Name
		if issue.IsClosed() {
			stateName = output.Cyan(stateName)
		} else if issue.IsSuspended(now) {
			stateName = output.Yellow(stateName + " (suspended)")
		}

		table.Append([]string{shortID(issue.ID), subject, stateName, responsible, age})
		shown++
	}
	if shown == 0 {
		ui.Info("No issues.")
		return nil
	}
	table.Render()
	return nil
}

func issueShowRun(ref string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := resolveIssue(ctx, s, ref)
	if err != nil {
		return err
	}

	actor, err := resolveActor(ctx, s)
	if err != nil {
		return err
	}
	if actor != nil && !engine.CanView(actor, issue) {
		return deny("view issue " + shortID(issue.ID))
	}

	now := time.Now().UTC()

	fmt.Fprintf(ui.Out, "%s %s\n", output.Cyan(shortID(issue.ID)), issue.Subject)
	fmt.Fprintf(ui.Out, "  Template:    %s (%s)\n", issue.Template.Name, issue.Template.Project.Name)
	fmt.Fprintf(ui.Out, "  State:       %s [%s]\n", issue.State.Name, output.StateColor(string(issue.State.Type)))
	if author, err := s.GetUser(ctx, issue.AuthorID); err == nil {
		fmt.Fprintf(ui.Out, "  Author:      %s\n", author.Email)
	}
	if issue.ResponsibleID != nil {
		if u, err := s.GetUser(ctx, *issue.ResponsibleID); err == nil {
			fmt.Fprintf(ui.Out, "  Responsible: %s\n", u.Email)
		}
	}
	fmt.Fprintf(ui.Out, "  Age:         %d days\n", issue.Age(now))
	if issue.IsClosed() {
		fmt.Fprintf(ui.Out, "  Closed:      %s\n", timeAgo(*issue.ClosedAt))
		if issue.IsFrozen(now) {
			fmt.Fprintf(ui.Out, "  Frozen:      %s\n", output.Yellow("yes"))
		}
	}
	if issue.IsSuspended(now) {
		fmt.Fprintf(ui.Out, "  Suspended:   until %s\n", issue.ResumesAt.Format("2006-01-02"))
	}
	if issue.IsCritical(now) {
		fmt.Fprintf(ui.Out, "  Critical:    %s\n", output.Red("yes"))
	}
	if issue.OriginID != nil {
		fmt.Fprintf(ui.Out, "  Cloned from: %s\n", shortID(*issue.OriginID))
	}

	for _, dep := range issue.Dependencies {
		marker := output.Yellow("open")
		if dep.State != nil && dep.State.IsFinal() {
			marker = output.Green("closed")
		}
		fmt.Fprintf(ui.Out, "  Depends on:  %s %s (%s)\n", shortID(dep.ID), dep.Subject, marker)
	}
	for _, rel := range issue.Related {
		fmt.Fprintf(ui.Out, "  Related:     %s %s\n", shortID(rel.ID), rel.Subject)
	}

	return nil
}

func issueTransitionsRun(ref string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := resolveIssue(ctx, s, ref)
	if err != nil {
		return err
	}
	actor, err := requireActor(ctx, s)
	if err != nil {
		return err
	}

	states, err := engine.LegalTransitions(actor, issue)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		ui.Info("No transitions available for %s from %s", actor.Email, issue.State.Name)
		return nil
	}

	table := ui.Table([]string{"State", "Type"})
	for _, st := range states {
		table.Append([]string{output.Cyan(st.Name), output.StateColor(string(st.Type))})
	}
	table.Render()
	return nil
}

func issueMoveRun(ref, stateName string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := resolveIssue(ctx, s, ref)
	if err != nil {
		return err
	}
	actor, err := requireActor(ctx, s)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if ok, err := engine.CanPerform(actor, issue, engine.ActionChangeState, now); err != nil {
		return err
	} else if !ok {
		return deny("change state of " + shortID(issue.ID))
	}

	states, err := engine.LegalTransitions(actor, issue)
	if err != nil {
		return err
	}
	var target *models.State
	for _, st := range states {
		if st.Name == stateName {
			target = st
			break
		}
	}
	if target == nil {
		return fmt.Errorf("cannot move %s to %s as %s", shortID(issue.ID), stateName, actor.Email)
	}

	// Responsible policy of the target state
	var newResponsible *string
	switch target.EffectiveResponsible() {
	case models.ResponsibleKeep:
		newResponsible = issue.ResponsibleID
	case models.ResponsibleRemove:
		newResponsible = nil
	case models.ResponsibleAssign:
		if issueAssign == "" {
			return fmt.Errorf("state %s requires a responsible: pass --assign <email>", target.Name)
		}
		u, err := s.LoadUserByEmail(ctx, issueAssign)
		if err != nil {
			return err
		}
		if !memberOfAny(u, target.ResponsibleGroups) {
			return fmt.Errorf("%s is not in a responsible group of state %s", u.Email, target.Name)
		}
		newResponsible = &u.ID
	}

	if dryRun {
		ui.DryRunMsg("Would move %s: %s -> %s", shortID(issue.ID), issue.State.Name, target.Name)
		return nil
	}

	issue.StateID = target.ID
	issue.ResponsibleID = newResponsible
	issue.ChangedAt = now
	if target.IsFinal() {
		issue.ClosedAt = &now
	} else {
		issue.ClosedAt = nil
	}

	if err := s.UpdateIssue(ctx, issue); err != nil {
		return fmt.Errorf("move issue: %w", err)
	}

	ui.Success("Moved %s to %s", shortID(issue.ID), output.Cyan(target.Name))
	if target.IsFinal() {
		ui.VerboseLog("Issue closed")
	}
	return nil
}

func issueAssignRun(ref, email string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := resolveIssue(ctx, s, ref)
	if err != nil {
		return err
	}
	actor, err := requireActor(ctx, s)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if ok, err := engine.CanPerform(actor, issue, engine.ActionReassign, now); err != nil {
		return err
	} else if !ok {
		return deny("reassign " + shortID(issue.ID))
	}

	u, err := s.LoadUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !memberOfAny(u, issue.State.ResponsibleGroups) {
		return fmt.Errorf("%s is not in a responsible group of state %s", u.Email, issue.State.Name)
	}

	if dryRun {
		ui.DryRunMsg("Would reassign %s to %s", shortID(issue.ID), u.Email)
		return nil
	}

	issue.ResponsibleID = &u.ID
	issue.ChangedAt = now
	if err := s.UpdateIssue(ctx, issue); err != nil {
		return fmt.Errorf("reassign issue: %w", err)
	}

	ui.Success("Reassigned %s to %s", shortID(issue.ID), output.Cyan(u.Email))
	return nil
}

func issueSuspendRun(ref string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := resolveIssue(ctx, s, ref)
	if err != nil {
		return err
	}
	actor, err := requireActor(ctx, s)
	if err != nil {
		return err
	}

	if issueUntil == "" {
		return fmt.Errorf("--until is required (YYYY-MM-DD)")
	}
	until, err := time.Parse("2006-01-02", issueUntil)
	if err != nil {
		return fmt.Errorf("invalid date: %s", issueUntil)
	}
	now := time.Now().UTC()
	if !until.After(now) {
		return fmt.Errorf("resume date must be in the future")
	}

	if ok, err := engine.CanPerform(actor, issue, engine.ActionSuspend, now); err != nil {
		return err
	} else if !ok {
		return deny("suspend " + shortID(issue.ID))
	}

	if dryRun {
		ui.DryRunMsg("Would suspend %s until %s", shortID(issue.ID), issueUntil)
		return nil
	}

	issue.ResumesAt = &until
	issue.ChangedAt = now
	if err := s.UpdateIssue(ctx, issue); err != nil {
		return fmt.Errorf("suspend issue: %w", err)
	}

	ui.Success("Suspended %s until %s", shortID(issue.ID), issueUntil)
	return nil
}

func issueResumeRun(ref string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := resolveIssue(ctx, s, ref)
	if err != nil {
		return err
	}
	actor, err := requireActor(ctx, s)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if ok, err := engine.CanPerform(actor, issue, engine.ActionResume, now); err != nil {
		return err
	} else if !ok {
		return deny("resume " + shortID(issue.ID))
	}

	if dryRun {
		ui.DryRunMsg("Would resume %s", shortID(issue.ID))
		return nil
	}

	issue.ResumesAt = nil
	issue.ChangedAt = now
	if err := s.UpdateIssue(ctx, issue); err != nil {
		return fmt.Errorf("resume issue: %w", err)
	}

	ui.Success("Resumed %s", shortID(issue.ID))
	return nil
}

func issueCommentRun(ref string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := resolveIssue(ctx, s, ref)
	if err != nil {
		return err
	}
	actor, err := requireActor(ctx, s)
	if err != nil {
		return err
	}

	action := engine.ActionAddPublicComment
	if issuePrivate {
		action = engine.ActionAddPrivateComment
	}

	now := time.Now().UTC()
	if ok, err := engine.CanPerform(actor, issue, action, now); err != nil {
		return err
	} else if !ok {
		return deny("comment on " + shortID(issue.ID))
	}

	if dryRun {
		ui.DryRunMsg("Would record comment on %s", shortID(issue.ID))
		return nil
	}

	// Comment bodies live outside trak; only the activity lands here.
	issue.ChangedAt = now
	if err := s.UpdateIssue(ctx, issue); err != nil {
		return fmt.Errorf("comment on issue: %w", err)
	}

	ui.Success("Comment recorded on %s", shortID(issue.ID))
	return nil
}

func issueLinkRun(ref, otherRef string, related bool) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := resolveIssue(ctx, s, ref)
	if err != nil {
		return err
	}
	other, err := resolveIssue(ctx, s, otherRef)
	if err != nil {
		return err
	}
	actor, err := requireActor(ctx, s)
	if err != nil {
		return err
	}

	var action engine.Action
	var kind string
	switch {
	case related && issueUnlink:
		action, kind = engine.ActionRemoveRelatedIssue, "related link"
	case related:
		action, kind = engine.ActionAddRelatedIssue, "related link"
	case issueUnlink:
		action, kind = engine.ActionRemoveDependency, "dependency"
	default:
		action, kind = engine.ActionAddDependency, "dependency"
	}

	now := time.Now().UTC()
	if ok, err := engine.CanPerform(actor, issue, action, now); err != nil {
		return err
	} else if !ok {
		return deny(fmt.Sprintf("manage %s of %s", kind, shortID(issue.ID)))
	}

	if dryRun {
		if issueUnlink {
			ui.DryRunMsg("Would remove %s: %s -> %s", kind, shortID(issue.ID), shortID(other.ID))
		} else {
			ui.DryRunMsg("Would add %s: %s -> %s", kind, shortID(issue.ID), shortID(other.ID))
		}
		return nil
	}

	if issueUnlink {
		err = s.UnlinkIssues(ctx, issue.ID, other.ID, related)
	} else {
		err = s.LinkIssues(ctx, issue.ID, other.ID, related)
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", kind, err)
	}

	if issueUnlink {
		ui.Success("Removed %s: %s -> %s", kind, shortID(issue.ID), shortID(other.ID))
	} else {
		ui.Success("Added %s: %s -> %s", kind, shortID(issue.ID), shortID(other.ID))
	}
	return nil
}

func issueRemoveRun(ref string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := resolveIssue(ctx, s, ref)
	if err != nil {
		return err
	}
	actor, err := requireActor(ctx, s)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if ok, err := engine.CanPerform(actor, issue, engine.ActionDelete, now); err != nil {
		return err
	} else if !ok {
		return deny("delete " + shortID(issue.ID))
	}

	if dryRun {
		ui.DryRunMsg("Would delete issue %s", shortID(issue.ID))
		return nil
	}

	if err := s.DeleteIssue(ctx, issue.ID); err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}

	ui.Success("Deleted issue %s", shortID(issue.ID))
	return nil
}

// memberOfAny reports whether the user belongs to at least one of the groups.
func memberOfAny(u *models.User, groups []*models.Group) bool {
	for _, g := range groups {
		if g.HasMember(u.ID) {
			return true
		}
	}
	return false
}
