package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/trakgo/trak/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// boolToInt converts a bool to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Projects ---

func (s *SQLiteStore) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = newULID()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, description, suspended, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, boolToInt(p.Suspended), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *SQLiteStore) scanProject(row *sql.Row) (*models.Project, error) {
	p := &models.Project{}
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Suspended, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	p, err := s.scanProject(s.db.QueryRowContext(ctx,
		`SELECT id, name, description, suspended, created_at, updated_at
		FROM projects WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) GetProjectByName(ctx context.Context, name string) (*models.Project, error) {
	p, err := s.scanProject(s.db.QueryRowContext(ctx,
		`SELECT id, name, description, suspended, created_at, updated_at
		FROM projects WHERE name = ?`, name))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get project by name: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, suspended, created_at, updated_at
		FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p := &models.Project{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Suspended, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SQLiteStore) UpdateProject(ctx context.Context, p *models.Project) error {
	p.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, description = ?, suspended = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Description, boolToInt(p.Suspended), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// --- Groups ---

func (s *SQLiteStore) CreateGroup(ctx context.Context, g *models.Group) error {
	if g.ID == "" {
		g.ID = newULID()
	}
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO groups (id, project_id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.ProjectID, g.Name, g.Description, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

func (s *SQLiteStore) getGroupRow(ctx context.Context, query string, arg any) (*models.Group, error) {
	g := &models.Group{}
	var projectID sql.NullString
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&g.ID, &projectID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if projectID.Valid {
		g.ProjectID = &projectID.String
	}
	members, err := s.listGroupMembers(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	g.Members = members
	return g, nil
}

func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	g, err := s.getGroupRow(ctx,
		`SELECT id, project_id, name, description, created_at, updated_at FROM groups WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

func (s *SQLiteStore) GetGroupByName(ctx context.Context, name string) (*models.Group, error) {
	g, err := s.getGroupRow(ctx,
		`SELECT id, project_id, name, description, created_at, updated_at FROM groups WHERE name = ?`, name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group not found: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get group by name: %w", err)
	}
	return g, nil
}

// ListGroups returns the groups visible to a project: its own plus the
// global ones. An empty projectID lists every group.
func (s *SQLiteStore) ListGroups(ctx context.Context, projectID string) ([]*models.Group, error) {
	query := `SELECT id, project_id, name, description, created_at, updated_at FROM groups ORDER BY name`
	args := []any{}
	if projectID != "" {
		query = `SELECT id, project_id, name, description, created_at, updated_at
			FROM groups WHERE project_id = ? OR project_id IS NULL ORDER BY name`
		args = append(args, projectID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		g := &models.Group{}
		var pid sql.NullString
		if err := rows.Scan(&g.ID, &pid, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		if pid.Valid {
			g.ProjectID = &pid.String
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, g := range groups {
		members, err := s.listGroupMembers(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		g.Members = members
	}
	return groups, nil
}

func (s *SQLiteStore) DeleteGroup(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AddGroupMember(ctx context.Context, groupID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)`, groupID, userID)
	if err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	return nil
}

func (s *SQLiteStore) listGroupMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM group_members WHERE group_id = ? ORDER BY user_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

// --- Users ---

func (s *SQLiteStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = newULID()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, full_name, admin, disabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FullName, boolToInt(u.Admin), boolToInt(u.Disabled), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, admin, disabled, created_at, updated_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.FullName, &u.Admin, &u.Disabled, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, admin, disabled, created_at, updated_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.FullName, &u.Admin, &u.Disabled, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %s", email)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, full_name, admin, disabled, created_at, updated_at FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Admin, &u.Disabled, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET email = ?, full_name = ?, admin = ?, disabled = ?, updated_at = ? WHERE id = ?`,
		u.Email, u.FullName, boolToInt(u.Admin), boolToInt(u.Disabled), u.UpdatedAt, u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// --- Templates ---

func (s *SQLiteStore) CreateTemplate(ctx context.Context, t *models.Template) error {
	if t.ID == "" {
		t.ID = newULID()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO templates (id, project_id, name, prefix, description, locked, critical_age, frozen_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Name, t.Prefix, t.Description, boolToInt(t.Locked),
		t.CriticalAge, t.FrozenTime, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func (s *SQLiteStore) scanTemplate(row *sql.Row) (*models.Template, error) {
	t := &models.Template{}
	var criticalAge, frozenTime sql.NullInt64
	err := row.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Prefix, &t.Description,
		&t.Locked, &criticalAge, &frozenTime, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if criticalAge.Valid {
		v := int(criticalAge.Int64)
		t.CriticalAge = &v
	}
	if frozenTime.Valid {
		v := int(frozenTime.Int64)
		t.FrozenTime = &v
	}
	return t, nil
}

const templateColumns = `id, project_id, name, prefix, description, locked, critical_age, frozen_time, created_at, updated_at`

func (s *SQLiteStore) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	t, err := s.scanTemplate(s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("template not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) GetTemplateByName(ctx context.Context, projectID, name string) (*models.Template, error) {
	t := &models.Template{}
	var criticalAge, frozenTime sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE project_id = ? AND name = ?`, projectID, name).
		Scan(&t.ID, &t.ProjectID, &t.Name, &t.Prefix, &t.Description,
			&t.Locked, &criticalAge, &frozenTime, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("template not found: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get template by name: %w", err)
	}
	if criticalAge.Valid {
		v := int(criticalAge.Int64)
		t.CriticalAge = &v
	}
	if frozenTime.Valid {
		v := int(frozenTime.Int64)
		t.FrozenTime = &v
	}
	return t, nil
}

func (s *SQLiteStore) ListTemplates(ctx context.Context, projectID string) ([]*models.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates ORDER BY name`
	args := []any{}
	if projectID != "" {
		query = `SELECT ` + templateColumns + ` FROM templates WHERE project_id = ? ORDER BY name`
		args = append(args, projectID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.Template
	for rows.Next() {
		t := &models.Template{}
		var criticalAge, frozenTime sql.NullInt64
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Prefix, &t.Description,
			&t.Locked, &criticalAge, &frozenTime, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		if criticalAge.Valid {
			v := int(criticalAge.Int64)
			t.CriticalAge = &v
		}
		if frozenTime.Valid {
			v := int(frozenTime.Int64)
			t.FrozenTime = &v
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *SQLiteStore) UpdateTemplate(ctx context.Context, t *models.Template) error {
	t.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE templates SET name = ?, prefix = ?, description = ?, locked = ?, critical_age = ?, frozen_time = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.Prefix, t.Description, boolToInt(t.Locked), t.CriticalAge, t.FrozenTime, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteTemplate(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

// --- Template permission tables ---

func (s *SQLiteStore) SetRoleGrant(ctx context.Context, templateID string, role models.SystemRole, action models.TemplateAction, granted bool) error {
	var err error
	if granted {
		_, err = s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO template_role_grants (template_id, role, action) VALUES (?, ?, ?)`,
			templateID, string(role), string(action))
	} else {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM template_role_grants WHERE template_id = ? AND role = ? AND action = ?`,
			templateID, string(role), string(action))
	}
	if err != nil {
		return fmt.Errorf("set role grant: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SetGroupGrant(ctx context.Context, templateID, groupID string, action models.TemplateAction, granted bool) error {
	var err error
	if granted {
		_, err = s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO template_group_grants (template_id, group_id, action) VALUES (?, ?, ?)`,
			templateID, groupID, string(action))
	} else {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM template_group_grants WHERE template_id = ? AND group_id = ? AND action = ?`,
			templateID, groupID, string(action))
	}
	if err != nil {
		return fmt.Errorf("set group grant: %w", err)
	}
	return nil
}

// --- States ---

func (s *SQLiteStore) CreateState(ctx context.Context, st *models.State) error {
	if st.ID == "" {
		st.ID = newULID()
	}
	if st.Responsible == "" {
		st.Responsible = models.ResponsibleKeep
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO states (id, template_id, name, type, responsible) VALUES (?, ?, ?, ?, ?)`,
		st.ID, st.TemplateID, st.Name, string(st.Type), string(st.Responsible),
	)
	if err != nil {
		return fmt.Errorf("create state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetState(ctx context.Context, id string) (*models.State, error) {
	st := &models.State{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, template_id, name, type, responsible FROM states WHERE id = ?`, id).
		Scan(&st.ID, &st.TemplateID, &st.Name, &st.Type, &st.Responsible)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("state not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return st, nil
}

func (s *SQLiteStore) ListStates(ctx context.Context, templateID string) ([]*models.State, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, template_id, name, type, responsible FROM states WHERE template_id = ? ORDER BY name`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	defer rows.Close()

	var states []*models.State
	for rows.Next() {
		st := &models.State{}
		if err := rows.Scan(&st.ID, &st.TemplateID, &st.Name, &st.Type, &st.Responsible); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

func (s *SQLiteStore) UpdateState(ctx context.Context, st *models.State) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE states SET name = ?, type = ?, responsible = ? WHERE id = ?`,
		st.Name, string(st.Type), string(st.Responsible), st.ID,
	)
	if err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteState(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM states WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AddResponsibleGroup(ctx context.Context, stateID, groupID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO state_responsible_groups (state_id, group_id) VALUES (?, ?)`, stateID, groupID)
	if err != nil {
		return fmt.Errorf("add responsible group: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RemoveResponsibleGroup(ctx context.Context, stateID, groupID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM state_responsible_groups WHERE state_id = ? AND group_id = ?`, stateID, groupID)
	if err != nil {
		return fmt.Errorf("remove responsible group: %w", err)
	}
	return nil
}

// --- Transitions ---

func (s *SQLiteStore) CreateTransition(ctx context.Context, row *TransitionRow) error {
	if row.ID == "" {
		row.ID = newULID()
	}
	var role, groupID any
	if row.Role != nil {
		role = string(*row.Role)
	}
	if row.GroupID != nil {
		groupID = *row.GroupID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transitions (id, from_state_id, to_state_id, grantee_role, grantee_group_id)
		VALUES (?, ?, ?, ?, ?)`,
		row.ID, row.FromStateID, row.ToStateID, role, groupID,
	)
	if err != nil {
		return fmt.Errorf("create transition: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListTransitions(ctx context.Context, templateID string) ([]*TransitionRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.from_state_id, t.to_state_id, t.grantee_role, t.grantee_group_id
		FROM transitions t
		JOIN states f ON f.id = t.from_state_id
		WHERE f.template_id = ?`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var result []*TransitionRow
	for rows.Next() {
		tr := &TransitionRow{}
		var role, groupID sql.NullString
		if err := rows.Scan(&tr.ID, &tr.FromStateID, &tr.ToStateID, &role, &groupID); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if role.Valid {
			r := models.SystemRole(role.String)
			tr.Role = &r
		}
		if groupID.Valid {
			tr.GroupID = &groupID.String
		}
		result = append(result, tr)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) DeleteTransition(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transitions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transition: %w", err)
	}
	return nil
}

// --- Fields ---

func (s *SQLiteStore) CreateField(ctx context.Context, f *models.Field) error {
	if f.ID == "" {
		f.ID = newULID()
	}
	f.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fields (id, state_id, name, type, required, removed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.StateID, f.Name, string(f.Type), boolToInt(f.Required), f.RemovedAt, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create field: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListFields(ctx context.Context, stateID string) ([]*models.Field, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, state_id, name, type, required, removed_at, created_at
		FROM fields WHERE state_id = ? ORDER BY name`, stateID)
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	defer rows.Close()

	var fields []*models.Field
	for rows.Next() {
		f := &models.Field{}
		var removedAt sql.NullTime
		if err := rows.Scan(&f.ID, &f.StateID, &f.Name, &f.Type, &f.Required, &removedAt, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		if removedAt.Valid {
			f.RemovedAt = &removedAt.Time
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func (s *SQLiteStore) RemoveField(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE fields SET removed_at = ? WHERE id = ? AND removed_at IS NULL`, at, id)
	if err != nil {
		return fmt.Errorf("remove field: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SetFieldRoleGrant(ctx context.Context, fieldID string, role models.SystemRole, p models.FieldPermission) error {
	if p == models.FieldPermissionNone {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM field_role_grants WHERE field_id = ? AND role = ?`, fieldID, string(role))
		if err != nil {
			return fmt.Errorf("set field role grant: %w", err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO field_role_grants (field_id, role, permission) VALUES (?, ?, ?)
		ON CONFLICT (field_id, role) DO UPDATE SET permission = excluded.permission`,
		fieldID, string(role), p.String())
	if err != nil {
		return fmt.Errorf("set field role grant: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SetFieldGroupGrant(ctx context.Context, fieldID, groupID string, p models.FieldPermission) error {
	if p == models.FieldPermissionNone {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM field_group_grants WHERE field_id = ? AND group_id = ?`, fieldID, groupID)
		if err != nil {
			return fmt.Errorf("set field group grant: %w", err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO field_group_grants (field_id, group_id, permission) VALUES (?, ?, ?)
		ON CONFLICT (field_id, group_id) DO UPDATE SET permission = excluded.permission`,
		fieldID, groupID, p.String())
	if err != nil {
		return fmt.Errorf("set field group grant: %w", err)
	}
	return nil
}

// --- Issues ---

const issueColumns = `id, template_id, state_id, subject, author_id, responsible_id, origin_id, created_at, changed_at, closed_at, resumes_at`

func (s *SQLiteStore) CreateIssue(ctx context.Context, i *models.Issue) error {
	if i.ID == "" {
		i.ID = newULID()
	}
	now := time.Now().UTC()
	i.CreatedAt = now
	i.ChangedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO issues (`+issueColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.TemplateID, i.StateID, i.Subject, i.AuthorID, i.ResponsibleID, i.OriginID,
		i.CreatedAt, i.ChangedAt, i.ClosedAt, i.ResumesAt,
	)
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}
	return nil
}

func scanIssueRow(scan func(dest ...any) error) (*models.Issue, error) {
	i := &models.Issue{}
	var responsibleID, originID sql.NullString
	var closedAt, resumesAt sql.NullTime
	err := scan(&i.ID, &i.TemplateID, &i.StateID, &i.Subject, &i.AuthorID,
		&responsibleID, &originID, &i.CreatedAt, &i.ChangedAt, &closedAt, &resumesAt)
	if err != nil {
		return nil, err
	}
	if responsibleID.Valid {
		i.ResponsibleID = &responsibleID.String
	}
	if originID.Valid {
		i.OriginID = &originID.String
	}
	if closedAt.Valid {
		i.ClosedAt = &closedAt.Time
	}
	if resumesAt.Valid {
		i.ResumesAt = &resumesAt.Time
	}
	return i, nil
}

func (s *SQLiteStore) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
	i, err := scanIssueRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("issue not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}
	return i, nil
}

func (s *SQLiteStore) ListIssues(ctx context.Context, filter IssueFilter) ([]*models.Issue, error) {
	query := `SELECT i.` + issueColumnsAliased("i") + ` FROM issues i`
	var where []string
	var args []any

	if filter.ProjectID != "" {
		query += ` JOIN templates t ON t.id = i.template_id`
		where = append(where, "t.project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.TemplateID != "" {
		where = append(where, "i.template_id = ?")
		args = append(args, filter.TemplateID)
	}
	if filter.StateID != "" {
		where = append(where, "i.state_id = ?")
		args = append(args, filter.StateID)
	}
	if filter.AuthorID != "" {
		where = append(where, "i.author_id = ?")
		args = append(args, filter.AuthorID)
	}
	if filter.ResponsibleID != "" {
		where = append(where, "i.responsible_id = ?")
		args = append(args, filter.ResponsibleID)
	}

	for n, cond := range where {
		if n == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY i.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	var issues []*models.Issue
	for rows.Next() {
		i, err := scanIssueRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, i)
	}
	return issues, rows.Err()
}

func (s *SQLiteStore) UpdateIssue(ctx context.Context, i *models.Issue) error {
	i.ChangedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE issues SET state_id = ?, subject = ?, responsible_id = ?, changed_at = ?, closed_at = ?, resumes_at = ?
		WHERE id = ?`,
		i.StateID, i.Subject, i.ResponsibleID, i.ChangedAt, i.ClosedAt, i.ResumesAt, i.ID,
	)
	if err != nil {
		return fmt.Errorf("update issue: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteIssue(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM issues WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LinkIssues(ctx context.Context, issueID, targetID string, related bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO issue_links (issue_id, target_id, related) VALUES (?, ?, ?)`,
		issueID, targetID, boolToInt(related))
	if err != nil {
		return fmt.Errorf("link issues: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UnlinkIssues(ctx context.Context, issueID, targetID string, related bool) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM issue_links WHERE issue_id = ? AND target_id = ? AND related = ?`,
		issueID, targetID, boolToInt(related))
	if err != nil {
		return fmt.Errorf("unlink issues: %w", err)
	}
	return nil
}

// issueColumnsAliased prefixes each issue column with a table alias.
func issueColumnsAliased(alias string) string {
	return `id, ` + alias + `.template_id, ` + alias + `.state_id, ` + alias + `.subject, ` +
		alias + `.author_id, ` + alias + `.responsible_id, ` + alias + `.origin_id, ` +
		alias + `.created_at, ` + alias + `.changed_at, ` + alias + `.closed_at, ` + alias + `.resumes_at`
}
