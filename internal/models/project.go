package models

import "time"

// Project is the top-level container for templates and project-scoped groups.
type Project struct {
	ID          string
	Name        string
	Description string
	Suspended   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
