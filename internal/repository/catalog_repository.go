package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/studio-class-booking/internal/model"
)

// CatalogRepo serves the read-only browse side of the catalog:
// activities and instructors.  Both tables are provisioned out of
// band and never written by this service, so plain reads without
// synchronization are safe.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo returns a CatalogRepo bound to the given database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// ListActivities returns all activities ordered by name.
func (r *CatalogRepo) ListActivities(ctx context.Context) ([]model.Activity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description FROM activities ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []model.Activity
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.ID, &a.Name, &a.Description); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListInstructors returns all instructors ordered by name.
func (r *CatalogRepo) ListInstructors(ctx context.Context) ([]model.Instructor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, bio FROM instructors ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	defer rows.Close()

	var out []model.Instructor
	for rows.Next() {
		var i model.Instructor
		if err := rows.Scan(&i.ID, &i.Name, &i.Bio); err != nil {
			return nil, fmt.Errorf("scan instructor: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}
