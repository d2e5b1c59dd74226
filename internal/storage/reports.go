// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/unialerta/uce-tui/internal/model"
	"github.com/unialerta/uce-tui/internal/util"
)

// =============================================================================
// REPORT CACHE
// =============================================================================

// UpsertReports stores or refreshes cached reports. The search key is
// precomputed so lookups stay accent-insensitive without scanning.
func (s *Store) UpsertReports(reports []*model.Report) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	for _, r := range reports {
		searchKey := util.SearchKey(r.Title + " " + r.Body)
		_, err := tx.Exec(`
			INSERT INTO reports
				(id, title, body, category_id, status, visibility,
				 latitude, longitude, reporter_id, search_key, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				body = excluded.body,
				category_id = excluded.category_id,
				status = excluded.status,
				visibility = excluded.visibility,
				latitude = excluded.latitude,
				longitude = excluded.longitude,
				reporter_id = excluded.reporter_id,
				search_key = excluded.search_key,
				updated_at = excluded.updated_at
		`, r.ID, r.Title, r.Body, r.CategoryID, string(r.Status), string(r.Visibility),
			r.Latitude, r.Longitude, r.ReporterID, searchKey,
			r.CreatedAt.Unix(), r.UpdatedAt.Unix())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}
	return tx.Commit()
}

// ListReports returns cached reports passing the filter, newest first.
func (s *Store) ListReports(filter model.ReportFilter) ([]*model.Report, error) {
	rows, err := s.db.Query(`
		SELECT id, title, body, category_id, status, visibility,
			latitude, longitude, reporter_id, created_at, updated_at
		FROM reports ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var reports []*model.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		if filter.Matches(r) {
			reports = append(reports, r)
		}
	}
	return reports, rows.Err()
}

// SearchReports returns cached reports whose title or body matches the
// query accent-insensitively, within the given filter.
func (s *Store) SearchReports(filter model.ReportFilter, query string) ([]*model.Report, error) {
	key := util.SearchKey(strings.TrimSpace(query))
	if key == "" {
		return s.ListReports(filter)
	}

	rows, err := s.db.Query(`
		SELECT id, title, body, category_id, status, visibility,
			latitude, longitude, reporter_id, created_at, updated_at
		FROM reports WHERE search_key LIKE ? ORDER BY created_at DESC
	`, "%"+key+"%")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var reports []*model.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		if filter.Matches(r) {
			reports = append(reports, r)
		}
	}
	return reports, rows.Err()
}

// DeleteReport removes a cached report.
func (s *Store) DeleteReport(id string) error {
	result, err := s.db.Exec("DELETE FROM reports WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*model.Report, error) {
	var r model.Report
	var status, visibility string
	var createdAt, updatedAt int64
	err := row.Scan(&r.ID, &r.Title, &r.Body, &r.CategoryID, &status, &visibility,
		&r.Latitude, &r.Longitude, &r.ReporterID, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	r.Status = model.ReportStatus(status)
	r.Visibility = model.Visibility(visibility)
	r.CreatedAt = time.Unix(createdAt, 0)
	r.UpdatedAt = time.Unix(updatedAt, 0)
	return &r, nil
}

// =============================================================================
// CATEGORY CACHE
// =============================================================================

// UpsertCategories stores or refreshes cached categories.
func (s *Store) UpsertCategories(categories []model.Category) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	for _, c := range categories {
		_, err := tx.Exec(`
			INSERT INTO categories (id, name, icon) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, icon = excluded.icon
		`, c.ID, c.Name, c.Icon)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}
	return tx.Commit()
}

// ListCategories returns cached categories sorted by name.
func (s *Store) ListCategories() ([]model.Category, error) {
	rows, err := s.db.Query("SELECT id, name, icon FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
