// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// REPORT STATUS AND VISIBILITY
// =============================================================================

// ReportStatus is the workflow state of an incident report.
type ReportStatus string

const (
	StatusPending    ReportStatus = "pending"
	StatusInProgress ReportStatus = "in_progress"
	StatusResolved   ReportStatus = "resolved"
	StatusRejected   ReportStatus = "rejected"
)

// Valid reports whether the status is one of the known values.
func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// DisplayName returns a human-readable status label.
func (s ReportStatus) DisplayName() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In progress"
	case StatusResolved:
		return "Resolved"
	case StatusRejected:
		return "Rejected"
	default:
		return string(s)
	}
}

// Visibility controls who can see a report.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether the visibility is one of the known values.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// =============================================================================
// REPORT FILTER
// =============================================================================

// ReportFilter selects which reports the admin list shows. The set is
// closed; ParseReportFilter rejects anything else.
type ReportFilter string

const (
	FilterAll               ReportFilter = "all"
	FilterPendingPublic     ReportFilter = "pending-public"
	FilterInProgressPublic  ReportFilter = "in-progress-public"
	FilterPendingPrivate    ReportFilter = "pending-private"
	FilterInProgressPrivate ReportFilter = "in-progress-private"
)

// ErrUnknownFilter is returned for strings outside the filter set.
var ErrUnknownFilter = errors.New("unknown report filter")

// AllFilters lists every filter in display order.
func AllFilters() []ReportFilter {
	return []ReportFilter{
		FilterAll,
		FilterPendingPublic,
		FilterInProgressPublic,
		FilterPendingPrivate,
		FilterInProgressPrivate,
	}
}

// ParseReportFilter parses a filter string. The zero value ("") maps
// to FilterAll.
func ParseReportFilter(s string) (ReportFilter, error) {
	switch ReportFilter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterPendingPublic, FilterInProgressPublic, FilterPendingPrivate, FilterInProgressPrivate:
		return ReportFilter(s), nil
	}
	return FilterAll, ErrUnknownFilter
}

// Valid reports whether the filter is a member of the closed set.
func (f ReportFilter) Valid() bool {
	for _, cur := range AllFilters() {
		if cur == f {
			return true
		}
	}
	return false
}

// Next cycles to the following filter, wrapping around.
func (f ReportFilter) Next() ReportFilter {
	filters := AllFilters()
	for i, cur := range filters {
		if cur == f {
			return filters[(i+1)%len(filters)]
		}
	}
	return FilterAll
}

// DisplayName returns a human-readable filter label.
func (f ReportFilter) DisplayName() string {
	switch f {
	case FilterAll:
		return "All reports"
	case FilterPendingPublic:
		return "Pending / public"
	case FilterInProgressPublic:
		return "In progress / public"
	case FilterPendingPrivate:
		return "Pending / private"
	case FilterInProgressPrivate:
		return "In progress / private"
	default:
		return string(f)
	}
}

// Matches reports whether a report passes the filter.
func (f ReportFilter) Matches(r *Report) bool {
	switch f {
	case FilterAll:
		return true
	case FilterPendingPublic:
		return r.Status == StatusPending && r.Visibility == VisibilityPublic
	case FilterInProgressPublic:
		return r.Status == StatusInProgress && r.Visibility == VisibilityPublic
	case FilterPendingPrivate:
		return r.Status == StatusPending && r.Visibility == VisibilityPrivate
	case FilterInProgressPrivate:
		return r.Status == StatusInProgress && r.Visibility == VisibilityPrivate
	}
	return false
}

// =============================================================================
// DOMAIN RECORDS
// =============================================================================

// Report is a campus incident report.
type Report struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Body       string       `json:"body"`
	CategoryID string       `json:"category_id"`
	Status     ReportStatus `json:"status"`
	Visibility Visibility   `json:"visibility"`
	Latitude   float64      `json:"latitude,omitempty"`
	Longitude  float64      `json:"longitude,omitempty"`
	ReporterID string       `json:"reporter_id,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// NewReport creates a pending report with a fresh ID.
func NewReport(title, body, categoryID string, visibility Visibility) *Report {
	now := time.Now()
	return &Report{
		ID:         uuid.New().String(),
		Title:      title,
		Body:       body,
		CategoryID: categoryID,
		Status:     StatusPending,
		Visibility: visibility,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Category is an incident category (lighting, security, maintenance...).
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// Profile is the signed-in administrator.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CampusID  string    `json:"campus_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
