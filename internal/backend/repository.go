// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend isolates the UCE REST API behind a repository
// interface. UI code depends on the interface only; the HTTP client
// and test fakes both implement it.
//
// Validation runs before any request leaves the process. Validation
// failures surface inline next to the offending field; network and
// server failures map onto a sentinel taxonomy and surface as toasts.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/unialerta/uce-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrUnauthorized = errors.New("session expired or invalid credentials")
	ErrForbidden    = errors.New("operation not allowed for this account")
	ErrNotFound     = errors.New("record not found on server")
	ErrConflict     = errors.New("record was modified concurrently")
	ErrServer       = errors.New("server error")
	ErrNetwork      = errors.New("network error")
)

// ValidationError is a pre-network field error shown inline.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates per-field failures.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = v.Error()
	}
	return strings.Join(parts, "; ")
}

// ByField returns the message for a field, or "".
func (e ValidationErrors) ByField(field string) string {
	for _, v := range e {
		if v.Field == field {
			return v.Message
		}
	}
	return ""
}

// IsValidation reports whether err is a validation failure, meaning it
// should render inline rather than as a toast.
func IsValidation(err error) bool {
	var single *ValidationError
	var multi ValidationErrors
	return errors.As(err, &single) || errors.As(err, &multi)
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Credentials is the login payload. TOTPCode is required only when
// the account has a second factor enrolled.
type Credentials struct {
	Email    string
	Password string
	TOTPCode string
}

// EmailChange is the atomic email-change payload. The server verifies
// the password (and TOTP when enrolled) and commits the new address in
// one unit; there is no intermediate state to roll back.
type EmailChange struct {
	NewEmail string
	Password string
	TOTPCode string
}

// ReportInput creates or updates a report.
type ReportInput struct {
	Title      string
	Body       string
	CategoryID string
	Visibility model.Visibility
	Latitude   float64
	Longitude  float64
}

// Session is a successful login.
type Session struct {
	Token   string
	Profile *model.Profile
}

// =============================================================================
// REPOSITORY INTERFACE
// =============================================================================

// Repository is the backend surface the client uses.
type Repository interface {
	// Login authenticates and returns a session token + profile.
	Login(ctx context.Context, creds Credentials) (*Session, error)

	// GetProfile returns the signed-in administrator.
	GetProfile(ctx context.Context) (*model.Profile, error)

	// ChangeEmail atomically updates the account email.
	ChangeEmail(ctx context.Context, change EmailChange) error

	// ListCategories returns the incident categories.
	ListCategories(ctx context.Context) ([]model.Category, error)

	// ListReports returns reports passing the filter.
	ListReports(ctx context.Context, filter model.ReportFilter) ([]*model.Report, error)

	// GetReport returns one report.
	GetReport(ctx context.Context, id string) (*model.Report, error)

	// CreateReport creates a report and returns it with server fields.
	CreateReport(ctx context.Context, input ReportInput) (*model.Report, error)

	// UpdateReport replaces a report's editable fields.
	UpdateReport(ctx context.Context, id string, input ReportInput) (*model.Report, error)

	// UpdateReportStatus transitions a report's workflow state.
	UpdateReportStatus(ctx context.Context, id string, status model.ReportStatus) (*model.Report, error)

	// DeleteReport removes a report.
	DeleteReport(ctx context.Context, id string) error
}
