// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"strings"
	"unicode/utf8"

	"github.com/unialerta/uce-tui/internal/model"
)

// Field limits.
const (
	maxTitleRunes = 120
	maxBodyRunes  = 4000
	minPassword   = 8
)

// =============================================================================
// VALIDATORS
// =============================================================================

// validateEmail checks a plausible address shape. The server does the
// authoritative check; this only catches obvious typos before a round
// trip.
func validateEmail(field, email string) *ValidationError {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: field, Message: "email is required"}
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return &ValidationError{Field: field, Message: "email address is not valid"}
	}
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.Contains(email, " ") {
		return &ValidationError{Field: field, Message: "email address is not valid"}
	}
	return nil
}

// ValidateCredentials checks a login payload.
func ValidateCredentials(creds Credentials) error {
	var errs ValidationErrors
	if err := validateEmail("email", creds.Email); err != nil {
		errs = append(errs, err)
	}
	if creds.Password == "" {
		errs = append(errs, &ValidationError{Field: "password", Message: "password is required"})
	}
	if creds.TOTPCode != "" && !isDigits(creds.TOTPCode, 6) {
		errs = append(errs, &ValidationError{Field: "totp_code", Message: "code must be 6 digits"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateEmailChange checks an email-change payload.
func ValidateEmailChange(change EmailChange) error {
	var errs ValidationErrors
	if err := validateEmail("new_email", change.NewEmail); err != nil {
		errs = append(errs, err)
	}
	if len(change.Password) < minPassword {
		errs = append(errs, &ValidationError{Field: "password", Message: "password confirmation is required"})
	}
	if change.TOTPCode != "" && !isDigits(change.TOTPCode, 6) {
		errs = append(errs, &ValidationError{Field: "totp_code", Message: "code must be 6 digits"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateReportInput checks a report create/update payload.
func ValidateReportInput(input ReportInput) error {
	var errs ValidationErrors

	title := strings.TrimSpace(input.Title)
	if title == "" {
		errs = append(errs, &ValidationError{Field: "title", Message: "title is required"})
	} else if utf8.RuneCountInString(title) > maxTitleRunes {
		errs = append(errs, &ValidationError{Field: "title", Message: "title is too long"})
	}

	if utf8.RuneCountInString(input.Body) > maxBodyRunes {
		errs = append(errs, &ValidationError{Field: "body", Message: "description is too long"})
	}

	if strings.TrimSpace(input.CategoryID) == "" {
		errs = append(errs, &ValidationError{Field: "category_id", Message: "category is required"})
	}

	if !input.Visibility.Valid() {
		errs = append(errs, &ValidationError{Field: "visibility", Message: "visibility must be public or private"})
	}

	if input.Latitude < -90 || input.Latitude > 90 {
		errs = append(errs, &ValidationError{Field: "latitude", Message: "latitude out of range"})
	}
	if input.Longitude < -180 || input.Longitude > 180 {
		errs = append(errs, &ValidationError{Field: "longitude", Message: "longitude out of range"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateStatus checks a workflow transition target.
func ValidateStatus(status model.ReportStatus) error {
	if !status.Valid() {
		return &ValidationError{Field: "status", Message: "unknown report status"}
	}
	return nil
}

// isDigits reports whether s is exactly n ASCII digits.
func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
