// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/time/rate"

	"github.com/unialerta/uce-tui/internal/config"
	"github.com/unialerta/uce-tui/internal/model"
)

// maxResponseSize limits response bodies (4MB).
const maxResponseSize = 4 * 1024 * 1024

// =============================================================================
// HTTP CLIENT
// =============================================================================

// Client is the HTTP implementation of Repository.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// limiter smooths bursts from the UI: 10 requests/sec sustained,
	// burst of 20.
	limiter *rate.Limiter

	mu    sync.RWMutex
	token string
}

var _ Repository = (*Client)(nil)

// NewClient creates a backend client from configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.Backend.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.BackendTimeout(),
		},
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

// WithHTTPClient replaces the underlying HTTP client. Used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// SetToken installs the bearer token after login.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// bearerToken returns the current token.
func (c *Client) bearerToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Login authenticates and installs the session token on success.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	if err := ValidateCredentials(creds); err != nil {
		return nil, err
	}

	body := map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	}
	if creds.TOTPCode != "" {
		body["totp_code"] = creds.TOTPCode
	}

	var out struct {
		Token   string        `json:"token"`
		Profile model.Profile `json:"profile"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", body, &out); err != nil {
		return nil, err
	}

	c.SetToken(out.Token)
	return &Session{Token: out.Token, Profile: &out.Profile}, nil
}

// GetProfile returns the signed-in administrator.
func (c *Client) GetProfile(ctx context.Context) (*model.Profile, error) {
	var profile model.Profile
	if err := c.do(ctx, http.MethodGet, "/v1/account/profile", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ChangeEmail atomically updates the account email. One endpoint, one
// commit on the server; a failure leaves the old address untouched.
func (c *Client) ChangeEmail(ctx context.Context, change EmailChange) error {
	if err := ValidateEmailChange(change); err != nil {
		return err
	}

	body := map[string]string{
		"new_email": change.NewEmail,
		"password":  change.Password,
	}
	if change.TOTPCode != "" {
		body["totp_code"] = change.TOTPCode
	}
	return c.do(ctx, http.MethodPost, "/v1/account/email", body, nil)
}

// ListCategories returns the incident categories.
func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := c.do(ctx, http.MethodGet, "/v1/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ListReports returns reports passing the filter.
func (c *Client) ListReports(ctx context.Context, filter model.ReportFilter) ([]*model.Report, error) {
	path := "/v1/reports"
	if filter != model.FilterAll && filter != "" {
		path += "?filter=" + url.QueryEscape(string(filter))
	}

	var reports []*model.Report
	if err := c.do(ctx, http.MethodGet, path, nil, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// GetReport returns one report.
func (c *Client) GetReport(ctx context.Context, id string) (*model.Report, error) {
	var report model.Report
	if err := c.do(ctx, http.MethodGet, "/v1/reports/"+url.PathEscape(id), nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// CreateReport creates a report.
func (c *Client) CreateReport(ctx context.Context, input ReportInput) (*model.Report, error) {
	if err := ValidateReportInput(input); err != nil {
		return nil, err
	}

	var report model.Report
	if err := c.do(ctx, http.MethodPost, "/v1/reports", reportBody(input), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// UpdateReport replaces a report's editable fields.
func (c *Client) UpdateReport(ctx context.Context, id string, input ReportInput) (*model.Report, error) {
	if err := ValidateReportInput(input); err != nil {
		return nil, err
	}

	var report model.Report
	if err := c.do(ctx, http.MethodPut, "/v1/reports/"+url.PathEscape(id), reportBody(input), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// UpdateReportStatus transitions a report's workflow state.
func (c *Client) UpdateReportStatus(ctx context.Context, id string, status model.ReportStatus) (*model.Report, error) {
	if err := ValidateStatus(status); err != nil {
		return nil, err
	}

	body := map[string]string{"status": string(status)}
	var report model.Report
	if err := c.do(ctx, http.MethodPatch, "/v1/reports/"+url.PathEscape(id)+"/status", body, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// DeleteReport removes a report.
func (c *Client) DeleteReport(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/reports/"+url.PathEscape(id), nil, nil)
}

// reportBody builds the wire payload for create/update.
func reportBody(input ReportInput) map[string]any {
	return map[string]any{
		"title":       input.Title,
		"body":        input.Body,
		"category_id": input.CategoryID,
		"visibility":  string(input.Visibility),
		"latitude":    input.Latitude,
		"longitude":   input.Longitude,
	}
}

// =============================================================================
// TRANSPORT
// =============================================================================

// do issues a request and decodes the response into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearerToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// statusError maps an HTTP status to the sentinel taxonomy, carrying
// the server message when one is present.
func statusError(resp *http.Response) error {
	var sentinel error
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		sentinel = ErrForbidden
	case resp.StatusCode == http.StatusNotFound:
		sentinel = ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		sentinel = ErrConflict
	case resp.StatusCode >= 500:
		sentinel = ErrServer
	default:
		sentinel = ErrServer
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	var wire struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &wire); err == nil && wire.Error.Message != "" {
		return fmt.Errorf("%w: %s", sentinel, wire.Error.Message)
	}
	return fmt.Errorf("%w: status %d", sentinel, resp.StatusCode)
}
