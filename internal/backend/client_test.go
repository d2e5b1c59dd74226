// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unialerta/uce-tui/internal/config"
	"github.com/unialerta/uce-tui/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Backend.BaseURL = srv.URL
	return NewClient(cfg)
}

func TestLoginInstallsToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/auth/login", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "admin@uce.edu.ec", body["email"])
		assert.Equal(t, "654321", body["totp_code"])

		json.NewEncoder(w).Encode(map[string]any{
			"token": "tok-123",
			"profile": map[string]any{
				"id": "u1", "name": "Ana", "email": "admin@uce.edu.ec", "role": "admin",
			},
		})
	}))

	session, err := client.Login(context.Background(), Credentials{
		Email:    "admin@uce.edu.ec",
		Password: "secreta123",
		TOTPCode: "654321",
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-123", session.Token)
	assert.Equal(t, "Ana", session.Profile.Name)
	assert.Equal(t, "tok-123", client.bearerToken())
}

func TestValidationRunsBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	_, err := client.Login(context.Background(), Credentials{Email: "bad"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = client.CreateReport(context.Background(), ReportInput{})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	err = client.ChangeEmail(context.Background(), EmailChange{NewEmail: "bad"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	assert.Equal(t, int32(0), calls.Load(), "invalid payloads must never reach the wire")
}

func TestChangeEmailIsSingleAtomicCall(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/account/email", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "nuevo@uce.edu.ec", body["new_email"])
		assert.NotEmpty(t, body["password"])
		w.WriteHeader(http.StatusNoContent)
	}))

	err := client.ChangeEmail(context.Background(), EmailChange{
		NewEmail: "nuevo@uce.edu.ec",
		Password: "secreta123",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestChangeEmailRejectedLeavesNoPartialState(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "password mismatch"},
		})
	}))

	err := client.ChangeEmail(context.Background(), EmailChange{
		NewEmail: "nuevo@uce.edu.ec",
		Password: "secreta123",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "password mismatch")
}

func TestListReportsFilterQuery(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pending-public", r.URL.Query().Get("filter"))
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "r1", "title": "Luz dañada", "status": "pending", "visibility": "public"},
		})
	}))

	reports, err := client.ListReports(context.Background(), model.FilterPendingPublic)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, model.StatusPending, reports[0].Status)
}

func TestListReportsAllOmitsFilter(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("filter"))
		json.NewEncoder(w).Encode([]map[string]any{})
	}))

	_, err := client.ListReports(context.Background(), model.FilterAll)
	require.NoError(t, err)
}

func TestBearerTokenSentAfterLogin(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-9", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"id": "u1", "name": "Ana"})
	}))
	client.SetToken("tok-9")

	_, err := client.GetProfile(context.Background())
	require.NoError(t, err)
}

func TestUpdateReportStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/reports/r1/status", r.URL.Path)
		assert.Equal(t, http.MethodPatch, r.Method)
		json.NewEncoder(w).Encode(map[string]any{"id": "r1", "status": "in_progress"})
	}))

	report, err := client.UpdateReportStatus(context.Background(), "r1", model.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, report.Status)

	_, err = client.UpdateReportStatus(context.Background(), "r1", "bogus")
	assert.True(t, IsValidation(err))
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusInternalServerError, ErrServer},
		{http.StatusBadGateway, ErrServer},
	}

	for _, tt := range tests {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		_, err := client.GetProfile(context.Background())
		assert.ErrorIs(t, err, tt.sentinel, "status %d", tt.status)
		assert.False(t, IsValidation(err))
	}
}

func TestNetworkErrorSentinel(t *testing.T) {
	cfg := config.Default()
	// Closed port: connection refused.
	cfg.Backend.BaseURL = "http://127.0.0.1:1"
	client := NewClient(cfg)

	_, err := client.GetProfile(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestDeleteReport(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	require.NoError(t, client.DeleteReport(context.Background(), "r1"))
}
