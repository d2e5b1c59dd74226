// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unialerta/uce-tui/internal/assistant"
	"github.com/unialerta/uce-tui/internal/backend"
	"github.com/unialerta/uce-tui/internal/config"
	"github.com/unialerta/uce-tui/internal/location"
	"github.com/unialerta/uce-tui/internal/model"
	"github.com/unialerta/uce-tui/internal/notify"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

type fakeNotifyProvider struct {
	supported bool
	state     notify.PermissionState
	result    notify.PermissionState
}

func (f *fakeNotifyProvider) Supported() bool               { return f.supported }
func (f *fakeNotifyProvider) State() notify.PermissionState { return f.state }
func (f *fakeNotifyProvider) Request(ctx context.Context) (notify.PermissionState, error) {
	f.state = f.result
	return f.result, nil
}
func (f *fakeNotifyProvider) SetRequestResult(s notify.PermissionState) { f.result = s }

type memDismissal struct{ dismissed bool }

func (m *memDismissal) Dismissed() (bool, error)  { return m.dismissed, nil }
func (m *memDismissal) SetDismissed(v bool) error { m.dismissed = v; return nil }

// stubRepo satisfies backend.Repository and records created reports.
type stubRepo struct {
	created []backend.ReportInput
}

func (r *stubRepo) Login(ctx context.Context, creds backend.Credentials) (*backend.Session, error) {
	return &backend.Session{}, nil
}
func (r *stubRepo) GetProfile(ctx context.Context) (*model.Profile, error) { return nil, nil }
func (r *stubRepo) ChangeEmail(ctx context.Context, change backend.EmailChange) error {
	return nil
}
func (r *stubRepo) ListCategories(ctx context.Context) ([]model.Category, error) { return nil, nil }
func (r *stubRepo) ListReports(ctx context.Context, filter model.ReportFilter) ([]*model.Report, error) {
	return nil, nil
}
func (r *stubRepo) GetReport(ctx context.Context, id string) (*model.Report, error) {
	return nil, nil
}
func (r *stubRepo) CreateReport(ctx context.Context, input backend.ReportInput) (*model.Report, error) {
	r.created = append(r.created, input)
	return &model.Report{}, nil
}
func (r *stubRepo) UpdateReport(ctx context.Context, id string, input backend.ReportInput) (*model.Report, error) {
	return nil, nil
}
func (r *stubRepo) UpdateReportStatus(ctx context.Context, id string, status model.ReportStatus) (*model.Report, error) {
	return nil, nil
}
func (r *stubRepo) DeleteReport(ctx context.Context, id string) error { return nil }

// sseHandler streams the given tokens and finishes cleanly.
func sseHandler(tokens ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, tok := range tokens {
			fmt.Fprintf(w, "data: {\"delta\":{\"content\":%q}}\n\n", tok)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func newTestModel(t *testing.T, handler http.Handler) *Model {
	t.Helper()

	var client *assistant.Client
	if handler != nil {
		server := httptest.NewServer(handler)
		t.Cleanup(server.Close)

		cfg := config.Default()
		cfg.Assistant.BaseURL = server.URL
		cfg.Assistant.MaxRetries = 1
		client = assistant.NewClient(cfg)
	}

	m := New(Options{
		Assistant:   client,
		Provider:    &fakeNotifyProvider{supported: true, state: notify.StateDefault},
		Dismissal:   &memDismissal{},
		PromptDelay: 0,
	})
	m.ready = true
	return m
}

// runSend drives a full send: submit, stream to completion, apply the
// completion message.
func runSend(t *testing.T, m *Model, text string) {
	t.Helper()

	m.input.SetValue(text)
	cmd := m.send()
	require.NotNil(t, cmd)
	require.Equal(t, StateStreaming, m.state)

	// Streaming placeholder exists and is the only one.
	assert.Equal(t, 1, m.conversation.StreamingCount())

	msg := drainBatch(t, cmd)
	m.Update(msg)
}

// drainBatch runs a batched command tree and returns the stream
// completion message it produced.
func drainBatch(t *testing.T, cmd tea.Cmd) StreamCompleteMsg {
	t.Helper()

	queue := []tea.Cmd{cmd}
	deadline := time.After(5 * time.Second)
	for len(queue) > 0 {
		select {
		case <-deadline:
			t.Fatal("no StreamCompleteMsg produced")
		default:
		}

		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case tea.BatchMsg:
			for _, c := range msg {
				queue = append(queue, c)
			}
		case StreamCompleteMsg:
			return msg
		}
	}
	t.Fatal("no StreamCompleteMsg produced")
	return StreamCompleteMsg{}
}

// =============================================================================
// SEND / STREAM TESTS
// =============================================================================

func TestSendAccumulatesTokens(t *testing.T) {
	m := newTestModel(t, sseHandler("Hi", " there"))

	runSend(t, m, "Hola")

	require.Len(t, m.conversation.Messages, 2)
	reply := m.conversation.Messages[1]
	assert.Equal(t, "Hi there", reply.Content)
	assert.False(t, reply.IsStreaming)
	assert.Equal(t, StateReady, m.state)
	assert.Equal(t, 0, m.conversation.StreamingCount())
}

func TestSendWhileStreamingIsNoOp(t *testing.T) {
	m := newTestModel(t, sseHandler("x"))
	m.state = StateStreaming

	m.input.SetValue("segunda pregunta")
	assert.Nil(t, m.send())
	assert.Equal(t, "segunda pregunta", m.input.Value(), "input must survive the ignored submit")
}

func TestSendEmptyInputIsNoOp(t *testing.T) {
	m := newTestModel(t, sseHandler("x"))
	m.input.SetValue("   \n  ")
	assert.Nil(t, m.send())
	assert.Empty(t, m.conversation.Messages)
}

func TestSendWithoutClientShowsToast(t *testing.T) {
	m := newTestModel(t, nil)
	m.input.SetValue("hola")
	assert.Nil(t, m.send())
	assert.NotEmpty(t, m.toasts.Active())
}

func TestStreamErrorPreservesPartialContent(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"delta\":{\"content\":\"parcial\"}}\n\n")
		fmt.Fprint(w, "event: error\ndata: {\"code\":\"upstream\",\"message\":\"boom\"}\n\n")
	}
	m := newTestModel(t, http.HandlerFunc(handler))

	runSend(t, m, "Hola")

	require.Len(t, m.conversation.Messages, 2)
	reply := m.conversation.Messages[1]
	assert.Equal(t, "parcial", reply.Content)
	assert.False(t, reply.IsStreaming)
	assert.Equal(t, StateError, m.state)
	assert.NotEmpty(t, m.toasts.Active())
}

func TestStreamActionAttachesToLatestMessage(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"delta\":{\"content\":\"Puedo crear el reporte.\"}}\n\n")
		fmt.Fprint(w, "event: action\ndata: {\"kind\":\"create_report\",\"label\":\"Crear reporte\",\"params\":{\"title\":\"Fuga de agua\"}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
	m := newTestModel(t, http.HandlerFunc(handler))

	runSend(t, m, "Hay una fuga")

	require.NotNil(t, m.conversation.Pending)
	assert.Equal(t, model.ActionCreateReport, m.conversation.Pending.Kind)
	assert.Equal(t, m.conversation.Messages[1].ID, m.conversation.Pending.MessageID)
}

// =============================================================================
// STOP TESTS
// =============================================================================

func TestStopIsTerminalImmediately(t *testing.T) {
	m := newTestModel(t, nil)
	m.conversation.AddUserMessage("hola")
	m.conversation.AddAssistantMessage()
	m.conversation.AppendToLast("respuesta a ")
	m.buffer.Write("medias")
	m.state = StateStreaming
	m.generation = 1

	cancelled := false
	m.cancelMgr.set(func() { cancelled = true })

	m.stop()

	// Terminal on this very update cycle: no waiting on the goroutine.
	assert.True(t, cancelled)
	assert.Equal(t, StateReady, m.state)
	assert.Equal(t, 0, m.conversation.StreamingCount())
	assert.Equal(t, "respuesta a medias", m.conversation.Messages[1].Content)
}

func TestLateCompletionAfterStopIsDropped(t *testing.T) {
	m := newTestModel(t, nil)
	m.conversation.AddUserMessage("hola")
	m.conversation.AddAssistantMessage()
	m.state = StateStreaming
	m.generation = 1
	m.cancelMgr.set(func() {})

	m.stop()
	contentAfterStop := m.conversation.Messages[1].Content

	// The cancelled goroutine reports in with the old generation.
	m.Update(StreamCompleteMsg{Generation: 1, Error: context.Canceled})

	assert.Equal(t, StateReady, m.state)
	assert.Equal(t, contentAfterStop, m.conversation.Messages[1].Content)
	assert.Empty(t, m.toasts.Active(), "a stopped stream is not an error")
}

func TestStopWhenIdleIsNoOp(t *testing.T) {
	m := newTestModel(t, nil)
	m.stop()
	assert.Equal(t, StateReady, m.state)
}

// =============================================================================
// PERMISSION PROMPT TESTS
// =============================================================================

func TestPermissionPromptShowsWithZeroDelay(t *testing.T) {
	m := newTestModel(t, nil)
	m.prompt.Begin(time.Now())

	m.Update(PermissionTickMsg{Time: time.Now()})
	assert.True(t, m.permPrompt.IsVisible())
}

func TestPermissionPromptNeverShowsWhenGranted(t *testing.T) {
	m := New(Options{
		Provider:  &fakeNotifyProvider{supported: true, state: notify.StateGranted},
		Dismissal: &memDismissal{},
	})
	m.ready = true
	m.prompt.Begin(time.Now())

	m.Update(PermissionTickMsg{Time: time.Now()})
	assert.False(t, m.permPrompt.IsVisible())
	assert.Equal(t, notify.PhaseGranted, m.prompt.Phase())
}

func TestPermissionAllowFlow(t *testing.T) {
	provider := &fakeNotifyProvider{supported: true, state: notify.StateDefault}
	m := New(Options{Provider: provider, Dismissal: &memDismissal{}})
	m.ready = true
	m.prompt.Begin(time.Now())
	m.Update(PermissionTickMsg{Time: time.Now()})
	require.True(t, m.permPrompt.IsVisible())

	// y selects Allow on the prompt, which emits the response message.
	cmd, handled := m.permPrompt.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	require.True(t, handled)
	m.Update(cmd())

	assert.Equal(t, notify.PhaseGranted, m.prompt.Phase())
	assert.Equal(t, notify.StateGranted, provider.State())
}

func TestPermissionDismissPersists(t *testing.T) {
	store := &memDismissal{}
	m := New(Options{
		Provider:  &fakeNotifyProvider{supported: true, state: notify.StateDefault},
		Dismissal: store,
	})
	m.ready = true
	m.prompt.Begin(time.Now())
	m.Update(PermissionTickMsg{Time: time.Now()})

	cmd, _ := m.permPrompt.Update(tea.KeyMsg{Type: tea.KeyEscape})
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.Equal(t, notify.PhaseDismissed, m.prompt.Phase())
	assert.True(t, store.dismissed)
}

func TestEscapeDismissesVisiblePrompt(t *testing.T) {
	// A visible prompt owns the keyboard, so Esc must reach it and
	// dismiss, not fall through to the chat escape handling.
	store := &memDismissal{}
	m := New(Options{
		Provider:  &fakeNotifyProvider{supported: true, state: notify.StateDefault},
		Dismissal: store,
	})
	m.ready = true
	m.prompt.Begin(time.Now())
	m.Update(PermissionTickMsg{Time: time.Now()})
	require.True(t, m.permPrompt.IsVisible())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.False(t, m.permPrompt.IsVisible())
	assert.Equal(t, notify.PhaseDismissed, m.prompt.Phase())
	assert.True(t, store.dismissed)
	assert.Equal(t, StateReady, m.state)
}

// =============================================================================
// ACTION / FILTER TESTS
// =============================================================================

func TestExecuteActionWithoutPendingIsNoOp(t *testing.T) {
	m := newTestModel(t, nil)
	assert.Nil(t, m.executeAction())
}

func TestExecuteActionInjectsLastKnownPosition(t *testing.T) {
	repo := &stubRepo{}
	m := newTestModel(t, nil)
	m.opts.Repo = repo
	m.lastPosition = &location.Position{Latitude: -0.1987, Longitude: -78.5034}

	m.conversation.AddUserMessage("Reporta una fuga")
	m.conversation.AddAssistantMessage()
	m.conversation.FinalizeLast()
	msgID := m.conversation.GetLastMessage().ID
	action := model.NewPendingAction(model.ActionCreateReport, "Crear reporte",
		map[string]string{"title": "Fuga de agua"}, msgID)
	m.conversation.SetPending(action)

	cmd := m.executeAction()
	require.NotNil(t, cmd)

	assert.Equal(t, "-0.198700", action.Param("latitude"))
	assert.Equal(t, "-78.503400", action.Param("longitude"))
	assert.Nil(t, m.conversation.Pending)
}

func TestFilterAppliedFromActionResult(t *testing.T) {
	m := newTestModel(t, nil)
	action := model.NewPendingAction(model.ActionOpenFilter, "Ver pendientes",
		map[string]string{"filter": "pending-public"}, "msg_1")

	m.Update(ActionResultMsg{Action: action, Filter: model.FilterPendingPublic, Applied: true})
	assert.Equal(t, model.FilterPendingPublic, m.filterBar.Active())
}

func TestActionValidationErrorShowsToast(t *testing.T) {
	m := newTestModel(t, nil)
	action := model.NewPendingAction(model.ActionCreateReport, "Crear", nil, "msg_1")

	m.Update(ActionResultMsg{
		Action: action,
		Error:  backend.ValidationErrors{{Field: "title", Message: "obligatorio"}},
	})
	require.NotEmpty(t, m.toasts.Active())
}
