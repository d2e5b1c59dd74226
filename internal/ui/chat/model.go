// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/unialerta/uce-tui/internal/assistant"
	"github.com/unialerta/uce-tui/internal/backend"
	"github.com/unialerta/uce-tui/internal/location"
	"github.com/unialerta/uce-tui/internal/model"
	"github.com/unialerta/uce-tui/internal/notify"
	"github.com/unialerta/uce-tui/internal/storage"
	"github.com/unialerta/uce-tui/internal/ui/components"
	"github.com/unialerta/uce-tui/internal/ui/styles"
	"github.com/unialerta/uce-tui/internal/util"
)

// =============================================================================
// STATE
// =============================================================================

// State is the chat view's top-level mode.
type State int

const (
	// StateReady accepts input.
	StateReady State = iota
	// StateStreaming has a response in flight.
	StateStreaming
	// StateError shows the last failure until dismissed or a new send.
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateError:
		return "error"
	default:
		return "ready"
	}
}

// sendBurst throttles rapid-fire submits. Two quick sends are fine;
// holding enter is not.
var sendLimit = rate.Every(300 * time.Millisecond)

// resultPrimer is implemented by providers whose permission outcome is
// decided in-app rather than by an OS dialog.
type resultPrimer interface {
	SetRequestResult(notify.PermissionState)
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options wires the chat view's collaborators.
type Options struct {
	Assistant *assistant.Client
	Repo      backend.Repository
	Store     *storage.Store

	Conversation *model.Conversation
	Profile      *model.Profile

	Provider      notify.Provider
	Dismissal     notify.DismissalStore
	PromptDelay   time.Duration
	PromptVariant notify.Variant

	Location     location.Provider
	LocationOpts location.Options

	StreamTimeout  time.Duration
	BackendTimeout time.Duration
	Theme          *styles.Theme
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state State
	opts  Options

	conversation *model.Conversation

	// Streaming plumbing. generation stamps every stream so messages
	// from a stopped stream are dropped instead of corrupting the next.
	buffer      *StreamingBuffer
	cancelMgr   *cancelManager
	generation  int
	streamingID string

	input    textarea.Model
	viewport viewport.Model
	spinner  *components.Spinner
	toasts   *components.ToastManager

	filterBar *components.FilterBar
	reports   []*model.Report

	prompt     *notify.Prompt
	permPrompt *components.PermissionPrompt

	locUpdates   <-chan location.Update
	locStop      func()
	lastPosition *location.Position

	lastError     error
	actionFocused bool
	width         int
	height        int
	ready         bool
	quitting      bool

	sendLimiter *rate.Limiter
}

// New creates the chat model.
func New(opts Options) *Model {
	if opts.Conversation == nil {
		opts.Conversation = model.NewConversation()
	}
	if opts.StreamTimeout <= 0 {
		opts.StreamTimeout = assistant.DefaultTimeout
	}
	if opts.BackendTimeout <= 0 {
		opts.BackendTimeout = 15 * time.Second
	}
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme("auto")
	}

	ta := textarea.New()
	ta.Placeholder = "Describe el incidente o pide ayuda..."
	ta.CharLimit = 4000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	return &Model{
		state:        StateReady,
		opts:         opts,
		conversation: opts.Conversation,
		buffer:       NewStreamingBuffer(),
		cancelMgr:    newCancelManager(),
		input:        ta,
		spinner:      &components.Spinner{},
		toasts:       components.NewToastManager(),
		filterBar:    components.NewFilterBar(),
		prompt:       notify.NewPrompt(opts.Provider, opts.Dismissal, opts.PromptDelay),
		permPrompt:   components.NewPermissionPrompt(opts.PromptVariant),
		sendLimiter:  rate.NewLimiter(sendLimit, 2),
	}
}

// Conversation exposes the active conversation.
func (m *Model) Conversation() *model.Conversation {
	return m.conversation
}

// State returns the current mode.
func (m *Model) State() State {
	return m.state
}

// ActiveFilter returns the report filter currently applied.
func (m *Model) ActiveFilter() model.ReportFilter {
	return m.filterBar.Active()
}

// =============================================================================
// BUBBLE TEA LIFECYCLE
// =============================================================================

// Init starts the background loops.
func (m *Model) Init() tea.Cmd {
	m.prompt.Begin(time.Now())

	cmds := []tea.Cmd{
		textarea.Blink,
		permissionTickCmd(),
		components.ToastTickCmd(),
	}
	if m.opts.Repo != nil {
		cmds = append(cmds, loadReportsCmd(m.opts.Repo, m.filterBar.Active(), m.opts.BackendTimeout))
	}
	if m.opts.Location != nil {
		ch, stop, err := m.opts.Location.WatchPosition(context.Background(), m.opts.LocationOpts)
		if err == nil {
			m.locUpdates = ch
			m.locStop = stop
			cmds = append(cmds, waitForLocationCmd(ch))
		}
	}
	return tea.Batch(cmds...)
}

// Update dispatches incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m, m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamTickMsg:
		return m, m.handleStreamTick()

	case StreamCompleteMsg:
		return m, m.handleStreamComplete(msg)

	case ActionResultMsg:
		return m, m.handleActionResult(msg)

	case PermissionTickMsg:
		return m, m.handlePermissionTick(msg.Time)

	case components.PermissionResponseMsg:
		return m, m.handlePermissionResponse(msg)

	case components.PermissionDismissMsg:
		if err := m.prompt.Dismiss(); err != nil {
			m.toasts.AddWarning("No se pudo guardar la preferencia de avisos")
		}
		return m, nil

	case ReportsLoadedMsg:
		return m, m.handleReportsLoaded(msg)

	case LocationMsg:
		return m, m.handleLocation(msg)

	case LocationStoppedMsg:
		m.locUpdates = nil
		return m, nil

	case ConversationSavedMsg:
		if msg.Error != nil {
			m.toasts.AddWarning("No se pudo guardar la conversación")
		}
		return m, nil

	case components.ToastTickMsg:
		m.toasts.Prune(time.Time(msg))
		return m, components.ToastTickCmd()

	case components.SpinnerTickMsg:
		return m, m.spinner.Tick()
	}

	return m, m.updateInput(msg)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// A visible permission prompt owns the keyboard.
	if cmd, handled := m.permPrompt.Update(msg); handled {
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c":
		m.stop()
		if m.locStop != nil {
			m.locStop()
		}
		m.quitting = true
		return m, tea.Quit

	case "esc":
		if m.state == StateStreaming {
			m.stop()
			return m, nil
		}
		if m.state == StateError {
			m.state = StateReady
			m.lastError = nil
		}
		return m, nil

	case "enter":
		return m, m.send()

	case "ctrl+e":
		return m, m.executeAction()

	case "ctrl+f":
		m.filterBar.Cycle()
		if m.opts.Repo == nil {
			return m, nil
		}
		return m, loadReportsCmd(m.opts.Repo, m.filterBar.Active(), m.opts.BackendTimeout)

	case "ctrl+l":
		m.conversation.ClearHistory()
		m.syncViewport()
		return m, nil

	case "pgup":
		m.viewport.HalfViewUp()
		return m, nil

	case "pgdown":
		m.viewport.HalfViewDown()
		return m, nil
	}

	return m, m.updateInput(msg)
}

func (m *Model) updateInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// =============================================================================
// SEND / STOP / EXECUTE
// =============================================================================

// send submits the composed message. While a response is streaming the
// submit is ignored rather than queued.
func (m *Model) send() tea.Cmd {
	if m.state == StateStreaming {
		return nil
	}
	content := strings.TrimSpace(m.input.Value())
	if content == "" {
		return nil
	}
	if !m.sendLimiter.Allow() {
		return nil
	}
	if m.opts.Assistant == nil {
		m.toasts.AddError("Asistente no configurado")
		return nil
	}

	m.input.Reset()
	m.lastError = nil
	m.actionFocused = false

	m.conversation.AddUserMessage(content)
	placeholder := m.conversation.AddAssistantMessage()

	m.generation++
	m.streamingID = placeholder.ID
	m.buffer.Reset()
	m.state = StateStreaming
	m.syncViewport()

	return tea.Batch(
		streamCmd(m.opts.Assistant, m.conversation, m.buffer, m.cancelMgr,
			m.generation, placeholder.ID, m.opts.StreamTimeout),
		streamTickCmd(),
		m.spinner.Start("Pensando..."),
	)
}

// stop cancels the in-flight stream and finalizes the partial message
// immediately. The late StreamCompleteMsg from the cancelled goroutine
// carries a stale generation and is dropped.
func (m *Model) stop() {
	if m.state != StateStreaming {
		return
	}
	m.cancelMgr.cancel()

	if chunk, ok := m.buffer.ForceFlush(); ok {
		m.conversation.AppendToLast(chunk)
	}
	m.conversation.FinalizeLast()

	m.generation++
	m.streamingID = ""
	m.state = StateReady
	m.spinner.Stop()
	m.syncViewport()
}

// executeAction runs the pending assistant action, if any.
func (m *Model) executeAction() tea.Cmd {
	action := m.conversation.Pending
	if action == nil || m.opts.Repo == nil {
		return nil
	}
	if m.state == StateStreaming {
		return nil
	}

	// A create-report action without coordinates gets the last known
	// fix, when there is one.
	if action.Kind == model.ActionCreateReport && m.lastPosition != nil {
		if action.Param("latitude") == "" || action.Param("longitude") == "" {
			action.Params["latitude"] = util.FloatToStringPrec(m.lastPosition.Latitude, 6)
			action.Params["longitude"] = util.FloatToStringPrec(m.lastPosition.Longitude, 6)
		}
	}

	m.conversation.ClearPending()
	m.actionFocused = false
	m.syncViewport()

	return tea.Batch(
		executeActionCmd(m.opts.Repo, action, m.opts.BackendTimeout),
		m.spinner.Start("Ejecutando " + action.Label + "..."),
	)
}

// =============================================================================
// STREAM HANDLERS
// =============================================================================

func (m *Model) handleStreamTick() tea.Cmd {
	if m.state != StateStreaming {
		return nil
	}
	if chunk, ok := m.buffer.Flush(); ok {
		m.conversation.AppendToLast(chunk)
		m.syncViewport()
	}
	return streamTickCmd()
}

func (m *Model) handleStreamComplete(msg StreamCompleteMsg) tea.Cmd {
	if msg.Generation != m.generation {
		// A stopped stream finishing late. Already finalized.
		return nil
	}

	// Every token the goroutine buffered lands before finalize, so a
	// failed stream still shows its partial output.
	if chunk, ok := m.buffer.ForceFlush(); ok {
		m.conversation.AppendToLast(chunk)
	}
	m.conversation.FinalizeLast()
	m.streamingID = ""
	m.spinner.Stop()

	if msg.Error != nil {
		m.state = StateError
		m.lastError = msg.Error
		m.toasts.AddError(streamErrorText(msg.Error))
	} else {
		m.state = StateReady
		if msg.Result != nil && msg.Result.Action != nil {
			if action := msg.Result.Action.ToPendingAction(msg.MessageID); action != nil {
				m.conversation.SetPending(action)
				m.actionFocused = true
			}
		}
	}
	m.syncViewport()

	return saveConversationCmd(m.opts.Store, m.conversation)
}

// streamErrorText maps stream failures to user-facing Spanish text.
func streamErrorText(err error) string {
	switch {
	case errors.Is(err, assistant.ErrAuthFailed):
		return "Sesión del asistente no válida"
	case errors.Is(err, assistant.ErrRateLimited):
		return "Demasiadas solicitudes, espera un momento"
	case errors.Is(err, assistant.ErrUnavailable):
		return "El asistente no está disponible"
	case errors.Is(err, assistant.ErrNotConfigured):
		return "Asistente no configurado"
	default:
		return "Falló la respuesta del asistente"
	}
}

// =============================================================================
// ACTION / REPORT HANDLERS
// =============================================================================

func (m *Model) handleActionResult(msg ActionResultMsg) tea.Cmd {
	m.spinner.Stop()

	if msg.Error != nil {
		if backend.IsValidation(msg.Error) {
			m.toasts.AddWarning("Datos inválidos: " + msg.Error.Error())
		} else {
			m.toasts.AddError(backendErrorText(msg.Error))
		}
		return nil
	}

	switch msg.Action.Kind {
	case model.ActionCreateReport:
		m.toasts.AddSuccess("Reporte creado")
	case model.ActionUpdateStatus:
		m.toasts.AddSuccess("Estado actualizado")
	case model.ActionOpenFilter:
		if msg.Applied {
			m.filterBar.Set(msg.Filter)
		}
	}

	if m.opts.Repo != nil {
		return loadReportsCmd(m.opts.Repo, m.filterBar.Active(), m.opts.BackendTimeout)
	}
	return nil
}

func (m *Model) handleReportsLoaded(msg ReportsLoadedMsg) tea.Cmd {
	if msg.Error != nil {
		m.toasts.AddError(backendErrorText(msg.Error))
		return nil
	}
	if msg.Filter == m.filterBar.Active() {
		m.reports = msg.Reports
	}
	return nil
}

// handleLocation caches the latest fix. Timeouts while watching are
// transient and ignored; a permission denial stops the watch for good.
func (m *Model) handleLocation(msg LocationMsg) tea.Cmd {
	update := msg.Update
	if update.Err != nil {
		if errors.Is(update.Err, location.ErrPermissionDenied) {
			if m.locStop != nil {
				m.locStop()
			}
			m.toasts.AddWarning("Ubicación no disponible: permiso denegado")
			return nil
		}
		return waitForLocationCmd(m.locUpdates)
	}

	pos := update.Position
	m.lastPosition = &pos
	return waitForLocationCmd(m.locUpdates)
}

// backendErrorText maps repository failures to user-facing Spanish
// text. Network problems surface as toasts, never inline.
func backendErrorText(err error) string {
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		return "Sesión expirada, vuelve a iniciar sesión"
	case errors.Is(err, backend.ErrForbidden):
		return "No tienes permiso para esta operación"
	case errors.Is(err, backend.ErrNotFound):
		return "El registro ya no existe"
	case errors.Is(err, backend.ErrConflict):
		return "El registro fue modificado por otra persona"
	case errors.Is(err, backend.ErrNetwork):
		return "Sin conexión con el servidor"
	default:
		return "Error del servidor"
	}
}

// =============================================================================
// PERMISSION HANDLERS
// =============================================================================

func (m *Model) handlePermissionTick(now time.Time) tea.Cmd {
	becameVisible := m.prompt.Tick(now)
	if becameVisible {
		m.permPrompt.Show()
	}

	switch m.prompt.Phase() {
	case notify.PhaseDismissed, notify.PhaseGranted, notify.PhaseDenied:
		// Settled; stop polling.
		return nil
	}
	return permissionTickCmd()
}

// handlePermissionResponse settles the prompt with the user's choice.
// The prompt state machine is single-loop, so the provider request runs
// inline here rather than in a command goroutine.
func (m *Model) handlePermissionResponse(msg components.PermissionResponseMsg) tea.Cmd {
	// The TUI has no OS dialog; the user's choice is the request
	// outcome. Prime it before running the provider request.
	if primer, ok := m.opts.Provider.(resultPrimer); ok {
		if msg.Allow {
			primer.SetRequestResult(notify.StateGranted)
		} else {
			primer.SetRequestResult(notify.StateDenied)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	state, err := m.prompt.Accept(ctx)
	if err != nil {
		m.toasts.AddWarning("No se pudo registrar la preferencia de avisos")
		m.permPrompt.Show()
		return permissionTickCmd()
	}
	if state == notify.StateGranted {
		m.toasts.AddSuccess("Avisos de escritorio activados")
	}
	return nil
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) handleResize(msg tea.WindowSizeMsg) tea.Cmd {
	m.width = msg.Width
	m.height = msg.Height
	m.opts.Theme.SetSize(msg.Width, msg.Height)
	m.permPrompt.SetSize(msg.Width, msg.Height)
	m.filterBar.SetWidth(msg.Width)
	m.input.SetWidth(msg.Width - 4)

	viewportHeight := msg.Height - m.chromeHeight()
	if viewportHeight < 3 {
		viewportHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(msg.Width, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}
	m.syncViewport()
	return nil
}

// syncViewport re-renders the transcript and follows the tail while
// streaming.
func (m *Model) syncViewport() {
	if !m.ready {
		return
	}
	width := m.viewport.Width - 2
	if width < 24 {
		width = 24
	}
	m.viewport.SetContent(components.RenderMessageList(m.conversation, width, m.actionFocused))
	m.viewport.GotoBottom()
}
