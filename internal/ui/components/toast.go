// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/unialerta/uce-tui/internal/ui/styles"
)

// =============================================================================
// TOASTS
// =============================================================================

// ToastKind classifies a toast.
type ToastKind int

const (
	ToastStatus ToastKind = iota
	ToastError
	ToastWarning
	ToastSuccess
)

// Per-kind display durations. Errors linger longest.
const (
	statusToastDuration  = 4 * time.Second
	errorToastDuration   = 8 * time.Second
	warningToastDuration = 6 * time.Second
)

// Toast is one non-blocking notification.
type Toast struct {
	ID        string
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

// Expired reports whether the toast should disappear.
func (t Toast) Expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// maxToasts bounds how many toasts stack at once.
const maxToasts = 5

// ToastManager holds the active toast stack, newest first.
type ToastManager struct {
	mu     sync.Mutex
	toasts []Toast
}

// NewToastManager creates an empty manager.
func NewToastManager() *ToastManager {
	return &ToastManager{}
}

// add pushes a toast, evicting the oldest beyond maxToasts.
func (m *ToastManager) add(message string, kind ToastKind, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	toast := Toast{
		ID:        uuid.New().String(),
		Message:   message,
		Kind:      kind,
		CreatedAt: time.Now(),
		Duration:  duration,
	}
	m.toasts = append([]Toast{toast}, m.toasts...)
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[:maxToasts]
	}
}

// AddStatus shows a neutral status toast.
func (m *ToastManager) AddStatus(message string) {
	m.add(message, ToastStatus, statusToastDuration)
}

// AddError shows an error toast.
func (m *ToastManager) AddError(message string) {
	m.add(message, ToastError, errorToastDuration)
}

// AddWarning shows a warning toast.
func (m *ToastManager) AddWarning(message string) {
	m.add(message, ToastWarning, warningToastDuration)
}

// AddSuccess shows a success toast.
func (m *ToastManager) AddSuccess(message string) {
	m.add(message, ToastSuccess, statusToastDuration)
}

// Dismiss removes a toast by ID.
func (m *ToastManager) Dismiss(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.toasts {
		if t.ID == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

// Prune drops expired toasts and reports whether any remain.
func (m *ToastManager) Prune(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.Expired(now) {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
	return len(m.toasts) > 0
}

// Active returns a snapshot of the current stack.
func (m *ToastManager) Active() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Toast, len(m.toasts))
	copy(out, m.toasts)
	return out
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// ToastTickMsg drives toast expiry.
type ToastTickMsg time.Time

// ToastTickCmd ticks every 100ms while toasts are visible.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return ToastTickMsg(t)
	})
}

// =============================================================================
// RENDERING
// =============================================================================

// kindStyle returns border color and indicator for a kind.
func kindStyle(kind ToastKind) (lipgloss.AdaptiveColor, string) {
	switch kind {
	case ToastError:
		return styles.Rose, styles.StatusIndicators.Error
	case ToastWarning:
		return styles.Amber, styles.StatusIndicators.Warning
	case ToastSuccess:
		return styles.Emerald, styles.StatusIndicators.Success
	default:
		return styles.Sky, styles.StatusIndicators.Info
	}
}

// RenderToast renders one toast box.
func RenderToast(t Toast, maxWidth int) string {
	color, indicator := kindStyle(t.Kind)

	width := 40
	if maxWidth > 0 && maxWidth < 46 {
		width = maxWidth - 6
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Foreground(styles.TextPrimary).
		Padding(0, 1).
		MaxWidth(width).
		Render(indicator + " " + t.Message)
}

// RenderToastStack renders the stack anchored bottom-right.
func (m *ToastManager) RenderToastStack(width, height int) string {
	toasts := m.Active()
	if len(toasts) == 0 {
		return ""
	}

	rendered := make([]string, len(toasts))
	for i, t := range toasts {
		rendered[i] = RenderToast(t, width)
	}
	stack := lipgloss.JoinVertical(lipgloss.Right, rendered...)

	if width > 0 && height > 0 {
		return lipgloss.Place(width, height, lipgloss.Right, lipgloss.Bottom, stack)
	}
	return stack
}
