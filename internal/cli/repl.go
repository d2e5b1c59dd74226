// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - Plain-terminal assistant session for unialerta --plain.
//
// USABILITY: Markdown rendering and input history for terminals where
// the full TUI is unwanted or unavailable (CI shells, screen readers,
// dumb terminals).
//
// Interactive commands (during the session):
//   /ayuda, /help        Show available commands
//   /limpiar, /clear     Clear conversation history
//   /filtro [nombre]     Show or switch the report filter
//   /reportes            List reports under the active filter
//   /ejecutar, /run      Run the pending assistant action
//   /salir, /quit        Exit
//   Ctrl+C               Cancel the current response
//   Ctrl+D               Exit
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"

	"github.com/unialerta/uce-tui/internal/assistant"
	"github.com/unialerta/uce-tui/internal/backend"
	"github.com/unialerta/uce-tui/internal/config"
	"github.com/unialerta/uce-tui/internal/model"
	"github.com/unialerta/uce-tui/internal/storage"
	"github.com/unialerta/uce-tui/internal/util"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer renders assistant replies for terminal display.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown, falling back to the raw text.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(rendered)
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// inputReader wraps liner with persistent history.
type inputReader struct {
	line        *liner.State
	historyFile string
}

func newInputReader() *inputReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	r := &inputReader{
		line:        line,
		historyFile: filepath.Join(configDir, "history"),
	}

	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

// Read reads one line, recording non-empty input in history.
func (r *inputReader) Read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close persists history (0600) and releases the terminal.
func (r *inputReader) Close() {
	if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		r.line.WriteHistory(f)
		f.Close()
	}
	r.line.Close()
}

// =============================================================================
// SESSION
// =============================================================================

// Session is one plain-mode assistant conversation.
type Session struct {
	conversation *model.Conversation
	assistant    *assistant.Client
	repo         backend.Repository
	store        *storage.Store
	cfg          *config.Config

	filter model.ReportFilter
	input  *inputReader
}

// NewSession wires a plain session.
func NewSession(cfg *config.Config, client *assistant.Client, repo backend.Repository, store *storage.Store) *Session {
	return &Session{
		conversation: model.NewConversation(),
		assistant:    client,
		repo:         repo,
		store:        store,
		cfg:          cfg,
		filter:       model.FilterAll,
		input:        newInputReader(),
	}
}

// Run drives the read-eval loop until exit.
func (s *Session) Run() error {
	defer s.input.Close()
	printWelcome()

	for {
		line, err := s.input.Read(promptStyle.Render("uce> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			// Ctrl+D or a closed terminal.
			fmt.Println()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := s.handleCommand(line); quit {
				return nil
			}
			continue
		}

		s.ask(line)
	}
}

// ask streams one assistant turn, printing tokens as they arrive and
// re-rendering the full reply as markdown once complete.
func (s *Session) ask(text string) {
	if s.assistant == nil {
		fmt.Println(errorStyle.Render("Asistente no configurado. Define assistant.base_url en la configuración."))
		return
	}

	s.conversation.AddUserMessage(text)
	reply := s.conversation.AddAssistantMessage()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.AssistantTimeout())
	defer cancel()

	// Ctrl+C cancels this turn only, keeping the partial output.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	defer signal.Stop(sigCh)

	result, err := s.assistant.ChatStream(ctx, s.conversation, func(token string) {
		s.conversation.AppendToLast(token)
		fmt.Print(token)
	})
	fmt.Println()
	s.conversation.FinalizeLast()

	content := reply.Content
	if err != nil {
		var streamErr *assistant.StreamError
		if errors.As(err, &streamErr) && streamErr.Partial != "" {
			fmt.Println(warningStyle.Render("[respuesta interrumpida, se conserva el texto parcial]"))
		} else if errors.Is(err, context.Canceled) {
			fmt.Println(warningStyle.Render("[cancelado]"))
		} else {
			fmt.Println(errorStyle.Render("Error: " + err.Error()))
		}
	} else if content != "" {
		// Replace the raw token dump with the rendered version.
		fmt.Println()
		fmt.Println(renderMarkdown(content))
	}

	if result != nil && result.Action != nil {
		if action := result.Action.ToPendingAction(reply.ID); action != nil {
			s.conversation.SetPending(action)
			fmt.Println(infoStyle.Render("Acción sugerida: " + action.Label + "  (/ejecutar para confirmar)"))
		}
	}

	if s.store != nil {
		if err := s.store.SaveConversation(s.conversation); err != nil {
			fmt.Println(warningStyle.Render("No se pudo guardar la conversación: " + err.Error()))
		}
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand dispatches a slash command. Returns true to exit.
func (s *Session) handleCommand(line string) bool {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "/salir", "/quit", "/q":
		return true

	case "/ayuda", "/help", "/h":
		printHelp()

	case "/limpiar", "/clear", "/c":
		s.conversation.ClearHistory()
		fmt.Println(infoStyle.Render("Historial borrado."))

	case "/filtro", "/filter":
		s.commandFilter(args)

	case "/reportes", "/reports":
		s.commandReports()

	case "/ejecutar", "/run":
		s.commandExecute()

	default:
		fmt.Println(warningStyle.Render("Comando desconocido: " + cmd + "  (/ayuda para la lista)"))
	}
	return false
}

func (s *Session) commandFilter(args []string) {
	if len(args) == 0 {
		fmt.Println(infoStyle.Render("Filtro activo: " + s.filter.DisplayName()))
		for _, f := range model.AllFilters() {
			marker := "  "
			if f == s.filter {
				marker = "* "
			}
			fmt.Printf("%s%s (%s)\n", marker, f.DisplayName(), string(f))
		}
		return
	}

	filter, err := model.ParseReportFilter(args[0])
	if err != nil {
		fmt.Println(errorStyle.Render("Filtro desconocido: " + args[0]))
		return
	}
	s.filter = filter
	fmt.Println(infoStyle.Render("Filtro: " + filter.DisplayName()))
}

func (s *Session) commandReports() {
	if s.repo == nil {
		fmt.Println(errorStyle.Render("Servidor no configurado."))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.BackendTimeout())
	defer cancel()

	reports, err := s.repo.ListReports(ctx, s.filter)
	if err != nil {
		fmt.Println(errorStyle.Render("No se pudieron cargar los reportes: " + err.Error()))
		return
	}
	if len(reports) == 0 {
		fmt.Println(infoStyle.Render("Sin reportes para " + s.filter.DisplayName() + "."))
		return
	}

	for _, r := range reports {
		fmt.Printf("%s  %-12s  %-8s  %s\n",
			r.ID,
			string(r.Status),
			string(r.Visibility),
			util.TruncateRunes(r.Title, 48))
	}
	fmt.Println(infoStyle.Render(util.IntToString(len(reports)) + " reportes (" + s.filter.DisplayName() + ")"))
}

func (s *Session) commandExecute() {
	action := s.conversation.Pending
	if action == nil {
		fmt.Println(infoStyle.Render("No hay ninguna acción pendiente."))
		return
	}
	if s.repo == nil {
		fmt.Println(errorStyle.Render("Servidor no configurado."))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.BackendTimeout())
	defer cancel()
	s.conversation.ClearPending()

	switch action.Kind {
	case model.ActionCreateReport:
		report, err := s.repo.CreateReport(ctx, backend.ReportInput{
			Title:      action.Param("title"),
			Body:       action.Param("body"),
			CategoryID: action.Param("category_id"),
			Visibility: model.Visibility(action.Param("visibility")),
		})
		if err != nil {
			fmt.Println(errorStyle.Render("Error: " + err.Error()))
			return
		}
		fmt.Println(successStyle.Render("Reporte creado: " + report.ID))

	case model.ActionUpdateStatus:
		report, err := s.repo.UpdateReportStatus(ctx,
			action.Param("report_id"), model.ReportStatus(action.Param("status")))
		if err != nil {
			fmt.Println(errorStyle.Render("Error: " + err.Error()))
			return
		}
		fmt.Println(successStyle.Render("Estado actualizado: " + report.ID + " -> " + string(report.Status)))

	case model.ActionOpenFilter:
		filter, err := model.ParseReportFilter(action.Param("filter"))
		if err != nil {
			fmt.Println(errorStyle.Render("Filtro desconocido en la acción."))
			return
		}
		s.filter = filter
		fmt.Println(infoStyle.Render("Filtro: " + filter.DisplayName()))
	}
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printWelcome() {
	fmt.Println(welcomeStyle.Render("UniAlerta UCE - modo texto"))
	fmt.Println(infoStyle.Render("Escribe tu consulta, /ayuda para comandos, /salir para terminar."))
	fmt.Println()
}

func printHelp() {
	fmt.Println(commandStyle.Render("/ayuda") + "      Muestra esta ayuda")
	fmt.Println(commandStyle.Render("/limpiar") + "    Borra el historial de la conversación")
	fmt.Println(commandStyle.Render("/filtro") + "     Muestra o cambia el filtro de reportes")
	fmt.Println(commandStyle.Render("/reportes") + "   Lista los reportes del filtro activo")
	fmt.Println(commandStyle.Render("/ejecutar") + "   Ejecuta la acción pendiente del asistente")
	fmt.Println(commandStyle.Render("/salir") + "      Termina la sesión")
}
