// UniAlerta UCE - terminal admin client for the university incident
// reporting service.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/unialerta/uce-tui/internal/assistant"
	"github.com/unialerta/uce-tui/internal/backend"
	"github.com/unialerta/uce-tui/internal/cli"
	"github.com/unialerta/uce-tui/internal/config"
	"github.com/unialerta/uce-tui/internal/location"
	"github.com/unialerta/uce-tui/internal/model"
	"github.com/unialerta/uce-tui/internal/notify"
	"github.com/unialerta/uce-tui/internal/session"
	"github.com/unialerta/uce-tui/internal/storage"
	"github.com/unialerta/uce-tui/internal/ui/chat"
	"github.com/unialerta/uce-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		plainFlag   = flag.Bool("plain", false, "run the plain text session instead of the TUI")
		loginFlag   = flag.Bool("login", false, "sign in before starting")
		configPath  = flag.String("config", "", "path to config file (default ~/.unialerta/config.toml)")
		versionFlag = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("unialerta %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*plainFlag, *loginFlag, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(plain, login bool, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	config.Set(cfg)

	closeLog, err := setupLogging()
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := maybeUnlock(store, cfg); err != nil {
		return err
	}

	repo := backend.NewClient(cfg)
	assistantClient := assistant.NewClient(cfg)

	var profile *model.Profile
	if login {
		profile, err = interactiveLogin(repo)
		if err != nil {
			return err
		}
	}

	if plain || cfg.UI.Plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return cli.NewSession(cfg, assistantClient, repo, store).Run()
	}
	return runTUI(cfg, store, repo, assistantClient, profile)
}

// loadConfig reads configuration, tolerating a missing file.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// setupLogging sends the standard logger to a file under the config
// dir so log lines do not corrupt the alternate screen.
func setupLogging() (func(), error) {
	dir, err := config.EnsureConfigDir()
	if err != nil {
		return nil, fmt.Errorf("config dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "uce.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	log.SetOutput(f)
	return func() { f.Close() }, nil
}

// openStore opens the local SQLite store under the config directory.
func openStore() (*storage.Store, error) {
	if _, err := config.EnsureConfigDir(); err != nil {
		return nil, fmt.Errorf("config dir: %w", err)
	}
	path, err := storage.DefaultPath()
	if err != nil {
		return nil, err
	}
	return storage.Open(path)
}

// maybeUnlock enforces the optional session lock before anything else
// touches local data.
func maybeUnlock(store *storage.Store, cfg *config.Config) error {
	lock := session.NewLock(store)
	if cfg.Session.TOTPSecret != "" {
		lock = lock.WithTOTPSecret(cfg.Session.TOTPSecret)
	}
	if !lock.Enrolled() {
		return nil
	}

	for attempt := 0; attempt < 3; attempt++ {
		fmt.Fprint(os.Stderr, "Frase de desbloqueo: ")
		pass, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("reading passphrase: %w", err)
		}

		code := ""
		if cfg.Session.TOTPSecret != "" {
			fmt.Fprint(os.Stderr, "Código TOTP: ")
			reader := bufio.NewReader(os.Stdin)
			line, _ := reader.ReadString('\n')
			code = strings.TrimSpace(line)
		}

		if err := lock.Unlock(string(pass), code); err == nil {
			return nil
		}
		fmt.Fprintln(os.Stderr, "Credenciales incorrectas.")
	}
	return fmt.Errorf("demasiados intentos de desbloqueo")
}

// interactiveLogin prompts for credentials and installs the session
// token on the repository client.
func interactiveLogin(repo *backend.Client) (*model.Profile, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Fprint(os.Stderr, "Correo institucional: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return nil, err
	}

	fmt.Fprint(os.Stderr, "Contraseña: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}

	fmt.Fprint(os.Stderr, "Código TOTP (vacío si no aplica): ")
	code, _ := reader.ReadString('\n')

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sess, err := repo.Login(ctx, backend.Credentials{
		Email:    strings.TrimSpace(email),
		Password: string(password),
		TOTPCode: strings.TrimSpace(code),
	})
	if err != nil {
		if backend.IsValidation(err) {
			return nil, fmt.Errorf("datos inválidos: %w", err)
		}
		return nil, fmt.Errorf("inicio de sesión: %w", err)
	}
	return sess.Profile, nil
}

// runTUI assembles the chat screen and hands control to Bubble Tea.
func runTUI(cfg *config.Config, store *storage.Store, repo backend.Repository,
	assistantClient *assistant.Client, profile *model.Profile) error {

	variant, err := notify.ParseVariant(cfg.Notifications.Variant)
	if err != nil {
		log.Printf("config: %v, using banner", err)
	}

	var inner location.Provider = &location.StaticProvider{
		Lat: cfg.Location.CampusLatitude,
		Lon: cfg.Location.CampusLongitude,
	}
	if cfg.Location.LocatorCommand != "" {
		inner = &location.CommandProvider{Path: cfg.Location.LocatorCommand}
	}
	locProvider := location.NewCached(inner)

	chatModel := chat.New(chat.Options{
		Assistant:      assistantClient,
		Repo:           repo,
		Store:          store,
		Profile:        profile,
		Provider:       notify.NewStoredProvider(store),
		Dismissal:      store.NotificationSettings(),
		PromptDelay:    cfg.PromptDelay(),
		PromptVariant:  variant,
		Location:       locProvider,
		LocationOpts:   locationOptions(cfg),
		StreamTimeout:  cfg.AssistantTimeout(),
		BackendTimeout: cfg.BackendTimeout(),
		Theme:          styles.NewTheme(cfg.UI.Theme),
	})

	program := tea.NewProgram(chatModel, tea.WithAltScreen())

	// Idle timeout ends the program; autosave persists the transcript.
	manager := session.NewManager(session.Config{
		Timeout:          time.Duration(cfg.Session.TimeoutMinutes) * time.Minute,
		WarningBefore:    time.Duration(cfg.Session.WarningMinutes) * time.Minute,
		AutoSaveInterval: time.Duration(cfg.Session.AutoSaveSeconds) * time.Second,
	})
	manager.OnTimeout(func() {
		program.Send(tea.Quit())
	})
	manager.OnAutoSave(func() {
		if err := store.SaveConversation(chatModel.Conversation()); err != nil {
			log.Printf("autosave: %v", err)
		}
	})
	manager.Start()
	defer manager.Stop()

	// Watch the config file so edits apply without a restart.
	if configFile, cerr := config.ConfigPath(); cerr == nil {
		watcher, werr := config.NewWatcher(configFile, func(updated *config.Config) {
			log.Printf("configuration reloaded")
		})
		if werr == nil && watcher.Watch() == nil {
			defer watcher.Close()
		}
	}

	_, err = program.Run()
	return err
}

// locationOptions maps the location config onto provider options.
func locationOptions(cfg *config.Config) location.Options {
	return location.Options{
		EnableHighAccuracy: cfg.Location.EnableHighAccuracy,
		Timeout:            time.Duration(cfg.Location.TimeoutMs) * time.Millisecond,
		MaximumAge:         time.Duration(cfg.Location.MaximumAgeMs) * time.Millisecond,
	}
}
