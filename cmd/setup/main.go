// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main provides the unialerta setup command, a guided first-run
// configuration for the terminal client.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pquerna/otp/totp"
	"golang.org/x/term"

	"github.com/unialerta/uce-tui/internal/config"
	"github.com/unialerta/uce-tui/internal/notify"
	"github.com/unialerta/uce-tui/internal/session"
	"github.com/unialerta/uce-tui/internal/storage"
)

const version = "1.0.0"

func main() {
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--help", "-h":
			printHelp()
			return
		case "--version", "-v":
			fmt.Printf("unialerta-setup v%s\n", version)
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(`unialerta-setup v` + version + `

Usage: unialerta-setup [OPTIONS]

Options:
  --help, -h     Show this help
  --version, -v  Show version

Walks through the initial configuration: server URLs, notification
prompt behavior, and the optional local session lock.`)
}

func run() error {
	reader := bufio.NewReader(os.Stdin)
	cfg := config.Default()

	fmt.Println()
	fmt.Println("================================================================================")
	fmt.Println("                           UNIALERTA UCE - CONFIGURACION")
	fmt.Println("================================================================================")
	fmt.Println()

	// Server endpoints.
	cfg.Assistant.BaseURL = askString(reader, "URL del asistente", cfg.Assistant.BaseURL)
	cfg.Backend.BaseURL = askString(reader, "URL del servidor UCE", cfg.Backend.BaseURL)

	// Notification prompt.
	fmt.Println()
	fmt.Println("Aviso de notificaciones (banner, modal, inline):")
	for {
		raw := askString(reader, "Variante", cfg.Notifications.Variant)
		if _, err := notify.ParseVariant(raw); err != nil {
			fmt.Println("  Variante desconocida, usa banner, modal o inline.")
			continue
		}
		cfg.Notifications.Variant = raw
		break
	}
	cfg.Notifications.PromptDelayMs = askInt(reader,
		"Retraso del aviso en milisegundos (0 = inmediato)", cfg.Notifications.PromptDelayMs)

	// Optional session lock.
	fmt.Println()
	if askYesNo(reader, "¿Proteger la sesión local con una frase de desbloqueo?") {
		if err := enrollLock(reader, cfg); err != nil {
			return err
		}
	}

	// Persist with restrictive permissions.
	if _, err := config.EnsureConfigDir(); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("guardando configuración: %w", err)
	}

	path, _ := config.ConfigPath()
	fmt.Println()
	fmt.Println("Listo. Configuración guardada en " + path)
	fmt.Println("Ejecuta 'unialerta' para empezar.")
	return nil
}

// enrollLock sets the passphrase digest in local storage and optionally
// enrolls a TOTP second factor.
func enrollLock(reader *bufio.Reader, cfg *config.Config) error {
	dbPath, err := storage.DefaultPath()
	if err != nil {
		return err
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var passphrase string
	for {
		fmt.Print("Frase de desbloqueo: ")
		first, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return err
		}
		fmt.Print("Repite la frase: ")
		second, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return err
		}
		if string(first) != string(second) {
			fmt.Println("  No coinciden, intenta de nuevo.")
			continue
		}
		if len(first) < 8 {
			fmt.Println("  Mínimo 8 caracteres.")
			continue
		}
		passphrase = string(first)
		break
	}

	lock := session.NewLock(store)
	if err := lock.SetPassphrase(passphrase); err != nil {
		return fmt.Errorf("registrando la frase: %w", err)
	}

	if !askYesNo(reader, "¿Añadir un segundo factor TOTP?") {
		return nil
	}

	email := askString(reader, "Correo institucional para la app de códigos", "admin@uce.edu.ec")
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "UniAlerta UCE",
		AccountName: email,
	})
	if err != nil {
		return fmt.Errorf("generando el secreto TOTP: %w", err)
	}

	fmt.Println()
	fmt.Println("Añade esta clave a tu aplicación de códigos:")
	fmt.Println("  Secreto: " + key.Secret())
	fmt.Println("  URL:     " + key.URL())
	fmt.Println()

	// Require one valid code so a typo does not lock the user out.
	for {
		code := askString(reader, "Código de verificación", "")
		if totp.Validate(code, key.Secret()) {
			break
		}
		fmt.Println("  Código incorrecto, intenta de nuevo.")
	}

	cfg.Session.TOTPSecret = key.Secret()
	fmt.Println("Segundo factor activado.")
	return nil
}

// =============================================================================
// PROMPT HELPERS
// =============================================================================

func askString(reader *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return def
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

func askInt(reader *bufio.Reader, label string, def int) int {
	for {
		raw := askString(reader, label, strconv.Itoa(def))
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fmt.Println("  Introduce un número entero no negativo.")
			continue
		}
		return n
	}
}

func askYesNo(reader *bufio.Reader, label string) bool {
	raw := askString(reader, label+" (s/n)", "n")
	raw = strings.ToLower(raw)
	return raw == "s" || raw == "si" || raw == "sí" || raw == "y" || raw == "yes"
}
