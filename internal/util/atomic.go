// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// RELIABILITY: config and export writes go through a temp file plus
// rename so a crash never leaves a half-written file behind; the reader
// sees either the previous contents or the complete new contents.
//
// AtomicWriteFile writes data to path with the given permissions. The
// parent directory is created if missing. The temp file lives in the
// same directory because rename is only atomic within one filesystem.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".unialerta-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if err := writeAndRename(tmp, data, perm, target); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func writeAndRename(tmp *os.File, data []byte, perm os.FileMode, target string) error {
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	// Windows refuses to rename an open file.
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("replacing %s: %w", target, err)
	}
	return nil
}
