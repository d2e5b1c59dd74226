// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// SESSION LOCK
// =============================================================================

// PBKDF2 parameters for the lock passphrase digest.
const (
	lockIterations = 600_000
	lockKeyLen     = 32
	lockSaltLen    = 16
)

var (
	ErrWrongPassphrase = errors.New("wrong passphrase")
	ErrWrongTOTP       = errors.New("wrong verification code")
	ErrNoLockSet       = errors.New("no lock passphrase configured")
)

// LockStore persists lock credentials. The storage package satisfies
// it.
type LockStore interface {
	LockCredentials() (salt, digest string, err error)
	SetLockCredentials(salt, digest string) error
}

// Lock guards the session behind a passphrase and, when enrolled, a
// TOTP second factor. Only a salted PBKDF2 digest ever touches disk.
type Lock struct {
	store LockStore

	// totpSecret enables the second factor when non-empty.
	totpSecret string
}

// NewLock creates a lock over the given store.
func NewLock(store LockStore) *Lock {
	return &Lock{store: store}
}

// WithTOTPSecret enrolls a TOTP second factor for unlocking.
func (l *Lock) WithTOTPSecret(secret string) *Lock {
	l.totpSecret = secret
	return l
}

// SetPassphrase derives and stores a fresh salted digest.
func (l *Lock) SetPassphrase(passphrase string) error {
	salt := make([]byte, lockSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	digest := pbkdf2.Key([]byte(passphrase), salt, lockIterations, lockKeyLen, sha256.New)
	return l.store.SetLockCredentials(hex.EncodeToString(salt), hex.EncodeToString(digest))
}

// Unlock verifies the passphrase (and TOTP code when enrolled) in
// constant time against the stored digest.
func (l *Lock) Unlock(passphrase, totpCode string) error {
	saltHex, digestHex, err := l.store.LockCredentials()
	if err != nil {
		return ErrNoLockSet
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return fmt.Errorf("corrupt lock salt: %w", err)
	}
	stored, err := hex.DecodeString(digestHex)
	if err != nil {
		return fmt.Errorf("corrupt lock digest: %w", err)
	}

	derived := pbkdf2.Key([]byte(passphrase), salt, lockIterations, lockKeyLen, sha256.New)
	if subtle.ConstantTimeCompare(derived, stored) != 1 {
		return ErrWrongPassphrase
	}

	if l.totpSecret != "" {
		if !totp.Validate(totpCode, l.totpSecret) {
			return ErrWrongTOTP
		}
	}
	return nil
}

// Enrolled reports whether a passphrase has been set.
func (l *Lock) Enrolled() bool {
	_, _, err := l.store.LockCredentials()
	return err == nil
}
