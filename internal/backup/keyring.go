// Package backup keeps an optional copy of the slot 2 secret in the OS
// keyring (macOS Keychain, Secret Service on Linux), keyed by the YubiKey
// serial number.
package backup

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/systmms/ykvc/internal/device"
	"github.com/systmms/ykvc/internal/secure"
)

// DefaultService is the keyring service name used when none is configured.
const DefaultService = "ykvc"

// ErrNoBackup is returned when the keyring has no secret for a serial.
var ErrNoBackup = stderrors.New("no slot 2 backup in keyring")

// Store saves and restores slot 2 secrets.
type Store interface {
	Save(serial string, secret []byte) error
	Load(serial string) (*secure.SecureBuffer, error)
	Delete(serial string) error
}

// Keyring is the go-keyring backed Store.
type Keyring struct {
	Service string
}

var _ Store = (*Keyring)(nil)

// NewKeyring returns a store under service, or DefaultService when empty.
func NewKeyring(service string) *Keyring {
	if service == "" {
		service = DefaultService
	}
	return &Keyring{Service: service}
}

// Account is the keyring user name for a device.
func Account(serial string) string {
	return "slot2-" + serial
}

// Save stores secret as hex under the device's account, replacing any
// previous backup.
func (k *Keyring) Save(serial string, secret []byte) error {
	if len(secret) != device.SecretSize {
		return fmt.Errorf("refusing to back up a %d byte secret", len(secret))
	}
	if err := keyring.Set(k.Service, Account(serial), fmt.Sprintf("%x", secret)); err != nil {
		return fmt.Errorf("failed to store secret in keyring: %w", err)
	}
	return nil
}

// Load returns the backed-up secret sealed in a SecureBuffer.
func (k *Keyring) Load(serial string) (*secure.SecureBuffer, error) {
	value, err := keyring.Get(k.Service, Account(serial))
	if err != nil {
		if stderrors.Is(err, keyring.ErrNotFound) {
			return nil, fmt.Errorf("%w for serial %s", ErrNoBackup, serial)
		}
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	secret, err := device.ParseSecretHex(value)
	if err != nil {
		return nil, fmt.Errorf("keyring entry for serial %s is corrupt: %w", serial, err)
	}
	return secure.NewSecureBuffer(secret), nil
}

// Delete removes the backup. A missing entry is not an error.
func (k *Keyring) Delete(serial string) error {
	err := keyring.Delete(k.Service, Account(serial))
	if err != nil && !stderrors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete keyring entry: %w", err)
	}
	return nil
}

// Headless reports whether the session probably has no keyring daemon to
// talk to (SSH without a display, CI).
func Headless() bool {
	if os.Getenv("CI") != "" {
		return true
	}
	if os.Getenv("SSH_TTY") != "" && os.Getenv("DISPLAY") == "" {
		return true
	}
	return false
}
