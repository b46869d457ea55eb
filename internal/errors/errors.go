package errors

import (
	"errors"
	"fmt"
	"strings"
)

// SecretSize is the only accepted length, in bytes, of a slot 2 secret.
const SecretSize = 20

// Kind classifies every failure ykvc can report. The set is closed: callers
// may switch over it exhaustively.
type Kind int

const (
	KindOther Kind = iota
	KindDeviceNotFound
	KindSlotNotProgrammed
	KindDependencyMissing
	KindCommandFailed
	KindInstallationFailed
	KindInvalidHex
	KindInvalidSecretLength
	KindYkmanFailed
	KindYkpersonalizeFailed
	KindYkchalrespFailed
	KindFileOperation
	KindUnsupportedPlatform
	KindCancelled
)

var kindNames = map[Kind]string{
	KindOther:               "other",
	KindDeviceNotFound:      "device_not_found",
	KindSlotNotProgrammed:   "slot_not_programmed",
	KindDependencyMissing:   "dependency_missing",
	KindCommandFailed:       "command_failed",
	KindInstallationFailed:  "installation_failed",
	KindInvalidHex:          "invalid_hex",
	KindInvalidSecretLength: "invalid_secret_length",
	KindYkmanFailed:         "ykman_failed",
	KindYkpersonalizeFailed: "ykpersonalize_failed",
	KindYkchalrespFailed:    "ykchalresp_failed",
	KindFileOperation:       "file_operation_failed",
	KindUnsupportedPlatform: "unsupported_platform",
	KindCancelled:           "cancelled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the error type shared by the platform, dependency, device and
// keyfile components.
type Error struct {
	Code    Kind
	Message string
	// Length is the rejected secret length for KindInvalidSecretLength.
	Length int
	// Step names the failing installation step for KindInstallationFailed.
	Step string
	// Missing lists tools still absent after an installation that reported success.
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	switch e.Code {
	case KindDeviceNotFound:
		return "YubiKey not found. Please connect your YubiKey device."
	case KindSlotNotProgrammed:
		return "Slot 2 is not programmed. Run 'ykvc slot2 program' first."
	case KindDependencyMissing:
		return fmt.Sprintf("Required dependency '%s' is not installed", e.Message)
	case KindInstallationFailed:
		return "Failed to install dependencies: " + e.Message
	case KindInvalidHex:
		return "Invalid hex string: " + e.Message
	case KindInvalidSecretLength:
		return fmt.Sprintf("Invalid secret length: expected %d bytes, got %d", SecretSize, e.Length)
	case KindYkmanFailed:
		return "ykman command failed: " + e.Message
	case KindYkpersonalizeFailed:
		return "ykpersonalize command failed: " + e.Message
	case KindYkchalrespFailed:
		return "ykchalresp command failed: " + e.Message
	case KindFileOperation:
		return "File operation failed: " + e.Message
	case KindUnsupportedPlatform:
		return "Unsupported operating system: " + e.Message
	case KindCancelled:
		return "Operation cancelled by user"
	}

	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so the sentinels below work with
// errors.Is regardless of message or context.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrDeviceNotFound      = &Error{Code: KindDeviceNotFound}
	ErrSlotNotProgrammed   = &Error{Code: KindSlotNotProgrammed}
	ErrInstallationFailed  = &Error{Code: KindInstallationFailed}
	ErrInvalidHex          = &Error{Code: KindInvalidHex}
	ErrInvalidSecretLength = &Error{Code: KindInvalidSecretLength}
	ErrFileOperation       = &Error{Code: KindFileOperation}
	ErrUnsupportedPlatform = &Error{Code: KindUnsupportedPlatform}
	ErrCancelled           = &Error{Code: KindCancelled}
)

func DeviceNotFound() error {
	return &Error{Code: KindDeviceNotFound}
}

func SlotNotProgrammed() error {
	return &Error{Code: KindSlotNotProgrammed}
}

func DependencyMissing(tool string) error {
	return &Error{Code: KindDependencyMissing, Message: tool}
}

// InstallationFailed reports an installation step that failed on its own terms.
func InstallationFailed(step, message string, err error) error {
	return &Error{Code: KindInstallationFailed, Step: step, Message: message, Err: err}
}

// InstallationUnverified reports tools still missing after every installation
// step reported success.
func InstallationUnverified(missing []string) error {
	return &Error{
		Code:    KindInstallationFailed,
		Message: "Some dependencies are still missing after installation: " + strings.Join(missing, ", "),
		Missing: append([]string(nil), missing...),
	}
}

func InvalidHex(message string) error {
	return &Error{Code: KindInvalidHex, Message: message}
}

func InvalidSecretLength(length int) error {
	return &Error{Code: KindInvalidSecretLength, Length: length}
}

func YkmanFailed(message string) error {
	return &Error{Code: KindYkmanFailed, Message: message}
}

func YkpersonalizeFailed(message string) error {
	return &Error{Code: KindYkpersonalizeFailed, Message: message}
}

func YkchalrespFailed(message string) error {
	return &Error{Code: KindYkchalrespFailed, Message: message}
}

func FileOperation(message string, err error) error {
	if err != nil {
		message = message + ": " + err.Error()
	}
	return &Error{Code: KindFileOperation, Message: message, Err: err}
}

func UnsupportedPlatform(message string) error {
	return &Error{Code: KindUnsupportedPlatform, Message: message}
}

func Cancelled() error {
	return &Error{Code: KindCancelled}
}

// Wrap attaches context to an arbitrary cause as KindOther.
func Wrap(err error, format string, args ...interface{}) error {
	return &Error{Code: KindOther, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf classifies err, looking through wrapping. nil yields KindOther.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var ce CommandError
	if errors.As(err, &ce) {
		return KindCommandFailed
	}
	var cep *CommandError
	if errors.As(err, &cep) {
		return KindCommandFailed
	}
	return KindOther
}

// Is reports whether err is of kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  " + e.Suggestion
	}

	return msg
}

// CommandError represents a subprocess that could not be run or exited non-zero
type CommandError struct {
	Command    string
	ExitCode   int
	Message    string
	Suggestion string
}

func (e CommandError) Error() string {
	msg := fmt.Sprintf("Failed to execute command '%s'", e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code: %d)", e.ExitCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Suggestion != "" {
		msg += "\n  " + e.Suggestion
	}

	return msg
}

// WrapCommandNotFound wraps command not found errors with helpful suggestions
func WrapCommandNotFound(command string, err error) error {
	suggestions := map[string]string{
		"ykman":         "Install yubikey-manager (brew install ykman, apt-get install yubikey-manager)",
		"ykpersonalize": "Install yubikey-personalization (brew install ykpers, apt-get install yubikey-personalization)",
		"ykchalresp":    "Install yubikey-personalization (brew install ykpers, apt-get install yubikey-personalization)",
		"gshred":        "Install GNU coreutils: brew install coreutils",
		"shred":         "Install GNU coreutils: apt-get install coreutils",
		"brew":          "Install Homebrew from https://brew.sh/",
	}

	suggestion := suggestions[command]
	if suggestion == "" {
		suggestion = fmt.Sprintf("Make sure '%s' is installed and in your PATH", command)
	}

	message := "command not found"
	if err != nil {
		message += ": " + err.Error()
	}

	return CommandError{
		Command:    command,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Suggestion returns a one-line hint for the operator, or "" when none applies.
func Suggestion(err error) string {
	var ue UserError
	if errors.As(err, &ue) && ue.Suggestion != "" {
		return ue.Suggestion
	}

	switch KindOf(err) {
	case KindDeviceNotFound:
		return "Insert the YubiKey and check it shows up in 'ykman list'"
	case KindSlotNotProgrammed:
		return "Program slot 2 with 'ykvc slot2 program' or restore a backup with 'ykvc slot2 restore <secret-hex>'"
	case KindDependencyMissing, KindInstallationFailed:
		return "Run 'ykvc doctor' to see which tools are missing"
	case KindInvalidHex, KindInvalidSecretLength:
		return fmt.Sprintf("The secret must be exactly %d hex characters (%d bytes)", SecretSize*2, SecretSize)
	case KindUnsupportedPlatform:
		return "ykvc supports macOS and Ubuntu/Debian Linux"
	case KindFileOperation:
		return "Check the keyfile path and its permissions"
	}
	return ""
}
