// Package device drives a YubiKey's slot 2 through ykman, ykpersonalize and
// ykchalresp. Nothing is cached: every call queries the key again, since
// slot state may change between calls.
package device

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/systmms/ykvc/internal/errors"
	"github.com/systmms/ykvc/internal/logging"
	"github.com/systmms/ykvc/internal/platform"
	pkgexec "github.com/systmms/ykvc/pkg/exec"
)

const (
	// SecretSize is the HMAC-SHA1 key length programmed into slot 2.
	SecretSize = errors.SecretSize
	// ResponseSize is the HMAC-SHA1 digest length returned by ykchalresp.
	ResponseSize = 20
)

// personalizeArgs configures slot 2 for HMAC-SHA1 challenge-response with a
// variable-length (<64 byte) challenge, serial visible over the API, no
// confirmation prompt. The hex secret follows -a.
var personalizeArgs = []string{
	"-2",
	"-ochal-resp",
	"-ochal-hmac",
	"-ohmac-lt64",
	"-oserial-api-visible",
	"-y",
	"-a",
}

// Info describes a connected YubiKey.
type Info struct {
	Serial          string
	FirmwareVersion string
	Slot2Programmed bool
}

// Controller issues device operations through a CommandExecutor.
type Controller struct {
	executor pkgexec.CommandExecutor
	profile  platform.Profile
	logger   *logging.Logger
	rand     io.Reader
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the debug logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithRand replaces crypto/rand as the secret source.
func WithRand(r io.Reader) Option {
	return func(c *Controller) { c.rand = r }
}

// NewController returns a controller invoking the tools named in profile.
func NewController(executor pkgexec.CommandExecutor, profile platform.Profile, opts ...Option) *Controller {
	c := &Controller{
		executor: executor,
		profile:  profile,
		rand:     rand.Reader,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryInfo reads serial and firmware from `ykman info`, then queries
// slot 2 separately.
func (c *Controller) QueryInfo(ctx context.Context) (Info, error) {
	ykman := c.profile.Tool(platform.ToolYkman)

	stdout, err := c.ykman(ctx, "info")
	if err != nil {
		return Info{}, err
	}

	serial, firmware, err := ParseInfo(stdout)
	if err != nil {
		return Info{}, err
	}
	c.debug("%s reports serial %s, firmware %s", ykman, serial, firmware)

	programmed, err := c.Slot2Status(ctx)
	if err != nil {
		return Info{}, err
	}

	return Info{
		Serial:          serial,
		FirmwareVersion: firmware,
		Slot2Programmed: programmed,
	}, nil
}

// Slot2Status reports whether slot 2 holds a configuration.
func (c *Controller) Slot2Status(ctx context.Context) (bool, error) {
	stdout, err := c.ykman(ctx, "otp", "info")
	if err != nil {
		return false, err
	}
	return ParseSlot2Programmed(stdout), nil
}

func (c *Controller) ykman(ctx context.Context, args ...string) (string, error) {
	tool := c.profile.Tool(platform.ToolYkman)

	stdout, stderr, err := c.executor.Execute(ctx, tool, args...)
	if err != nil {
		if pkgexec.NotStarted(err) {
			return "", errors.YkmanFailed(fmt.Sprintf("Failed to execute %s: %v", tool, err))
		}
		if noDevice(string(stderr)) {
			return "", errors.DeviceNotFound()
		}
		return "", errors.YkmanFailed(fmt.Sprintf("%s failed: %s", pkgexec.CommandLine(tool, args...), strings.TrimSpace(string(stderr))))
	}
	return string(stdout), nil
}

// ProgramSlot2 writes secret into slot 2 as an HMAC-SHA1 challenge-response
// key and returns the bytes programmed. A nil secret generates a random one;
// any other secret must be exactly SecretSize bytes and is checked before
// the key is touched.
func (c *Controller) ProgramSlot2(ctx context.Context, secret []byte) ([]byte, error) {
	if secret == nil {
		secret = make([]byte, SecretSize)
		if _, err := io.ReadFull(c.rand, secret); err != nil {
			return nil, errors.Wrap(err, "failed to generate secret")
		}
	} else if len(secret) != SecretSize {
		return nil, errors.InvalidSecretLength(len(secret))
	}

	tool := c.profile.Tool(platform.ToolYkpersonalize)
	secretHex := hex.EncodeToString(secret)
	args := append(append([]string(nil), personalizeArgs...), secretHex)
	c.debug("Running: %s %s %s", tool, strings.Join(personalizeArgs, " "), logging.Secret(secretHex))

	_, stderr, err := c.executor.Execute(ctx, tool, args...)
	if err != nil {
		if pkgexec.NotStarted(err) {
			return nil, errors.YkpersonalizeFailed(fmt.Sprintf("Failed to execute %s: %v", tool, err))
		}
		return nil, errors.YkpersonalizeFailed(fmt.Sprintf("%s failed: %s", tool, strings.TrimSpace(string(stderr))))
	}

	return secret, nil
}

// ChallengeResponse computes HMAC-SHA1 of challenge with the slot 2 secret.
// The challenge is passed as an argument, not on stdin.
func (c *Controller) ChallengeResponse(ctx context.Context, challenge string) ([]byte, error) {
	tool := c.profile.Tool(platform.ToolYkchalresp)

	stdout, stderr, err := c.executor.Execute(ctx, tool, "-2", challenge)
	if err != nil {
		if pkgexec.NotStarted(err) {
			return nil, errors.YkchalrespFailed(fmt.Sprintf("Failed to execute %s: %v", tool, err))
		}
		msg := string(stderr)
		switch {
		case noDevice(msg):
			return nil, errors.DeviceNotFound()
		case slotNotProgrammed(msg):
			return nil, errors.SlotNotProgrammed()
		default:
			return nil, errors.YkchalrespFailed(fmt.Sprintf("%s failed: %s", tool, strings.TrimSpace(msg)))
		}
	}

	return DecodeResponse(string(stdout))
}

func (c *Controller) debug(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(format, args...)
	}
}
