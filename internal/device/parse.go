package device

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/systmms/ykvc/internal/errors"
)

// Stderr fragments the YubiKey tools print when no key is attached.
var noDeviceMarkers = []string{"No YubiKey detected", "not connected"}

func noDevice(stderr string) bool {
	for _, m := range noDeviceMarkers {
		if strings.Contains(stderr, m) {
			return true
		}
	}
	return false
}

func slotNotProgrammed(stderr string) bool {
	return strings.Contains(stderr, "slot 2") && strings.Contains(stderr, "not programmed")
}

// ParseInfo extracts the serial number and firmware version from
// `ykman info` output.
func ParseInfo(output string) (serial, firmware string, err error) {
	serial, ok := lookupValue(output, "serial")
	if !ok {
		return "", "", errors.YkmanFailed("Could not parse serial number")
	}
	firmware, ok = lookupValue(output, "firmware")
	if !ok {
		return "", "", errors.YkmanFailed("Could not parse firmware version")
	}
	return serial, firmware, nil
}

// lookupValue finds the first line whose lower-cased text contains key and
// returns the trimmed text after its first colon.
func lookupValue(output, key string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(strings.ToLower(line), key) {
			continue
		}
		_, value, found := strings.Cut(line, ":")
		if !found {
			return "", false
		}
		return strings.TrimSpace(value), true
	}
	return "", false
}

// ParseSlot2Programmed reports whether `ykman otp info` output lists slot 2
// as programmed.
func ParseSlot2Programmed(output string) bool {
	for _, line := range strings.Split(output, "\n") {
		l := strings.ToLower(line)
		if strings.Contains(l, "slot 2") && strings.Contains(l, "programmed") {
			return true
		}
	}
	return false
}

// DecodeResponse turns ykchalresp stdout into the raw response bytes.
func DecodeResponse(stdout string) ([]byte, error) {
	resp, err := hex.DecodeString(strings.TrimSpace(stdout))
	if err != nil {
		return nil, errors.YkchalrespFailed(fmt.Sprintf("Failed to decode hex response: %v", err))
	}
	if len(resp) != ResponseSize {
		return nil, errors.YkchalrespFailed(fmt.Sprintf("unexpected response length: expected %d bytes, got %d", ResponseSize, len(resp)))
	}
	return resp, nil
}

// ParseSecretHex decodes an operator-supplied slot 2 secret.
func ParseSecretHex(s string) ([]byte, error) {
	secret, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.InvalidHex(err.Error())
	}
	if len(secret) != SecretSize {
		return nil, errors.InvalidSecretLength(len(secret))
	}
	return secret, nil
}
