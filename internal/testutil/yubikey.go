package testutil

import (
	"os"
)

// Captured tool output used across the device and command tests.
const (
	YkmanInfoOutput = `Device type: YubiKey 5 NFC
Serial number: 12345678
Firmware version: 5.4.3
Form factor: Keychain (USB-A)
Enabled USB interfaces: OTP, FIDO, CCID
NFC transport is enabled.

Applications	USB    	NFC
OTP     	Enabled	Enabled
FIDO U2F	Enabled	Enabled
`

	YkmanOtpProgrammed = `Slot 1: programmed
Slot 2: programmed
`

	YkmanOtpEmpty = `Slot 1: programmed
Slot 2: empty
`

	NoDeviceStderr = "ERROR: No YubiKey detected!\n"

	SlotNotProgrammedStderr = "Yubikey core error: slot 2 is not programmed\n"

	// ChallengeResponseHex is a 40-character ykchalresp reply.
	ChallengeResponseHex = "a1b2c3d4e5f60718293a4b5c6d7e8f9012345678"
)

// NewYubiKeyExecutor returns a mock wired for a connected key with slot 2
// programmed (programmed=true) or empty.
func NewYubiKeyExecutor(programmed bool) *MockCommandExecutor {
	m := NewMockCommandExecutor()
	m.AddOutput("ykman info", YkmanInfoOutput)
	if programmed {
		m.AddOutput("ykman otp info", YkmanOtpProgrammed)
	} else {
		m.AddOutput("ykman otp info", YkmanOtpEmpty)
	}
	m.AddOutput("ykpersonalize -2", "")
	m.AddOutput("ykchalresp -2", ChallengeResponseHex+"\n")
	return m
}

// NewDisconnectedExecutor returns a mock where every device tool reports no key.
func NewDisconnectedExecutor() *MockCommandExecutor {
	m := NewMockCommandExecutor()
	m.AddErrorResponse("ykman", NoDeviceStderr, 1)
	m.AddErrorResponse("ykchalresp", NoDeviceStderr, 1)
	m.AddErrorResponse("ykpersonalize", NoDeviceStderr, 1)
	return m
}

// RemoveLastArg is a MockResponse.Effect that deletes the file named by the
// final argument, the way shred -u does.
func RemoveLastArg(args []string) {
	if len(args) == 0 {
		return
	}
	_ = os.Remove(args[len(args)-1])
}

// LookPathWith resolves only the named tools.
func LookPathWith(present ...string) func(string) (string, error) {
	set := make(map[string]bool, len(present))
	for _, p := range present {
		set[p] = true
	}
	return func(name string) (string, error) {
		if set[name] {
			return "/usr/bin/" + name, nil
		}
		return "", &os.PathError{Op: "lookpath", Path: name, Err: os.ErrNotExist}
	}
}
