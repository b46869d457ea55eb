package commands

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/ykvc/internal/backup"
	"github.com/systmms/ykvc/internal/errors"
	"github.com/systmms/ykvc/internal/testutil"
)

const restoreSecretHex = "0102030405060708090a0b0c0d0e0f1011121314"

func TestSlot2Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		programmed bool
		want       []string
		notWant    string
	}{
		{
			name:       "programmed",
			programmed: true,
			want: []string{
				"[INFO] Checking slot 2 status...",
				"[SUCCESS] Slot 2 is programmed with HMAC-SHA1 Challenge-Response",
				"  - Generate keyfiles with ykvc generate",
				"  - Test challenge-response with ykvc test",
			},
			notWant: "To program slot 2",
		},
		{
			name:       "empty",
			programmed: false,
			want: []string{
				"[WARNING] Slot 2 is not programmed",
				"To program slot 2, run: ykvc slot2 program",
			},
			notWant: "You can now:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, testutil.NewYubiKeyExecutor(tt.programmed))
			require.NoError(t, h.run(NewSlot2Command(h.cfg), "check"))

			output := h.out.String()
			for _, w := range tt.want {
				assert.Contains(t, output, w)
			}
			assert.NotContains(t, output, tt.notWant)
			assert.Equal(t, []string{"ykman otp info"}, h.exec.Lines())
		})
	}
}

func TestSlot2Program_Confirmed(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.NewYubiKeyExecutor(false))
	h.prompter.Confirms = []bool{true}

	require.NoError(t, h.run(NewSlot2Command(h.cfg), "program"))

	secretHex := lastArg(t, h.exec, "ykpersonalize")
	secret, err := hex.DecodeString(secretHex)
	require.NoError(t, err)
	assert.Len(t, secret, 20)

	call := h.exec.GetCalls("ykpersonalize")[0]
	assert.Equal(t, []string{"-2", "-ochal-resp", "-ochal-hmac", "-ohmac-lt64", "-oserial-api-visible", "-y", "-a", secretHex}, call.Args)

	output := h.out.String()
	assert.Contains(t, output, "[WARNING] This will overwrite any existing slot 2 configuration!")
	assert.Contains(t, output, "[INFO] Generating random secret...")
	assert.Contains(t, output, "[SUCCESS] Slot 2 configured successfully!")
	assert.Contains(t, output, strings.Repeat("=", 70))
	assert.Contains(t, output, "IMPORTANT: Save this secret securely!")
	assert.Contains(t, output, "  "+secretHex)
	assert.Contains(t, output, "  ykvc slot2 restore <secret-hex>")

	assert.Equal(t, []string{"Do you want to continue?"}, h.prompter.Asked)
	assert.Equal(t, []string{"Press Enter to continue"}, h.prompter.Waited)

	assert.Contains(t, h.audit.String(), "slot2_program")
	assert.NotContains(t, h.audit.String(), secretHex)
	assert.Empty(t, h.store.get("12345678"))
}

func TestSlot2Program_Refused(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		confirms []bool
	}{
		{"declined", []bool{false}},
		{"non-interactive", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, testutil.NewYubiKeyExecutor(true))
			h.prompter.Confirms = tt.confirms

			err := h.run(NewSlot2Command(h.cfg), "program")
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.KindCancelled))
			assert.Contains(t, h.out.String(), "[INFO] Operation cancelled")
			h.exec.AssertNotCalled(t, "ykpersonalize")
			assert.Empty(t, h.prompter.Waited)
		})
	}
}

func TestSlot2Program_YesSkipsConfirmation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.NewYubiKeyExecutor(true))
	require.NoError(t, h.run(NewSlot2Command(h.cfg), "program", "--yes"))

	assert.Empty(t, h.prompter.Asked)
	h.exec.AssertCallCount(t, "ykpersonalize", 1)
}

func TestSlot2Program_BackupKeyring(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.NewYubiKeyExecutor(true))
	require.NoError(t, h.run(NewSlot2Command(h.cfg), "program", "--yes", "--backup-keyring"))

	secretHex := lastArg(t, h.exec, "ykpersonalize")
	assert.Equal(t, secretHex, h.store.get("12345678"))
	assert.Contains(t, h.out.String(), "Secret stored in the keyring for serial 12345678")
}

func TestSlot2Program_ToolFailure(t *testing.T) {
	t.Parallel()

	exec := testutil.NewYubiKeyExecutor(true)
	exec.AddErrorResponse("ykpersonalize -2", "USB error: Access denied\n", 1)

	h := newHarness(t, exec)
	err := h.run(NewSlot2Command(h.cfg), "program", "--yes")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindYkpersonalizeFailed))
	assert.NotContains(t, h.out.String(), "IMPORTANT")
}

func TestSlot2Restore(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.NewYubiKeyExecutor(false))
	h.prompter.Confirms = []bool{true}

	require.NoError(t, h.run(NewSlot2Command(h.cfg), "restore", restoreSecretHex))

	assert.Equal(t, restoreSecretHex, lastArg(t, h.exec, "ykpersonalize"))

	output := h.out.String()
	assert.Contains(t, output, "[INFO] Validating secret...")
	assert.Contains(t, output, "[SUCCESS] Secret is valid (20 bytes)")
	assert.Contains(t, output, "[INFO] Programming slot 2 with provided secret...")
	assert.Contains(t, output, "[SUCCESS] Slot 2 restored successfully!")
	assert.Contains(t, output, "as on the original YubiKey.")
	assert.Less(t, strings.Index(output, "Secret is valid"), strings.Index(output, "This will overwrite"))
}

func TestSlot2Restore_InvalidSecret(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		secret string
		kind   errors.Kind
	}{
		{"not hex", "zz" + restoreSecretHex[2:], errors.KindInvalidHex},
		{"odd length", restoreSecretHex[:39], errors.KindInvalidHex},
		{"short", restoreSecretHex[:38], errors.KindInvalidSecretLength},
		{"long", restoreSecretHex + "15", errors.KindInvalidSecretLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, testutil.NewYubiKeyExecutor(true))
			h.prompter.Confirms = []bool{true}

			err := h.run(NewSlot2Command(h.cfg), "restore", tt.secret)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			assert.Empty(t, h.prompter.Asked)
			h.exec.AssertNotCalled(t, "ykpersonalize")
		})
	}
}

func TestSlot2Restore_Arguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no source", []string{"restore"}, "No secret specified"},
		{"two sources", []string{"restore", restoreSecretHex, "--from-keyring", "12345678"}, "Both a secret and --from-keyring were given"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, testutil.NewYubiKeyExecutor(true))
			err := h.run(NewSlot2Command(h.cfg), tt.args...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Zero(t, h.exec.CallCount())
		})
	}
}

func TestSlot2Restore_FromKeyring(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.NewYubiKeyExecutor(false))
	secret, err := hex.DecodeString(restoreSecretHex)
	require.NoError(t, err)
	require.NoError(t, h.store.Save("12345678", secret))

	require.NoError(t, h.run(NewSlot2Command(h.cfg), "restore", "--from-keyring", "12345678", "--yes"))
	assert.Equal(t, restoreSecretHex, lastArg(t, h.exec, "ykpersonalize"))
}

func TestSlot2Restore_FromKeyringMissing(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.NewYubiKeyExecutor(false))
	err := h.run(NewSlot2Command(h.cfg), "restore", "--from-keyring", "87654321", "--yes")

	require.ErrorIs(t, err, backup.ErrNoBackup)
	h.exec.AssertNotCalled(t, "ykpersonalize")
}
