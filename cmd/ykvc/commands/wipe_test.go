package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/ykvc/internal/errors"
	"github.com/systmms/ykvc/internal/testutil"
)

func writeKeyfile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "left-behind.key")
	require.NoError(t, os.WriteFile(path, make([]byte, 20), 0o600))
	return path
}

func TestWipeCommand(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.NewYubiKeyExecutor(true))
	path := writeKeyfile(t, h.dir)
	h.prompter.Confirms = []bool{true}

	require.NoError(t, h.run(NewWipeCommand(h.cfg), path))

	assert.NoFileExists(t, path)
	assert.Equal(t, path, lastArg(t, h.exec, "shred"))
	assert.Contains(t, h.out.String(), "File to be securely deleted (10 passes):")
	assert.Contains(t, h.out.String(), "[SUCCESS] Keyfile deleted securely")
	assert.Contains(t, h.audit.String(), "keyfile_wiped")
}

func TestWipeCommand_Refused(t *testing.T) {
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
			path := writeKeyfile(t, h.dir)
			h.prompter.Confirms = tt.confirms

			err := h.run(NewWipeCommand(h.cfg), path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.KindCancelled))
			assert.FileExists(t, path)
			h.exec.AssertNotCalled(t, "shred")
		})
	}
}

func TestWipeCommand_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, testutil.NewYubiKeyExecutor(true))
		err := h.run(NewWipeCommand(h.cfg), "--yes", filepath.Join(h.dir, "nope.key"))

		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.KindFileOperation))
		assert.Contains(t, err.Error(), "File does not exist")
	})

	t.Run("erase tool missing", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, testutil.NewYubiKeyExecutor(true))
		h.cfg.LookPath = testutil.LookPathWith("ykman", "ykpersonalize", "ykchalresp")
		path := writeKeyfile(t, h.dir)

		err := h.run(NewWipeCommand(h.cfg), "--yes", path)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.KindDependencyMissing))
		assert.FileExists(t, path)
	})

	t.Run("no path", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, testutil.NewYubiKeyExecutor(true))
		err := h.run(NewWipeCommand(h.cfg))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "No keyfile specified")
	})
}
