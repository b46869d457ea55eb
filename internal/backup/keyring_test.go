package backup_test

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/systmms/ykvc/internal/backup"
	"github.com/systmms/ykvc/internal/errors"
)

// go-keyring's mock provider is process-global, so these tests run serially.

func TestKeyringRoundTrip(t *testing.T) {
	keyring.MockInit()

	store := backup.NewKeyring("")
	assert.Equal(t, backup.DefaultService, store.Service)

	secret := bytes.Repeat([]byte{0x42}, 20)
	require.NoError(t, store.Save("12345678", append([]byte(nil), secret...)))

	raw, err := keyring.Get(backup.DefaultService, "slot2-12345678")
	require.NoError(t, err)
	assert.Equal(t, "4242424242424242424242424242424242424242", raw)

	buf, err := store.Load("12345678")
	require.NoError(t, err)
	defer buf.Destroy()

	require.NoError(t, buf.Use(func(b []byte) error {
		assert.Equal(t, secret, b)
		return nil
	}))
}

func TestKeyringLoadMissing(t *testing.T) {
	keyring.MockInit()

	_, err := backup.NewKeyring("ykvc-test").Load("999")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, backup.ErrNoBackup))
	assert.Contains(t, err.Error(), "serial 999")
}

func TestKeyringLoadCorrupt(t *testing.T) {
	keyring.MockInit()

	require.NoError(t, keyring.Set("ykvc", backup.Account("1"), "abcd"))

	_, err := backup.NewKeyring("ykvc").Load("1")
	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidSecretLength, errors.KindOf(err))
}

func TestKeyringSaveRejectsWrongLength(t *testing.T) {
	keyring.MockInit()

	err := backup.NewKeyring("ykvc").Save("1", []byte{1, 2, 3})
	require.Error(t, err)

	_, err = keyring.Get("ykvc", backup.Account("1"))
	assert.ErrorIs(t, err, keyring.ErrNotFound)
}

func TestKeyringDelete(t *testing.T) {
	keyring.MockInit()

	store := backup.NewKeyring("ykvc")
	require.NoError(t, store.Save("7", bytes.Repeat([]byte{1}, 20)))
	require.NoError(t, store.Delete("7"))
	require.NoError(t, store.Delete("7"), "deleting twice is fine")

	_, err := store.Load("7")
	assert.ErrorIs(t, err, backup.ErrNoBackup)
}

func TestKeyringBackendError(t *testing.T) {
	keyring.MockInitWithError(stderrors.New("dbus unavailable"))
	t.Cleanup(keyring.MockInit)

	store := backup.NewKeyring("ykvc")
	err := store.Save("1", bytes.Repeat([]byte{1}, 20))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dbus unavailable")

	_, err = store.Load("1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, backup.ErrNoBackup)
}

func TestHeadless(t *testing.T) {
	t.Setenv("CI", "true")
	assert.True(t, backup.Headless())

	t.Setenv("CI", "")
	t.Setenv("SSH_TTY", "/dev/pts/0")
	t.Setenv("DISPLAY", "")
	assert.True(t, backup.Headless())

	t.Setenv("SSH_TTY", "")
	assert.False(t, backup.Headless())
}
