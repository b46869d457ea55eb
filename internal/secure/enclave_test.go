package secure

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSecureBuffer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"passphrase", []byte("correct horse battery staple")},
		{"response bytes", bytes.Repeat([]byte{0xa1}, 20)},
		{"binary with zeros", []byte{0x00, 0xFF, 0x10, 0x20}},
		{"empty", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			want := append([]byte(nil), tt.data...)
			buf := NewSecureBuffer(tt.data)
			defer buf.Destroy()

			assert.Equal(t, len(want), buf.Size())
			err := buf.Use(func(b []byte) error {
				if len(want) == 0 {
					assert.Empty(t, b)
				} else {
					assert.Equal(t, want, b)
				}
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestNewSecureBufferWipesSource(t *testing.T) {
	t.Parallel()

	src := []byte("my passphrase")
	buf := NewSecureBuffer(src)
	defer buf.Destroy()

	assert.Equal(t, make([]byte, len(src)), src)
}

func TestSecureBufferOpen(t *testing.T) {
	t.Parallel()

	buf := NewSecureString("super-secret-data")
	defer buf.Destroy()

	for i := 0; i < 3; i++ {
		locked, err := buf.Open()
		require.NoError(t, err, "open %d", i)
		assert.Equal(t, []byte("super-secret-data"), locked.Bytes())
		locked.Destroy()
	}
}

func TestSecureBufferReveal(t *testing.T) {
	t.Parallel()

	buf := NewSecureString("challenge")
	defer buf.Destroy()

	s, err := buf.Reveal()
	require.NoError(t, err)
	assert.Equal(t, "challenge", s)
}

func TestSecureBufferUsePropagatesError(t *testing.T) {
	t.Parallel()

	buf := NewSecureString("x")
	defer buf.Destroy()

	boom := errors.New("write failed")
	assert.ErrorIs(t, buf.Use(func([]byte) error { return boom }), boom)
}

func TestSecureBufferDestroy(t *testing.T) {
	t.Parallel()

	buf := NewSecureString("secret-to-destroy")
	buf.Destroy()
	buf.Destroy()

	assert.Zero(t, buf.Size())

	_, err := buf.Open()
	assert.ErrorIs(t, err, ErrDestroyed)

	called := false
	err = buf.Use(func([]byte) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrDestroyed)
	assert.False(t, called)
}

func TestWipe(t *testing.T) {
	t.Parallel()

	b := []byte{1, 2, 3, 4}
	Wipe(b)
	assert.Equal(t, []byte{0, 0, 0, 0}, b)
}

func TestConcurrentUse(t *testing.T) {
	t.Parallel()

	buf := NewSecureString("shared")
	defer buf.Destroy()

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			done <- buf.Use(func(b []byte) error {
				if string(b) != "shared" {
					return errors.New("corrupted")
				}
				return nil
			})
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
}
