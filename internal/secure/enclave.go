package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrDestroyed is returned when a destroyed buffer is used.
var ErrDestroyed = errors.New("secure buffer has been destroyed")

// SecureBuffer holds one secret sealed in a memguard enclave.
type SecureBuffer struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	size      int
	destroyed bool
}

// NewSecureBuffer seals data. memguard wipes data as it copies it, so the
// caller's slice is zeroed on return.
func NewSecureBuffer(data []byte) *SecureBuffer {
	size := len(data)
	if size == 0 {
		return &SecureBuffer{}
	}
	return &SecureBuffer{
		enclave: memguard.NewEnclave(data),
		size:    size,
	}
}

// NewSecureString seals the bytes of s. The string itself cannot be wiped;
// prefer NewSecureBuffer when the value starts as a []byte.
func NewSecureString(s string) *SecureBuffer {
	return NewSecureBuffer([]byte(s))
}

// Size is the length of the sealed secret.
func (s *SecureBuffer) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Open decrypts into a LockedBuffer the caller must Destroy.
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return nil, ErrDestroyed
	}
	if s.enclave == nil {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}
	return s.enclave.Open()
}

// Use decrypts the secret for the duration of fn and wipes it afterwards.
// fn must not retain the slice.
func (s *SecureBuffer) Use(fn func([]byte) error) error {
	s.mu.RLock()
	if s.destroyed {
		s.mu.RUnlock()
		return ErrDestroyed
	}
	if s.enclave == nil {
		s.mu.RUnlock()
		return fn(nil)
	}
	locked, err := s.enclave.Open()
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	defer locked.Destroy()

	return fn(locked.Bytes())
}

// Reveal decrypts the secret into an ordinary string, for handing it to an
// external tool as an argument.
func (s *SecureBuffer) Reveal() (string, error) {
	var out string
	err := s.Use(func(b []byte) error {
		out = string(b)
		return nil
	})
	return out, err
}

// Destroy drops the enclave. It is safe to call more than once.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enclave = nil
	s.size = 0
	s.destroyed = true
}

// Wipe zeroes b in place.
func Wipe(b []byte) {
	memguard.WipeBytes(b)
}
