// Package secure keeps passphrases, slot secrets and challenge responses
// out of ordinary Go memory while ykvc works with them.
//
// Values are sealed in a memguard enclave (encrypted at rest, mlocked where
// the OS allows) and only decrypted into a LockedBuffer for the moment they
// are needed:
//
//	buf := secure.NewSecureBuffer(response)
//	defer buf.Destroy()
//
//	err := buf.Use(func(b []byte) error {
//	    _, err := manager.Write(b, path)
//	    return err
//	})
//
// On Linux, locked pages count against RLIMIT_MEMLOCK; ykvc only ever holds
// a few small values at once. Call memguard.Purge from main so every
// enclave key is wiped on exit.
package secure
