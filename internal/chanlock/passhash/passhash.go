// Package passhash derives and verifies salted passphrase hashes.
//
// The derivation is PBKDF2-SHA512 with a fixed work factor.  The iteration
// count is chosen to keep interactive verification well under a second
// while making offline brute force expensive; changing it invalidates
// every stored credential, so it is a constant rather than configuration.
package passhash

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltLen is the salt size in bytes (128 bits of entropy).
	SaltLen = 16

	// HashLen is the derived key size in bytes (512 bits).
	HashLen = 64

	// iterations is the PBKDF2 work factor.
	iterations = 310_000
)

// Derive returns a fresh random salt and the passphrase hash derived from
// it.  Two calls with the same passphrase yield different salts and hashes.
func Derive(passphrase string) (salt, hash []byte, err error) {
	salt = make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("read salt: %w", err)
	}
	hash = pbkdf2.Key([]byte(passphrase), salt, iterations, HashLen, sha512.New)
	return salt, hash, nil
}

// Verify reports whether the passphrase matches the stored salt/hash pair.
// The comparison is constant-time so timing does not leak how many leading
// bytes matched.
//
// Salt and hash only ever originate from the credential store, so a wrong
// length is a programming error and panics.
func Verify(passphrase string, salt, hash []byte) bool {
	if len(salt) != SaltLen {
		panic(fmt.Sprintf("passhash: salt is %d bytes, want %d", len(salt), SaltLen))
	}
	if len(hash) != HashLen {
		panic(fmt.Sprintf("passhash: hash is %d bytes, want %d", len(hash), HashLen))
	}
	candidate := pbkdf2.Key([]byte(passphrase), salt, iterations, HashLen, sha512.New)
	return subtle.ConstantTimeCompare(candidate, hash) == 1
}
