package passhash_test

import (
	"bytes"
	"testing"

	"github.com/chanlock/chanlock/internal/chanlock/passhash"
)

func TestDeriveVerify_RoundTrip(t *testing.T) {
	salt, hash, err := passhash.Derive("open sesame")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	if len(salt) != passhash.SaltLen {
		t.Errorf("salt is %d bytes, want %d", len(salt), passhash.SaltLen)
	}
	if len(hash) != passhash.HashLen {
		t.Errorf("hash is %d bytes, want %d", len(hash), passhash.HashLen)
	}

	if !passhash.Verify("open sesame", salt, hash) {
		t.Error("correct passphrase did not verify")
	}
	if passhash.Verify("open sesame?", salt, hash) {
		t.Error("wrong passphrase verified")
	}
	if passhash.Verify("", salt, hash) {
		t.Error("empty passphrase verified")
	}
}

func TestDerive_FreshSaltPerCall(t *testing.T) {
	salt1, hash1, err := passhash.Derive("same passphrase")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	salt2, hash2, err := passhash.Derive("same passphrase")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	if bytes.Equal(salt1, salt2) {
		t.Error("two Derive calls produced the same salt")
	}
	if bytes.Equal(hash1, hash2) {
		t.Error("two Derive calls produced the same hash")
	}

	// Each hash still verifies against its own salt.
	if !passhash.Verify("same passphrase", salt1, hash1) {
		t.Error("first derivation did not verify")
	}
	if !passhash.Verify("same passphrase", salt2, hash2) {
		t.Error("second derivation did not verify")
	}
}

func TestVerify_PanicsOnMalformedSalt(t *testing.T) {
	_, hash, err := passhash.Derive("pw")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for short salt")
		}
	}()
	passhash.Verify("pw", []byte("short"), hash)
}

func TestVerify_PanicsOnMalformedHash(t *testing.T) {
	salt, _, err := passhash.Derive("pw")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for short hash")
		}
	}()
	passhash.Verify("pw", salt, []byte("short"))
}
