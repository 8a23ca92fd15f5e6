package security

import (
	"strings"
	"testing"
)

func testHasher(t *testing.T) *PasswordHasher {
	t.Helper()

	hasher, err := NewPasswordHasher(Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewPasswordHasher returned error: %v", err)
	}
	return hasher
}

func TestPasswordHasherHashAndVerify(t *testing.T) {
	hasher := testHasher(t)
	password := "correct horse battery staple"

	encoded, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 5 {
		t.Fatalf("unexpected hash format: %q", encoded)
	}
	if parts[0] != argon2Variant || parts[1] != argon2Version {
		t.Fatalf("unexpected header: %s$%s", parts[0], parts[1])
	}
	if parts[2] != "m=8192,t=1,p=1" {
		t.Fatalf("unexpected params: %s", parts[2])
	}
	if strings.Contains(encoded, password) {
		t.Fatal("encoded hash contains the plaintext")
	}

	if !hasher.Verify(encoded, password) {
		t.Fatal("Verify returned false for correct password")
	}
	if hasher.Verify(encoded, "Tr0ub4dor&3") {
		t.Fatal("Verify returned true for incorrect password")
	}
}

func TestPasswordHasherSaltsEveryHash(t *testing.T) {
	hasher := testHasher(t)

	first, err := hasher.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	second, err := hasher.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestPasswordHasherVerifyUsesEncodedParameters(t *testing.T) {
	older := testHasher(t)
	encoded, err := older.Hash("rotate-me")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	newer, err := NewPasswordHasher(Argon2Config{Memory: 16 * 1024, Iterations: 2, Parallelism: 2, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewPasswordHasher returned error: %v", err)
	}
	if !newer.Verify(encoded, "rotate-me") {
		t.Fatal("expected hash produced with older parameters to verify")
	}
}

func TestPasswordHasherVerifyMalformed(t *testing.T) {
	hasher := testHasher(t)

	cases := []string{
		"",
		"not-a-hash",
		"salt:hash",
		"bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHQ$aGFzaA",
		"argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHQ$aGFzaA",
		"argon2id$v=19$m=8192,t=1$c2FsdHNhbHQ$aGFzaA",
		"argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
	}
	for _, encoded := range cases {
		if hasher.Verify(encoded, "password") {
			t.Fatalf("expected malformed hash %q to fail verification", encoded)
		}
	}
}

func TestNewPasswordHasherRejectsWeakConfig(t *testing.T) {
	if _, err := NewPasswordHasher(Argon2Config{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}); err == nil {
		t.Fatal("expected error for low memory")
	}
	if _, err := NewPasswordHasher(Argon2Config{Memory: 8192, Iterations: 0, Parallelism: 1, SaltLength: 16, KeyLength: 32}); err == nil {
		t.Fatal("expected error for zero iterations")
	}
	if _, err := NewPasswordHasher(DefaultArgon2Config()); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
}
