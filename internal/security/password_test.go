package security

import "testing"

func TestHashPasswordProducesDistinctDigests(t *testing.T) {
	first, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	second, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	if first == second {
		t.Fatalf("expected different digests for repeated hashing, got identical: %q", first)
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Fatalf("expected match, got error: %v", err)
	}

	if err := CheckPassword(hash, "wrong password"); err == nil {
		t.Fatal("expected mismatch error for wrong password, got nil")
	}
}

func TestCheckPasswordMalformedDigest(t *testing.T) {
	// Garbage that is not a bcrypt digest must fail, not panic.
	if err := CheckPassword("not-a-bcrypt-digest", "anything"); err == nil {
		t.Fatal("expected error for malformed digest, got nil")
	}
}
