package secretstore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestUpsertThenReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.env")
	if err := UpsertSecret(path, "CHAT_TOKEN_SECRET", "chat-token"); err != nil {
		t.Fatalf("UpsertSecret: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got["CHAT_TOKEN_SECRET"] != "chat-token" {
		t.Fatalf("got %+v", got)
	}
}

func TestUpsertRejectsInvalidName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.env")
	err := UpsertSecret(path, "not-valid", "x")
	if CodeOf(err) != "invalid_secret_name" {
		t.Fatalf("got code %q want invalid_secret_name", CodeOf(err))
	}
}

func TestUpsertSanitizesValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.env")
	if err := UpsertSecret(path, "CHAT_TOKEN_SECRET", "  has\nnewline  "); err != nil {
		t.Fatalf("UpsertSecret: %v", err)
	}
	got, _ := Read(path)
	if got["CHAT_TOKEN_SECRET"] != "hasnewline" {
		t.Fatalf("got %q", got["CHAT_TOKEN_SECRET"])
	}
}

func TestDeleteSecretRefusesWhenInUse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.env")
	UpsertSecret(path, "CHAT_TOKEN_SECRET", "chat-token")
	err := DeleteSecret(path, "CHAT_TOKEN_SECRET", []string{"channel-chat"})
	if CodeOf(err) != "secret_in_use" {
		t.Fatalf("got code %q want secret_in_use", CodeOf(err))
	}
}

func TestDeleteThenUpsertReproducesOriginal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.env")
	UpsertSecret(path, "A", "1")
	UpsertSecret(path, "B", "2")
	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if err := DeleteSecret(path, "A", nil); err != nil {
		t.Fatalf("DeleteSecret: %v", err)
	}
	if err := UpsertSecret(path, "A", "1"); err != nil {
		t.Fatalf("UpsertSecret: %v", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	// spec.md §8: deleting a key and re-adding it with its original value
	// must reproduce the original secret file byte-for-byte, not just key
	// by key — re-adding "A" has to land back in its original slot rather
	// than at the tail of the file.
	if string(after) != string(original) {
		t.Fatalf("got %q want byte-identical to original %q", after, original)
	}
}

func TestDeleteUnknownSecretName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.env")
	err := DeleteSecret(path, "NOPE", nil)
	if CodeOf(err) != "unknown_secret_name" {
		t.Fatalf("got code %q want unknown_secret_name", CodeOf(err))
	}
}
