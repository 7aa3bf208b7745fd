package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSanitizeAccount(t *testing.T) {
	account := &Account{
		Name:         "myaccount",
		AccessToken:  "ya29.verylongaccesstokenvalue",
		RefreshToken: "1//refreshtokenvaluehere",
		LastModified: time.Now(),
	}

	sanitized := SanitizeAccount(account)
	if sanitized.Name != "myaccount" {
		t.Errorf("Expected name preserved, got %q", sanitized.Name)
	}
	if sanitized.AccessToken == account.AccessToken {
		t.Error("Expected access token to be masked")
	}
	if sanitized.AccessToken[:4] != "ya29" {
		t.Errorf("Expected masked token to keep its prefix, got %q", sanitized.AccessToken)
	}

	// The original account is untouched.
	if account.AccessToken != "ya29.verylongaccesstokenvalue" {
		t.Error("Expected SanitizeAccount to copy, not mutate")
	}

	if SanitizeAccount(nil) != nil {
		t.Error("Expected nil in, nil out")
	}
}

func TestMaskString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"short", "********"},
		{"12345678", "********"},
		{"123456789abcdef", "1234...cdef"},
	}

	for _, test := range tests {
		if got := maskString(test.input); got != test.expected {
			t.Errorf("maskString(%q) = %q, want %q", test.input, got, test.expected)
		}
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("CHARTFETCH_ACCESS_TOKEN", "env-access-token")
	t.Setenv("CHARTFETCH_REFRESH_TOKEN", "env-refresh-token")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if account.Name != "default" {
		t.Errorf("Expected default account name, got %q", account.Name)
	}
	if account.AccessToken != "env-access-token" {
		t.Errorf("Unexpected access token: %q", account.AccessToken)
	}
	if account.RefreshToken != "env-refresh-token" {
		t.Errorf("Unexpected refresh token: %q", account.RefreshToken)
	}

	if !store.Exists("anything") {
		t.Error("Expected Exists to report true with the env var set")
	}

	if err := store.Store(account); err != ErrStoreUnavailable {
		t.Errorf("Expected store to be unavailable for writes, got %v", err)
	}
	if err := store.Delete("default"); err != ErrStoreUnavailable {
		t.Errorf("Expected store to be unavailable for deletes, got %v", err)
	}
}

func TestEnvironmentStoreMissingToken(t *testing.T) {
	t.Setenv("CHARTFETCH_ACCESS_TOKEN", "")

	store := NewEnvironmentStore()
	if _, err := store.Retrieve(""); err != ErrCredentialsNotFound {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
	if store.Exists("") {
		t.Error("Expected Exists to report false without the env var")
	}
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	t.Setenv("CHARTFETCH_PASSPHRASE", "test-passphrase")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("NewEncryptedFileStore failed: %v", err)
	}

	account := &Account{
		Name:        "myaccount",
		AccessToken: "secret-token",
	}
	if err := store.Store(account); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	// The file on disk never contains the plaintext token.
	if data, err := os.ReadFile(path); err != nil {
		t.Fatal(err)
	} else if strings.Contains(string(data), "secret-token") {
		t.Error("Expected credentials file to be encrypted")
	}

	got, err := store.Retrieve("myaccount")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if got.AccessToken != "secret-token" {
		t.Errorf("Unexpected token after round trip: %q", got.AccessToken)
	}

	accounts, err := store.List()
	if err != nil || len(accounts) != 1 {
		t.Fatalf("Expected one listed account, got %v (%v)", accounts, err)
	}

	if err := store.Delete("myaccount"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Retrieve("myaccount"); err != ErrCredentialsNotFound {
		t.Errorf("Expected ErrCredentialsNotFound after delete, got %v", err)
	}
}

func TestEncryptedFileStoreRejectsUnnamedAccount(t *testing.T) {
	t.Setenv("CHARTFETCH_PASSPHRASE", "test-passphrase")
	store, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "credentials.enc"))
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Store(&Account{AccessToken: "token"}); err != ErrInvalidCredentials {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := store.Retrieve(""); err != ErrInvalidCredentials {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
}
