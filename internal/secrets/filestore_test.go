package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_SaveAndRead(t *testing.T) {
	tests := []struct {
		name    string
		service string
		account string
		secret  string
	}{
		{
			name:    "basic secret",
			service: "Spotify",
			account: "accessToken",
			secret:  "test-access-token",
		},
		{
			name:    "account with same service",
			service: "Spotify",
			account: "refreshToken",
			secret:  "test-refresh-token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store := NewFileStore(filepath.Join(dir, "secrets.json"))

			if err := store.Save(tt.service, tt.account, tt.secret); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			got, err := store.Read(tt.service, tt.account)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}

			if got != tt.secret {
				t.Errorf("Read() = %q, want %q", got, tt.secret)
			}
		})
	}
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "secrets.json"))

	if err := store.Save("Spotify", "accessToken", "first"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save("Spotify", "accessToken", "second"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Read("Spotify", "accessToken")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != "second" {
		t.Errorf("Read() = %q, want %q", got, "second")
	}
}

func TestFileStore_ReadMissing(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "secrets.json"))

	_, err := store.Read("Spotify", "accessToken")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestFileStore_SaveCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeply", "secrets.json")
	store := NewFileStore(path)

	if err := store.Save("Spotify", "accessToken", "token"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("Save() did not create secrets file")
	}
}

func TestFileStore_Delete(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "secrets.json"))

	if err := store.Save("Spotify", "accessToken", "token"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := store.Delete("Spotify", "accessToken"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := store.Read("Spotify", "accessToken"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() after Delete() error = %v, want ErrNotFound", err)
	}
}

func TestFileStore_DeleteMissing(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "secrets.json"))

	if err := store.Delete("Spotify", "accessToken"); err != nil {
		t.Errorf("Delete() of missing secret error = %v, want nil", err)
	}
}
