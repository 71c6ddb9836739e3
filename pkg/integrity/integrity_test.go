package integrity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestFileSHA256(t *testing.T) {
	path := writeFile(t, "data", "abc")
	// Known SHA-256 of "abc".
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	got, err := FileSHA256(path)
	if err != nil {
		t.Fatalf("FileSHA256: %v", err)
	}
	if got != want {
		t.Errorf("digest = %s, want %s", got, want)
	}
}

func TestVerifyMatch(t *testing.T) {
	path := writeFile(t, "data", "abc")
	if err := Verify(path, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestVerifyMismatch(t *testing.T) {
	path := writeFile(t, "data", "abc")
	err := Verify(path, "0000000000000000000000000000000000000000000000000000000000000000")
	if !operr.IsKind(err, operr.KindChecksumMismatch) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
	// Verify must not delete the file; that decision belongs to the caller.
	if _, statErr := os.Stat(path); statErr != nil {
		t.Errorf("file removed on mismatch: %v", statErr)
	}
}

func TestVerifyMissingFile(t *testing.T) {
	err := Verify(filepath.Join(t.TempDir(), "absent"), "00")
	if !operr.IsKind(err, operr.KindChecksumMismatch) {
		t.Fatalf("expected checksum kind for unreadable file, got %v", err)
	}
}
