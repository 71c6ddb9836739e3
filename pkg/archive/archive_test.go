package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/executor"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
)

func TestCreateAndSystemExtractRoundTrip(t *testing.T) {
	if _, err := os.Stat("/bin/tar"); err != nil {
		if _, err := os.Stat("/usr/bin/tar"); err != nil {
			t.Skip("tar not available")
		}
	}

	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "info.hk"), []byte("[metadata]\nname = foo\nversion = 1.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(src, "payload"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "payload", "data.bin"), []byte("xyz"), 0o755); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(t.TempDir(), Name("foo", "1.0"))
	if err := Create(src, dest); err != nil {
		t.Fatalf("Create: %v", err)
	}

	outDir := t.TempDir()
	if err := Extract(context.Background(), executor.System{}, dest, outDir); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "info.hk")); err != nil {
		t.Errorf("manifest missing after extract: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(outDir, "payload", "data.bin"))
	if err != nil || string(data) != "xyz" {
		t.Errorf("payload = %q, %v", data, err)
	}
}

func TestExtractFailureStatus(t *testing.T) {
	err := Extract(context.Background(), executor.System{},
		filepath.Join(t.TempDir(), "missing.archive"), t.TempDir())
	if !operr.IsKind(err, operr.KindExtractionFailed) {
		t.Fatalf("expected extraction failure, got %v", err)
	}
}

func TestNames(t *testing.T) {
	if got := Name("foo", "1.0"); got != "foo-1.0.archive" {
		t.Errorf("Name = %q", got)
	}
	if !IsArchive("foo-1.0.archive") || IsArchive("foo.tar.gz") {
		t.Error("IsArchive misclassifies")
	}
}
