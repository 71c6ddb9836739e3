package fetch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/executor"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
)

type fakeRunner struct {
	argv []string
	exit int

	// write simulates the downloader creating its output file.
	write string
}

func (r *fakeRunner) Run(ctx context.Context, cmd executor.Command) (executor.Result, error) {
	r.argv = cmd.Argv
	if r.write != "" && len(cmd.Argv) >= 4 {
		// wget -q -O <dest> <url>
		os.WriteFile(cmd.Argv[3], []byte(r.write), 0o644)
	}
	return executor.Result{ExitCode: r.exit}, nil
}

func TestFetchHTTPInvokesDownloader(t *testing.T) {
	r := &fakeRunner{write: "archive-bytes"}
	f := &Fetcher{Runner: r}
	dest := filepath.Join(t.TempDir(), "foo-1.0.archive")

	if err := f.Fetch(context.Background(), "https://pkgs.example.org/foo-1.0.archive", dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if r.argv[0] != Downloader {
		t.Errorf("helper = %q, want %q", r.argv[0], Downloader)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "archive-bytes" {
		t.Errorf("dest content = %q, %v", data, err)
	}
	if _, err := os.Stat(dest + ".part"); !os.IsNotExist(err) {
		t.Error("partial file left behind")
	}
}

func TestFetchHTTPDownloaderFailure(t *testing.T) {
	r := &fakeRunner{exit: 8}
	f := &Fetcher{Runner: r}
	dest := filepath.Join(t.TempDir(), "foo.archive")

	err := f.Fetch(context.Background(), "https://pkgs.example.org/foo.archive", dest)
	if !operr.IsKind(err, operr.KindDownload) {
		t.Fatalf("expected download error, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("failed download left a file under the final name")
	}
}

func TestFetchFileScheme(t *testing.T) {
	src := filepath.Join(t.TempDir(), "local.archive")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(t.TempDir(), "out.archive")

	f := &Fetcher{Runner: &fakeRunner{}}
	if err := f.Fetch(context.Background(), "file://"+src, dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "payload" {
		t.Errorf("content = %q", data)
	}
}

func TestFetchUnsupportedScheme(t *testing.T) {
	f := &Fetcher{Runner: &fakeRunner{}}
	err := f.Fetch(context.Background(), "gopher://x/y", filepath.Join(t.TempDir(), "y"))
	if !operr.IsKind(err, operr.KindDownload) {
		t.Fatalf("expected download error, got %v", err)
	}
}
