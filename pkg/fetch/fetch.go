// Package fetch retrieves artifact archives into the cache. The scheme
// of the artifact URL selects the transport: http and https archives are
// fetched by the external downloader through the process executor, sftp
// archives come over SSH from a mirror, and file URLs are local copies.
package fetch

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/executor"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
)

// Downloader is the external helper used for http and https URLs.
const Downloader = "wget"

// Fetcher downloads artifacts.
type Fetcher struct {
	Runner executor.Runner
}

// New returns a fetcher backed by the system runner.
func New() *Fetcher {
	return &Fetcher{Runner: executor.System{}}
}

// Fetch retrieves rawURL into dest. The destination is written through a
// temp file and renamed, so a failed download never leaves a partial
// archive behind under the final name.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return operr.NewError(operr.KindDownload, "malformed artifact URL "+rawURL, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return operr.NewError(operr.KindDownload, "creating cache dir", err)
	}

	tmp := dest + ".part"
	defer os.Remove(tmp)

	switch u.Scheme {
	case "http", "https":
		err = f.fetchHTTP(ctx, rawURL, tmp)
	case "sftp":
		err = fetchSFTP(u, tmp)
	case "file", "":
		err = copyLocal(u.Path, tmp)
	default:
		return operr.NewError(operr.KindDownload, "unsupported URL scheme "+u.Scheme, nil)
	}
	if err != nil {
		return err
	}

	if err := os.Rename(tmp, dest); err != nil {
		return operr.NewError(operr.KindDownload, "publishing download", err)
	}
	log.Debug().Str("url", rawURL).Str("dest", dest).Msg("artifact fetched")
	return nil
}

// fetchHTTP delegates to the external downloader and trusts its exit
// status.
func (f *Fetcher) fetchHTTP(ctx context.Context, rawURL, dest string) error {
	res, err := f.Runner.Run(ctx, executor.Command{
		Argv: []string{Downloader, "-q", "-O", dest, rawURL},
	})
	if err != nil {
		return operr.NewError(operr.KindDownload, "downloader failed for "+rawURL, err)
	}
	if res.ExitCode != 0 {
		return operr.NewError(operr.KindDownload,
			"downloader exited with status "+strconv.Itoa(res.ExitCode)+" for "+rawURL, nil)
	}
	return nil
}

func copyLocal(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return operr.NewError(operr.KindDownload, "opening local artifact "+src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return operr.NewError(operr.KindDownload, "creating "+dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return operr.NewError(operr.KindDownload, "copying local artifact", err)
	}
	return out.Close()
}
