package engine

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/version"
)

// upgradeTimeout bounds the remote version probe.
const upgradeTimeout = 60 * time.Second

// Upgrade fetches the remote engine version and, when it is strictly
// newer than the local one, downloads the engine and sandbox helper
// binaries into their canonical paths, marks them executable, and
// updates the local version record. Upgrade is independent of the
// package lock.
func (e *Engine) Upgrade(ctx context.Context, localVersion string) error {
	done := e.beginOp(ctx, "upgrade", "", "")
	err := e.upgrade(ctx, localVersion)
	done(err)
	return err
}

func (e *Engine) upgrade(ctx context.Context, localVersion string) error {
	if recorded, err := os.ReadFile(e.Paths.VersionFile); err == nil {
		if v := strings.TrimSpace(string(recorded)); v != "" {
			localVersion = v
		}
	}

	remote, err := fetchRemoteVersion(ctx, UpgradeBaseURL+"/latest-version")
	if err != nil {
		return err
	}
	if version.Compare(remote, localVersion) <= 0 {
		e.printf("hpm %s is up to date", localVersion)
		return nil
	}
	log.Info().Str("local", localVersion).Str("remote", remote).Msg("upgrading engine")

	downloads := []struct{ url, dest string }{
		{UpgradeBaseURL + "/hpm", e.Paths.EnginePath},
		{UpgradeBaseURL + "/hpm-sandbox", e.Paths.HelperPath},
	}
	for _, d := range downloads {
		if err := os.MkdirAll(filepath.Dir(d.dest), 0o755); err != nil {
			return operr.NewError(operr.KindPermission, "creating "+filepath.Dir(d.dest), err)
		}
		if err := e.Fetcher.Fetch(ctx, d.url, d.dest); err != nil {
			return err
		}
		if err := os.Chmod(d.dest, 0o755); err != nil {
			return operr.NewError(operr.KindPermission, "marking "+d.dest+" executable", err)
		}
	}

	tmp := e.Paths.VersionFile + ".tmp"
	if err := os.MkdirAll(filepath.Dir(e.Paths.VersionFile), 0o755); err != nil {
		return operr.NewError(operr.KindPermission, "creating version record dir", err)
	}
	if err := os.WriteFile(tmp, []byte(remote+"\n"), 0o644); err != nil {
		return operr.NewError(operr.KindPermission, "writing version record", err)
	}
	if err := os.Rename(tmp, e.Paths.VersionFile); err != nil {
		return operr.NewError(operr.KindPermission, "publishing version record", err)
	}

	e.printf("upgraded hpm %s -> %s", localVersion, remote)
	return nil
}

func fetchRemoteVersion(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, upgradeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", operr.NewError(operr.KindDownload, "building version request", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", operr.NewError(operr.KindDownload, "fetching remote version", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", operr.NewError(operr.KindDownload, "version fetch returned "+resp.Status, nil)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", operr.NewError(operr.KindDownload, "reading remote version", err)
	}
	remote := strings.TrimSpace(string(data))
	if remote == "" {
		return "", operr.NewError(operr.KindDownload, "empty remote version record", nil)
	}
	return remote, nil
}
