package index

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
)

// fetchTimeout bounds one index download.
const fetchTimeout = 60 * time.Second

// Refresh downloads the index document from url and atomically replaces
// the cache file at path (write-temp-then-rename). The downloaded
// document is validated before it replaces the previous cache, so a
// half-written or corrupt upstream never clobbers a good cache.
func Refresh(ctx context.Context, url, path string) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, operr.NewError(operr.KindIndexLoad, "building index request", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, operr.NewError(operr.KindIndexLoad, "fetching index from "+url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, operr.NewError(operr.KindIndexLoad,
			"index fetch returned "+resp.Status, nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, operr.NewError(operr.KindIndexLoad, "reading index body", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, operr.NewError(operr.KindIndexLoad, "creating index cache dir", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, operr.NewError(operr.KindIndexLoad, "writing index cache", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, operr.NewError(operr.KindIndexLoad, "publishing index cache", err)
	}

	log.Info().Int("packages", len(doc.Packages)).Str("cache", path).Msg("index refreshed")
	return doc, nil
}
