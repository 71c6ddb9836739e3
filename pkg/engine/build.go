package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/archive"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/integrity"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/manifest"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
)

// buildInputs are the conventional tree an artifact is built from: the
// manifest, the launcher templates and the payload tree.
var buildInputs = []string{manifest.FileName, "launchers", "payload"}

// Build produces <name>.archive in dir from the conventional inputs in
// dir. The manifest is parsed first, so a broken one fails the build
// before anything is written. Returns the path and digest of the
// archive for publication in an index.
func (e *Engine) Build(ctx context.Context, dir, name string) (string, string, error) {
	done := e.beginOp(ctx, "build", name, "")
	path, digest, err := e.build(dir, name)
	done(err)
	return path, digest, err
}

func (e *Engine) build(dir, name string) (string, string, error) {
	if name == "" {
		return "", "", operr.NewError(operr.KindInvalidArguments, "empty archive name", nil)
	}
	for _, input := range buildInputs {
		if _, err := os.Stat(filepath.Join(dir, input)); err != nil {
			return "", "", operr.NewError(operr.KindInvalidArguments,
				"missing build input "+input, err)
		}
	}

	m, err := manifest.Load(dir)
	if err != nil {
		return "", "", err
	}
	if m.Name != name {
		return "", "", operr.NewError(operr.KindInvalidArguments,
			"manifest declares "+m.Name+", archive name is "+name, nil)
	}

	dest := filepath.Join(dir, name+".archive")
	if err := archive.Create(dir, dest); err != nil {
		return "", "", err
	}

	digest, err := integrity.FileSHA256(dest)
	if err != nil {
		return "", "", err
	}
	e.printf("built %s (sha256 %s)", dest, digest)
	return dest, digest, nil
}
