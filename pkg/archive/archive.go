// Package archive handles the artifact container format: a gzip
// compressed tar tree with the manifest at its root. Extraction runs
// through the external extractor; only build-time creation is done
// in-process.
package archive

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/executor"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
)

// Extractor is the external helper used to unpack archives.
const Extractor = "tar"

// Extract unpacks the archive into dir using the external extractor and
// trusts its exit status.
func Extract(ctx context.Context, runner executor.Runner, archivePath, dir string) error {
	res, err := runner.Run(ctx, executor.Command{
		Argv: []string{Extractor, "-xzf", archivePath, "-C", dir},
	})
	if err != nil {
		return operr.NewError(operr.KindExtractionFailed, "extractor failed", err)
	}
	if res.ExitCode != 0 {
		return operr.NewError(operr.KindExtractionFailed,
			"extractor exited with status "+strconv.Itoa(res.ExitCode), nil)
	}
	return nil
}

// Create writes a gzip compressed tar of the tree rooted at dir to
// dest. Paths inside the archive are relative to dir, so the manifest
// lands at the archive root. Symbolic links are preserved. A dest that
// lives inside dir is excluded from its own archive.
func Create(dir, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return operr.NewError(operr.KindPermission, "creating archive "+dest, err)
	}
	defer out.Close()

	destAbs, err := filepath.Abs(dest)
	if err != nil {
		return operr.NewError(operr.KindPermission, "resolving archive path", err)
	}

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if abs, absErr := filepath.Abs(path); absErr == nil && abs == destAbs {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if walkErr != nil {
		return operr.NewError(operr.KindPermission, "archiving "+dir, walkErr)
	}

	if err := tw.Close(); err != nil {
		return operr.NewError(operr.KindPermission, "finalizing tar stream", err)
	}
	if err := gz.Close(); err != nil {
		return operr.NewError(operr.KindPermission, "finalizing gzip stream", err)
	}
	return out.Close()
}

// Name returns the canonical cache file name for a package version.
func Name(pkg, version string) string {
	return pkg + "-" + version + ".archive"
}

// IsArchive reports whether the file name carries the artifact suffix.
func IsArchive(name string) bool {
	return strings.HasSuffix(name, ".archive")
}
