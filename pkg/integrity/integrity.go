// Package integrity streams files through SHA-256 and verifies archive
// digests against the index's published values.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
)

// chunkSize bounds the per-read buffer while hashing.
const chunkSize = 64 * 1024

// FileSHA256 computes the lowercase hex SHA-256 digest of the file at
// path, reading it in bounded chunks.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify hashes the file and compares against the expected lowercase hex
// digest. A mismatch is reported as an error; nothing is deleted here —
// the caller decides what to do with the file.
func Verify(path, expected string) error {
	got, err := FileSHA256(path)
	if err != nil {
		return operr.NewError(operr.KindChecksumMismatch, "cannot hash "+path, err)
	}
	if got != expected {
		return operr.NewError(operr.KindChecksumMismatch,
			"digest mismatch: computed "+got+", expected "+expected, nil)
	}
	return nil
}
