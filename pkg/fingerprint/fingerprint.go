// Package fingerprint computes content digests used to detect changes in
// polled configuration files.
//
// A Fingerprint is an "<algorithm>:<hex>" string. Two fingerprints of the
// same bytes under the same algorithm always compare equal with ==.
//
// Example usage:
//
//	fp, err := fingerprint.File("/etc/config/appsettings.json", fingerprint.SHA256)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(fp) // sha256:9f86d0...
package fingerprint

import (
	"crypto/md5" // #nosec G501: md5 is offered for parity, not for security
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
)

// Algorithm names a digest function.
type Algorithm string

// Supported algorithms.
const (
	SHA256   Algorithm = "sha256"
	MD5      Algorithm = "md5"
	XXHash64 Algorithm = "xxhash64"
)

// Default is the algorithm used when none is configured.
const Default = SHA256

// Fingerprint is a content digest tagged with its algorithm.
type Fingerprint string

// None is the fingerprint of an absent file.
const None Fingerprint = ""

// IsNone reports whether f is the absent-file fingerprint.
func (f Fingerprint) IsNone() bool {
	return f == None
}

// Algorithm returns the algorithm prefix of f.
func (f Fingerprint) Algorithm() Algorithm {
	algo, _, _ := strings.Cut(string(f), ":")
	return Algorithm(algo)
}

// Short returns the algorithm and the first 12 hex digits, for display.
func (f Fingerprint) Short() string {
	if f.IsNone() {
		return "-"
	}
	algo, sum, _ := strings.Cut(string(f), ":")
	if len(sum) > 12 {
		sum = sum[:12]
	}
	return algo + ":" + sum
}

// String implements fmt.Stringer.
func (f Fingerprint) String() string {
	if f.IsNone() {
		return "<none>"
	}
	return string(f)
}

// ParseAlgorithm validates an algorithm name. Empty selects Default.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case "":
		return Default, nil
	case SHA256:
		return SHA256, nil
	case MD5:
		return MD5, nil
	case XXHash64, "xxhash":
		return XXHash64, nil
	default:
		return "", ErrUnknownAlgorithm
	}
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case SHA256, "":
		return sha256.New(), nil
	case MD5:
		return md5.New(), nil // #nosec G401
	case XXHash64:
		return xxhash.New(), nil
	default:
		return nil, ErrUnknownAlgorithm
	}
}

// Compute streams r through algo and returns the resulting fingerprint.
func Compute(r io.Reader, algo Algorithm) (Fingerprint, error) {
	if r == nil {
		return None, ErrNilReader
	}
	if algo == "" {
		algo = Default
	}

	h, err := algo.newHash()
	if err != nil {
		return None, err
	}

	if _, err := io.Copy(h, r); err != nil {
		return None, zerr.Wrap(err, "failed to read content")
	}

	return Fingerprint(string(algo) + ":" + hex.EncodeToString(h.Sum(nil))), nil
}

// File fingerprints the file at path.
//
// Open and read failures are returned with the path attached; use
// IsNotExist to tell a missing file apart from other failures.
func File(path string, algo Algorithm) (Fingerprint, error) {
	f, err := os.Open(path) //nolint:gosec // Path is resolved under the provider root
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return None, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return None, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	fp, err := Compute(f, algo)
	if err != nil {
		return None, zerr.With(err, "path", path)
	}

	return fp, nil
}

// IsNotExist reports whether err was caused by a missing file.
func IsNotExist(err error) bool {
	return errors.Is(err, ErrFileNotFound) || errors.Is(err, fs.ErrNotExist)
}
