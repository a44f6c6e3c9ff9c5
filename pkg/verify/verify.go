// Package verify checks downloaded artifacts against their expected digest.
package verify

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"

	"github.com/arthur-debert/srcpack/pkg/errors"
	"github.com/arthur-debert/srcpack/pkg/logging"
	"github.com/arthur-debert/srcpack/pkg/types"
)

// Opener is the slice of types.FS the verifier reads through.
type Opener interface {
	Open(name string) (types.File, error)
}

// NewHash returns a fresh hash for algo.
func NewHash(algo types.ChecksumAlgorithm) (hash.Hash, error) {
	switch algo {
	case types.ChecksumMD5:
		return md5.New(), nil
	case types.ChecksumSHA1:
		return sha1.New(), nil
	case types.ChecksumSHA224:
		return sha256.New224(), nil
	case types.ChecksumSHA256:
		return sha256.New(), nil
	case types.ChecksumSHA384:
		return sha512.New384(), nil
	case types.ChecksumSHA512:
		return sha512.New(), nil
	case types.ChecksumBLAKE3:
		return blake3.New(), nil
	case types.ChecksumSHA3256:
		return sha3.New256(), nil
	case types.ChecksumSHA3512:
		return sha3.New512(), nil
	default:
		return nil, errors.Newf(errors.ErrChecksumAlgorithm, "unsupported checksum algorithm %q", string(algo))
	}
}

// Sum computes the lowercase hex digest of the file at path, as the
// matching coreutils tool prints it.
func Sum(fsys Opener, path string, algo types.ChecksumAlgorithm) (string, error) {
	h, err := NewHash(algo)
	if err != nil {
		return "", err
	}

	file, err := fsys.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "failed to open %s", path)
	}
	defer func() {
		_ = file.Close()
	}()

	if _, err := io.Copy(h, file); err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "failed to read %s", path)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify compares the digest of the file at path with expected. The
// comparison is exact: an upper-case expected digest does not match. A
// mismatch is an ErrCorruptSource error and must not be retried, since the
// same bytes would be checked again.
func Verify(fsys Opener, path, expected string, algo types.ChecksumAlgorithm) error {
	logger := logging.GetLogger("verify")

	actual, err := Sum(fsys, path, algo)
	if err != nil {
		return err
	}

	if actual != expected {
		logger.Error().
			Str("path", path).
			Str("algorithm", string(algo)).
			Str("expected", expected).
			Str("actual", actual).
			Msg("Checksum mismatch")
		return errors.Newf(errors.ErrCorruptSource,
			"corrupt source %s: %s checksum mismatch (expected %s, got %s)", path, algo, expected, actual).
			WithDetails(map[string]interface{}{
				"path":      path,
				"algorithm": string(algo),
				"expected":  expected,
				"actual":    actual,
			})
	}

	logger.Debug().Str("path", path).Str("algorithm", string(algo)).Msg("Checksum verified")
	return nil
}
