package types

import (
	"strings"
)

// ChecksumAlgorithm names a digest used to verify a source artifact.
type ChecksumAlgorithm string

const (
	ChecksumMD5     ChecksumAlgorithm = "md5"
	ChecksumSHA1    ChecksumAlgorithm = "sha1"
	ChecksumSHA224  ChecksumAlgorithm = "sha224"
	ChecksumSHA256  ChecksumAlgorithm = "sha256"
	ChecksumSHA384  ChecksumAlgorithm = "sha384"
	ChecksumSHA512  ChecksumAlgorithm = "sha512"
	ChecksumBLAKE3  ChecksumAlgorithm = "blake3"
	ChecksumSHA3256 ChecksumAlgorithm = "sha3-256"
	ChecksumSHA3512 ChecksumAlgorithm = "sha3-512"
)

// DefaultChecksumAlgorithm is used when a descriptor does not name one.
const DefaultChecksumAlgorithm = ChecksumSHA256

var checksumPrograms = map[string]ChecksumAlgorithm{
	"md5sum":    ChecksumMD5,
	"sha1sum":   ChecksumSHA1,
	"sha224sum": ChecksumSHA224,
	"sha256sum": ChecksumSHA256,
	"sha384sum": ChecksumSHA384,
	"sha512sum": ChecksumSHA512,
	"b3sum":     ChecksumBLAKE3,
}

// ParseChecksumAlgorithm accepts either a coreutils program name
// ("sha256sum") or a bare algorithm name ("sha256", "SHA-256"). The result
// is not validated; the verifier rejects algorithms it cannot compute.
func ParseChecksumAlgorithm(value string) ChecksumAlgorithm {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return DefaultChecksumAlgorithm
	}
	if algo, ok := checksumPrograms[v]; ok {
		return algo
	}
	v = strings.TrimSuffix(v, "sum")
	v = strings.ReplaceAll(v, "_", "-")
	if !strings.HasPrefix(v, "sha3") {
		v = strings.ReplaceAll(v, "-", "")
	}
	if v == "b3" {
		return ChecksumBLAKE3
	}
	return ChecksumAlgorithm(v)
}

// SplitChecksum separates an "algo:digest" checksum into its parts. A
// checksum without a prefix is returned unchanged with an empty algorithm.
func SplitChecksum(value string) (ChecksumAlgorithm, string) {
	value = strings.TrimSpace(value)
	prefix, digest, found := strings.Cut(value, ":")
	if !found {
		return "", value
	}
	return ParseChecksumAlgorithm(prefix), digest
}
