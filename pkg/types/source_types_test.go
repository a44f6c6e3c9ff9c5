package types_test

import (
	"testing"

	"github.com/arthur-debert/srcpack/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		want     types.Format
		strategy types.Strategy
	}{
		{"tar.gz", types.FormatTarGz, types.StrategyTar},
		{"TAR.GZ", types.FormatTarGz, types.StrategyTar},
		{" tgz ", types.FormatTarGz, types.StrategyTar},
		{"tar.bz2", types.FormatTarBz2, types.StrategyTar},
		{"tar.xz", types.FormatTarXz, types.StrategyTar},
		{"tar", types.FormatTar, types.StrategyTar},
		{"tar.zst", types.FormatTarZst, types.StrategyTar},
		{"tar.lz4", types.FormatTarLz4, types.StrategyTar},
		{"Zip", types.FormatZip, types.StrategyZip},
		{"none", types.FormatNone, types.StrategyRaw},
		{"rar", types.FormatUnknown, types.StrategyUnsupported},
		{"", types.FormatUnknown, types.StrategyUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := types.ParseFormat(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.strategy, got.Strategy())
			assert.Equal(t, tt.want != types.FormatUnknown, got.Known())
		})
	}
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "tar.gz", types.FormatTarGz.String())
	assert.Equal(t, "zip", types.FormatZip.String())
	assert.Equal(t, "unknown(0)", types.FormatUnknown.String())

	for _, f := range []types.Format{types.FormatTarGz, types.FormatTarBz2, types.FormatTarXz, types.FormatZip, types.FormatNone} {
		assert.Equal(t, f, types.ParseFormat(f.String()), "round trip %s", f)
	}
}

func TestParseStripLevels(t *testing.T) {
	tests := []struct {
		input   string
		mode    types.StripMode
		count   int
		wantErr bool
	}{
		{"", types.StripDefaultOne, 1, false},
		{"true", types.StripDefaultOne, 1, false},
		{"TRUE", types.StripDefaultOne, 1, false},
		{"false", types.StripDisabled, 0, false},
		{"0", types.StripExplicit, 0, false},
		{"2", types.StripExplicit, 2, false},
		{"-1", 0, 0, true},
		{"yes", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := types.ParseStripLevels(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.mode, got.Mode())
			assert.Equal(t, tt.count, got.Count())
			assert.Equal(t, tt.count > 0, got.Enabled())
		})
	}
}

func TestStripLevelsConstructors(t *testing.T) {
	assert.Equal(t, 0, types.NoStrip().Count())
	assert.Equal(t, "false", types.NoStrip().String())
	assert.Equal(t, 1, types.StripOne().Count())
	assert.Equal(t, "true", types.StripOne().String())
	assert.Equal(t, 3, types.StripN(3).Count())
	assert.Equal(t, "3", types.StripN(3).String())
	assert.Equal(t, 0, types.StripN(-4).Count())
}

func TestParseChecksumAlgorithm(t *testing.T) {
	tests := map[string]types.ChecksumAlgorithm{
		"":            types.ChecksumSHA256,
		"sha256sum":   types.ChecksumSHA256,
		"sha256":      types.ChecksumSHA256,
		"SHA-256":     types.ChecksumSHA256,
		"md5sum":      types.ChecksumMD5,
		"sha512sum":   types.ChecksumSHA512,
		"b3sum":       types.ChecksumBLAKE3,
		"blake3":      types.ChecksumBLAKE3,
		"sha3-256":    types.ChecksumSHA3256,
		"sha3_512":    types.ChecksumSHA3512,
		"sha3-256sum": types.ChecksumSHA3256,
		"crc32":       types.ChecksumAlgorithm("crc32"),
	}

	for input, want := range tests {
		assert.Equal(t, want, types.ParseChecksumAlgorithm(input), "input %q", input)
	}
}

func TestSplitChecksum(t *testing.T) {
	algo, digest := types.SplitChecksum("sha512:abcd")
	assert.Equal(t, types.ChecksumSHA512, algo)
	assert.Equal(t, "abcd", digest)

	algo, digest = types.SplitChecksum("  abcd ")
	assert.Equal(t, types.ChecksumAlgorithm(""), algo)
	assert.Equal(t, "abcd", digest)
}
