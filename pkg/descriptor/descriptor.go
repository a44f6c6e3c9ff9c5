package descriptor

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/srcpack/pkg/errors"
	"github.com/arthur-debert/srcpack/pkg/logging"
	"github.com/arthur-debert/srcpack/pkg/types"
)

// Recognized descriptor keys
const (
	KeyURL        = "SOURCE_URL"
	KeySum        = "SOURCE_SUM"
	KeySumPrg     = "SOURCE_SUM_PRG"
	KeyFormat     = "SOURCE_FORMAT"
	KeyInSubdir   = "SOURCE_IN_SUBDIR"
	KeyFilename   = "SOURCE_FILENAME"
	KeyExtract    = "SOURCE_EXTRACT"
	keyPrefix     = "SOURCE_"
	defaultFormat = "tar.gz"
)

var knownKeys = map[string]bool{
	KeyURL:      true,
	KeySum:      true,
	KeySumPrg:   true,
	KeyFormat:   true,
	KeyInSubdir: true,
	KeyFilename: true,
	KeyExtract:  true,
}

// Reader is the slice of types.FS the loader needs.
type Reader interface {
	ReadFile(name string) ([]byte, error)
}

// LoadFile reads a descriptor file, choosing the parser by extension.
func LoadFile(fsys Reader, path, sourceID string) (*types.SourceDescriptor, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrDescriptorRead, "failed to read descriptor %s", path)
	}

	var values map[string]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		values, err = parseYAML(data)
	case ".toml":
		values, err = parseTOML(data)
	default:
		values, err = parseKeyValue(bytes.NewReader(data))
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrDescriptorInvalid, "failed to parse descriptor %s", path)
	}

	return FromMap(values, sourceID)
}

// Parse reads KEY=VALUE descriptor lines from r.
func Parse(r io.Reader, sourceID string) (*types.SourceDescriptor, error) {
	values, err := parseKeyValue(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDescriptorInvalid, "failed to parse descriptor")
	}
	return FromMap(values, sourceID)
}

// FromMap builds a descriptor from raw key/value pairs, applying defaults.
// Keys are matched case-insensitively and may omit the SOURCE_ prefix.
// Unknown keys are ignored. The format is not validated here: an unknown
// format only fails once extraction is attempted.
func FromMap(raw map[string]string, sourceID string) (*types.SourceDescriptor, error) {
	logger := logging.GetLogger("descriptor")

	if sourceID == "" {
		sourceID = types.DefaultSourceID
	}

	values := make(map[string]string, len(raw))
	for key, value := range raw {
		normalized := normalizeKey(key)
		if !knownKeys[normalized] {
			logger.Debug().Str("key", key).Msg("Ignoring unknown descriptor key")
			continue
		}
		values[normalized] = strings.TrimSpace(value)
	}

	desc := &types.SourceDescriptor{
		SourceID:  sourceID,
		URL:       values[KeyURL],
		Algorithm: types.ParseChecksumAlgorithm(values[KeySumPrg]),
	}

	algo, digest := types.SplitChecksum(values[KeySum])
	desc.Checksum = digest
	if algo != "" {
		desc.Algorithm = algo
	}

	desc.RawFormat = strings.ToLower(values[KeyFormat])
	if desc.RawFormat == "" {
		desc.RawFormat = defaultFormat
	}
	desc.Format = types.ParseFormat(desc.RawFormat)
	if !desc.Format.Known() {
		logger.Warn().Str("source", sourceID).Str("format", desc.RawFormat).Msg("Unrecognized format")
	}

	extract, err := parseBool(values[KeyExtract], true)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrDescriptorInvalid, "invalid %s", KeyExtract).
			WithDetail("value", values[KeyExtract])
	}
	desc.Extract = extract

	strip, err := types.ParseStripLevels(values[KeyInSubdir])
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrDescriptorInvalid, "invalid %s", KeyInSubdir).
			WithDetail("value", values[KeyInSubdir])
	}
	desc.Strip = strip

	desc.Filename = values[KeyFilename]
	if desc.Filename == "" {
		desc.Filename = sourceID + "." + desc.RawFormat
	}
	if desc.Filename != filepath.Base(desc.Filename) || desc.Filename == "." || desc.Filename == ".." {
		return nil, errors.Newf(errors.ErrDescriptorInvalid, "%s must be a plain file name, got %q", KeyFilename, desc.Filename)
	}

	logger.Debug().
		Str("source", desc.SourceID).
		Str("url", desc.URL).
		Str("format", desc.RawFormat).
		Str("strip", desc.Strip.String()).
		Bool("extract", desc.Extract).
		Str("filename", desc.Filename).
		Msg("Descriptor loaded")

	return desc, nil
}

// Encode renders a descriptor back into KEY=VALUE lines, sorted by key.
func Encode(desc *types.SourceDescriptor) string {
	values := map[string]string{
		KeyURL:      desc.URL,
		KeySum:      desc.Checksum,
		KeySumPrg:   string(desc.Algorithm) + "sum",
		KeyFormat:   desc.RawFormat,
		KeyInSubdir: desc.Strip.String(),
		KeyFilename: desc.Filename,
		KeyExtract:  strconv.FormatBool(desc.Extract),
	}
	if desc.Algorithm == types.ChecksumBLAKE3 {
		values[KeySumPrg] = "b3sum"
	}

	keys := make([]string, 0, len(values))
	for key, value := range values {
		if value != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s=%s\n", key, values[key])
	}
	return b.String()
}

func parseKeyValue(r io.Reader) (map[string]string, error) {
	return godotenv.Parse(r)
}

func parseYAML(data []byte) (map[string]string, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return stringify(doc)
}

func parseTOML(data []byte) (map[string]string, error) {
	var doc map[string]interface{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return stringify(doc)
}

// stringify flattens a structured document into descriptor values. Only
// scalars are accepted; SOURCE_IN_SUBDIR may legitimately be a bool or an
// integer in these formats.
func stringify(doc map[string]interface{}) (map[string]string, error) {
	values := make(map[string]string, len(doc))
	for key, value := range doc {
		switch v := value.(type) {
		case nil:
			values[key] = ""
		case string:
			values[key] = v
		case bool, int, int64, uint64, float64:
			values[key] = fmt.Sprint(v)
		default:
			return nil, fmt.Errorf("key %q: expected a scalar value, got %T", key, value)
		}
	}
	return values, nil
}

func normalizeKey(key string) string {
	key = strings.ToUpper(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, "-", "_")
	if !strings.HasPrefix(key, keyPrefix) {
		key = keyPrefix + key
	}
	return key
}

func parseBool(value string, def bool) (bool, error) {
	switch strings.ToLower(value) {
	case "":
		return def, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("expected true or false, got %q", value)
}
