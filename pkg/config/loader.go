package config

import (
	_ "embed"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	srcerrors "github.com/arthur-debert/srcpack/pkg/errors"
	"github.com/arthur-debert/srcpack/pkg/paths"
)

// EnvPrefix prefixes every environment variable the loader reads.
// A double underscore separates nested keys: SRCPACK_FETCH__ATTEMPTS.
const EnvPrefix = "SRCPACK_"

// EnvConfigFile names an alternate user config file.
const EnvConfigFile = EnvPrefix + "CONFIG"

//go:embed embedded/defaults.toml
var defaultConfig []byte

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// LoadOptions controls which layers Load reads.
type LoadOptions struct {
	// ConfigFile is an explicit user config path. When empty, the
	// SRCPACK_CONFIG variable and then $XDG_CONFIG_HOME/srcpack/config.toml
	// are tried; a missing default file is not an error.
	ConfigFile string

	// Overrides are applied last, keyed by koanf path ("fetch.attempts").
	Overrides map[string]interface{}

	SkipUserConfig bool
	SkipEnv        bool
}

// Load builds the configuration: embedded defaults, user file, environment,
// then overrides.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, srcerrors.Wrap(err, srcerrors.ErrConfigLoad, "failed to load defaults")
	}

	// 2. User config file
	if !opts.SkipUserConfig {
		path, explicit := userConfigPath(opts.ConfigFile)
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
				return nil, srcerrors.Wrapf(err, srcerrors.ErrConfigLoad, "failed to load config from %s", path)
			}
		} else if explicit {
			return nil, srcerrors.Wrapf(err, srcerrors.ErrConfigLoad, "config file %s", path)
		}
	}

	// 3. Environment
	if !opts.SkipEnv {
		err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
		if err != nil {
			return nil, srcerrors.Wrap(err, srcerrors.ErrConfigLoad, "failed to load env vars")
		}
	}

	// 4. Explicit overrides
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, srcerrors.Wrap(err, srcerrors.ErrConfigLoad, "failed to load overrides")
		}
	}

	// 5. Unmarshal
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, srcerrors.Wrap(err, srcerrors.ErrConfigParse, "failed to unmarshal configuration")
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps SRCPACK_FETCH__USER_AGENT to fetch.user_agent. The config
// file itself is not a config key.
func envKey(s string) string {
	if s == EnvConfigFile {
		return ""
	}
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// parserFor picks the config file parser by extension; TOML is the default.
func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	default:
		return toml.Parser()
	}
}

func userConfigPath(explicit string) (string, bool) {
	if explicit != "" {
		return paths.ExpandHome(explicit), true
	}
	if fromEnv := os.Getenv(EnvConfigFile); fromEnv != "" {
		return paths.ExpandHome(fromEnv), true
	}
	return paths.DefaultConfigFile(), false
}

func validate(cfg *Config) error {
	if cfg.Fetch.Attempts < 1 {
		return srcerrors.Newf(srcerrors.ErrConfigParse, "fetch.attempts must be at least 1, got %d", cfg.Fetch.Attempts)
	}
	if cfg.Fetch.Timeout <= 0 || cfg.Fetch.ConnectTimeout <= 0 {
		return srcerrors.New(srcerrors.ErrConfigParse, "fetch timeouts must be positive")
	}
	if strings.TrimSpace(cfg.Patch.Command) == "" {
		return srcerrors.New(srcerrors.ErrConfigParse, "patch.command must not be empty")
	}
	return nil
}
