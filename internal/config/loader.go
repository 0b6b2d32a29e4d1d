package config

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/connprobe/pkg/errors"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "CONNPROBE"

// newViper builds a Viper instance with the standard settings: YAML file
// type, CONNPROBE_ env prefix, automatic env binding, and a key replacer that
// maps "." → "_" so "engine.deadline" resolves to "CONNPROBE_ENGINE_DEADLINE".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setViperDefaults(v)
	return v
}

// Load reads the YAML file at configPath, merges CONNPROBE_* environment
// overrides, applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := readInConfig(v, configPath); err != nil {
		return nil, err
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from CONNPROBE_* variables and defaults only.
// The connector list cannot be expressed this way and stays empty.
//
//	CONNPROBE_<SECTION>_<FIELD>   e.g.  CONNPROBE_ENGINE_CONCURRENCY
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// MustLoad is Load that panics on error. Use it in main only.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

func readInConfig(v *viper.Viper, path string) error {
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.Wrap(err, errors.ErrCodeConfigNotFound, "config file not found").WithDetail(path)
		}
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config file").WithDetail(path)
	}
	return nil
}

// unmarshalAndFinalize decodes viper state, applies defaults and validates.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WatchOption customises Watch.
type WatchOption func(*watchConfig)

type watchConfig struct {
	onError func(error)
}

// WithWatchErrorHandler receives reloads that failed to decode or validate.
// The previous configuration stays in effect.
func WithWatchErrorHandler(fn func(error)) WatchOption {
	return func(c *watchConfig) {
		if fn != nil {
			c.onError = fn
		}
	}
}

// Watch re-reads configPath whenever fsnotify reports a change and calls
// onChange with each valid result. It returns once watching has started;
// the initial read error, if any, is returned and nothing is watched.
func Watch(configPath string, onChange func(*Config), opts ...WatchOption) error {
	wc := watchConfig{onError: func(error) {}}
	for _, o := range opts {
		o(&wc)
	}

	v := newViper()
	v.SetConfigFile(configPath)
	if err := readInConfig(v, configPath); err != nil {
		return err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			wc.onError(errors.Wrap(err, errors.CodeUnknown, "config reload rejected").WithDetail(e.Name))
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

//Personal.AI order the ending
