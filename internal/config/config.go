// Package config loads the transport's runtime configuration: the
// connection timeout, which Incoming Message Record kinds are delivered to
// the host, and logging verbosity.
//
// Grounded on pkg/util/pathutil/configpath.go's FindConfigPath (CLI arg,
// then ENV, then a list of default paths) and HomeDir helper; adapted here
// to viper's layered config resolution (flag > env > file > default) and
// github.com/mitchellh/go-homedir instead of the teacher's hand-rolled
// HOME/HOMEDRIVE+HOMEPATH lookup, since viper/go-homedir are the stack this
// module carries forward for CLI config (see cmd/wireprobe).
package config

import (
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/nexbridge/wiretransport/pkg/wiremsg"
)

// EnvPrefix is the prefix viper applies to environment-variable overrides,
// e.g. WIRETRANSPORT_TIMEOUT.
const EnvPrefix = "WIRETRANSPORT"

// Config is the resolved runtime configuration for a peer.
type Config struct {
	ListenAddress     string        `mapstructure:"listen_address"`
	ConfiguredTimeout time.Duration `mapstructure:"timeout"`
	EnabledKinds      []string      `mapstructure:"enabled_kinds"`
	LogLevel          string        `mapstructure:"log_level"`

	// HeartbeatInterval is the period of the per-connection ping heartbeat
	// driving the latency engine's "Steady" state (spec.md §4.4); threaded
	// into transport.Config.HeartbeatInterval.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`

	// PoolMaxIdle caps the number of idle arrays of a given length the
	// peer's array pool keeps around; threaded into
	// transport.Config.PoolMaxIdle. 0 is unbounded.
	PoolMaxIdle int `mapstructure:"pool_max_idle"`

	// DebugReadOverflow switches the string-length DOS guard (§4.2) from
	// its release behavior (mask to empty) to its debug behavior (fail
	// with ErrReadOverflow); threaded into transport.Config.DebugReadOverflow
	// and from there into every wirebuf.Buffer the peer creates or wraps.
	DebugReadOverflow bool `mapstructure:"debug_read_overflow"`
}

// DefaultConfigFileName is the config file basename searched for in the
// working directory and the user's home directory, mirroring the
// teacher's WorkingDirLoc/HomeLoc search order.
const DefaultConfigFileName = "wiretransport.yaml"

// Load resolves Config from (in ascending priority) a default, an optional
// config file, and environment variables prefixed with EnvPrefix. explicitPath
// overrides the default search locations when non-empty.
func Load(explicitPath string) (Config, error) {
	v := viper.New()
	v.SetDefault("listen_address", ":0")
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("enabled_kinds", []string{"Data", "ConnectionLatencyUpdated"})
	v.SetDefault("log_level", "info")
	v.SetDefault("heartbeat_interval", 5*time.Second)
	v.SetDefault("pool_max_idle", 0)
	v.SetDefault("debug_read_overflow", false)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName("wiretransport")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".wiretransport"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, errors.Wrap(err, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}
	return cfg, nil
}

// KindPolicy adapts Config's EnabledKinds list into a transport.KindPolicy.
type KindPolicy struct {
	enabled map[wiremsg.Kind]bool
}

var kindNames = map[string]wiremsg.Kind{
	"Data":                     wiremsg.KindData,
	"StatusChanged":            wiremsg.KindStatusChanged,
	"ConnectionLatencyUpdated": wiremsg.KindConnectionLatencyUpdated,
	"Error":                    wiremsg.KindError,
}

// NewKindPolicy builds a KindPolicy from the config's EnabledKinds names.
// Unrecognized names are ignored.
func NewKindPolicy(cfg Config) KindPolicy {
	enabled := make(map[wiremsg.Kind]bool, len(cfg.EnabledKinds))
	for _, name := range cfg.EnabledKinds {
		if kind, ok := kindNames[name]; ok {
			enabled[kind] = true
		}
	}
	return KindPolicy{enabled: enabled}
}

// Enabled implements transport.KindPolicy.
func (p KindPolicy) Enabled(kind wiremsg.Kind) bool { return p.enabled[kind] }
