// Package config loads the decoder's configuration surface: decode
// style, stimulus port filter, and TPIU framing parameters. Values
// come from an optional YAML file, then are overridden by whichever
// command-line flags the caller actually set.
package config

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// DecodeStyle mirrors itm.DecodeStyle as a YAML/flag-friendly string so
// this package does not need to import itm just to parse configuration.
type DecodeStyle string

const (
	StyleAll             DecodeStyle = "all"
	StylePort            DecodeStyle = "port"
	StyleConsole         DecodeStyle = "console"
	StyleInstrumentation DecodeStyle = "instrumentation"
)

// TPIUDecodeStyle mirrors tpiu.DecodeStyle.
type TPIUDecodeStyle string

const (
	TPIUStyleAll    TPIUDecodeStyle = "all"
	TPIUStyleStream TPIUDecodeStyle = "stream"
	TPIUStyleSaleae TPIUDecodeStyle = "saleae"
)

// Config is the decoder's full configuration surface, loadable from
// YAML and overridable from the command line.
type Config struct {
	DecodeStyle     DecodeStyle     `yaml:"decode_style"`
	Port            int             `yaml:"port"`
	Strict          bool            `yaml:"strict"`
	UseTPIU         bool            `yaml:"use_tpiu"`
	TPIUStream      int             `yaml:"tpiu_stream"`
	TPIUOffset      int             `yaml:"tpiu_offset"`
	TPIUDecodeStyle TPIUDecodeStyle `yaml:"tpiu_decode_style"`
}

// Default returns the configuration used when no file and no flags
// override anything: decode everything, no TPIU framing.
func Default() Config {
	return Config{
		DecodeStyle:     StyleAll,
		Port:            0,
		TPIUStream:      0,
		TPIUOffset:      0,
		TPIUDecodeStyle: TPIUStyleAll,
	}
}

// Load reads path as YAML over top of Default(). A missing path is
// not an error: it returns the defaults unchanged, matching a tool
// that works with no configuration file present.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Debug("config file not found, using defaults", "path", path)
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}
