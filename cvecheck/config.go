package cvecheck

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DBPath    string `toml:"db_path"`
	Rewriters []Rewriter
	Importers Importers
}

// Rewriter is a config-driven rewrite rule applied to vendor/product data
// while importing reference feeds. Predicate and RewriteRule are expr
// programs compiled at import time.
type Rewriter struct {
	Field       string
	Predicate   string
	RewriteRule string `toml:"rewrite_rule"`
}

type Importers struct {
	NVD      FeedConfig
	Vulnrich FeedConfig
}

type FeedConfig struct {
	// LookupPeriod is a time.ParseDuration string; records older than this
	// are skipped by the feed importers.
	LookupPeriod string `toml:"lookup_period"`
	Remote       string `toml:"remote"`
	Path         string `toml:"path"`
}

func ParseConfig(config io.Reader) (c Config, err error) {
	tomlData, err := io.ReadAll(config)
	if err != nil {
		return c, fmt.Errorf("could not read config file: %w", err)
	}
	_, err = toml.Decode(string(tomlData), &c)
	if err != nil {
		return c, fmt.Errorf("could not decode toml: %w", err)
	}
	return c, nil
}

func ParseConfigFromFile(path string) (c Config, err error) {
	f, err := os.Open(path)
	if err != nil {
		return c, fmt.Errorf("could not open config file: %w", err)
	}
	defer f.Close()

	return ParseConfig(f)
}
