// Package config loads the optional sentireduce YAML config file. Values
// from the file sit below CLI flags and above environment variables in
// the resolution order.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file when no
// --config flag is given.
const DefaultPath = "sentireduce.yaml"

// Config mirrors the YAML config file layout.
type Config struct {
	MasterURL string    `yaml:"master_url,omitempty"`
	DataDir   string    `yaml:"data_dir,omitempty"`
	Wordlists Wordlists `yaml:"wordlists,omitempty"`
}

// Wordlists holds word list paths for the sentiment executor.
type Wordlists struct {
	Positive string `yaml:"positive,omitempty"`
	Negative string `yaml:"negative,omitempty"`
}

// Load reads a config file. A missing file at the default path is not an
// error; the zero Config is returned so flags and env still apply.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return cfg, nil
}
