package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	yaml "go.yaml.in/yaml/v3"
)

// Locality overrides how one city is resolved. Keys in the overlay are
// matched against normalised city keys.
type Locality struct {
	Timezone string `yaml:"timezone"`
	// Slug is the name sent to the time source when it differs from the
	// normalised key.
	Slug string `yaml:"slug"`
}

type fileConfig struct {
	Timezone   string              `yaml:"timezone"`
	Localities map[string]Locality `yaml:"localities"`
}

// ApplyFile merges a YAML overlay into c. Unknown keys are rejected.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return c.applyYAML(data)
}

func (c *Config) applyYAML(data []byte) error {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("yaml decode: %w", err)
	}

	if fc.Timezone != "" {
		c.Timezone = fc.Timezone
	}
	if c.Localities == nil {
		c.Localities = map[string]Locality{}
	}
	for k, v := range fc.Localities {
		c.Localities[k] = v
	}
	return nil
}
