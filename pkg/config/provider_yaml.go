package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLProvider implements SettingsProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadSettings loads the settings document from the YAML file and validates it
func (y *YAMLProvider) LoadSettings() (*Settings, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, &ConfigurationError{Msg: "configuration file not readable: " + y.filename, Err: err}
	}

	return ParseDocument(cfgFile)
}

// ParseDocument decodes a YAML settings document and validates it
func ParseDocument(data []byte) (*Settings, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigurationError{Msg: "configuration document is not valid YAML", Err: err}
	}

	return Validate(doc)
}
