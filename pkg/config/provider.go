package config

// SettingsProvider defines the interface for configuration data sources
type SettingsProvider interface {
	// LoadSettings reads and validates the complete settings document
	LoadSettings() (*Settings, error)
}
