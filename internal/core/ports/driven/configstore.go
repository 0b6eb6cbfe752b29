package driven

// ConfigStore provides persistent key-value configuration.
// Keys use dot notation, e.g. "source.base_url".
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	Get(key string) (any, bool)

	// GetString retrieves a string value, or "" if unset.
	GetString(key string) string

	// GetInt retrieves an integer value, or 0 if unset.
	GetInt(key string) int

	// GetBool retrieves a boolean value, or false if unset.
	GetBool(key string) bool

	// Set stores a value and persists immediately.
	Set(key string, value any) error

	// Save persists the current configuration.
	Save() error

	// Load reloads configuration from the backing store.
	Load() error
}
