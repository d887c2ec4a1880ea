package config

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		BaseURL:    "https://api.paywire.dev",
		APIKey:     "",
		Proxy:      "",
		Backend:    BackendPooled,
		MaxRetries: 0,
		Timeout:    30000, // 30 seconds
	}
}
