// Package config loads postgen settings from TOML with an environment
// override for the API key.
package config
