// Package config loads application configuration from SOCIETY_*-prefixed
// environment variables with sensible defaults.
package config
