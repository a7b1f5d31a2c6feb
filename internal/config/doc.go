// Package config loads and validates application configuration from
// environment variables (BRIEF_ prefix) and optional config files.
package config
