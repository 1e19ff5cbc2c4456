// Package config loads application settings from environment variables
// (COACH_ prefix) and an optional config.yaml, applies defaults, and validates
// the result. Every component receives its slice of Config explicitly; nothing
// reads the environment directly.
package config
