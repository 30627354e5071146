// Package config loads the storefront daemon configuration from a JSON or YAML
// file, fills in defaults and applies a small set of environment overrides.
package config
