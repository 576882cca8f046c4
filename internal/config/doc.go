// Package config loads the service configuration from layered sources:
// in-code defaults, base and environment-specific files under the config
// directory, a local override file in development, and finally environment
// variables. In development a file watcher hot reloads the configuration
// and notifies registered callbacks.
package config
