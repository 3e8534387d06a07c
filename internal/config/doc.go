// Package config loads, normalizes, and validates the sortd configuration
// file. The rest of the application receives an explicit *Config; nothing
// reads configuration ambiently.
package config
