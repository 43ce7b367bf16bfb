// Package config manages the user configuration file (~/.agentsync/config.yaml)
// and resolves the shared root path once per invocation.
package config
