// Package stubs renders the local files agentsync creates once in a target
// repository: README stubs for local directories, the fallback agent
// instructions, the tool settings file and the per-repository settings file.
// Stubs are written only when their path is free and are never refreshed.
package stubs
