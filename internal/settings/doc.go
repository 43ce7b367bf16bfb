// Package settings loads the optional per-repository settings file
// (.agent/agentsync.yaml), validates it against an embedded JSON schema and
// applies it to the default layout. It also reads and writes the generated
// state stamp that records which tool version last wrote a target.
package settings
