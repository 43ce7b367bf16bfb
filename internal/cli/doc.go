// Package cli defines the Cobra command tree for the agentsync CLI. Each file
// in this package registers one top-level command (init, update, status,
// config, version) with the root command. Commands resolve the shared root
// once, delegate to the provision, reconcile and status packages, and only
// handle flag parsing and output.
package cli
