// Package app wires application dependencies for the CLI.
//
// It loads Config from YAML, opens the configured store (sealed with the
// passphrase when the keystore is sealed), and builds the manager, services
// and relay client, exposing them via the Wire struct for commands to use.
package app
