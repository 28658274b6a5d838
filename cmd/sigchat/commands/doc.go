// Package commands defines the sigchat CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init           Create the local identity and config file
//   - fingerprint    Print the identity fingerprint
//   - register       Publish your DeviceInfo to a relay
//   - start-session  Establish a Triple-DH session with a peer
//   - reset-session  Destroy the session with a peer
//   - sessions       List peers with a session
//   - send           Encrypt and send a message
//   - recv           Fetch and decrypt queued messages
//   - group          Create, join and message sender-key groups
//
// # Implementation
//
// The root command loads the YAML config and applies flag overrides before
// any subcommand runs. Subcommands that touch keys open the store and build
// the dependency graph on demand, so init can run before a store exists.
// The passphrase falls back to the SIGCHAT_PASSPHRASE environment variable.
package commands
