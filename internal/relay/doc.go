// Package relay provides an HTTP implementation of the domain.Transport
// interface used by sigchat, and the in-memory relay server it talks to.
//
// The relay acts as a store-and-forward service for opaque parcels and
// published DeviceInfo bundles between peers. It never sees plaintext or
// private keys.
//
// Supported operations include:
//   - Publishing our DeviceInfo to the relay.
//   - Fetching a peer's DeviceInfo. A one-time pre-key is handed out once.
//   - Sending parcels to a peer via the relay.
//   - Fetching pending parcels for a user.
//   - Acknowledging received parcels.
//
// All requests are JSON over HTTP and accept a context for cancellation and
// deadlines. Non-2xx statuses are returned as *StatusError values carrying
// the HTTP method, path and status text to aid diagnostics.
package relay
