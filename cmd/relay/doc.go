// Package main runs the in-memory HTTP relay used by sigchat during
// development and tests. It stores published DeviceInfo records and queues
// opaque parcels for recipients until they fetch and acknowledge them.
//
// HTTP API
//
//	POST /register
//	    Store a user's DeviceInfo (identity keys, signed pre-key, one OPK).
//
//	GET /prekey/{user}
//	    Return the latest DeviceInfo for {user}. The one-time pre-key is
//	    handed out once and cleared from the stored record.
//
//	POST /msg/{user}
//	    Enqueue a Parcel addressed to {user}. A zero Timestamp is filled in.
//
//	GET /msg/{user}?limit=N
//	    Return up to N queued parcels for {user}, oldest first.
//
//	POST /msg/{user}/ack { "count": N }
//	    Drop the first N queued parcels for {user}.
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - Responses are JSON. Non-2xx statuses carry a short error message.
//   - Each request is logged with method, path, status, bytes and duration.
//
// The relay never sees plaintext or private keys. Treat it as an untrusted
// middleman.
package main
