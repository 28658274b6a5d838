// Package message sends and receives encrypted messages over the transport.
//
// It wraps manager ciphertexts in parcels, fans group messages out to every
// member, distributes sender keys over 1:1 sessions and dispatches received
// parcels by kind.
package message
