// Package prekey manages signed pre-keys and one-time pre-keys for the
// Triple-DH bootstrap.
//
// It rotates the current signed pre-key, keeps the one-time pool topped up,
// assembles the published DeviceInfo and tracks one-time key consumption.
package prekey
