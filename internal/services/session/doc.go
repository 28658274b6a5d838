// Package session publishes this device's DeviceInfo and establishes
// sessions with peers by fetching their DeviceInfo from the transport.
package session
