package types

// Identity holds your long-term X25519 and Ed25519 keys plus the device
// identifiers published alongside them.
type Identity struct {
	DeviceID       DeviceID       `json:"device_id"`
	RegistrationID RegistrationID `json:"registration_id"`
	XPub           X25519Public   `json:"xpub"`
	XPriv          X25519Private  `json:"xpriv"`
	EdPub          Ed25519Public  `json:"edpub"`
	EdPriv         Ed25519Private `json:"edpriv"`
	CreatedUTC     int64          `json:"created_utc"`
}

// KeyPair returns the identity's Diffie-Hellman pair.
func (id Identity) KeyPair() KeyPair {
	return KeyPair{Public: id.XPub, Private: id.XPriv}
}
