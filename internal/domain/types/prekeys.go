package types

// SignedPreKey is the full (private+public) signed pre-key stored locally.
type SignedPreKey struct {
	ID         SignedPreKeyID `json:"id"`
	KeyPair    KeyPair        `json:"key_pair"`
	Signature  []byte         `json:"signature"`
	CreatedUTC int64          `json:"created_utc"`
}

// Public returns the half that is published in DeviceInfo.
func (k SignedPreKey) Public() SignedPreKeyPublic {
	return SignedPreKeyPublic{ID: k.ID, Public: k.KeyPair.Public, Signature: k.Signature}
}

// SignedPreKeyPublic is only the public half (sent in bundles).
type SignedPreKeyPublic struct {
	ID        SignedPreKeyID `json:"id"`
	Public    X25519Public   `json:"public"`
	Signature []byte         `json:"signature"`
}

// OneTimePreKeyPair is the full (private+public) one-time pre-key stored locally.
type OneTimePreKeyPair struct {
	ID      OneTimePreKeyID `json:"id"`
	KeyPair KeyPair         `json:"key_pair"`
}

// OneTimePreKeyPublic is only the public half (sent in bundles).
type OneTimePreKeyPublic struct {
	ID     OneTimePreKeyID `json:"id"`
	Public X25519Public    `json:"public"`
}

// DeviceInfo is published so others can bootstrap a session asynchronously.
type DeviceInfo struct {
	UserID         UserID                      `json:"user_id"`
	DeviceID       DeviceID                    `json:"device_id"`
	RegistrationID RegistrationID              `json:"registration_id"`
	IdentityKey    X25519Public                `json:"identity_key"`
	SigningKey     Ed25519Public               `json:"signing_key"`
	SignedPreKey   SignedPreKeyPublic          `json:"signed_pre_key"`
	OneTimePreKey  Option[OneTimePreKeyPublic] `json:"one_time_pre_key"`
}

// PreKeyBundle is the name the handshake uses for a peer's DeviceInfo.
type PreKeyBundle = DeviceInfo

// PreKeyMeta tracks which pre-keys are live and the next ids to hand out.
// OneTimePreKeyIDs lists generated keys not yet published, oldest first.
type PreKeyMeta struct {
	CurrentSignedPreKeyID SignedPreKeyID    `json:"current_signed_pre_key_id"`
	NextSignedPreKeyID    SignedPreKeyID    `json:"next_signed_pre_key_id"`
	NextOneTimePreKeyID   OneTimePreKeyID   `json:"next_one_time_pre_key_id"`
	OneTimePreKeyIDs      []OneTimePreKeyID `json:"one_time_pre_key_ids"`
}
