package store

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"sigchat/internal/domain"
)

// Keyspace builds the store keys for one device.
type Keyspace struct {
	prefix string
}

// NewKeyspace returns the keyspace rooted at dev/<dev>/.
func NewKeyspace(dev domain.DeviceID) Keyspace {
	return Keyspace{prefix: "dev/" + strconv.FormatUint(uint64(dev), 10) + "/"}
}

// Prefix is the common prefix of every key in the keyspace.
func (k Keyspace) Prefix() string { return k.prefix }

func (k Keyspace) Identity() string   { return k.prefix + "identity" }
func (k Keyspace) DeviceInfo() string { return k.prefix + "device-info" }
func (k Keyspace) PreKeyMeta() string { return k.prefix + "prekey/meta" }

func (k Keyspace) SignedPreKey(id domain.SignedPreKeyID) string {
	return fmt.Sprintf("%sprekey/signed/%d", k.prefix, id)
}

func (k Keyspace) OneTimePreKey(id domain.OneTimePreKeyID) string {
	return fmt.Sprintf("%sprekey/onetime/%d", k.prefix, id)
}

func (k Keyspace) SessionPrefix() string { return k.prefix + "session/" }
func (k Keyspace) GroupPrefix() string   { return k.prefix + "group/" }

// Session returns the key for the session with peer. The peer id is escaped
// so it always forms a single path segment.
func (k Keyspace) Session(peer domain.UserID) string {
	return k.SessionPrefix() + url.PathEscape(string(peer))
}

// Group returns the key for group id.
func (k Keyspace) Group(id domain.GroupID) string {
	return k.GroupPrefix() + url.PathEscape(string(id))
}

// PendingBundles returns the key holding sender-key bundles that arrived
// before group id was joined.
func (k Keyspace) PendingBundles(id domain.GroupID) string {
	return k.prefix + "pending/" + url.PathEscape(string(id))
}

// lastSegment unescapes the id at the end of key.
func lastSegment(key, prefix string) (string, error) {
	seg, ok := strings.CutPrefix(key, prefix)
	if !ok || seg == "" || strings.Contains(seg, "/") {
		return "", fmt.Errorf("%w: %q is not under %q", ErrBadKey, key, prefix)
	}
	return url.PathUnescape(seg)
}
