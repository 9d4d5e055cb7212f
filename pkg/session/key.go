package session

import (
	"encoding/hex"
	"strings"

	"github.com/marmos91/remotefs/pkg/smburl"
	"golang.org/x/crypto/blake2b"
)

// Key identifies a session. Host comparison is case-insensitive; user and
// password compare exactly. Key is comparable and used directly as a map key.
type Key struct {
	Protocol string
	Host     string // always lowercased
	User     string
	Password string
}

// NewKey builds a key, normalizing the host.
func NewKey(protocol, host, user, password string) Key {
	return Key{
		Protocol: protocol,
		Host:     strings.ToLower(host),
		User:     user,
		Password: password,
	}
}

// KeyFromURL builds the key for parsed URL components. The port does not
// take part in session identity.
func KeyFromURL(c smburl.Components) Key {
	return NewKey(c.Protocol, c.Host, c.User, c.Password)
}

// Fingerprint returns a short digest of the whole key, password included,
// suitable for logs: two keys share a fingerprint only if they are equal.
func (k Key) Fingerprint() string {
	sum := blake2b.Sum256([]byte(k.flightKey()))
	return hex.EncodeToString(sum[:8])
}

// String renders the key without the password.
func (k Key) String() string {
	user := k.User
	if user == "" {
		user = "-"
	}
	return k.Protocol + "://" + user + "@" + k.Host
}

// flightKey is the string form used to collapse concurrent creations.
func (k Key) flightKey() string {
	return strings.Join([]string{k.Protocol, k.Host, k.User, k.Password}, "\x00")
}
